// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/kawa/convert"
	"github.com/packetd/kawa/h1"
	"github.com/packetd/kawa/kawa"
	"github.com/packetd/kawa/kawalog"
	"github.com/packetd/kawa/storage"
)

var (
	parseAsResponse bool
	parseToH2       bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a file of raw HTTP/1 bytes and re-emit it through a converter",
	Args:  cobra.ExactArgs(1),
	Example: "# kawacat parse request.txt\n" +
		"# kawacat parse --response --h2 response.txt",
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseAsResponse, "response", false, "Parse the file as an HTTP/1 response instead of a request")
	parseCmd.Flags().BoolVar(&parseToH2, "h2", false, "Re-emit through convert.H2Converter instead of convert.H1Converter")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	kind := kawa.Request
	if parseAsResponse {
		kind = kawa.Response
	}

	// The buffer holds the whole file plus some slack. Neither the parser
	// nor the converters write into it: synthesized bytes (Host prefix,
	// framing) are Static or Alloc Stores outside the buffer.
	buf := storage.NewBuffer(len(data) + 256)
	if n := buf.Write(data); n != len(data) {
		return fmt.Errorf("file %d bytes exceeds harness buffer capacity", len(data))
	}

	e := kawa.NewEngine(kind, buf)
	p := h1.NewParser(e)
	p.Parse()

	if e.IsError() {
		return fmt.Errorf("parse failed in phase %s: %w", e.Phase().Kind, e.Err())
	}
	if !e.IsTerminated() {
		kawalog.Warnf("input ended mid-message (phase=%s); re-emitting what was parsed", e.Phase().Kind)
	}

	conv := kawa.Converter(convert.H1Converter{})
	if parseToH2 {
		conv = convert.H2Converter{}
	}
	e.Prepare(conv)

	out := cmd.OutOrStdout()
	for {
		slices := e.AsIOSlice()
		if len(slices) == 0 {
			break
		}
		n := 0
		for _, s := range slices {
			if _, err := out.Write(s); err != nil {
				return err
			}
			n += len(s)
		}
		e.Consume(n)
		if len(e.Out()) == 0 {
			break
		}
	}
	return nil
}
