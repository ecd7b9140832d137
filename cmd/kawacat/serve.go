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
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/kawa/convert"
	"github.com/packetd/kawa/h1"
	"github.com/packetd/kawa/kawa"
	"github.com/packetd/kawa/kawaconfig"
	"github.com/packetd/kawa/kawalog"
	"github.com/packetd/kawa/kawametrics"
	"github.com/packetd/kawa/storage"
)

var (
	listenAddr string
	serveToH2  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen on a TCP address and echo HTTP/1 requests back through the engine",
	Example: "# kawacat serve --listen :8080\n" +
		"# kawacat serve --listen :8080 --h2",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "TCP address to accept connections on")
	serveCmd.Flags().BoolVar(&serveToH2, "h2", false, "Re-emit every parsed request through convert.H2Converter instead of echoing H1 back")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	defer ln.Close()

	rec := kawametrics.NewRecorder()
	kawalog.Infof("kawacat serve listening on %s", listenAddr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go handleConn(conn, rec)
	}
}

// handleConn owns one Engine for the lifetime of one TCP connection:
// exactly one goroutine ever touches this Engine.
func handleConn(conn net.Conn, rec *kawametrics.Recorder) {
	defer conn.Close()
	log := kawalog.Default().With("remote", conn.RemoteAddr().String())

	opt := kawaconfig.DefaultEngineOptions
	buf := storage.NewBuffer(opt.BufferCapacity)
	e := kawa.NewEngine(kawa.Request, buf)
	p := h1.NewParser(e)

	read := make([]byte, 4096)
	for {
		if buf.AvailableSpace() == 0 {
			if shifted := buf.Shift(); shifted > 0 {
				e.PushLeft(shifted)
				rec.ShiftTotal.Inc()
			} else {
				log.Errorf("message exceeds buffer capacity (%d bytes), closing connection", opt.BufferCapacity)
				return
			}
		}

		n, err := conn.Read(read[:min(len(read), buf.AvailableSpace())])
		if n > 0 {
			buf.Write(read[:n])
			p.Parse()
			rec.ParseCycles.Inc()
		}
		if e.IsError() {
			rec.ObserveError(e.Phase().Marker.String())
			log.Errorf("parse error in phase %s: %v", e.Phase().Marker, e.Err())
			return
		}
		if e.IsTerminated() {
			if werr := writeResponse(conn, e, rec); werr != nil {
				log.Errorf("write response: %v", werr)
				return
			}
			e.Clear()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Errorf("read: %v", err)
			}
			return
		}
	}
}

func writeResponse(conn net.Conn, e *kawa.Engine, rec *kawametrics.Recorder) error {
	conv := kawa.Converter(convert.H1Converter{})
	if serveToH2 {
		conv = convert.H2Converter{}
	}
	start := time.Now()
	e.Prepare(conv)
	rec.PrepareLatency.Observe(time.Since(start).Seconds())

	for {
		slices := e.AsIOSlice()
		if len(slices) == 0 {
			return nil
		}
		n := 0
		for _, s := range slices {
			if _, err := conn.Write(s); err != nil {
				return err
			}
			n += len(s)
		}
		consumed := e.Consume(n)
		rec.ConsumedBytes.Add(float64(consumed))
		if len(e.Out()) == 0 {
			return nil
		}
	}
}
