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
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/packetd/kawa/kawalog"
)

var (
	logLevel      string
	logFile       string
	logMaxSizeMB  int
	logMaxBackups int
)

var rootCmd = &cobra.Command{
	Use:   "kawacat",
	Short: "A test harness for the kawa streaming HTTP message engine",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		opt := kawalog.Options{Level: logLevel}
		if logFile != "" {
			// A rotating writer instead of stdout once a path is given.
			opt.Writer = zapcore.AddSync(&lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    logMaxSizeMB,
				MaxBackups: logMaxBackups,
				LocalTime:  true,
			})
		}
		kawalog.SetOptions(opt)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to a log file; rotated with lumberjack instead of writing to stdout")
	rootCmd.PersistentFlags().IntVar(&logMaxSizeMB, "log-max-size", 100, "Maximum size in MB of the log file before it gets rotated")
	rootCmd.PersistentFlags().IntVar(&logMaxBackups, "log-max-backups", 10, "Maximum number of old rotated log files to retain")
}
