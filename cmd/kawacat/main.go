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

// Command kawacat is a demonstrative test harness for the kawa engine: it
// drives a kawa.Engine over either a file of raw HTTP bytes or connections
// accepted on a TCP listener, exactly the kind of caller the engine expects to be
// embedded inside (a reverse proxy, a gateway). It is explicitly a
// caller, never part of the engine itself: transport I/O, connection
// lifecycle, and process wiring all live here, not in kawa/h1/convert.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
