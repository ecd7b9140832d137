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

// Package convert holds the block-converter visitor protocol's concrete
// projections: H1Converter serializes the IR back onto HTTP/1 wire
// format, H2Converter is a demonstrative HTTP/2-style pseudo-header
// projection. Both satisfy kawa.Converter and are driven by
// kawa.Engine.Prepare; neither performs I/O.
package convert

import (
	"strconv"

	"github.com/packetd/kawa/kawa"
	"github.com/packetd/kawa/storage"
)

var (
	sp        = storage.NewStaticStore([]byte(" "))
	crlf      = storage.NewStaticStore([]byte("\r\n"))
	colonSp   = storage.NewStaticStore([]byte(": "))
	hostPfx   = storage.NewStaticStore([]byte("Host: "))
	cookiePfx = storage.NewStaticStore([]byte("Cookie: "))
	eqSign    = storage.NewStaticStore([]byte("="))
	semiSp    = storage.NewStaticStore([]byte("; "))
	http10    = storage.NewStaticStore([]byte("HTTP/1.0"))
	http11    = storage.NewStaticStore([]byte("HTTP/1.1"))
	zeroCRLF  = storage.NewStaticStore([]byte("0\r\n"))
)

func versionStore(v kawa.Version) storage.Store {
	if v == kawa.Version10 {
		return http10
	}
	return http11
}

// H1Converter projects the IR back onto HTTP/1 wire format. Run over an
// unmodified IR it is the identity transform for a pass-through proxy;
// it is also the rewrite point for a caller that ran Store.Modify on a
// header value before calling Prepare.
type H1Converter struct{}

// Initialize satisfies kawa.Converter; H1Converter carries no state to
// reset between messages.
func (H1Converter) Initialize(e *kawa.Engine) {}

// Finalize satisfies kawa.Converter.
func (H1Converter) Finalize(e *kawa.Engine) {}

// Call projects one Block onto the output queue as HTTP/1 wire bytes.
func (H1Converter) Call(b kawa.Block, e *kawa.Engine) bool {
	switch b.Kind {
	case kawa.BlockStatusLine:
		writeStatusLine(e)
	case kawa.BlockHeader:
		if !b.Header.Elided() {
			e.PushOut(b.Header.Key)
			e.PushOut(colonSp)
			e.PushOut(b.Header.Val)
			e.PushOut(crlf)
		}
	case kawa.BlockCookies:
		writeCookies(e)
	case kawa.BlockChunkHeader:
		e.PushOut(storage.NewAllocStore([]byte(strconv.FormatUint(b.ChunkHeader.Length, 16))))
		e.PushOut(crlf)
	case kawa.BlockChunk:
		e.PushOut(b.Chunk.Data)
	case kawa.BlockFlags:
		writeFlags(e, b.Flags)
	}
	return true
}

func writeStatusLine(e *kawa.Engine) {
	sl := e.Detached().StatusLine
	if sl.IsRequest() {
		e.PushOut(sl.Method)
		e.PushOut(sp)
		e.PushOut(sl.URI)
		e.PushOut(sp)
		e.PushOut(versionStore(sl.Version))
		e.PushOut(crlf)
		e.PushOut(hostPfx)
		e.PushOut(sl.Authority)
		e.PushOut(crlf)
		return
	}
	e.PushOut(versionStore(sl.Version))
	e.PushOut(sp)
	e.PushOut(sl.Status)
	e.PushOut(sp)
	e.PushOut(sl.Reason)
	e.PushOut(crlf)
}

// writeCookies re-synthesizes the jar as a single `Cookie: ` header. Jar
// pairs are never elided by header post-processing (elision is a Header-
// block concept), so every crumb parsed is re-emitted, including a
// bare-value crumb's empty key.
func writeCookies(e *kawa.Engine) {
	jar := e.Detached().Jar
	if len(jar) == 0 {
		return
	}
	e.PushOut(cookiePfx)
	for i, pair := range jar {
		if i > 0 {
			e.PushOut(semiSp)
		}
		e.PushOut(pair.Key)
		e.PushOut(eqSign)
		e.PushOut(pair.Val)
	}
	e.PushOut(crlf)
}

func writeFlags(e *kawa.Engine, f kawa.Flags) {
	if e.IsStreaming() && f.EndBody {
		e.PushOut(zeroCRLF)
	}
	if f.EndHeader || f.EndChunk {
		e.PushOut(crlf)
	}
}
