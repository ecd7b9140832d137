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

package convert

import (
	"github.com/packetd/kawa/charclass"
	"github.com/packetd/kawa/kawa"
	"github.com/packetd/kawa/storage"
)

var (
	pseudoMethodKey    = storage.NewStaticStore([]byte(":method"))
	pseudoAuthorityKey = storage.NewStaticStore([]byte(":authority"))
	pseudoPathKey      = storage.NewStaticStore([]byte(":path"))
	pseudoSchemeKey    = storage.NewStaticStore([]byte(":scheme"))
	pseudoStatusKey    = storage.NewStaticStore([]byte(":status"))
	defaultScheme      = storage.NewStaticStore([]byte("http"))
)

// h2ForbiddenHeaders names the HTTP/1-only hop-by-hop and framing
// headers an HTTP/2 projection must strip, mirroring the pseudo vs.
// regular header split phttp2.HeaderFields draws around
// :method/:scheme/:path/:authority/:status, generalized here to the
// forbidden set a real HPACK+framing converter must enforce before
// handing headers to HPACK.
var h2ForbiddenHeaders = map[string]bool{
	"connection":        true,
	"host":              true,
	"http2-settings":    true,
	"keep-alive":        true,
	"proxy-connection":  true,
	"trailer":           true,
	"transfer-encoding": true,
	"upgrade":           true,
}

// H2Converter is a demonstrative HTTP/2-style pseudo-header projection:
// it shapes :method/:authority/:path/:scheme/:status as plain key/value
// Stores, the way phttp2.HeaderFields models pseudo vs. regular headers,
// but does not perform HPACK encoding or frame multiplexing — those stay
// external collaborators per the engine's scope (see package doc). A
// production caller swaps in a real HPACK+framing converter using this
// same Initialize/Call/Finalize contract.
type H2Converter struct{}

// Initialize satisfies kawa.Converter. Pseudo-headers are emitted from
// the StatusLine block in Call, not here: Prepare may run many times on
// one partially fed message, and anything pushed from Initialize would be
// duplicated on every call. The StatusLine block is always the first
// block of a message, so the HTTP/2 pseudo-before-regular ordering holds.
func (H2Converter) Initialize(e *kawa.Engine) {}

// Finalize satisfies kawa.Converter; H2Converter carries no state to
// flush between messages.
func (H2Converter) Finalize(e *kawa.Engine) {}

// Call projects one Block onto the output queue as an HTTP/2-style
// labeled-text header, stripping hop-by-hop/framing headers that have no
// meaning once HTTP/2 framing owns connection and stream lifecycle.
func (H2Converter) Call(b kawa.Block, e *kawa.Engine) bool {
	switch b.Kind {
	case kawa.BlockStatusLine:
		writeH2Status(e)
	case kawa.BlockHeader:
		writeH2Header(e, b.Header)
	case kawa.BlockCookies:
		writeCookies(e)
	case kawa.BlockChunkHeader:
		// HTTP/2 framing carries payload length in the frame header,
		// which belongs to the external framer, not this projection.
	case kawa.BlockChunk:
		e.PushOut(b.Chunk.Data)
		e.PushDelimiter()
	case kawa.BlockFlags:
		// END_STREAM/END_HEADERS are frame-header flags the external
		// framer sets; this demonstrative projection emits no wire
		// bytes for them.
	}
	return true
}

func writeH2Status(e *kawa.Engine) {
	sl := e.Detached().StatusLine
	if sl.IsRequest() {
		e.PushOut(pseudoMethodKey)
		e.PushOut(colonSp)
		e.PushOut(sl.Method)
		e.PushOut(crlf)

		e.PushOut(pseudoSchemeKey)
		e.PushOut(colonSp)
		e.PushOut(defaultScheme)
		e.PushOut(crlf)

		e.PushOut(pseudoAuthorityKey)
		e.PushOut(colonSp)
		e.PushOut(sl.Authority)
		e.PushOut(crlf)

		e.PushOut(pseudoPathKey)
		e.PushOut(colonSp)
		e.PushOut(sl.Path)
		e.PushOut(crlf)
		return
	}
	if !sl.IsResponse() {
		return
	}
	e.PushOut(pseudoStatusKey)
	e.PushOut(colonSp)
	e.PushOut(sl.Status)
	e.PushOut(crlf)
}

func writeH2Header(e *kawa.Engine, p kawa.Pair) {
	if p.Elided() {
		return
	}
	buf := e.Storage.Buf()
	key := p.Key.Data(buf)
	if h2ForbiddenHeaders[lowerASCII(key)] {
		return
	}
	if charclass.CompareNoCase(key, []byte("te")) && !charclass.CompareNoCase(p.Val.Data(buf), []byte("trailers")) {
		return
	}
	e.PushOut(p.Key)
	e.PushOut(colonSp)
	e.PushOut(p.Val)
	e.PushOut(crlf)
}

// lowerASCII returns an ASCII-lowercased copy of b suitable for a map
// lookup; charclass.CompareNoCase is used instead wherever a single
// comparison suffices.
func lowerASCII(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
