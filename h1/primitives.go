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

// Package h1 implements the incremental, resumable HTTP/1 parser: a
// phase-driven state machine (StatusLine -> Headers -> Cookies* ->
// Body|Chunks|Terminated -> [Trailers] -> Terminated) plus the header
// post-processing that resolves body framing and URI components.
package h1

import (
	"bytes"

	"github.com/packetd/kawa/charclass"
	"github.com/packetd/kawa/kawa"
	"github.com/packetd/kawa/storage"
)

var crlf = []byte("\r\n")

// findLine locates the next CRLF-terminated line in data. ok is false when
// no CRLF is present yet — the incomplete signal every phase step checks
// before committing to a parse.
func findLine(data []byte) (line, rest []byte, ok bool) {
	idx := bytes.Index(data, crlf)
	if idx < 0 {
		return nil, nil, false
	}
	return data[:idx], data[idx+2:], true
}

// sliceOf builds a Live Store identifying sub as a subrange of the
// Engine's Buffer backing array.
func sliceOf(e *kawa.Engine, sub []byte) storage.Store {
	return storage.NewLiveStore(storage.NewSliceFromData(e.Storage.Buf(), sub))
}

// parseVersion matches "HTTP/1.0" or "HTTP/1.1" exactly.
func parseVersion(data []byte) (v kawa.Version, rest []byte, ok bool) {
	const prefix = "HTTP/1."
	if len(data) < len(prefix)+1 {
		return 0, nil, false
	}
	if string(data[:len(prefix)]) != prefix {
		return 0, nil, false
	}
	switch data[len(prefix)] {
	case '0':
		return kawa.Version10, data[len(prefix)+1:], true
	case '1':
		return kawa.Version11, data[len(prefix)+1:], true
	}
	return 0, nil, false
}

// parseStatusCode parses exactly 3 decimal digits as a status code.
func parseStatusCode(data []byte) (code uint16, rest []byte, ok bool) {
	if len(data) < 3 {
		return 0, nil, false
	}
	for i := 0; i < 3; i++ {
		if data[i] < '0' || data[i] > '9' {
			return 0, nil, false
		}
	}
	code = uint16(data[0]-'0')*100 + uint16(data[1]-'0')*10 + uint16(data[2]-'0')
	return code, data[3:], true
}

// parseRequestLine parses `token SP visible SP "HTTP/1." ("0"|"1")` (the
// trailing CRLF is stripped by findLine before this runs).
func parseRequestLine(e *kawa.Engine, line []byte) (sl kawa.StatusLine, ok bool) {
	method, rest, mok := charclass.Token.TakeWhileComplete(line, 1)
	if !mok || len(rest) == 0 || rest[0] != ' ' {
		return kawa.StatusLine{}, false
	}
	rest = rest[1:]

	uri, rest2, uok := charclass.URIVisible.TakeWhileComplete(rest, 1)
	if !uok || len(rest2) == 0 || rest2[0] != ' ' {
		return kawa.StatusLine{}, false
	}
	rest2 = rest2[1:]

	version, rest3, vok := parseVersion(rest2)
	if !vok || len(rest3) != 0 {
		return kawa.StatusLine{}, false
	}

	return kawa.StatusLine{
		Kind:    kawa.StatusLineRequest,
		Version: version,
		Method:  sliceOf(e, method),
		URI:     sliceOf(e, uri),
	}, true
}

// parseStatusLine parses `"HTTP/1." ("0"|"1") SP 3DIGIT SP reason` (CRLF
// already stripped).
func parseStatusLine(e *kawa.Engine, line []byte) (sl kawa.StatusLine, ok bool) {
	version, rest, vok := parseVersion(line)
	if !vok || len(rest) == 0 || rest[0] != ' ' {
		return kawa.StatusLine{}, false
	}
	rest = rest[1:]

	statusText := rest
	code, rest2, cok := parseStatusCode(rest)
	if !cok || len(rest2) == 0 || rest2[0] != ' ' {
		return kawa.StatusLine{}, false
	}
	statusText = statusText[:3]
	rest2 = rest2[1:]

	reason, rest3, rok := charclass.ReasonPhrase.TakeWhileComplete(rest2, 0)
	if !rok || len(rest3) != 0 {
		return kawa.StatusLine{}, false
	}

	return kawa.StatusLine{
		Kind:    kawa.StatusLineResponse,
		Version: version,
		Code:    code,
		Status:  sliceOf(e, statusText),
		Reason:  sliceOf(e, reason),
	}, true
}

// parseHeaderLine parses `token ":" OWS value OWS` (CRLF already
// stripped), returning the key and the value's raw, untrimmed bytes.
// folded reports an obsolete line-folding continuation (the line starts
// with a space/tab), which is rejected as a syntactic error rather than
// silently stripped. Callers decide how to trim val themselves: a Cookie
// header's crumbs only drop a single leading space, while every other
// header gets the full OWS trim.
func parseHeaderLine(e *kawa.Engine, line []byte) (key storage.Store, val []byte, folded bool, ok bool) {
	if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		return storage.Store{}, nil, true, false
	}
	k, rest, kok := charclass.Token.TakeWhileComplete(line, 1)
	if !kok || len(rest) == 0 || rest[0] != ':' {
		return storage.Store{}, nil, false, false
	}
	rest = rest[1:]
	v, rest2, vok := charclass.HeaderValue.TakeWhileComplete(rest, 0)
	if !vok || len(rest2) != 0 {
		return storage.Store{}, nil, false, false
	}
	return sliceOf(e, k), v, false, true
}

// trimOWS strips leading/trailing optional whitespace (space, tab) from a
// header value that has already been confirmed to consist solely of
// allowed header-value bytes.
func trimOWS(v []byte) []byte {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\t') {
		v = v[1:]
	}
	for len(v) > 0 && (v[len(v)-1] == ' ' || v[len(v)-1] == '\t') {
		v = v[:len(v)-1]
	}
	return v
}

// stripCookieLeadingSpace removes exactly the single leading space the
// header grammar's OWS contributes after "Cookie:". Unlike trimOWS it
// leaves every other byte untouched, including trailing whitespace, which
// is significant inside cookie crumbs.
func stripCookieLeadingSpace(v []byte) []byte {
	if len(v) > 0 && v[0] == ' ' {
		return v[1:]
	}
	return v
}

// isCookieHeader reports whether key names the Cookie header.
func isCookieHeader(key []byte) bool {
	return charclass.CompareNoCase(key, []byte("cookie"))
}

// nextCookieCrumb splits the next ';'-separated crumb off data, stripping
// leading spaces first. eq is the index of the crumb's first '=' byte, or -1
// for a bare-value crumb with no '='. rest is nil once this was the last
// crumb in data (scenario 6 of the testable properties:
// `a=1; b=2;c=3; foo; ==bar=` -> five crumbs, the last two bare/odd-eq).
func nextCookieCrumb(data []byte) (crumb, rest []byte, eq int) {
	for len(data) > 0 && data[0] == ' ' {
		data = data[1:]
	}
	idx := bytes.IndexByte(data, ';')
	if idx < 0 {
		return data, nil, bytes.IndexByte(data, '=')
	}
	return data[:idx], data[idx+1:], bytes.IndexByte(data[:idx], '=')
}

// detachedOf builds a Detached Store identifying sub as a subrange of the
// Engine's Buffer: readable like a Live Store but it never pins
// leftmost_ref, since cookie crumbs are logically relocated to a
// synthesized Cookie header on output.
func detachedOf(e *kawa.Engine, sub []byte) storage.Store {
	return storage.NewDetachedStore(storage.NewSliceFromData(e.Storage.Buf(), sub))
}

// parseUint parses an unsigned decimal integer with no sign, no leading
// whitespace, and at least one digit — used for Content-Length.
func parseUint(data []byte) (uint64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	var n uint64
	for _, b := range data {
		if b < '0' || b > '9' {
			return 0, false
		}
		n = n*10 + uint64(b-'0')
	}
	return n, true
}

// isChunkedTransferEncoding reports whether the last comma-separated,
// OWS-trimmed token of a Transfer-Encoding value is "chunked"
// (case-insensitive) — a compressed-then-chunked chain like "gzip,chunked"
// still counts, only the final coding determines framing.
func isChunkedTransferEncoding(val []byte) bool {
	idx := bytes.LastIndexByte(val, ',')
	last := val
	if idx >= 0 {
		last = val[idx+1:]
	}
	last = trimOWS(last)
	return charclass.CompareNoCase(last, []byte("chunked"))
}

// parseChunkSize parses a hex chunk-size line, ignoring any
// `;extension` suffix up to CRLF (CRLF already stripped by findLine).
func parseChunkSize(line []byte) (size uint64, ok bool) {
	if idx := bytes.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	if len(line) == 0 {
		return 0, false
	}
	var n uint64
	for _, b := range line {
		var d uint64
		switch {
		case b >= '0' && b <= '9':
			d = uint64(b - '0')
		case b >= 'a' && b <= 'f':
			d = uint64(b-'a') + 10
		case b >= 'A' && b <= 'F':
			d = uint64(b-'A') + 10
		default:
			return 0, false
		}
		n = n*16 + d
	}
	return n, true
}
