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

// Package charclass provides compile-time byte-class lookup tables and the
// take-while scan primitives the h1 parser builds its token/value/cookie/
// URI scanning on top of. Classes are plain [256]bool tables scanned byte
// by byte, the same philosophy splitio.Scanner applies to single-byte
// line scanning via bytes.IndexByte, just generalized from one byte to a
// class of bytes.
package charclass

import "github.com/cespare/xxhash/v2"

// byteRange is one inclusive [Lo, Hi] disallowed range, the companion
// description a table is built from. Kept alongside the table so a
// fingerprint self-check can catch the table and its range-list
// definition drifting apart — the scalar table is the only evaluator in
// this Go build (no portable SIMD without assembly), but the range list
// stays the documented definition per class, ready for an accelerated
// range-compare path that must match the scalar table byte for byte.
type byteRange struct {
	Lo, Hi byte
}

// Class is one syntactic byte class: a 256-entry allow table plus the
// disallowed-range description it was generated from.
type Class struct {
	name    string
	allow   [256]bool
	denyLo  [8]byte
	denyHi  [8]byte
	denyLen int
}

func newClass(name string, allowed func(b byte) bool, deny []byteRange) Class {
	if len(deny) > 8 {
		panic("charclass: range list exceeds 8 entries")
	}
	c := Class{name: name, denyLen: len(deny)}
	for i, r := range deny {
		c.denyLo[i] = r.Lo
		c.denyHi[i] = r.Hi
	}
	for i := 0; i < 256; i++ {
		c.allow[i] = allowed(byte(i))
	}
	c.checkRangesMatchTable()
	return c
}

// checkRangesMatchTable panics if any byte inside a declared deny range is
// marked allowed in the table — the range list and the scalar table must
// agree, the same way a real SIMD range-compare path would have to agree
// with its scalar fallback.
func (c *Class) checkRangesMatchTable() {
	for r := 0; r < c.denyLen; r++ {
		lo, hi := c.denyLo[r], c.denyHi[r]
		for b := int(lo); b <= int(hi); b++ {
			if c.allow[b] {
				panic("charclass: " + c.name + " table allows byte inside its own deny range")
			}
		}
	}
}

// Allows reports whether b belongs to the class.
func (c *Class) Allows(b byte) bool { return c.allow[b] }

// CompareNoCase reports whether a and b are equal as ASCII bytes once
// 'A'-'Z' are folded to 'a'-'z'. Unequal lengths are never equal,
// regardless of case.
func CompareNoCase(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Fingerprint hashes the table with xxhash, so a caller (or a test) can
// assert that two builds of the same Class produce byte-identical tables
// — the parity check an accelerated range-compare path would be held to,
// given this build has only the scalar path.
func (c *Class) Fingerprint() uint64 {
	var buf [256]byte
	for i, v := range c.allow {
		if v {
			buf[i] = 1
		}
	}
	return xxhash.Sum64(buf[:])
}

// TakeWhileStreaming scans data for the longest prefix allowed by the
// class. If the whole input is allowed (no disallowed byte observed
// before data runs out), the match is incomplete: the caller must supply
// more bytes before a final decision can be made. minLen additionally
// requires at least that many matched bytes before a match is considered
// final; a complete-but-undersized match is also reported incomplete.
func (c *Class) TakeWhileStreaming(data []byte, minLen int) (matched, rest []byte, incomplete bool) {
	i := 0
	for ; i < len(data); i++ {
		if !c.allow[data[i]] {
			if i < minLen {
				return nil, nil, true
			}
			return data[:i], data[i:], false
		}
	}
	return nil, nil, true
}

// TakeWhileComplete scans data for the longest prefix allowed by the
// class, treating end of input as end of match (no incomplete signal).
func (c *Class) TakeWhileComplete(data []byte, minLen int) (matched, rest []byte, ok bool) {
	i := 0
	for ; i < len(data); i++ {
		if !c.allow[data[i]] {
			break
		}
	}
	if i < minLen {
		return nil, data, false
	}
	return data[:i], data[i:], true
}

// Token matches RFC 7230 tchar: header field names, method names.
var Token = newClass("token", func(b byte) bool {
	switch {
	case b >= '0' && b <= '9', b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}, []byteRange{{0x00, 0x20}, {0x7f, 0x7f}})

// HeaderValue matches header field-values: horizontal tab, printable
// ASCII, and high-bit obs-text bytes; excludes CR/LF so a scan always
// stops exactly at the line terminator.
var HeaderValue = newClass("header-value", func(b byte) bool {
	return b == '\t' || (b >= 0x20 && b != 0x7f) || b >= 0x80
}, []byteRange{{0x00, 0x08}, {0x0a, 0x1f}, {0x7f, 0x7f}})

// CookieOctet matches RFC 6265 cookie-octet: printable ASCII minus
// whitespace, DQUOTE, comma, semicolon, and backslash.
var CookieOctet = newClass("cookie-octet", func(b byte) bool {
	switch b {
	case 0x21:
		return true
	}
	switch {
	case b >= 0x23 && b <= 0x2b:
		return true
	case b >= 0x2d && b <= 0x3a:
		return true
	case b >= 0x3c && b <= 0x5b:
		return true
	case b >= 0x5d && b <= 0x7e:
		return true
	}
	return false
}, []byteRange{{0x00, 0x20}, {0x22, 0x22}, {0x2c, 0x2c}, {0x3b, 0x3b}, {0x5c, 0x5c}, {0x7f, 0xff}})

// CookieKey matches a cookie crumb's key half: cookie-octet plus '='
// is excluded by the parser's own crumb splitter, not by this class, so
// this is identical to CookieOctet; kept distinct for readability at call
// sites and in case key/value classes diverge later.
var CookieKey = CookieOctet

// CookieValue is the value half of a cookie crumb.
var CookieValue = CookieOctet

// URIVisible matches request-target bytes: VCHAR minus space, used for
// origin-form/absolute-form/authority-form URIs.
var URIVisible = newClass("uri-visible", func(b byte) bool {
	return b > 0x20 && b != 0x7f
}, []byteRange{{0x00, 0x20}, {0x7f, 0x7f}})

// ReasonPhrase matches the status-line reason phrase: HTAB, SP, and
// VCHAR/obs-text.
var ReasonPhrase = newClass("reason-phrase", func(b byte) bool {
	return b == '\t' || b == ' ' || (b >= 0x21 && b != 0x7f)
}, []byteRange{{0x00, 0x08}, {0x0a, 0x1f}, {0x7f, 0x7f}})

// Scheme matches URI scheme bytes: ALPHA, DIGIT, '+', '-', '.'.
var Scheme = newClass("scheme", func(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '+', b == '-', b == '.':
		return true
	}
	return false
}, []byteRange{
	{0x00, 0x2a}, {0x2c, 0x2c}, {0x2f, 0x2f}, {0x3a, 0x40}, {0x5b, 0x60}, {0x7b, 0xff},
})

// Authority matches host:port bytes, including IPv6 literal brackets.
var Authority = newClass("authority", func(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '.', '_', '~', '%', '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', ':', '[', ']':
		return true
	}
	return false
}, []byteRange{{0x00, 0x20}, {0x7f, 0x7f}})

// UserInfo matches the userinfo component of an absolute-form URI,
// authority bytes plus '@'-adjacent escaping; '@' itself terminates the
// component and is excluded here so a scan stops right before it.
var UserInfo = newClass("userinfo", func(b byte) bool {
	if b == '@' {
		return false
	}
	return Authority.Allows(b)
}, []byteRange{{0x00, 0x20}, {0x40, 0x40}, {0x7f, 0x7f}})
