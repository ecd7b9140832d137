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

package h1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/kawa/convert"
	"github.com/packetd/kawa/kawa"
	"github.com/packetd/kawa/storage"
)

func newParserEngine(kind kawa.MessageKind, capacity int) (*Parser, *kawa.Engine) {
	buf := storage.NewBuffer(capacity)
	e := kawa.NewEngine(kind, buf)
	return NewParser(e), e
}

// drainOutput runs prepare/as_io_slice/consume to exhaustion against the
// H1 converter and returns everything written, mirroring the caller loop
// the engine expects: parse -> prepare -> as_io_slice -> (external
// write) -> consume.
func drainOutput(t *testing.T, e *kawa.Engine) string {
	t.Helper()
	e.Prepare(convert.H1Converter{})
	var out []byte
	for {
		slices := e.AsIOSlice()
		if len(slices) == 0 {
			break
		}
		n := 0
		for _, s := range slices {
			out = append(out, s...)
			n += len(s)
		}
		consumed := e.Consume(n)
		require.Equal(t, n, consumed)
		if len(e.Out()) == 0 {
			break
		}
	}
	return string(out)
}

func TestSimpleRequestRoundTrip(t *testing.T) {
	input := "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 3\r\n\r\nABC"
	p, e := newParserEngine(kawa.Request, 256)
	e.Storage.Write([]byte(input))

	p.Parse()
	require.True(t, e.IsTerminated())
	bs := e.BodySize()
	require.Equal(t, kawa.BodySizeLength, bs.Kind)
	assert.EqualValues(t, 3, bs.Length)

	out := drainOutput(t, e)
	assert.Equal(t, input, out)
}

func TestChunkedWithTrailer(t *testing.T) {
	input := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nTrailer: Foo\r\n\r\n" +
		"4\r\nWiki\r\n5\r\npedia\r\n0\r\nFoo: bar\r\n\r\n"
	p, e := newParserEngine(kawa.Response, 256)
	e.Storage.Write([]byte(input))

	p.Parse()
	require.True(t, e.IsTerminated())
	assert.Equal(t, kawa.BodySizeChunked, e.BodySize().Kind)

	out := drainOutput(t, e)
	assert.Equal(t, input, out)
}

func TestCompressedThenChunkedTransferEncoding(t *testing.T) {
	input := "GET / HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: gzip,chunked\r\n\r\n0\r\n\r\n"
	p, e := newParserEngine(kawa.Request, 256)
	e.Storage.Write([]byte(input))

	p.Parse()
	assert.False(t, e.IsError())
	assert.True(t, e.IsStreaming())
	assert.True(t, e.IsTerminated())
}

func TestInconsistentContentLength(t *testing.T) {
	input := "GET / HTTP/1.1\r\nHost:x\r\nContent-Length: 3\r\nContent-Length: 4\r\n\r\nABCD"
	p, e := newParserEngine(kawa.Request, 256)
	e.Storage.Write([]byte(input))

	p.Parse()
	require.True(t, e.IsError())
	assert.Contains(t, e.Err().Error(), "Inconsistent Content-Length information")
}

func TestHostElision(t *testing.T) {
	input := "GET /path HTTP/1.1\r\nHost: example.com\r\nContent-Length: 0\r\n\r\n"
	p, e := newParserEngine(kawa.Request, 256)
	e.Storage.Write([]byte(input))

	p.Parse()
	require.True(t, e.IsTerminated())
	sl := e.Detached().StatusLine
	assert.Equal(t, "example.com", string(sl.Authority.Data(e.Storage.Buf())))

	out := drainOutput(t, e)
	assert.Equal(t, 1, countSubstring(out, "Host:"), "exactly one Host header emitted")
	assert.Contains(t, out, "Host: example.com\r\n")
}

func TestCookieCrumbsWithSpacingAnomalies(t *testing.T) {
	input := "GET / HTTP/1.1\r\nHost: x\r\nCookie: a=1; b=2;c=3; foo; ==bar=\r\nContent-Length: 0\r\n\r\n"
	p, e := newParserEngine(kawa.Request, 256)
	e.Storage.Write([]byte(input))

	p.Parse()
	require.True(t, e.IsTerminated())

	jar := e.Detached().Jar
	require.Len(t, jar, 5)
	buf := e.Storage.Buf()
	expect := [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}, {"", "foo"}, {"", "=bar="}}
	for i, want := range expect {
		assert.Equal(t, want[0], string(jar[i].Key.Data(buf)), "crumb %d key", i)
		assert.Equal(t, want[1], string(jar[i].Val.Data(buf)), "crumb %d val", i)
	}
}

func TestCookieCrumbsPreserveEmbeddedAndTrailingSpaces(t *testing.T) {
	input := "GET / HTTP/1.1\r\nHost: x\r\nCookie: a=b;  c d e  = fg h ;i=j;  k   l=  mn  \r\nContent-Length: 0\r\n\r\n"
	p, e := newParserEngine(kawa.Request, 256)
	e.Storage.Write([]byte(input))

	p.Parse()
	require.True(t, e.IsTerminated())

	jar := e.Detached().Jar
	require.Len(t, jar, 4)
	buf := e.Storage.Buf()
	expect := [][2]string{{"a", "b"}, {"c d e  ", " fg h "}, {"i", "j"}, {"k   l", "  mn  "}}
	for i, want := range expect {
		assert.Equal(t, want[0], string(jar[i].Key.Data(buf)), "crumb %d key", i)
		assert.Equal(t, want[1], string(jar[i].Val.Data(buf)), "crumb %d val", i)
	}
}

func TestPartialFeedMatchesSinglePassOutput(t *testing.T) {
	full := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nTrailer: Foo\r\n\r\n" +
		"4\r\nWiki\r\n5\r\npedia\r\n0\r\nFoo: bar\r\n\r\n"

	head := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nTrailer: Foo\r\n\r\n"
	fragments := []string{head + "4", "\r\nWi", "ki\r\n5\r\npedia\r\n0", "\r\nFoo: bar\r\n\r\n"}

	p, e := newParserEngine(kawa.Response, 256)
	var out []byte
	for _, frag := range fragments {
		n := e.Storage.Write([]byte(frag))
		require.Equal(t, len(frag), n)
		require.LessOrEqual(t, e.Storage.End(), uint32(e.Storage.Capacity()))

		p.Parse()
		e.Prepare(convert.H1Converter{})
		slices := e.AsIOSlice()
		written := 0
		for _, s := range slices {
			out = append(out, s...)
			written += len(s)
		}
		if written > 0 {
			e.Consume(written)
		}
	}
	require.True(t, e.IsTerminated())
	assert.Equal(t, full, string(out))
}

func TestShiftInvarianceUnderSmallBuffer(t *testing.T) {
	full := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nTrailer: Foo\r\n\r\n" +
		"4\r\nWiki\r\n5\r\npedia\r\n0\r\nFoo: bar\r\n\r\n"

	// A buffer smaller than the whole message forces compaction mid-parse;
	// the serialized output must be identical to the large-buffer case.
	p, e := newParserEngine(kawa.Response, 96)
	input := []byte(full)
	var out []byte
	for len(input) > 0 || !e.IsTerminated() {
		if e.Storage.AvailableSpace() < 8 {
			if amount := e.Storage.Shift(); amount > 0 {
				e.PushLeft(amount)
			}
		}
		n := e.Storage.Write(input[:min(8, len(input))])
		input = input[n:]

		p.Parse()
		require.False(t, e.IsError())
		if !e.IsMainPhase() {
			continue
		}
		e.Prepare(convert.H1Converter{})
		for {
			slices := e.AsIOSlice()
			if len(slices) == 0 {
				break
			}
			written := 0
			for _, s := range slices {
				out = append(out, s...)
				written += len(s)
			}
			e.Consume(written)
		}
	}
	require.True(t, e.IsTerminated())
	assert.Equal(t, full, string(out))
}

func TestOnHeadersFiresOncePerMessageAcrossClear(t *testing.T) {
	p, e := newParserEngine(kawa.Request, 256)
	fired := 0
	p.OnHeaders = func(*kawa.Engine) { fired++ }

	e.Storage.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nContent-Length: 0\r\n\r\n"))
	p.Parse()
	require.True(t, e.IsTerminated())
	assert.Equal(t, 1, fired)

	e.Clear()
	e.Storage.Write([]byte("GET /two HTTP/1.1\r\nHost: x\r\nContent-Length: 0\r\n\r\n"))
	p.Parse()
	require.True(t, e.IsTerminated())
	assert.Equal(t, 2, fired, "a reused engine fires OnHeaders for its next message")
}

func countSubstring(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
