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

import "github.com/packetd/kawa/kawa"

// Parser drives one Engine's phase state machine (StatusLine -> Headers ->
// [Cookies, resolved inline] -> Body|Chunks|Terminated -> [Trailers] ->
// Terminated), one logical advance per step. Every step either consumes
// bytes and reports progress, or reports incomplete and leaves the Engine
// untouched so the caller can top up the Buffer and re-enter.
//
// Cookie crumbs are a sub-grammar of one Headers line, not a true
// suspension point: a "Cookie: ..." line is only recognized once its
// whole CRLF-terminated line is already buffered (same granularity as
// every other header), so the Cookies phase is resolved synchronously
// inside stepHeaders rather than spanning multiple Parse calls.
type Parser struct {
	Engine *kawa.Engine

	// OnHeaders, if set, fires exactly once per message, right after
	// header post-processing appends the end-of-header Flags block.
	OnHeaders func(e *kawa.Engine)

	headersFired bool
}

// NewParser returns a Parser driving e.
func NewParser(e *kawa.Engine) *Parser { return &Parser{Engine: e} }

// Parse advances the state machine as far as currently buffered bytes
// allow. It returns when a primitive signals incomplete (more bytes
// needed), the message reaches Terminated, or the Engine enters Error.
func (p *Parser) Parse() {
	e := p.Engine
	for {
		var advanced bool
		switch e.Phase().Kind {
		case kawa.PhaseStatusLine:
			advanced = p.stepStatusLine()
		case kawa.PhaseHeaders:
			advanced = p.stepHeaders()
		case kawa.PhaseBody:
			advanced = p.stepBody()
		case kawa.PhaseChunks:
			advanced = p.stepChunks()
		case kawa.PhaseTrailers:
			advanced = p.stepTrailers()
		case kawa.PhaseTerminated, kawa.PhaseError:
			return
		default:
			return
		}
		if !advanced {
			return
		}
	}
}

func (p *Parser) fireOnHeaders() {
	if p.headersFired {
		return
	}
	p.headersFired = true
	if p.OnHeaders != nil {
		p.OnHeaders(p.Engine)
	}
}

func (p *Parser) stepStatusLine() bool {
	e := p.Engine
	data := e.Storage.UnparsedData()
	line, _, ok := findLine(data)
	if !ok {
		return false
	}

	var sl kawa.StatusLine
	var pok bool
	if e.Kind == kawa.Request {
		sl, pok = parseRequestLine(e, line)
	} else {
		sl, pok = parseStatusLine(e, line)
	}
	if !pok {
		e.Fail(kawa.PhaseStatusLine, int(e.Storage.Head()))
		return false
	}

	e.Storage.AdvanceHead(len(line) + 2)
	e.Detached().StatusLine = sl
	e.PushBlock(kawa.NewStatusLineBlock())
	e.SetPhase(kawa.Phase{Kind: kawa.PhaseHeaders})
	// A new message begins here; the once-per-message OnHeaders latch
	// re-arms so a cleared, reused Engine fires it again.
	p.headersFired = false
	return true
}

func (p *Parser) stepHeaders() bool {
	e := p.Engine
	data := e.Storage.UnparsedData()
	line, _, ok := findLine(data)
	if !ok {
		return false
	}

	if len(line) == 0 {
		e.Storage.AdvanceHead(2)
		if err := runPostprocess(e); err != nil {
			return false
		}
		p.fireOnHeaders()
		return true
	}

	key, val, folded, pok := parseHeaderLine(e, line)
	if folded || !pok {
		e.Fail(kawa.PhaseHeaders, int(e.Storage.Head()))
		return false
	}
	e.Storage.AdvanceHead(len(line) + 2)

	if isCookieHeader(key.Data(e.Storage.Buf())) {
		e.PushBlock(kawa.NewCookiesBlock())
		parseCookieJar(e, stripCookieLeadingSpace(val))
		return true
	}

	e.PushBlock(kawa.NewHeaderBlock(kawa.Pair{Key: key, Val: sliceOf(e, trimOWS(val))}))
	return true
}

// parseCookieJar splits list into ';'-separated crumbs and appends one
// Pair of Detached Stores per crumb to the Engine's cookie jar, in order.
func parseCookieJar(e *kawa.Engine, list []byte) {
	if len(list) == 0 {
		return
	}
	data := list
	for {
		crumb, rest, eq := nextCookieCrumb(data)
		var pair kawa.Pair
		switch {
		case eq < 0:
			pair.Val = detachedOf(e, crumb)
		case eq == 0:
			pair.Val = detachedOf(e, crumb[1:])
		default:
			pair.Key = detachedOf(e, crumb[:eq])
			pair.Val = detachedOf(e, crumb[eq+1:])
		}
		e.Detached().Jar = append(e.Detached().Jar, pair)
		if rest == nil {
			return
		}
		data = rest
	}
}

func (p *Parser) stepBody() bool {
	e := p.Engine
	data := e.Storage.UnparsedData()
	if len(data) == 0 {
		return false
	}

	bs := e.BodySize()
	take := len(data)
	if bs.Kind == kawa.BodySizeLength {
		if remaining := e.Expects(); uint64(take) > remaining {
			take = int(remaining)
		}
	}
	if take == 0 {
		return false
	}

	chunkData := data[:take]
	e.Storage.AdvanceHead(take)
	e.PushBlock(kawa.NewChunkBlock(kawa.Chunk{Data: sliceOf(e, chunkData)}))

	if bs.Kind == kawa.BodySizeLength {
		remaining := e.Expects() - uint64(take)
		e.SetExpects(remaining)
		if remaining == 0 {
			e.PushBlock(kawa.NewFlagsBlock(kawa.Flags{EndBody: true, EndStream: true}))
			e.SetPhase(kawa.Phase{Kind: kawa.PhaseTerminated})
		}
	}
	// BodySizeEmpty is tunnel semantics: never self-terminates, per Open
	// Question (c). The caller decides when the connection is done.
	return true
}

func (p *Parser) stepChunks() bool {
	e := p.Engine
	if e.Expects() == 0 {
		return p.stepChunkSizeLine()
	}

	data := e.Storage.UnparsedData()
	if len(data) == 0 {
		return false
	}
	take := len(data)
	remaining := e.Expects()
	if uint64(take) > remaining {
		take = int(remaining)
	}

	chunkData := data[:take]
	e.Storage.AdvanceHead(take)
	e.PushBlock(kawa.NewChunkBlock(kawa.Chunk{Data: sliceOf(e, chunkData)}))

	remaining -= uint64(take)
	e.SetExpects(remaining)
	if remaining == 0 {
		e.PushBlock(kawa.NewFlagsBlock(kawa.Flags{EndChunk: true}))
		e.SetPhase(kawa.Phase{Kind: kawa.PhaseChunks, First: false})
	}
	return true
}

func (p *Parser) stepChunkSizeLine() bool {
	e := p.Engine
	phase := e.Phase()
	data := e.Storage.UnparsedData()
	prefix := 0

	if !phase.First {
		if len(data) < 2 {
			return false
		}
		if data[0] != '\r' || data[1] != '\n' {
			e.Fail(kawa.PhaseChunks, int(e.Storage.Head()))
			return false
		}
		data = data[2:]
		prefix = 2
	}

	line, _, ok := findLine(data)
	if !ok {
		return false
	}
	size, ok := parseChunkSize(line)
	if !ok {
		e.Fail(kawa.PhaseChunks, int(e.Storage.Head())+prefix)
		return false
	}
	e.Storage.AdvanceHead(prefix + len(line) + 2)

	if size == 0 {
		e.PushBlock(kawa.NewFlagsBlock(kawa.Flags{EndBody: true}))
		e.SetPhase(kawa.Phase{Kind: kawa.PhaseTrailers})
	} else {
		e.PushBlock(kawa.NewChunkHeaderBlock(kawa.ChunkHeader{Length: size}))
		e.SetExpects(size)
		e.SetPhase(kawa.Phase{Kind: kawa.PhaseChunks, First: false})
	}
	return true
}

func (p *Parser) stepTrailers() bool {
	e := p.Engine
	data := e.Storage.UnparsedData()
	line, _, ok := findLine(data)
	if !ok {
		return false
	}

	if len(line) == 0 {
		e.Storage.AdvanceHead(2)
		e.PushBlock(kawa.NewFlagsBlock(kawa.Flags{EndHeader: true, EndStream: true}))
		e.SetPhase(kawa.Phase{Kind: kawa.PhaseTerminated})
		return true
	}

	key, val, folded, pok := parseHeaderLine(e, line)
	if folded || !pok {
		e.Fail(kawa.PhaseTrailers, int(e.Storage.Head()))
		return false
	}
	e.Storage.AdvanceHead(len(line) + 2)
	e.PushBlock(kawa.NewHeaderBlock(kawa.Pair{Key: key, Val: sliceOf(e, trimOWS(val))}))
	return true
}
