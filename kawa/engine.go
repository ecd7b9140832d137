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

package kawa

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/packetd/kawa/storage"
)

// newError mirrors phttp.newError: every parse/processing failure is
// wrapped with pkg/errors so a caller-side log carries a stack trace back
// to the offending primitive.
func newError(format string, args ...any) error {
	return errors.Errorf(format, args...)
}

// Err returns the wrapped error for the current Error phase, or nil if
// the engine is not in an error state.
func (e *Engine) Err() error {
	if e.phase.Kind != PhaseError {
		return nil
	}
	switch e.phase.ErrKind {
	case ErrorConsuming:
		return newError("kawa: parse failed in phase %d at byte offset %d", e.phase.Marker, e.phase.Index)
	case ErrorProcessing:
		return newError("kawa: %s", e.phase.Message)
	}
	return newError("kawa: unknown error kind")
}

// Fail transitions the engine to the Error sink state with a syntactic
// Consuming{index} kind: marker records which phase the failure
// interrupted.
func (e *Engine) Fail(marker PhaseKind, index int) {
	e.phase = Phase{Kind: PhaseError, Marker: marker, ErrKind: ErrorConsuming, Index: index}
}

// FailProcessing transitions the engine to the Error sink state with a
// semantic Processing{message} kind, used by header post-processing.
func (e *Engine) FailProcessing(marker PhaseKind, message string) {
	e.phase = Phase{Kind: PhaseError, Marker: marker, ErrKind: ErrorProcessing, Message: message}
}

// PhaseKind is the parser's current high-level mode.
type PhaseKind uint8

const (
	PhaseStatusLine PhaseKind = iota
	PhaseHeaders
	PhaseCookies
	PhaseBody
	PhaseChunks
	PhaseTrailers
	PhaseTerminated
	PhaseError
)

// String renders a PhaseKind for structured logs and metric labels (e.g.
// kawametrics.Recorder.ObserveError).
func (k PhaseKind) String() string {
	switch k {
	case PhaseStatusLine:
		return "status_line"
	case PhaseHeaders:
		return "headers"
	case PhaseCookies:
		return "cookies"
	case PhaseBody:
		return "body"
	case PhaseChunks:
		return "chunks"
	case PhaseTrailers:
		return "trailers"
	case PhaseTerminated:
		return "terminated"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorKind discriminates why the parser went into PhaseError.
type ErrorKind uint8

const (
	// ErrorConsuming is a syntactic failure: a primitive failed at Index.
	ErrorConsuming ErrorKind = iota
	// ErrorProcessing is a semantic failure found during header
	// post-processing, carrying a static Message.
	ErrorProcessing
)

// Phase is the full parsing-phase value, including the sink Error state
// and the two phases (Cookies, Chunks) that carry a First flag.
type Phase struct {
	Kind  PhaseKind
	First bool // meaningful for Cookies/Chunks only

	// Error sink payload.
	Marker  PhaseKind
	ErrKind ErrorKind
	Index   int
	Message string
}

// Engine is the orchestrator: owns the Buffer and the IR, drives
// parse/prepare/consume, and maintains every global invariant. It carries
// no mutex; it is meant to be owned by exactly one goroutine, the way
// packetd's protocol.L7TCPConn owns one decoder per tuple.
type Engine struct {
	// ID is an opaque per-engine correlation id, attached to structured
	// logs so a caller embedding many engines (one per connection) can
	// tie a parse failure back to a specific stream.
	ID       uuid.UUID
	Storage  *storage.Buffer
	Kind     MessageKind
	blocks   []Block
	out      []OutBlock
	detached DetachedBlocks
	phase    Phase
	bodySize BodySize
	expects  uint64
	consumed bool
}

// NewEngine constructs an Engine in the initial StatusLine phase over buf.
func NewEngine(kind MessageKind, buf *storage.Buffer) *Engine {
	return &Engine{
		ID:      uuid.New(),
		Storage: buf,
		Kind:    kind,
		phase:   Phase{Kind: PhaseStatusLine},
	}
}

// Detached exposes the status line and cookie jar for the parser and
// converters to read and populate.
func (e *Engine) Detached() *DetachedBlocks { return &e.detached }

// Phase returns the current parsing phase value.
func (e *Engine) Phase() Phase { return e.phase }

// SetPhase is used by the parser to drive its own state machine.
func (e *Engine) SetPhase(p Phase) { e.phase = p }

// BodySize returns the resolved body-framing decision.
func (e *Engine) BodySize() BodySize { return e.bodySize }

// SetBodySize is used by header post-processing once framing is resolved.
func (e *Engine) SetBodySize(bs BodySize) { e.bodySize = bs }

// Expects returns how many more bytes the current Body/Chunks step wants.
func (e *Engine) Expects() uint64 { return e.expects }

// SetExpects updates the outstanding byte count for Body/Chunks.
func (e *Engine) SetExpects(n uint64) { e.expects = n }

// PushBlock appends one parsed Block to the pending queue.
func (e *Engine) PushBlock(b Block) { e.blocks = append(e.blocks, b) }

// Blocks exposes the pending block queue for Prepare to drain.
func (e *Engine) Blocks() []Block { return e.blocks }

// PushOut appends a Store to the output queue.
func (e *Engine) PushOut(s storage.Store) { e.out = append(e.out, NewOutStore(s)) }

// PushDelimiter appends a framing Delimiter to the output queue.
func (e *Engine) PushDelimiter() { e.out = append(e.out, NewDelimiter()) }

// Out exposes the output queue, chiefly for tests.
func (e *Engine) Out() []OutBlock { return e.out }

// PushLeft rebases every live Slice/Detached offset — in blocks, out, and
// the detached status line / jar — by subtracting n, after
// Storage.Shift() returned n. Must be called immediately after Shift or
// every outstanding reference silently points at the wrong bytes.
func (e *Engine) PushLeft(n uint32) {
	if n == 0 {
		return
	}
	for i := range e.blocks {
		b := &e.blocks[i]
		switch b.Kind {
		case BlockHeader:
			b.Header.Key = b.Header.Key.PushLeft(n)
			b.Header.Val = b.Header.Val.PushLeft(n)
		case BlockChunk:
			b.Chunk.Data = b.Chunk.Data.PushLeft(n)
		}
	}
	for i := range e.out {
		o := &e.out[i]
		if o.Kind == OutBlockStore {
			o.Store = o.Store.PushLeft(n)
		}
	}
	sl := &e.detached.StatusLine
	sl.Method = sl.Method.PushLeft(n)
	sl.Authority = sl.Authority.PushLeft(n)
	sl.Path = sl.Path.PushLeft(n)
	sl.URI = sl.URI.PushLeft(n)
	sl.Status = sl.Status.PushLeft(n)
	sl.Reason = sl.Reason.PushLeft(n)
	for i := range e.detached.Jar {
		p := &e.detached.Jar[i]
		p.Key = p.Key.PushLeft(n)
		p.Val = p.Val.PushLeft(n)
	}
}

// Converter is the block-converter visitor protocol: Initialize runs once
// before the first Block, Call runs once per Block and returns false to
// stop draining early (partial conversion), Finalize runs once after the
// queue is drained or Call stops it.
type Converter interface {
	Initialize(e *Engine)
	Call(b Block, e *Engine) bool
	Finalize(e *Engine)
}

// Prepare drains pending Blocks front-to-back through conv, which pushes
// Stores (and optionally Delimiters) onto the output queue. If Call
// returns false, Prepare stops early, leaving the remaining Blocks
// pending for a later Prepare call.
//
// Callers must not Prepare before IsMainPhase reports true: header
// post-processing scans the pending Header blocks when the blank line
// closing the header section is parsed, and blocks already drained to
// the output queue are beyond its reach (a Content-Length it should have
// elided would already be on the wire).
func (e *Engine) Prepare(conv Converter) {
	conv.Initialize(e)
	i := 0
	for ; i < len(e.blocks); i++ {
		if !conv.Call(e.blocks[i], e) {
			i++
			break
		}
	}
	e.blocks = e.blocks[i:]
	conv.Finalize(e)
}

// AsIOSlice returns the contiguous prefix of the output queue up to (not
// including) the first Delimiter, as a gather list of byte slices ready
// for a vectored write. The returned slices borrow directly from the
// Buffer/Static/Alloc backing arrays; no mutating Engine operation may
// run while the caller still holds them.
func (e *Engine) AsIOSlice() [][]byte {
	buf := e.Storage.Buf()
	out := make([][]byte, 0, len(e.out))
	for _, ob := range e.out {
		if ob.Kind == OutBlockDelimiter {
			break
		}
		if ob.Store.IsEmpty() {
			continue
		}
		out = append(out, ob.Store.Data(buf))
	}
	return out
}

// LeftmostRef computes the smallest Buffer offset still referenced by any
// live (non-Detached) Slice Store in the output queue — the lower bound
// below which Storage.start may never advance.
func (e *Engine) LeftmostRef() uint32 {
	min := uint32(0)
	found := false
	for _, ob := range e.out {
		if ob.Kind != OutBlockStore || ob.Store.Kind() != storage.Live {
			continue
		}
		start := ob.Store.Slice().Start
		if !found || start < min {
			min = start
			found = true
		}
	}
	if found {
		return min
	}
	if len(e.blocks) == 0 {
		return e.Storage.Head()
	}
	return e.Storage.Start()
}

// Consume acknowledges that the transport accepted n bytes from the front
// of the output queue: it trims fully-emitted OutBlocks, partially trims
// the first survivor, advances Storage.start up to LeftmostRef(), and
// shifts (rebasing via PushLeft) when the Buffer's compaction policy
// demands it.
func (e *Engine) Consume(n int) int {
	if n < 0 {
		panic("kawa: negative consume count")
	}
	consumed := 0
	remaining := n
	i := 0
	for ; i < len(e.out) && remaining > 0; i++ {
		ob := e.out[i]
		if ob.Kind == OutBlockDelimiter {
			i++
			break
		}
		before := ob.Store.Len()
		rem, trimmed, ok := ob.Store.Consume(remaining)
		if ok {
			consumed += remaining - rem
			e.out[i] = NewOutStore(trimmed)
			remaining = rem
			break
		}
		consumed += before
		remaining = rem
	}
	e.out = e.out[i:]
	if consumed > 0 {
		e.consumed = true
	}

	// A Delimiter immediately following everything just drained marks the
	// natural boundary as_io_slice() stopped the gather list at. Once the
	// transport has accepted every byte up to it, it has served its
	// purpose and must be dropped, or the next as_io_slice() call would
	// see an empty prefix forever.
	if consumed > 0 && len(e.out) > 0 && e.out[0].Kind == OutBlockDelimiter {
		e.out = e.out[1:]
	}

	bound := e.LeftmostRef()
	if bound > e.Storage.Start() {
		e.Storage.Consume(int(bound - e.Storage.Start()))
	}
	if e.Storage.ShouldShift() {
		amount := e.Storage.Shift()
		e.PushLeft(amount)
	}
	return consumed
}

// Clear resets blocks, out, detached payload, and phase state, readying
// the Engine for a new message on the same connection. The underlying
// slices' capacity is kept; only their length resets to zero. Buffered
// bytes in Storage are untouched.
func (e *Engine) Clear() {
	e.blocks = e.blocks[:0]
	e.out = e.out[:0]
	e.detached = DetachedBlocks{}
	e.phase = Phase{Kind: PhaseStatusLine}
	e.bodySize = BodySize{}
	e.expects = 0
	e.consumed = false
}

// Consumed reports whether any output bytes of the current message have
// already been accepted by the transport. Once true, committed converter
// output cannot be rolled back: on a later Error the caller must not
// replay the message elsewhere, only stop emitting further OutBlocks.
func (e *Engine) Consumed() bool { return e.consumed }

// IsInitial reports whether no bytes of the status line have been parsed
// yet.
func (e *Engine) IsInitial() bool { return e.phase.Kind == PhaseStatusLine }

// IsMainPhase reports whether the engine is past the status line and
// headers and into body/chunk/trailer territory.
func (e *Engine) IsMainPhase() bool {
	switch e.phase.Kind {
	case PhaseBody, PhaseChunks, PhaseTrailers, PhaseTerminated:
		return true
	}
	return false
}

// IsStreaming reports chunked-transfer mode.
func (e *Engine) IsStreaming() bool { return e.bodySize.Kind == BodySizeChunked }

// IsError reports the sink error state.
func (e *Engine) IsError() bool { return e.phase.Kind == PhaseError }

// IsTerminated reports that the message's block stream is fully parsed.
func (e *Engine) IsTerminated() bool { return e.phase.Kind == PhaseTerminated }

// IsCompleted reports that Terminated was reached AND the output queue
// has been fully drained — i.e. the message is both fully parsed and its
// conversion has finished being handed to the transport. This is
// distinct from IsTerminated, which only tracks the block stream: a
// message can be Terminated while prepared OutBlocks are still queued
// for the transport to accept.
func (e *Engine) IsCompleted() bool { return e.IsTerminated() && len(e.out) == 0 }
