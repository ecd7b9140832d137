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

// Package storage holds the ring-style parsing buffer and the offset-based
// Slice/Store references that the kawa engine builds its IR on top of.
package storage

// Buffer is a pseudo ring buffer purpose-built for incremental parsing.
//
//	buffer        start   head      end   cap
//	v             v       v         v     v
//	[             ████████░░░░░░░░░░      ]
//
// start..head is parsed-and-retained data, head..end is unparsed data still
// waiting to be scanned, end..cap is free space the caller may Write into.
//
// Buffer never allocates beyond its initial capacity: callers that need more
// room must Shift first and, failing that, stop writing.
type Buffer struct {
	start uint32
	head  uint32
	end   uint32
	buf   []byte
}

// NewBuffer allocates a Buffer with the given fixed capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, capacity)}
}

// Start returns the parsed-and-retained lower bound.
func (b *Buffer) Start() uint32 { return b.start }

// Head returns the boundary between parsed and unparsed data.
func (b *Buffer) Head() uint32 { return b.head }

// End returns the upper bound of written data.
func (b *Buffer) End() uint32 { return b.end }

// Capacity returns the fixed size of the underlying array.
func (b *Buffer) Capacity() int { return len(b.buf) }

// AvailableData returns how many bytes are retained (start..end).
func (b *Buffer) AvailableData() int { return int(b.end - b.start) }

// AvailableSpace returns how many free bytes remain for writing.
func (b *Buffer) AvailableSpace() int { return len(b.buf) - int(b.end) }

// IsEmpty reports whether start has caught up with end.
func (b *Buffer) IsEmpty() bool { return b.start == b.end }

// IsFull reports whether the buffer has no more space to fill.
func (b *Buffer) IsFull() bool { return int(b.end) == len(b.buf) }

// Buf returns the whole backing array, for Slice/Store construction.
func (b *Buffer) Buf() []byte { return b.buf }

// MutBuf returns the whole backing array for in-place rewrites.
func (b *Buffer) MutBuf() []byte { return b.buf }

// Data returns the retained byte range start..end.
func (b *Buffer) Data() []byte { return b.buf[b.start:b.end] }

// UnparsedData returns the range the parser may still inspect: head..end.
func (b *Buffer) UnparsedData() []byte { return b.buf[b.head:b.end] }

// Used returns everything written so far: 0..end.
func (b *Buffer) Used() []byte { return b.buf[:b.end] }

// Space returns the free tail end..cap for an external fill operation to
// write into directly.
func (b *Buffer) Space() []byte { return b.buf[b.end:] }

// Fill advances end by up to count bytes, saturating at capacity. It is
// meant to be called right after the caller wrote into the slice returned
// by Space. Returns the amount actually advanced.
func (b *Buffer) Fill(count int) int {
	if count < 0 {
		panic("storage: negative fill count")
	}
	avail := b.AvailableSpace()
	if count > avail {
		count = avail
	}
	b.end += uint32(count)
	return count
}

// Write copies p into the free tail and advances end. Returns the number of
// bytes actually written (may be less than len(p) if space ran out).
func (b *Buffer) Write(p []byte) int {
	space := b.Space()
	n := copy(space, p)
	b.Fill(n)
	return n
}

// AdvanceHead marks n additional bytes of unparsed data as classified,
// panicking if head would pass end. Parsers call this as they consume unparsed_data().
func (b *Buffer) AdvanceHead(n int) {
	if n < 0 {
		panic("storage: negative head advance")
	}
	b.head += uint32(n)
	if b.head > b.end {
		panic("storage: head advanced past end")
	}
}

// Consume advances start by up to count bytes, saturating at end. Returns
// the amount actually consumed.
func (b *Buffer) Consume(count int) int {
	if count < 0 {
		panic("storage: negative consume count")
	}
	avail := b.AvailableData()
	if count > avail {
		count = avail
	}
	b.start += uint32(count)
	return count
}

// Clear resets all three indices to zero; buffered bytes are left in place
// but are no longer reachable until overwritten.
func (b *Buffer) Clear() {
	b.start = 0
	b.head = 0
	b.end = 0
}

// ShouldShift reports whether compaction is due: either start has drifted
// past half the capacity, or the buffer is empty but not already at the
// origin.
func (b *Buffer) ShouldShift() bool {
	return b.start > uint32(len(b.buf)/2) || (b.start > 0 && b.IsEmpty())
}

// Shift moves the retained range start..end down to 0..(end-start) with a
// single copy, and returns the distance bytes were moved by. The caller
// MUST immediately rebase every live Slice/Store by that amount (see
// kawa.Engine.PushLeft) or they will silently reference the wrong bytes.
func (b *Buffer) Shift() uint32 {
	amount := b.start
	if amount == 0 {
		return 0
	}
	n := b.end - b.start
	copy(b.buf[:n], b.buf[b.start:b.end])
	b.start = 0
	b.head -= amount
	b.end = n
	return amount
}
