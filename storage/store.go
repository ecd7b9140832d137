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

package storage

// Kind discriminates the concrete shape a Store holds. Store is a single
// concrete struct rather than an interface: on the hot parsing path boxing
// every header key/value into an interface would cost an allocation per
// field, which defeats the zero-copy point of the whole exercise.
type Kind uint8

const (
	// Empty marks an absent value: an elided header, an unset authority.
	Empty Kind = iota
	// Live is a Slice reference into the Buffer; it constrains the
	// Buffer's leftmost live offset and therefore how much of the
	// Buffer can be reclaimed.
	Live
	// Detached behaves like Live for reads but never constrains
	// leftmost_ref: used for values that are logically relocated in
	// the output stream, chiefly cookie crumbs.
	Detached
	// Static is a reference to a compile-time byte constant.
	Static
	// Alloc is an owned, heap-allocated byte slice with a read cursor,
	// for synthesized or rewritten values.
	Alloc
)

// Store is a byte-range reference: a live Slice, a relocatable Detached, a
// compile-time Static constant, or an owned Alloc.
type Store struct {
	kind   Kind
	slice  Slice
	static []byte
	alloc  []byte
}

// EmptyStore returns the absent Store value.
func EmptyStore() Store { return Store{kind: Empty} }

// NewLiveStore wraps a Slice as a live, Buffer-compaction-constraining
// Store.
func NewLiveStore(s Slice) Store {
	if s.Len == 0 {
		return EmptyStore()
	}
	return Store{kind: Live, slice: s}
}

// NewDetachedStore wraps a Slice as a Detached Store: readable like Live,
// but it never pins the Buffer's leftmost reclaimable offset.
func NewDetachedStore(s Slice) Store {
	if s.Len == 0 {
		return EmptyStore()
	}
	return Store{kind: Detached, slice: s}
}

// NewStaticStore wraps a compile-time byte constant.
func NewStaticStore(b []byte) Store {
	return Store{kind: Static, static: b}
}

// NewAllocStore wraps an owned byte slice (a synthesized or rewritten
// value materialized onto the heap).
func NewAllocStore(b []byte) Store {
	return Store{kind: Alloc, alloc: b}
}

// Kind reports which variant this Store holds.
func (s Store) Kind() Kind { return s.kind }

// IsEmpty reports whether this Store is the absent value. Converters use
// this to elide headers whose key was zeroed out during post-processing.
func (s Store) IsEmpty() bool { return s.kind == Empty }

// Slice returns the underlying Slice for Live/Detached Stores. Panics for
// any other Kind; callers must check Kind first.
func (s Store) Slice() Slice {
	if s.kind != Live && s.kind != Detached {
		panic("storage: Slice called on non-slice Store")
	}
	return s.slice
}

// Len reports the byte length without materializing data, usable for all
// Kinds.
func (s Store) Len() int {
	switch s.kind {
	case Empty:
		return 0
	case Live, Detached:
		return int(s.slice.Len)
	case Static:
		return len(s.static)
	case Alloc:
		return len(s.alloc)
	}
	return 0
}

// Data returns the bytes this Store identifies. buf is the Buffer's
// backing array; it is ignored for Static/Alloc Stores.
func (s Store) Data(buf []byte) []byte {
	switch s.kind {
	case Empty:
		return nil
	case Live, Detached:
		return s.slice.Data(buf)
	case Static:
		return s.static
	case Alloc:
		return s.alloc
	}
	return nil
}

// PushLeft rebases Live/Detached Stores after a Buffer.Shift moved bytes by
// amount; other Kinds are unaffected since they don't reference Buffer
// offsets.
func (s Store) PushLeft(amount uint32) Store {
	if s.kind == Live || s.kind == Detached {
		s.slice = s.slice.PushLeft(amount)
	}
	return s
}

// Consume trims amount bytes off the front of the Store, the way the
// engine's out-queue drains fully-emitted or partially-emitted OutBlocks.
// It returns the bytes still owed beyond this Store's length (0 if this
// Store absorbed everything) and, when the Store wasn't fully drained, the
// trimmed survivor plus true.
func (s Store) Consume(amount int) (remaining int, trimmed Store, ok bool) {
	switch s.kind {
	case Empty:
		return amount, Store{}, false
	case Live, Detached:
		sl := s.slice
		rem, live := sl.consume(amount)
		if !live {
			return rem, Store{}, false
		}
		s.slice = sl
		return 0, s, true
	case Static:
		if amount >= len(s.static) {
			return amount - len(s.static), Store{}, false
		}
		s.static = s.static[amount:]
		return 0, s, true
	case Alloc:
		if amount >= len(s.alloc) {
			return amount - len(s.alloc), Store{}, false
		}
		s.alloc = s.alloc[amount:]
		return 0, s, true
	}
	return amount, Store{}, false
}

// Modify rewrites the Store's logical value. If this is a Live Store whose
// current length is at least len(newValue), the new bytes are copied
// in-place into buf and the Slice is shrunk to fit — no allocation. Every
// other case (Empty/Detached/Static/Alloc, or a Live Store too short to
// hold the replacement) materializes an Alloc Store instead.
func (s Store) Modify(buf []byte, newValue []byte) Store {
	if s.kind == Live && int(s.slice.Len) >= len(newValue) {
		start := s.slice.Start
		copy(buf[start:int(start)+len(newValue)], newValue)
		s.slice.Len = uint32(len(newValue))
		return s
	}
	owned := make([]byte, len(newValue))
	copy(owned, newValue)
	return NewAllocStore(owned)
}
