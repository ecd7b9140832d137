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

// Slice is an offset-based reference into a Buffer's backing array. It
// never copies bytes: constructing one from a Buffer and a subslice of its
// own data is pure arithmetic on pointers.
//
// Slices assert Start <= 2^32-1 and Len <= 2^16-1: a Buffer backing this
// many live references must respect those bounds or NewSliceFromData
// panics, matching the parsing limits in the external interface contract.
type Slice struct {
	Start uint32
	Len   uint32
}

const maxSliceLen = 1<<16 - 1

// NewSliceFromData builds a Slice identifying data as a subrange of buf.
// data MUST be backed by buf (same underlying array) or the arithmetic
// below produces nonsense; callers only ever pass subslices obtained from
// Buffer.UnparsedData/Data/Buf.
func NewSliceFromData(buf, data []byte) Slice {
	if len(data) == 0 {
		return Slice{}
	}
	offset := cap(buf) - cap(data)
	if offset < 0 {
		panic("storage: data is not a subslice of buf")
	}
	if len(data) > maxSliceLen {
		panic("storage: slice larger than 65535 bytes")
	}
	return Slice{Start: uint32(offset), Len: uint32(len(data))}
}

// Data returns the byte range this Slice identifies within buf.
func (s Slice) Data(buf []byte) []byte {
	return buf[s.Start : s.Start+s.Len]
}

// PushLeft rebases the slice after a Buffer.Shift moved bytes by amount.
func (s Slice) PushLeft(amount uint32) Slice {
	s.Start -= amount
	return s
}

// consume trims amount bytes off the front. If the slice is fully consumed
// it returns (amount-Len, false); otherwise (0, true) with the
// receiver already advanced in place.
func (s *Slice) consume(amount int) (remaining int, ok bool) {
	if amount >= int(s.Len) {
		return amount - int(s.Len), false
	}
	s.Start += uint32(amount)
	s.Len -= uint32(amount)
	return 0, true
}
