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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSliceFromData(t *testing.T) {
	buf := make([]byte, 32)
	copy(buf, "GET /index.html HTTP/1.1\r\n")

	data := buf[4:15]
	s := NewSliceFromData(buf, data)
	assert.Equal(t, uint32(4), s.Start)
	assert.Equal(t, uint32(11), s.Len)
	assert.Equal(t, data, s.Data(buf))
}

func TestNewSliceFromEmptyData(t *testing.T) {
	buf := make([]byte, 8)
	s := NewSliceFromData(buf, buf[3:3])
	assert.Equal(t, Slice{}, s)
}

func TestNewSliceFromDataTooLongPanics(t *testing.T) {
	buf := make([]byte, maxSliceLen+16)
	assert.Panics(t, func() {
		NewSliceFromData(buf, buf[:maxSliceLen+1])
	})
}

func TestSlicePushLeft(t *testing.T) {
	s := Slice{Start: 20, Len: 5}
	s = s.PushLeft(7)
	assert.Equal(t, Slice{Start: 13, Len: 5}, s)
}

func TestSliceConsumePartial(t *testing.T) {
	s := Slice{Start: 10, Len: 8}
	remaining, ok := s.consume(3)
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, Slice{Start: 13, Len: 5}, s)
}

func TestSliceConsumeExact(t *testing.T) {
	s := Slice{Start: 10, Len: 8}
	remaining, ok := s.consume(8)
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)
}

func TestSliceConsumeOverrun(t *testing.T) {
	s := Slice{Start: 10, Len: 8}
	remaining, ok := s.consume(11)
	assert.False(t, ok)
	assert.Equal(t, 3, remaining)
}
