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
	"github.com/stretchr/testify/require"
)

func TestBufferWriteAndFill(t *testing.T) {
	b := NewBuffer(16)
	n := b.Write([]byte("hello world"))
	assert.Equal(t, 11, n)
	assert.Equal(t, 11, b.AvailableData())
	assert.Equal(t, []byte("hello world"), b.Data())
	assert.Equal(t, 5, b.AvailableSpace())
}

func TestBufferWriteSaturatesAtCapacity(t *testing.T) {
	b := NewBuffer(4)
	n := b.Write([]byte("hello world"))
	assert.Equal(t, 4, n)
	assert.True(t, b.IsFull())
}

func TestBufferAdvanceHeadAndUnparsedData(t *testing.T) {
	b := NewBuffer(16)
	b.Write([]byte("GET / HTTP/1.1\r\n"))
	assert.Equal(t, b.Used(), b.UnparsedData())

	b.AdvanceHead(4)
	assert.Equal(t, []byte("GET "), b.buf[b.start:b.head])
	assert.Equal(t, []byte("/ HTTP/1.1\r\n"), b.UnparsedData())
}

func TestBufferAdvanceHeadPastEndPanics(t *testing.T) {
	b := NewBuffer(16)
	b.Write([]byte("abc"))
	assert.Panics(t, func() { b.AdvanceHead(10) })
}

func TestBufferConsumeSaturatesAtAvailableData(t *testing.T) {
	b := NewBuffer(16)
	b.Write([]byte("abcdef"))
	b.AdvanceHead(6)

	n := b.Consume(4)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("ef"), b.Data())

	n = b.Consume(100)
	assert.Equal(t, 2, n)
	assert.True(t, b.IsEmpty())
}

func TestBufferShouldShift(t *testing.T) {
	b := NewBuffer(10)
	assert.False(t, b.ShouldShift())

	b.Write([]byte("0123456789"))
	b.AdvanceHead(10)
	b.Consume(6)
	assert.True(t, b.ShouldShift(), "start has drifted past half capacity")

	b2 := NewBuffer(10)
	b2.Write([]byte("abc"))
	b2.AdvanceHead(3)
	b2.Consume(3)
	assert.True(t, b2.ShouldShift(), "empty but not at origin")
}

func TestBufferShiftRebasesIndices(t *testing.T) {
	b := NewBuffer(16)
	b.Write([]byte("0123456789"))
	b.AdvanceHead(10)
	b.Consume(7)

	require.Equal(t, uint32(7), b.Start())
	amount := b.Shift()
	assert.Equal(t, uint32(7), amount)
	assert.Equal(t, uint32(0), b.Start())
	assert.Equal(t, []byte("789"), b.Data())
	assert.Equal(t, 13, b.AvailableSpace())
}

func TestBufferShiftNoopWhenAlreadyAtOrigin(t *testing.T) {
	b := NewBuffer(16)
	b.Write([]byte("abc"))
	amount := b.Shift()
	assert.Equal(t, uint32(0), amount)
}

func TestBufferNegativeFillPanics(t *testing.T) {
	b := NewBuffer(8)
	assert.Panics(t, func() { b.Fill(-1) })
}

func TestBufferNegativeConsumePanics(t *testing.T) {
	b := NewBuffer(8)
	assert.Panics(t, func() { b.Consume(-1) })
}

func TestBufferClearDoesNotZeroBytes(t *testing.T) {
	b := NewBuffer(8)
	b.Write([]byte("abc"))
	b.Clear()
	assert.True(t, b.IsEmpty())
	assert.Equal(t, uint32(0), b.End())
	// underlying bytes are untouched, merely unreachable through the indices
	assert.Equal(t, byte('a'), b.buf[0])
}
