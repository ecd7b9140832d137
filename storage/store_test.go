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

func TestEmptyStoreIsEmpty(t *testing.T) {
	s := EmptyStore()
	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Data(nil))
}

func TestNewLiveStoreZeroLenCollapsesToEmpty(t *testing.T) {
	s := NewLiveStore(Slice{Start: 5, Len: 0})
	assert.Equal(t, Empty, s.Kind())
}

func TestLiveStoreData(t *testing.T) {
	buf := make([]byte, 16)
	copy(buf, "content-length")
	s := NewLiveStore(Slice{Start: 0, Len: 14})
	assert.Equal(t, Live, s.Kind())
	assert.Equal(t, []byte("content-length"), s.Data(buf))
	assert.Equal(t, 14, s.Len())
}

func TestDetachedStoreBehavesLikeLiveForReads(t *testing.T) {
	buf := make([]byte, 16)
	copy(buf, "sess=abc123")
	s := NewDetachedStore(Slice{Start: 0, Len: 11})
	assert.Equal(t, Detached, s.Kind())
	assert.Equal(t, []byte("sess=abc123"), s.Data(buf))
}

func TestStaticStore(t *testing.T) {
	s := NewStaticStore([]byte("close"))
	assert.Equal(t, Static, s.Kind())
	assert.Equal(t, []byte("close"), s.Data(nil))
	assert.Equal(t, 5, s.Len())
}

func TestAllocStore(t *testing.T) {
	s := NewAllocStore([]byte("rewritten"))
	assert.Equal(t, Alloc, s.Kind())
	assert.Equal(t, []byte("rewritten"), s.Data(nil))
}

func TestStorePushLeftOnlyAffectsSliceBacked(t *testing.T) {
	live := NewLiveStore(Slice{Start: 20, Len: 4}).PushLeft(5)
	assert.Equal(t, uint32(15), live.Slice().Start)

	static := NewStaticStore([]byte("x")).PushLeft(5)
	assert.Equal(t, Static, static.Kind())
}

func TestStoreConsumeLive(t *testing.T) {
	s := NewLiveStore(Slice{Start: 0, Len: 10})
	rem, trimmed, ok := s.Consume(4)
	assert.True(t, ok)
	assert.Equal(t, 0, rem)
	assert.Equal(t, uint32(4), trimmed.Slice().Start)
	assert.Equal(t, uint32(6), trimmed.Slice().Len)
}

func TestStoreConsumeLiveOverrun(t *testing.T) {
	s := NewLiveStore(Slice{Start: 0, Len: 10})
	rem, _, ok := s.Consume(13)
	assert.False(t, ok)
	assert.Equal(t, 3, rem)
}

func TestStoreConsumeEmpty(t *testing.T) {
	s := EmptyStore()
	rem, _, ok := s.Consume(5)
	assert.False(t, ok)
	assert.Equal(t, 5, rem)
}

func TestStoreConsumeStaticAndAlloc(t *testing.T) {
	st := NewStaticStore([]byte("closed"))
	rem, trimmed, ok := st.Consume(2)
	assert.True(t, ok)
	assert.Equal(t, 0, rem)
	assert.Equal(t, []byte("osed"), trimmed.Data(nil))

	al := NewAllocStore([]byte("closed"))
	rem, _, ok = al.Consume(100)
	assert.False(t, ok)
	assert.Equal(t, 94, rem)
}

func TestStoreModifyInPlaceFastPath(t *testing.T) {
	buf := make([]byte, 16)
	copy(buf, "keep-alive      ")
	s := NewLiveStore(Slice{Start: 0, Len: 10})

	out := s.Modify(buf, []byte("close"))
	assert.Equal(t, Live, out.Kind())
	assert.Equal(t, []byte("close"), out.Data(buf))
	assert.Equal(t, uint32(5), out.Slice().Len)
}

func TestStoreModifyFallsBackToAllocWhenTooShort(t *testing.T) {
	buf := make([]byte, 16)
	copy(buf, "close")
	s := NewLiveStore(Slice{Start: 0, Len: 5})

	out := s.Modify(buf, []byte("keep-alive"))
	assert.Equal(t, Alloc, out.Kind())
	assert.Equal(t, []byte("keep-alive"), out.Data(buf))
}

func TestStoreModifyNonLiveAlwaysAllocs(t *testing.T) {
	out := EmptyStore().Modify(nil, []byte("x"))
	assert.Equal(t, Alloc, out.Kind())
}
