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

// Package kawa holds the protocol-agnostic intermediate representation and
// the engine that parses bytes into it, converts it to a target wire
// format, and tracks what the transport has consumed.
package kawa

import "github.com/packetd/kawa/storage"

// MessageKind tells the engine which grammar to expect on StatusLine: a
// request or a response. Symmetric to packetd's own Request/Response
// split in protocol/phttp.
type MessageKind uint8

const (
	Request MessageKind = iota
	Response
)

// Version is the parsed HTTP/1.x minor version (major is always 1 here;
// HTTP/1.0 vs 1.1 is all this engine's grammar distinguishes).
type Version uint8

const (
	Version10 Version = iota
	Version11
)

// Pair is a header-shaped key/value; an elided pair has an Empty key and
// converters skip it.
type Pair struct {
	Key storage.Store
	Val storage.Store
}

// Elided reports whether this Pair should be skipped by converters.
func (p Pair) Elided() bool { return p.Key.IsEmpty() }

// StatusLineKind discriminates the StatusLine tagged variant.
type StatusLineKind uint8

const (
	StatusLineUnknown StatusLineKind = iota
	StatusLineRequest
	StatusLineResponse
)

// StatusLine is the tagged request/response first line. Request fills
// Method/Authority/Path/URI; Response fills Code/Status/Reason. Authority
// and Path start Empty and are populated by header post-processing from
// URI and the Host header.
type StatusLine struct {
	Kind    StatusLineKind
	Version Version

	// Request fields.
	Method    storage.Store
	Authority storage.Store
	Path      storage.Store
	URI       storage.Store

	// Response fields.
	Code   uint16
	Status storage.Store
	Reason storage.Store
}

// IsRequest reports whether this is a Request-shaped StatusLine.
func (s StatusLine) IsRequest() bool { return s.Kind == StatusLineRequest }

// IsResponse reports whether this is a Response-shaped StatusLine.
func (s StatusLine) IsResponse() bool { return s.Kind == StatusLineResponse }

// BodySizeKind discriminates how the message body is framed.
type BodySizeKind uint8

const (
	// BodySizeUnknown is the pre-post-processing default.
	BodySizeUnknown BodySizeKind = iota
	// BodySizeChunked means Transfer-Encoding named chunked last.
	BodySizeChunked
	// BodySizeLength means an exact byte count, possibly zero, is known.
	BodySizeLength
	// BodySizeEmpty means no framing header was present: tunnel
	// semantics, body is passed through until the caller decides to
	// stop feeding bytes.
	BodySizeEmpty
)

// BodySize is the resolved framing decision header post-processing makes.
type BodySize struct {
	Kind   BodySizeKind
	Length uint64
}

// ChunkHeader carries the length in bytes of the chunk that follows it in
// the block stream (parsed from, and re-emitted as, hex on the wire).
type ChunkHeader struct {
	Length uint64
}

// Chunk is one fragment of chunk or fixed-length body payload.
type Chunk struct {
	Data storage.Store
}

// Flags are the four framing booleans emitted alongside body-ending
// transitions so a converter knows exactly when to punctuate.
type Flags struct {
	EndBody   bool
	EndChunk  bool
	EndHeader bool
	EndStream bool
}

// BlockKind discriminates the Block tagged variant.
type BlockKind uint8

const (
	BlockStatusLine BlockKind = iota
	BlockHeader
	BlockCookies
	BlockChunkHeader
	BlockChunk
	BlockFlags
)

// Block is one unit of the parsed intermediate representation. StatusLine
// and Cookies are markers whose payload lives in DetachedBlocks; Header
// carries a Pair directly; ChunkHeader/Chunk/Flags carry their own payload.
type Block struct {
	Kind        BlockKind
	Header      Pair
	ChunkHeader ChunkHeader
	Chunk       Chunk
	Flags       Flags
}

// NewStatusLineBlock returns the StatusLine marker block.
func NewStatusLineBlock() Block { return Block{Kind: BlockStatusLine} }

// NewHeaderBlock wraps a header Pair.
func NewHeaderBlock(p Pair) Block { return Block{Kind: BlockHeader, Header: p} }

// NewCookiesBlock returns the Cookies marker block.
func NewCookiesBlock() Block { return Block{Kind: BlockCookies} }

// NewChunkHeaderBlock wraps a ChunkHeader.
func NewChunkHeaderBlock(ch ChunkHeader) Block {
	return Block{Kind: BlockChunkHeader, ChunkHeader: ch}
}

// NewChunkBlock wraps a Chunk payload.
func NewChunkBlock(c Chunk) Block { return Block{Kind: BlockChunk, Chunk: c} }

// NewFlagsBlock wraps a Flags terminator.
func NewFlagsBlock(f Flags) Block { return Block{Kind: BlockFlags, Flags: f} }

// DetachedBlocks holds IR payload the converter needs independent of block
// order: the status line (filled in once, read many times) and the
// ordered cookie jar (crumbs arrive interleaved with Headers but are
// logically relocated to a single synthesized header).
type DetachedBlocks struct {
	StatusLine StatusLine
	Jar        []Pair
}

// OutBlockKind discriminates the OutBlock tagged variant.
type OutBlockKind uint8

const (
	OutBlockDelimiter OutBlockKind = iota
	OutBlockStore
)

// OutBlock is one unit of the converter's output queue: either a Store to
// write out, or a Delimiter marking a natural framing boundary where a
// gather write should stop.
type OutBlock struct {
	Kind  OutBlockKind
	Store storage.Store
}

// NewDelimiter returns the Delimiter OutBlock.
func NewDelimiter() OutBlock { return OutBlock{Kind: OutBlockDelimiter} }

// NewOutStore wraps a Store for emission.
func NewOutStore(s storage.Store) OutBlock { return OutBlock{Kind: OutBlockStore, Store: s} }
