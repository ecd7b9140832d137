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
	"bytes"

	"github.com/packetd/kawa/charclass"
	"github.com/packetd/kawa/kawa"
	"github.com/packetd/kawa/storage"
)

var schemeSep = []byte("://")

// runPostprocess fires once, the instant the blank line closing the
// header block is parsed. It resolves request-URI components, normalizes
// Host/Content-Length/Transfer-Encoding, applies the response status-code
// body-size exceptions, picks body_size, appends the end-of-header Flags
// block, and drives the Engine into whichever phase body_size implies.
func runPostprocess(e *kawa.Engine) error {
	buf := e.Storage.Buf()
	detached := e.Detached()

	if detached.StatusLine.IsRequest() {
		resolveRequestURI(&detached.StatusLine, buf)
	}

	bs, err := resolveBodySize(e, buf)
	if err != nil {
		return err
	}
	e.SetBodySize(bs)

	switch bs.Kind {
	case kawa.BodySizeChunked:
		e.SetPhase(kawa.Phase{Kind: kawa.PhaseChunks, First: true})
		e.SetExpects(0)
	case kawa.BodySizeLength:
		if bs.Length == 0 {
			e.SetPhase(kawa.Phase{Kind: kawa.PhaseTerminated})
		} else {
			e.SetPhase(kawa.Phase{Kind: kawa.PhaseBody})
			e.SetExpects(bs.Length)
		}
	case kawa.BodySizeEmpty:
		e.SetPhase(kawa.Phase{Kind: kawa.PhaseBody})
		e.SetExpects(1)
	}

	e.PushBlock(kawa.NewFlagsBlock(kawa.Flags{
		EndHeader: true,
		EndStream: e.IsTerminated(),
	}))
	return nil
}

// resolveRequestURI fills StatusLine.Authority/Path from the request
// method and the raw request-target, per the request-target forms each
// method accepts (RFC 7230 §5.3, narrowed to the authority/path split a
// proxy actually needs).
func resolveRequestURI(sl *kawa.StatusLine, buf []byte) {
	method := sl.Method.Data(buf)
	uri := sl.URI.Data(buf)

	switch {
	case charclass.CompareNoCase(method, []byte("options")):
		if len(uri) == 1 && uri[0] == '*' {
			sl.URI = storage.NewStaticStore([]byte("*"))
			sl.Path = storage.EmptyStore()
			return
		}
		resolveGeneralForm(sl, buf, uri)
	case charclass.CompareNoCase(method, []byte("connect")):
		sl.Authority = sl.URI
		sl.Path = storage.NewStaticStore([]byte("/"))
	default:
		// Other methods take origin-form or authority-form only.
		if len(uri) > 0 && uri[0] == '/' {
			sl.Path = sl.URI
			return
		}
		sl.Authority = sl.URI
		sl.Path = storage.EmptyStore()
	}
}

// resolveGeneralForm handles origin-form, authority-form, and (for
// OPTIONS only) absolute-form request-targets.
func resolveGeneralForm(sl *kawa.StatusLine, buf []byte, uri []byte) {
	if len(uri) > 0 && uri[0] == '/' {
		sl.Path = sl.URI
		return
	}
	if authority, path, ok := splitAbsoluteForm(uri); ok {
		sl.Authority = storeFromBuf(buf, authority)
		if len(path) == 0 {
			sl.Path = storage.NewStaticStore([]byte("/"))
		} else {
			sl.Path = storeFromBuf(buf, path)
		}
		return
	}
	sl.Authority = sl.URI
	sl.Path = storage.EmptyStore()
}

// splitAbsoluteForm splits a `scheme://[userinfo@]authority[path]`
// request-target into its authority and path components. ok is false
// when uri has no "://" preceded by a valid scheme, i.e. it is not
// absolute-form at all.
func splitAbsoluteForm(uri []byte) (authority, path []byte, ok bool) {
	idx := bytes.Index(uri, schemeSep)
	if idx <= 0 {
		return nil, nil, false
	}
	scheme := uri[:idx]
	for _, b := range scheme {
		if !charclass.Scheme.Allows(b) {
			return nil, nil, false
		}
	}
	rest := uri[idx+len(schemeSep):]
	if at := bytes.IndexByte(rest, '@'); at >= 0 {
		rest = rest[at+1:]
	}
	if slash := bytes.IndexByte(rest, '/'); slash >= 0 {
		return rest[:slash], rest[slash:], true
	}
	return rest, nil, true
}

// storeFromBuf builds a Live Store identifying sub as a subrange of buf,
// for components synthesized from a larger already-Live field (e.g.
// Authority/Path sliced out of the request-line URI) rather than handed
// an *kawa.Engine directly.
func storeFromBuf(buf, sub []byte) storage.Store {
	if len(sub) == 0 {
		return storage.EmptyStore()
	}
	return storage.NewLiveStore(storage.NewSliceFromData(buf, sub))
}

// resolveBodySize scans the pending Header blocks for Host (elided once
// it fills an empty Authority), Content-Length (elided on exact
// duplicate, erroring on conflicting values, elided and ignored when a
// Transfer-Encoding already named chunked), and Transfer-Encoding
// (chunked wins, eliding any Content-Length already seen). It returns the
// resolved BodySize, applying the response status-code exceptions last.
func resolveBodySize(e *kawa.Engine, buf []byte) (kawa.BodySize, error) {
	detached := e.Detached()
	blocks := e.Blocks()

	var sawLength, sawChunked bool
	var lengthValue uint64
	var lengthIdx = -1

	for i := range blocks {
		b := &blocks[i]
		if b.Kind != kawa.BlockHeader || b.Header.Elided() {
			continue
		}
		key := b.Header.Key.Data(buf)

		switch {
		case charclass.CompareNoCase(key, []byte("host")):
			if detached.StatusLine.Authority.IsEmpty() {
				detached.StatusLine.Authority = b.Header.Val
			}
			b.Header.Key = storage.EmptyStore()

		case charclass.CompareNoCase(key, []byte("content-length")):
			n, ok := parseUint(b.Header.Val.Data(buf))
			if !ok {
				e.FailProcessing(kawa.PhaseHeaders, "Invalid Content-Length value")
				return kawa.BodySize{}, e.Err()
			}
			switch {
			case sawChunked:
				b.Header.Key = storage.EmptyStore()
			case sawLength:
				if n == lengthValue {
					b.Header.Key = storage.EmptyStore()
				} else {
					e.FailProcessing(kawa.PhaseHeaders, "Inconsistent Content-Length information")
					return kawa.BodySize{}, e.Err()
				}
			default:
				sawLength = true
				lengthValue = n
				lengthIdx = i
			}

		case charclass.CompareNoCase(key, []byte("transfer-encoding")):
			if isChunkedTransferEncoding(b.Header.Val.Data(buf)) {
				sawChunked = true
				if sawLength && lengthIdx >= 0 {
					blocks[lengthIdx].Header.Key = storage.EmptyStore()
				}
			}
		}
	}

	if detached.StatusLine.IsResponse() {
		code := detached.StatusLine.Code
		if code == 204 || code == 304 || (code >= 100 && code < 200) {
			return kawa.BodySize{Kind: kawa.BodySizeLength, Length: 0}, nil
		}
	}

	switch {
	case sawChunked:
		return kawa.BodySize{Kind: kawa.BodySizeChunked}, nil
	case sawLength:
		return kawa.BodySize{Kind: kawa.BodySizeLength, Length: lengthValue}, nil
	default:
		return kawa.BodySize{Kind: kawa.BodySizeEmpty}, nil
	}
}
