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

// Package kawaconfig is a go-ucfg-backed config layer for engine tuning
// (buffer capacity, shift thresholds, H2 pseudo-header toggles). Unlike a
// general-purpose config layer that unpacks into many unrelated sections,
// kawaconfig exposes exactly the knobs a kawa.Engine caller needs and
// nothing more.
package kawaconfig

import (
	"fmt"

	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
	"github.com/spf13/cast"
)

// Config wraps ucfg.Config the way confengine.Config does, adding the
// Has/Child/Unpack convenience methods this module exercises.
type Config struct {
	conf *ucfg.Config
}

func New(conf *ucfg.Config) *Config {
	return &Config{conf: conf}
}

func (c *Config) Has(s string) bool {
	ok, err := c.conf.Has(s, -1)
	if err != nil {
		return false
	}
	return ok
}

func (c *Config) Child(s string) (*Config, error) {
	content, err := c.conf.Child(s, -1)
	if err != nil {
		return nil, err
	}
	return &Config{conf: content}, nil
}

func (c *Config) Unpack(to any) error {
	return c.conf.Unpack(to)
}

func (c *Config) UnpackChild(s string, to any) error {
	content, err := c.conf.Child(s, -1)
	if err != nil {
		return err
	}
	return content.Unpack(to)
}

func LoadPath(path string) (*Config, error) {
	config, err := yaml.NewConfigWithFile(path, ucfg.PathSep("."))
	if err != nil {
		return nil, err
	}
	return New(config), nil
}

func LoadContent(b []byte) (*Config, error) {
	config, err := yaml.NewConfig(b)
	if err != nil {
		return nil, err
	}
	return New(config), nil
}

// EngineOptions are the tunables a caller loads from Config and passes to
// whatever constructs its storage.Buffer/kawa.Engine pairs. The engine
// itself carries no config dependency; this is purely a caller-side
// convenience, the way a Config struct backs a process's sniffer,
// processor, and exporter sections without any of them knowing about
// YAML.
type EngineOptions struct {
	// BufferCapacity sizes every storage.NewBuffer the caller allocates.
	BufferCapacity int `config:"bufferCapacity"`

	// ShiftThreshold is the minimum number of reclaimable bytes
	// (LeftmostRef - Start) before a caller bothers calling
	// storage.Buffer.Shift; shifting too eagerly wastes a memmove on a
	// buffer that still has headroom.
	ShiftThreshold int `config:"shiftThreshold"`

	// H2PseudoHeaders toggles whether a caller drives messages through
	// convert.H2Converter at all, versus convert.H1Converter only.
	H2PseudoHeaders bool `config:"h2PseudoHeaders"`
}

// DefaultEngineOptions picks conservative defaults: buffers sized in the
// low kilobytes are enough for header-dominated HTTP traffic, and a
// 4KiB shift threshold avoids compacting on every single consume() call.
var DefaultEngineOptions = EngineOptions{
	BufferCapacity: 16 * 1024,
	ShiftThreshold: 4 * 1024,
}

// Options loads an EngineOptions from the "engine" section of c, falling
// back to DefaultEngineOptions for any key the config omits.
func (c *Config) Options() (EngineOptions, error) {
	opt := DefaultEngineOptions
	if !c.Has("engine") {
		return opt, nil
	}
	if err := c.UnpackChild("engine", &opt); err != nil {
		return EngineOptions{}, fmt.Errorf("kawaconfig: unpack engine section: %w", err)
	}
	return opt, nil
}

// RawOptions is a cast-backed accessor over a plain map, mirroring
// common.Options, for callers that assemble tuning knobs from flags or
// environment variables rather than a YAML document.
type RawOptions map[string]any

func (o RawOptions) GetInt(k string, def int) int {
	raw, ok := o[k]
	if !ok {
		return def
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return def
	}
	return v
}

func (o RawOptions) GetBool(k string, def bool) bool {
	raw, ok := o[k]
	if !ok {
		return def
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return def
	}
	return v
}
