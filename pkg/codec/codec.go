// Package codec converts signal payloads between Go values and wire bytes.
//
// Codecs are looked up by name. Names may be combined with "|" to build a
// pipeline, e.g. "json|binary" encodes with JSON and then base64.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCodec is returned by Get for names that were never registered.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// Codec encodes values to bytes and decodes bytes into values.
type Codec interface {
	Dumps(v any) ([]byte, error)
	Loads(data []byte, v any) error
}

// JSON encodes with encoding/json.
type JSON struct{}

func (JSON) Dumps(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Loads(data []byte, v any) error { return json.Unmarshal(data, v) }

// YAML encodes with gopkg.in/yaml.v3.
type YAML struct{}

func (YAML) Dumps(v any) ([]byte, error) { return yaml.Marshal(v) }

func (YAML) Loads(data []byte, v any) error { return yaml.Unmarshal(data, v) }

// Raw passes bytes through unchanged. It only accepts []byte or string values.
type Raw struct{}

func (Raw) Dumps(v any) ([]byte, error) {
	b, err := toBytes("raw", v)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (Raw) Loads(data []byte, v any) error {
	return fromBytes("raw", append([]byte(nil), data...), v)
}

// Binary base64-encodes raw bytes. It only accepts []byte or string values.
type Binary struct{}

func (Binary) Dumps(v any) ([]byte, error) {
	raw, err := toBytes("binary", v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

func (Binary) Loads(data []byte, v any) error {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(raw, data)
	if err != nil {
		return fmt.Errorf("codec: binary decode: %w", err)
	}
	return fromBytes("binary", raw[:n], v)
}

func toBytes(codec string, v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("codec: %s cannot encode %T", codec, v)
	}
}

func fromBytes(codec string, data []byte, v any) error {
	switch dst := v.(type) {
	case *[]byte:
		*dst = data
	case *string:
		*dst = string(data)
	default:
		return fmt.Errorf("codec: %s cannot decode into %T", codec, v)
	}
	return nil
}

// Chain runs codecs left to right on Dumps and right to left on Loads.
// Every codec after the first receives the bytes produced by its predecessor.
type Chain []Codec

func (c Chain) Dumps(v any) ([]byte, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("codec: empty chain")
	}
	data, err := c[0].Dumps(v)
	if err != nil {
		return nil, err
	}
	for _, next := range c[1:] {
		if data, err = next.Dumps(data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (c Chain) Loads(data []byte, v any) error {
	if len(c) == 0 {
		return fmt.Errorf("codec: empty chain")
	}
	for i := len(c) - 1; i > 0; i-- {
		var raw []byte
		if err := c[i].Loads(data, &raw); err != nil {
			return err
		}
		data = raw
	}
	return c[0].Loads(data, v)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{
		"json":   JSON{},
		"yaml":   YAML{},
		"binary": Binary{},
		"raw":    Raw{},
	}
)

// Register adds or replaces a named codec.
func Register(name string, c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(strings.TrimSpace(name))] = c
}

// Get resolves a codec by name. "a|b" yields Chain{a, b}.
func Get(name string) (Codec, error) {
	parts := strings.Split(name, "|")

	registryMu.RLock()
	defer registryMu.RUnlock()

	chain := make(Chain, 0, len(parts))
	for _, part := range parts {
		key := strings.ToLower(strings.TrimSpace(part))
		c, ok := registry[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, part)
		}
		chain = append(chain, c)
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

// Dumps encodes v with the named codec.
func Dumps(name string, v any) ([]byte, error) {
	c, err := Get(name)
	if err != nil {
		return nil, err
	}
	return c.Dumps(v)
}

// Loads decodes data into v with the named codec.
func Loads(name string, data []byte, v any) error {
	c, err := Get(name)
	if err != nil {
		return err
	}
	return c.Loads(data, v)
}
