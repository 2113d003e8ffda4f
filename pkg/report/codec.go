package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCodec is returned by CodecFor for formats without an encoder.
var ErrUnknownCodec = errors.New("no codec for format")

const (
	jsonExtension = ".json"
	yamlExtension = ".yaml"

	defaultJSONIndent = "  "
	defaultYAMLIndent = 2
)

// Codec defines how a Report is serialized and deserialized.
type Codec interface {
	// Encode writes rep to w.
	Encode(w io.Writer, rep Report) error
	// Decode reads a report from r into rep.
	Decode(r io.Reader, rep *Report) error
	// Extension returns the file extension for this codec.
	Extension() string
}

// JSONCodec encodes reports as JSON.
type JSONCodec struct {
	// Indent is the indentation string. Empty means compact JSON.
	Indent string
}

// NewJSONCodec creates a pretty-printing JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultJSONIndent}
}

// Encode implements Codec.
func (c *JSONCodec) Encode(w io.Writer, rep Report) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(rep)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *JSONCodec) Decode(r io.Reader, rep *Report) error {
	err := json.NewDecoder(r).Decode(rep)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// YAMLCodec encodes reports as YAML.
type YAMLCodec struct {
	Indent int
}

// NewYAMLCodec creates a YAML codec with two-space indentation.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{Indent: defaultYAMLIndent}
}

// Encode implements Codec.
func (c *YAMLCodec) Encode(w io.Writer, rep Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(c.Indent)

	err := encoder.Encode(rep)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml flush: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *YAMLCodec) Decode(r io.Reader, rep *Report) error {
	err := yaml.NewDecoder(r).Decode(rep)
	if err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *YAMLCodec) Extension() string {
	return yamlExtension
}

// CodecFor returns the codec for "json" or "yaml".
func CodecFor(format string) (Codec, error) {
	switch format {
	case "json":
		return NewJSONCodec(), nil
	case "yaml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, format)
	}
}

// WriteJSON writes rep as indented JSON.
func WriteJSON(w io.Writer, rep Report) error {
	return NewJSONCodec().Encode(w, rep)
}

// WriteYAML writes rep as YAML.
func WriteYAML(w io.Writer, rep Report) error {
	return NewYAMLCodec().Encode(w, rep)
}
