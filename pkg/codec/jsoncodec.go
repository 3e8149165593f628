// Package codec holds the wire encoding for JSON handler responses and the
// admin request bodies the router decodes.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrEmptyBody = errors.New("json: empty body")
	ErrTrailing  = errors.New("json: trailing content after value")
)

// Codec encodes handler responses and decodes request bodies.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ContentType() string
}

// JSONStrict rejects unknown fields and trailing data on decode and does
// not escape HTML on encode.
var JSONStrict Codec = jsonStrict{}

type jsonStrict struct{}

func (jsonStrict) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (jsonStrict) Unmarshal(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailing
	}
	return nil
}

func (jsonStrict) ContentType() string { return "application/json" }
