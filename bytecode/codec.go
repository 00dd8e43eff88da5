package bytecode

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Codec converts pool strings to and from their on-disk bytes. Encoded text
// must not contain NUL, which terminates strings in the container.
type Codec interface {
	Encode(s string) ([]byte, error)
	Decode(b []byte) (string, error)
}

// CharmapCodec adapts an x/text encoding to the Codec interface.
type CharmapCodec struct {
	enc encoding.Encoding
}

// NewCharmapCodec returns a codec backed by enc.
func NewCharmapCodec(enc encoding.Encoding) *CharmapCodec {
	return &CharmapCodec{enc: enc}
}

// Windows1252 is the default codec.
var Windows1252 Codec = NewCharmapCodec(charmap.Windows1252)

// Encode implements Codec.
func (c *CharmapCodec) Encode(s string) ([]byte, error) {
	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return nil, fmt.Errorf("NUL byte at position %d", i)
	}
	return b, nil
}

// Decode implements Codec.
func (c *CharmapCodec) Decode(b []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	// Bytes the charmap leaves undefined decode to U+FFFD and could not be
	// written back.
	back, err := c.enc.NewEncoder().Bytes(out)
	if err != nil || !bytes.Equal(back, b) {
		return "", fmt.Errorf("bytes % x have no reversible mapping", b)
	}
	return string(out), nil
}
