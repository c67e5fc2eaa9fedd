// Package textenc converts between stored bytes and document text.
//
// Names are WHATWG labels (as understood by golang.org/x/text/encoding/htmlindex)
// plus UTF8BOM, which is UTF-8 written with a byte order mark.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

const (
	UTF8    = "utf-8"
	UTF8BOM = "utf-8-bom"
	UTF16LE = "utf-16le"
	UTF16BE = "utf-16be"
)

// ErrUnknown reports an encoding name that cannot be resolved.
var ErrUnknown = errors.New("unknown encoding")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Canonical resolves name to the label used throughout the module.
// An empty name resolves to UTF8.
func Canonical(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "utf8", UTF8:
		return UTF8, nil
	case UTF8BOM, "utf8bom":
		return UTF8BOM, nil
	}
	enc, err := htmlindex.Get(n)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	canon, err := htmlindex.Name(enc)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return canon, nil
}

// Detect sniffs a byte order mark. Data without one is reported as UTF8.
func Detect(data []byte) string {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return UTF8BOM
	case bytes.HasPrefix(data, bomUTF16LE):
		return UTF16LE
	case bytes.HasPrefix(data, bomUTF16BE):
		return UTF16BE
	}
	return UTF8
}

// Decode converts data to text. With an empty name the encoding is detected.
// It returns the text and the encoding that was used.
func Decode(data []byte, name string) (string, string, error) {
	if name == "" {
		name = Detect(data)
	}
	canon, err := Canonical(name)
	if err != nil {
		return "", "", err
	}

	data = trimBOM(data, canon)
	if canon == UTF8 || canon == UTF8BOM {
		return string(data), canon, nil
	}
	enc, err := lookup(canon, false)
	if err != nil {
		return "", "", err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", canon, err)
	}
	return string(out), canon, nil
}

// Encode converts text to bytes in the named encoding.
func Encode(text, name string) ([]byte, error) {
	canon, err := Canonical(name)
	if err != nil {
		return nil, err
	}
	switch canon {
	case UTF8:
		return []byte(text), nil
	case UTF8BOM:
		return append(append([]byte(nil), bomUTF8...), text...), nil
	}
	enc, err := lookup(canon, true)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", canon, err)
	}
	return out, nil
}

func lookup(canon string, writeBOM bool) (encoding.Encoding, error) {
	policy := unicode.IgnoreBOM
	if writeBOM {
		policy = unicode.UseBOM
	}
	switch canon {
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, policy), nil
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, policy), nil
	}
	enc, err := htmlindex.Get(canon)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, canon)
	}
	return enc, nil
}

func trimBOM(data []byte, canon string) []byte {
	switch canon {
	case UTF8, UTF8BOM:
		return bytes.TrimPrefix(data, bomUTF8)
	case UTF16LE:
		return bytes.TrimPrefix(data, bomUTF16LE)
	case UTF16BE:
		return bytes.TrimPrefix(data, bomUTF16BE)
	}
	return data
}
