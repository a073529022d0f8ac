package manifest

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

const hexDigits = "0123456789abcdef"

// writeString appends s as a JSON string without HTML escaping.
// MarshalNoEscape still escapes <, > and & for a bare string, so
// this goes through an Encoder with HTML escaping disabled.
func writeString(buf *bytes.Buffer, s string) error {
	const errCtx = "writing string"

	var sc bytes.Buffer

	enc := json.NewEncoder(&sc)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	buf.Write(bytes.TrimSuffix(sc.Bytes(), []byte("\n")))

	return nil
}

// escapeNonASCII rewrites every byte sequence outside printable
// ASCII as a \uXXXX escape, using a surrogate pair above U+FFFF.
// src must be compact JSON, where such bytes only occur inside
// strings.
func escapeNonASCII(src []byte) []byte {
	out := make([]byte, 0, len(src))

	for len(src) > 0 {
		ch := src[0]
		if ch >= 0x20 && ch < 0x7f {
			out = append(out, ch)
			src = src[1:]

			continue
		}

		r, size := utf8.DecodeRune(src)
		src = src[size:]

		if r > 0xffff {
			r -= 0x10000
			out = appendEscape(out, 0xd800+(r>>10))
			out = appendEscape(out, 0xdc00+(r&0x3ff))

			continue
		}

		out = appendEscape(out, r)
	}

	return out
}

func appendEscape(out []byte, r rune) []byte {
	return append(
		out, '\\', 'u',
		hexDigits[r>>12&0xf],
		hexDigits[r>>8&0xf],
		hexDigits[r>>4&0xf],
		hexDigits[r&0xf],
	)
}
