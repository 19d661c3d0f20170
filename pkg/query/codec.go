// SPDX-License-Identifier: Apache-2.0

package query

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Codec converts query text between Go strings and the bytes sent to the
// server for a given client encoding.
type Codec struct {
	name string
	enc  encoding.Encoding
	// passthrough is set for encodings whose bytes are the Go string bytes.
	passthrough bool
}

const DefaultEncoding = "UTF8"

// pgEncodings maps normalised PostgreSQL encoding names to their codecs.
var pgEncodings = map[string]encoding.Encoding{
	"UTF8":     unicode.UTF8,
	"UNICODE":  unicode.UTF8,
	"SQLASCII": encoding.Nop,
	"LATIN1":   charmap.ISO8859_1,
	"LATIN2":   charmap.ISO8859_2,
	"LATIN3":   charmap.ISO8859_3,
	"LATIN4":   charmap.ISO8859_4,
	"LATIN5":   charmap.ISO8859_9,
	"LATIN6":   charmap.ISO8859_10,
	"LATIN7":   charmap.ISO8859_13,
	"LATIN8":   charmap.ISO8859_14,
	"LATIN9":   charmap.ISO8859_15,
	"LATIN10":  charmap.ISO8859_16,
	"ISO88595": charmap.ISO8859_5,
	"ISO88596": charmap.ISO8859_6,
	"ISO88597": charmap.ISO8859_7,
	"ISO88598": charmap.ISO8859_8,
	"WIN866":   charmap.CodePage866,
	"WIN874":   charmap.Windows874,
	"WIN1250":  charmap.Windows1250,
	"WIN1251":  charmap.Windows1251,
	"WIN1252":  charmap.Windows1252,
	"WIN1253":  charmap.Windows1253,
	"WIN1254":  charmap.Windows1254,
	"WIN1255":  charmap.Windows1255,
	"WIN1256":  charmap.Windows1256,
	"WIN1257":  charmap.Windows1257,
	"WIN1258":  charmap.Windows1258,
	"KOI8R":    charmap.KOI8R,
	"KOI8U":    charmap.KOI8U,
	"EUCJP":    japanese.EUCJP,
	"SJIS":     japanese.ShiftJIS,
	"EUCKR":    korean.EUCKR,
	"GBK":      simplifiedchinese.GBK,
	"GB18030":  simplifiedchinese.GB18030,
	"BIG5":     traditionalchinese.Big5,
}

// LookupCodec returns the codec for a PostgreSQL encoding name (as reported
// by the client_encoding parameter) or an IANA charset name. An empty name
// selects UTF8.
func LookupCodec(name string) (*Codec, error) {
	if name == "" {
		name = DefaultEncoding
	}

	if enc, found := pgEncodings[normaliseEncodingName(name)]; found {
		return newCodec(name, enc), nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
	}
	return newCodec(name, enc), nil
}

func newCodec(name string, enc encoding.Encoding) *Codec {
	return &Codec{
		name:        name,
		enc:         enc,
		passthrough: enc == unicode.UTF8 || enc == encoding.Nop,
	}
}

func (c *Codec) Name() string {
	return c.name
}

// IsPassthrough reports whether the codec leaves the bytes of Go strings
// unchanged.
func (c *Codec) IsPassthrough() bool {
	return c.passthrough
}

func (c *Codec) Encode(s string) ([]byte, error) {
	if c.passthrough {
		return []byte(s), nil
	}
	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding to %s: %w", c.name, err)
	}
	return b, nil
}

// Decode converts b to a Go string. Bytes that can't be decoded are kept
// as they are: the result is only meant for messages.
func (c *Codec) Decode(b []byte) string {
	if c.passthrough {
		return string(b)
	}
	s, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func normaliseEncodingName(name string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToUpper(name))
}
