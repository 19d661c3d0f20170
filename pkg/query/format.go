// SPDX-License-Identifier: Apache-2.0

package query

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// Format is the wire format a parameter is sent in. The values match the
// format codes of the extended query protocol, so a []Format converts
// element-wise to the []int16 expected by pgconn.
type Format int16

const (
	FormatText   Format = pgtype.TextFormatCode
	FormatBinary Format = pgtype.BinaryFormatCode
)

const (
	// TextOID is the OID of the text type.
	TextOID uint32 = pgtype.TextOID
	// UnknownOID tags NULL parameters, letting the server infer their type.
	UnknownOID uint32 = pgtype.UnknownOID
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatBinary:
		return "binary"
	default:
		return fmt.Sprintf("format(%d)", int16(f))
	}
}

// formatFromByte maps the placeholder format character to a Format.
func formatFromByte(b byte) (Format, bool) {
	switch b {
	case 's':
		return FormatText, true
	case 'b':
		return FormatBinary, true
	default:
		return 0, false
	}
}

// FormatCodes returns the formats as the int16 codes used on the wire.
func FormatCodes(formats []Format) []int16 {
	if formats == nil {
		return nil
	}
	codes := make([]int16, len(formats))
	for i, f := range formats {
		codes[i] = int16(f)
	}
	return codes
}
