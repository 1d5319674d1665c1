package apod

import (
	"golang.org/x/text/encoding/charmap"
)

// repairText re-decodes text that older pages emit as Latin-1 bytes of
// what was really Windows-1252 content (smart quotes, accented names).
// It is best-effort: any text that cannot round-trip is returned
// unchanged, never an error. Do not tighten this; it exists to repair
// historically mis-encoded pages, not to validate them.
func repairText(s string) string {
	raw := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			// Already holds characters beyond Latin-1; nothing to repair.
			return s
		}
		raw = append(raw, byte(r))
	}

	out := make([]rune, 0, len(raw))
	for _, b := range raw {
		r := charmap.Windows1252.DecodeByte(b)
		if r == '�' {
			// Byte undefined in Windows-1252; the text was not
			// mis-encoded after all.
			return s
		}
		out = append(out, r)
	}

	return string(out)
}
