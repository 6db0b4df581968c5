package dot11

import "strings"

// SSIDInfo holds both the raw and sanitized forms of an SSID IE. Len is
// the original byte length (may contain nulls); Printable contains only
// printable characters.
type SSIDInfo struct {
	Len       int
	Printable string
	Hidden    bool
}

// parseSSID extracts tag 0 (SSID). A zero-length value or a value whose
// first byte is 0x00 is treated as a hidden/cloaked SSID.
func parseSSID(val []byte) *SSIDInfo {
	info := &SSIDInfo{Len: len(val)}
	if len(val) == 0 || val[0] == 0x00 {
		info.Hidden = true
		return info
	}
	info.Printable = sanitizePrintable(string(val))
	return info
}

// sanitizePrintable strips non-printable bytes (including embedded nulls)
// so the sanitized form is safe to serialize and display, while Len above
// still reflects the original raw length.
func sanitizePrintable(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r != 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}
