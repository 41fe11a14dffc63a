package markup

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// IsXMLChar reports whether r may appear in an XML 1.0 document.
func IsXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// Sanitize replaces ill-formed UTF-8 with U+FFFD and drops every character
// XML 1.0 forbids.
func Sanitize(data []byte) []byte {
	t := transform.Chain(
		runes.ReplaceIllFormed(),
		runes.Remove(runes.Predicate(func(r rune) bool { return !IsXMLChar(r) })),
	)
	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return data
	}
	return out
}
