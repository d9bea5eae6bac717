package domain

import "unicode/utf8"

// Maximum byte lengths of the text fields of an Entry.
const (
	MaxTimeLen       = 5
	MaxDosageLen     = 24
	MaxMedicationLen = 24
	MaxTubeLen       = 12
)

// Clip returns s truncated to at most max bytes without splitting a UTF-8
// sequence.
func Clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
