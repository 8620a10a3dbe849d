package alert

import "unicode/utf8"

// maxCandidateLen bounds the candidate excerpt inside a notification so
// a multi-kilobyte command line does not blow past webhook body limits.
const maxCandidateLen = 3500

const truncationMarker = "\u2026"

// Truncate shortens s to at most max bytes, marker included, without
// splitting a UTF-8 sequence: the cut walks back to the nearest rune
// boundary. A multibyte rune cut in half would render as garbage in
// every chat client.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= len(truncationMarker) {
		// No room for the marker; a bare bounded cut is all we can do.
		return s[:runeBoundary(s, max)]
	}
	return s[:runeBoundary(s, max-len(truncationMarker))] + truncationMarker
}

// runeBoundary returns the largest i <= cut that starts a rune in s.
func runeBoundary(s string, cut int) int {
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return cut
}
