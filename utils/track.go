package utils

import "strings"

// TrackLabel renders a track as "Title - Artist"
func TrackLabel(title, artist string) string {
	if artist == "" {
		return title
	}
	return title + " - " + artist
}

// ParseTrack splits "Title - Artist" on the last separator
func ParseTrack(s string) (title, artist string) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, " - ")
	if i < 0 {
		return s, ""
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+3:])
}
