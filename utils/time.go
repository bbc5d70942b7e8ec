package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPosition = errors.New("position must look like 90, 1:30 or 1:02:03")

// FormatPosition takes a position in milliseconds and formats it as M:SS, or H:MM:SS past an hour
func FormatPosition(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// ParsePosition reads seconds, M:SS or H:MM:SS and returns milliseconds
func ParsePosition(s string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, ErrInvalidPosition
	}

	var total int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, ErrInvalidPosition
		}
		if i > 0 && n >= 60 {
			return 0, ErrInvalidPosition
		}
		total = total*60 + n
	}
	return total * 1000, nil
}
