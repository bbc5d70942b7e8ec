package playback

import (
	"time"

	"Tandem/station"
)

// Target returns where playback should be, in milliseconds, at now. A playing
// state advances by the wall-clock time since it was broadcast; a paused one
// stays put.
func Target(ps station.PlaybackState, now time.Time) int64 {
	if !ps.IsPlaying {
		return ps.Position
	}
	elapsed := now.UnixMilli() - ps.ServerTime
	if elapsed < 0 {
		elapsed = 0
	}
	pos := ps.Position + elapsed
	if ps.Duration > 0 {
		if end := int64(ps.Duration) * 1000; pos > end {
			pos = end
		}
	}
	return pos
}

// NeedsSeek reports whether the local position has drifted further from the
// target than the threshold allows
func NeedsSeek(currentMs, targetMs int64, threshold time.Duration) bool {
	diff := currentMs - targetMs
	if diff < 0 {
		diff = -diff
	}
	return diff > threshold.Milliseconds()
}
