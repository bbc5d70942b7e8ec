package station

import "errors"

// Status is the lifecycle state of a station
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

var (
	ErrStationFull = errors.New("station is full")
	ErrUserBanned  = errors.New("user is banned from station")
)

type UserRef struct {
	ID       string `json:"id"`                  // Unique user id
	Nickname string `json:"nickname"`            // Display name
	Avatar   string `json:"avatarUrl,omitempty"` // Optional avatar reference
}

type Station struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	InviteCode      string    `json:"inviteCode"`
	Host            UserRef   `json:"host"`
	Status          Status    `json:"status"`
	MaxParticipants int       `json:"maxParticipants"`
	Participants    []UserRef `json:"participants"`
	Banned          []UserRef `json:"bannedUsers"`
}

// PlaybackState is the authoritative playback broadcast by the host.
// Position is only meaningful relative to ServerTime.
type PlaybackState struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	AlbumArt   string `json:"albumArt,omitempty"`
	Duration   int    `json:"duration"`  // Track length in seconds
	Position   int64  `json:"position"`  // Milliseconds into the track
	IsPlaying  bool   `json:"isPlaying"` // True if the host is playing
	VideoRef   string `json:"videoId,omitempty"`
	ServerTime int64  `json:"serverTime,omitempty"` // Unix millis the position was sampled at
}

// HasTrack reports whether the state refers to any track at all
func (p PlaybackState) HasTrack() bool {
	return p.Title != "" || p.VideoRef != ""
}

type QueueItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	AlbumArt string `json:"albumArt,omitempty"`
	Duration int64  `json:"duration"` // Milliseconds
	VideoRef string `json:"videoId,omitempty"`
}

type ChatMessage struct {
	ID     string  `json:"id"`
	Author UserRef `json:"user"`
	Text   string  `json:"message"`
	SentAt int64   `json:"sentAt"` // Unix millis
}

// CaptionSegment covers the closed interval [Start, End] in seconds
type CaptionSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"originalText"`
	Language   string  `json:"originalLang"`
	Translated string  `json:"translatedText"`
}

type CaptionState struct {
	Enabled          bool
	Available        bool
	Processing       bool
	OriginalLanguage string
	Segments         []CaptionSegment
}
