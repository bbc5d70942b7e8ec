// Package events defines the JSON messages exchanged with the station relay.
// Every message carries a "type" discriminator; inbound messages decode into
// one concrete struct per type so the session can dispatch on them.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"Tandem/station"
)

// Inbound message types
const (
	TypeStationDetail      = "station_detail"
	TypeParticipantsUpdate = "participants_update"
	TypePlaybackUpdate     = "playback_update"
	TypePlaybackState      = "playback_state"
	TypeChat               = "chat"
	TypeKicked             = "kicked"
	TypeStationClosed      = "station_closed"
	TypeVolumeUpdate       = "volume_update"
	TypeQueueUpdate        = "queue_update"
	TypeQueueAdd           = "queue_add"
	TypeHostChanged        = "host_changed"
	TypeSubtitleEnabled    = "subtitle_enabled"
	TypeSubtitleDisabled   = "subtitle_disabled"
	TypeSubtitleReady      = "subtitle_ready"
	TypeSubtitleStatus     = "subtitle_status"
	TypeTitleChanged       = "title_changed"
	TypePong               = "pong"
)

// Roster actions carried by participants_update
const (
	ActionJoin     = "JOIN"
	ActionLeave    = "LEAVE"
	ActionKick     = "KICK"
	ActionBan      = "BAN"
	ActionUnban    = "UNBAN"
	ActionTransfer = "TRANSFER"
	ActionClose    = "CLOSE"
)

var ErrMalformed = errors.New("malformed event")

// Event is any decoded inbound message
type Event interface {
	Type() string
}

// Envelope holds the discriminator shared by every message
type Envelope struct {
	Kind string `json:"type"`
}

func (e Envelope) Type() string { return e.Kind }

// CaptionBundle is the caption part of a station snapshot or status reply
type CaptionBundle struct {
	Enabled          bool                     `json:"enabled"`
	Available        bool                     `json:"available"`
	Processing       bool                     `json:"processing"`
	OriginalLanguage string                   `json:"originalLang,omitempty"`
	Segments         []station.CaptionSegment `json:"segments,omitempty"`
}

type StationDetail struct {
	Envelope
	Station  station.Station        `json:"station"`
	Playback *station.PlaybackState `json:"playbackState,omitempty"`
	VideoRef string                 `json:"videoId,omitempty"`
	Queue    []station.QueueItem    `json:"queue,omitempty"`
	Volume   *int                   `json:"volume,omitempty"`
	Captions *CaptionBundle         `json:"subtitle,omitempty"`
}

type ParticipantsUpdate struct {
	Envelope
	Participants []station.UserRef `json:"participants"`
	Host         *station.UserRef  `json:"host,omitempty"`
	Status       station.Status    `json:"status,omitempty"`
	Action       string            `json:"action,omitempty"`
	AffectedUser *station.UserRef  `json:"affectedUser,omitempty"`
}

// PlaybackUpdate is both the inbound playback broadcast and the outbound
// playback command, so an echoed publish has the same shape it was sent with.
type PlaybackUpdate struct {
	Envelope
	Playback   station.PlaybackState `json:"playbackState"`
	VideoRef   string                `json:"videoId,omitempty"`
	ServerTime int64                 `json:"serverTime,omitempty"`
	SenderID   string                `json:"senderId,omitempty"`
	Seq        int64                 `json:"seq,omitempty"`
}

// State merges the optional top-level fields into the playback state
func (p *PlaybackUpdate) State() station.PlaybackState {
	ps := p.Playback
	if p.VideoRef != "" {
		ps.VideoRef = p.VideoRef
	}
	if p.ServerTime != 0 {
		ps.ServerTime = p.ServerTime
	}
	return ps
}

type Chat struct {
	Envelope
	Message station.ChatMessage `json:"message"`
}

type Kicked struct {
	Envelope
	Reason string `json:"reason,omitempty"`
}

type StationClosed struct {
	Envelope
}

type VolumeUpdate struct {
	Envelope
	Volume   int    `json:"volume"`
	SenderID string `json:"senderId,omitempty"`
}

type QueueUpdate struct {
	Envelope
	Queue    []station.QueueItem `json:"queue"`
	SenderID string              `json:"senderId,omitempty"`
}

type QueueAdd struct {
	Envelope
	Item     station.QueueItem `json:"item"`
	SenderID string            `json:"senderId,omitempty"`
}

type HostChanged struct {
	Envelope
	Host station.UserRef `json:"host"`
}

type SubtitleEnabled struct {
	Envelope
}

type SubtitleDisabled struct {
	Envelope
}

type SubtitleReady struct {
	Envelope
	Available        bool                     `json:"available"`
	OriginalLanguage string                   `json:"originalLang,omitempty"`
	Segments         []station.CaptionSegment `json:"segments,omitempty"`
}

type SubtitleStatus struct {
	Envelope
	CaptionBundle
}

type TitleChanged struct {
	Envelope
	Title string `json:"title"`
}

type Pong struct {
	Envelope
}

// Unknown is returned for message types this client does not understand
type Unknown struct {
	Envelope
	Raw json.RawMessage `json:"-"`
}

var registry = map[string]func() Event{
	TypeStationDetail:      func() Event { return &StationDetail{} },
	TypeParticipantsUpdate: func() Event { return &ParticipantsUpdate{} },
	TypePlaybackUpdate:     func() Event { return &PlaybackUpdate{} },
	TypePlaybackState:      func() Event { return &PlaybackUpdate{} },
	TypeChat:               func() Event { return &Chat{} },
	TypeKicked:             func() Event { return &Kicked{} },
	TypeStationClosed:      func() Event { return &StationClosed{} },
	TypeVolumeUpdate:       func() Event { return &VolumeUpdate{} },
	TypeQueueUpdate:        func() Event { return &QueueUpdate{} },
	TypeQueueAdd:           func() Event { return &QueueAdd{} },
	TypeHostChanged:        func() Event { return &HostChanged{} },
	TypeSubtitleEnabled:    func() Event { return &SubtitleEnabled{} },
	TypeSubtitleDisabled:   func() Event { return &SubtitleDisabled{} },
	TypeSubtitleReady:      func() Event { return &SubtitleReady{} },
	TypeSubtitleStatus:     func() Event { return &SubtitleStatus{} },
	TypeTitleChanged:       func() Event { return &TitleChanged{} },
	TypePong:               func() Event { return &Pong{} },
}

// Decode parses a raw relay message into its typed event. Unrecognised types
// decode to *Unknown without error.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Kind == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	factory, ok := registry[env.Kind]
	if !ok {
		return &Unknown{Envelope: env, Raw: append(json.RawMessage(nil), data...)}, nil
	}

	evt := factory()
	if err := json.Unmarshal(data, evt); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Kind, err)
	}
	return evt, nil
}
