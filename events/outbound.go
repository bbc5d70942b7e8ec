package events

import "Tandem/station"

// Destination is the per-station publish endpoint kind. The relay client
// scopes it with the station id.
type Destination string

const (
	DestSyncRequest     Destination = "sync-request"
	DestPlaybackUpdate  Destination = "playback-update"
	DestChat            Destination = "chat"
	DestVolumeUpdate    Destination = "volume-update"
	DestQueueUpdate     Destination = "queue-update"
	DestQueueAdd        Destination = "queue-add"
	DestSubtitleEnable  Destination = "subtitle-enable"
	DestSubtitleDisable Destination = "subtitle-disable"
	DestSubtitleStatus  Destination = "subtitle-status"
)

// Publisher sends an outbound payload to a station destination
type Publisher interface {
	Publish(dest Destination, payload any) error
}

type SyncRequest struct {
	UserID string `json:"userId"`
}

// ChatSend carries a client-generated id so the relay echo can be matched
type ChatSend struct {
	ID       string `json:"id"`
	Message  string `json:"message"`
	SenderID string `json:"senderId"`
}

type CaptionRequest struct {
	SenderID string `json:"senderId"`
}

// NewPlaybackUpdate builds the outbound playback command for a state
func NewPlaybackUpdate(ps station.PlaybackState, senderID string, seq int64) PlaybackUpdate {
	return PlaybackUpdate{
		Envelope:   Envelope{Kind: TypePlaybackUpdate},
		Playback:   ps,
		VideoRef:   ps.VideoRef,
		ServerTime: ps.ServerTime,
		SenderID:   senderID,
		Seq:        seq,
	}
}

func NewVolumeUpdate(volume int, senderID string) VolumeUpdate {
	return VolumeUpdate{
		Envelope: Envelope{Kind: TypeVolumeUpdate},
		Volume:   volume,
		SenderID: senderID,
	}
}

func NewQueueUpdate(queue []station.QueueItem, senderID string) QueueUpdate {
	if queue == nil {
		queue = []station.QueueItem{}
	}
	return QueueUpdate{
		Envelope: Envelope{Kind: TypeQueueUpdate},
		Queue:    queue,
		SenderID: senderID,
	}
}

func NewQueueAdd(item station.QueueItem, senderID string) QueueAdd {
	return QueueAdd{
		Envelope: Envelope{Kind: TypeQueueAdd},
		Item:     item,
		SenderID: senderID,
	}
}
