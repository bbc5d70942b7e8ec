package station

// Store is the in-memory snapshot of a joined station. It is owned by the
// session loop and must only be touched from there.
type Store struct {
	Station  Station
	Playback PlaybackState
	Queue    []QueueItem
	Chat     []ChatMessage
	Captions CaptionState
	Volume   int

	chatIDs map[string]struct{}
}

// NewStore creates a store seeded with a fetched station
func NewStore(s Station) *Store {
	return &Store{
		Station: s,
		Volume:  100,
		chatIDs: make(map[string]struct{}),
	}
}

// ReplaceStation applies a full snapshot. The station id is never changed by a snapshot.
func (st *Store) ReplaceStation(s Station) {
	id := st.Station.ID
	st.Station = s.Clone()
	if id != "" {
		st.Station.ID = id
	}
}

// PatchParticipants applies a roster delta. Nil host or empty status leave the current value.
func (st *Store) PatchParticipants(roster []UserRef, host *UserRef, status Status) {
	if roster != nil {
		st.Station.Participants = make([]UserRef, 0, len(roster))
		for _, u := range roster {
			if st.Station.IsBanned(u.ID) {
				continue
			}
			st.Station.Participants = append(st.Station.Participants, u)
		}
	}
	if host != nil && host.ID != "" {
		st.Station.Host = *host
	}
	if status != "" {
		st.Station.Status = status
	}
}

// SetHost changes the host reference
func (st *Store) SetHost(u UserRef) {
	if u.Nickname == "" {
		if p, ok := st.Station.Participant(u.ID); ok {
			u = p
		}
	}
	st.Station.Host = u
}

func (st *Store) SetTitle(title string) {
	st.Station.Title = title
}

func (st *Store) SetPlayback(p PlaybackState) {
	st.Playback = p
}

// ReplaceQueue swaps the whole sequence
func (st *Store) ReplaceQueue(items []QueueItem) {
	st.Queue = append([]QueueItem(nil), items...)
}

// AppendQueue appends one item, ignoring ids already present
func (st *Store) AppendQueue(item QueueItem) bool {
	if item.ID != "" {
		for _, q := range st.Queue {
			if q.ID == item.ID {
				return false
			}
		}
	}
	st.Queue = append(st.Queue, item)
	return true
}

// AppendChat appends a message in arrival order, ignoring duplicate ids
func (st *Store) AppendChat(m ChatMessage) bool {
	if st.chatIDs == nil {
		st.chatIDs = make(map[string]struct{})
	}
	if m.ID != "" {
		if _, seen := st.chatIDs[m.ID]; seen {
			return false
		}
		st.chatIDs[m.ID] = struct{}{}
	}
	st.Chat = append(st.Chat, m)
	return true
}

func (st *Store) Closed() bool {
	return st.Station.Status == StatusClosed
}
