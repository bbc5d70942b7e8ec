package station

// HasParticipant returns true if the user id is in the roster
func (s *Station) HasParticipant(userID string) bool {
	return indexOf(s.Participants, userID) >= 0
}

// IsBanned returns true if the user id is in the ban list
func (s *Station) IsBanned(userID string) bool {
	return indexOf(s.Banned, userID) >= 0
}

// Participant returns the roster entry for a user id
func (s *Station) Participant(userID string) (UserRef, bool) {
	if i := indexOf(s.Participants, userID); i >= 0 {
		return s.Participants[i], true
	}
	return UserRef{}, false
}

// AddParticipant appends a user to the roster. Adding an existing participant is a no-op.
func (s *Station) AddParticipant(u UserRef) error {
	if s.HasParticipant(u.ID) {
		return nil
	}
	if s.IsBanned(u.ID) {
		return ErrUserBanned
	}
	if s.MaxParticipants > 0 && len(s.Participants) >= s.MaxParticipants {
		return ErrStationFull
	}
	s.Participants = append(s.Participants, u)
	return nil
}

// RemoveParticipant drops a user from the roster, preserving the order of the rest
func (s *Station) RemoveParticipant(userID string) (UserRef, bool) {
	i := indexOf(s.Participants, userID)
	if i < 0 {
		return UserRef{}, false
	}
	u := s.Participants[i]
	s.Participants = append(s.Participants[:i:i], s.Participants[i+1:]...)
	return u, true
}

// Ban removes the user from the roster and records them in the ban list
func (s *Station) Ban(u UserRef) {
	if p, ok := s.RemoveParticipant(u.ID); ok && u.Nickname == "" {
		u = p
	}
	if !s.IsBanned(u.ID) {
		s.Banned = append(s.Banned, u)
	}
}

// Unban removes the user from the ban list. It does not re-add them to the roster.
func (s *Station) Unban(userID string) bool {
	i := indexOf(s.Banned, userID)
	if i < 0 {
		return false
	}
	s.Banned = append(s.Banned[:i:i], s.Banned[i+1:]...)
	return true
}

// Clone returns a deep copy safe to hand out of the session loop
func (s Station) Clone() Station {
	s.Participants = append([]UserRef(nil), s.Participants...)
	s.Banned = append([]UserRef(nil), s.Banned...)
	return s
}

func indexOf(users []UserRef, userID string) int {
	for i, u := range users {
		if u.ID == userID {
			return i
		}
	}
	return -1
}
