package session

import (
	"sort"
	"strings"
	"time"
)

// Participant is a connected, named participant and their answer state for
// the current poll. Owned exclusively by the Roster; the Coordinator hands
// out copies only.
type Participant struct {
	ID          string
	Name        string
	HasAnswered bool
	Answer      int // option index; valid only while HasAnswered
	JoinedAt    time.Time
}

// ParticipantView is the read-only roster projection sent to clients.
type ParticipantView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HasAnswered bool   `json:"hasAnswered"`
	JoinedAt    int64  `json:"joinedAt"` // unix ms
}

// Roster tracks currently connected participants keyed by connection id.
// It is not safe for concurrent use; the Coordinator serializes access.
type Roster struct {
	participants map[string]*Participant
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{participants: make(map[string]*Participant)}
}

// Add registers a participant. The display name must be unique among
// connected participants, compared case-insensitively.
func (r *Roster) Add(id, name string, now time.Time) error {
	if _, ok := r.participants[id]; ok {
		return ErrDuplicateConnection
	}
	lower := strings.ToLower(name)
	for _, p := range r.participants {
		if strings.ToLower(p.Name) == lower {
			return ErrNameTaken
		}
	}
	r.participants[id] = &Participant{ID: id, Name: name, Answer: -1, JoinedAt: now}
	return nil
}

// Remove deletes a participant and returns the removed entry, or nil if the
// id was not registered. The caller is responsible for retracting the vote
// of a removed participant who had answered an active poll.
func (r *Roster) Remove(id string) *Participant {
	p, ok := r.participants[id]
	if !ok {
		return nil
	}
	delete(r.participants, id)
	return p
}

// Get returns the participant for a connection id, or nil.
func (r *Roster) Get(id string) *Participant {
	return r.participants[id]
}

// ResetAnswers clears every participant's answer state. Called once at the
// start of each new poll.
func (r *Roster) ResetAnswers() {
	for _, p := range r.participants {
		p.HasAnswered = false
		p.Answer = -1
	}
}

// AllAnswered reports whether every connected participant has answered.
// An empty roster is never all-answered, so a poll with nobody connected
// can only end by timeout.
func (r *Roster) AllAnswered() bool {
	if len(r.participants) == 0 {
		return false
	}
	for _, p := range r.participants {
		if !p.HasAnswered {
			return false
		}
	}
	return true
}

// AnsweredCount returns how many participants have answered the current poll.
func (r *Roster) AnsweredCount() int {
	n := 0
	for _, p := range r.participants {
		if p.HasAnswered {
			n++
		}
	}
	return n
}

// Size returns the number of connected participants.
func (r *Roster) Size() int {
	return len(r.participants)
}

// Snapshot returns the roster projection ordered by join time.
func (r *Roster) Snapshot() []ParticipantView {
	views := make([]ParticipantView, 0, len(r.participants))
	for _, p := range r.participants {
		views = append(views, ParticipantView{
			ID:          p.ID,
			Name:        p.Name,
			HasAnswered: p.HasAnswered,
			JoinedAt:    p.JoinedAt.UnixMilli(),
		})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].JoinedAt == views[j].JoinedAt {
			return views[i].ID < views[j].ID
		}
		return views[i].JoinedAt < views[j].JoinedAt
	})
	return views
}
