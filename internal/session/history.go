package session

// ParticipantRecord is a participant's final answer state frozen into a
// history entry. Answer is nil when the participant never answered.
type ParticipantRecord struct {
	Name        string `json:"name"`
	Answer      *int   `json:"answer"`
	HasAnswered bool   `json:"hasAnswered"`
}

// HistoryEntry is an immutable snapshot of a poll at the moment it ended,
// paired with every participant's answer state at that moment.
type HistoryEntry struct {
	ID            int64               `json:"id"`
	Question      string              `json:"question"`
	Options       []OptionResult      `json:"options"`
	CorrectAnswer int                 `json:"correctAnswer"`
	TotalVotes    int                 `json:"totalVotes"`
	StartTime     int64               `json:"startTime"` // unix ms
	EndTime       int64               `json:"endTime"`   // unix ms
	Participants  []ParticipantRecord `json:"participants"`
}

// HistoryLog is the append-only record of concluded polls. Entries are never
// mutated or removed. Not safe for concurrent use; the Coordinator
// serializes access.
type HistoryLog struct {
	entries []HistoryEntry
}

// NewHistoryLog creates an empty history log.
func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

// Record appends an entry. It never fails.
func (l *HistoryLog) Record(entry HistoryEntry) {
	l.entries = append(l.entries, entry)
}

// List returns the recorded entries, most recent first.
func (l *HistoryLog) List() []HistoryEntry {
	out := make([]HistoryEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Len returns the number of recorded entries.
func (l *HistoryLog) Len() int {
	return len(l.entries)
}

// snapshotEntry freezes an ended poll and the roster into a history entry.
func snapshotEntry(p *Poll, roster *Roster) HistoryEntry {
	results := p.Results()
	entry := HistoryEntry{
		ID:            p.ID,
		Question:      p.Question,
		Options:       results.Options,
		CorrectAnswer: p.CorrectAnswer,
		TotalVotes:    results.TotalVotes,
		StartTime:     p.StartTime.UnixMilli(),
		EndTime:       p.EndTime.UnixMilli(),
		Participants:  make([]ParticipantRecord, 0, roster.Size()),
	}
	for _, view := range roster.Snapshot() {
		p := roster.Get(view.ID)
		rec := ParticipantRecord{Name: p.Name, HasAnswered: p.HasAnswered}
		if p.HasAnswered {
			answer := p.Answer
			rec.Answer = &answer
		}
		entry.Participants = append(entry.Participants, rec)
	}
	return entry
}
