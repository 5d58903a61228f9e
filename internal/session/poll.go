package session

import (
	"math"
	"time"
)

// OptionCount is the fixed number of options per poll.
const OptionCount = 4

// DefaultTimeLimit is applied when a poll is created without a time limit.
const DefaultTimeLimit = 60 * time.Second

// Option is one answer choice of a poll with its running vote counter.
type Option struct {
	Text      string
	Index     int
	Votes     int
	IsCorrect bool
}

// Poll is the single currently tracked question, its options, vote counters
// and timing. At most one poll is active per process.
type Poll struct {
	ID            int64 // time-derived, unique per process lifetime
	Question      string
	Options       [OptionCount]Option
	CorrectAnswer int
	TimeLimit     time.Duration
	StartTime     time.Time
	EndTime       time.Time // zero until the poll ends; set exactly once
	Active        bool
}

// newPoll validates poll input and allocates an active poll. A zero timeLimit
// falls back to DefaultTimeLimit.
func newPoll(id int64, question string, options []string, correctAnswer int, timeLimit time.Duration, now time.Time) (*Poll, error) {
	if question == "" || len(options) != OptionCount {
		return nil, ErrInvalidPollData
	}
	for _, text := range options {
		if text == "" {
			return nil, ErrInvalidPollData
		}
	}
	if correctAnswer < 0 || correctAnswer >= OptionCount {
		return nil, ErrInvalidAnswerIndex
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	p := &Poll{
		ID:            id,
		Question:      question,
		CorrectAnswer: correctAnswer,
		TimeLimit:     timeLimit,
		StartTime:     now,
		Active:        true,
	}
	for i, text := range options {
		p.Options[i] = Option{Text: text, Index: i, IsCorrect: i == correctAnswer}
	}
	return p, nil
}

// TotalVotes sums the vote counters across all options.
func (p *Poll) TotalVotes() int {
	total := 0
	for i := range p.Options {
		total += p.Options[i].Votes
	}
	return total
}

// RemainingTime returns the whole seconds left on the poll clock, floored
// at zero. Used to let late joiners resume a running countdown.
func (p *Poll) RemainingTime(now time.Time) int {
	elapsed := int(now.Sub(p.StartTime).Seconds())
	limit := int(p.TimeLimit.Seconds())
	if remaining := limit - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// OptionResult is the per-option slice of the results projection.
type OptionResult struct {
	Text       string `json:"text"`
	Index      int    `json:"index"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Results is the full tally projection, recomputed on every read so the
// percentages always reflect the latest counters.
type Results struct {
	ID            int64          `json:"id"`
	Question      string         `json:"question"`
	Options       []OptionResult `json:"options"`
	TotalVotes    int            `json:"totalVotes"`
	IsActive      bool           `json:"isActive"`
	CorrectAnswer int            `json:"correctAnswer"`
}

// Results builds the tally projection. Percentages are 0 when nobody voted.
func (p *Poll) Results() Results {
	total := p.TotalVotes()
	res := Results{
		ID:            p.ID,
		Question:      p.Question,
		Options:       make([]OptionResult, OptionCount),
		TotalVotes:    total,
		IsActive:      p.Active,
		CorrectAnswer: p.CorrectAnswer,
	}
	for i := range p.Options {
		opt := p.Options[i]
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(opt.Votes) / float64(total) * 100))
		}
		res.Options[i] = OptionResult{
			Text:       opt.Text,
			Index:      opt.Index,
			Votes:      opt.Votes,
			Percentage: pct,
			IsCorrect:  opt.IsCorrect,
		}
	}
	return res
}

// Announcement is the answer-blind poll projection broadcast to participants:
// no correct answer, no vote counters.
type Announcement struct {
	ID            int64    `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	TimeLimit     int      `json:"timeLimit"` // seconds
	RemainingTime int      `json:"remainingTime"`
	StartTime     int64    `json:"startTime"` // unix ms
	IsActive      bool     `json:"isActive"`
}

// Announcement builds the answer-blind projection.
func (p *Poll) Announcement(now time.Time) Announcement {
	texts := make([]string, OptionCount)
	for i := range p.Options {
		texts[i] = p.Options[i].Text
	}
	return Announcement{
		ID:            p.ID,
		Question:      p.Question,
		Options:       texts,
		TimeLimit:     int(p.TimeLimit.Seconds()),
		RemainingTime: p.RemainingTime(now),
		StartTime:     p.StartTime.UnixMilli(),
		IsActive:      p.Active,
	}
}
