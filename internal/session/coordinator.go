package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Connection roles. The moderator runs the session; participants answer polls.
const (
	RoleModerator   = "moderator"
	RoleParticipant = "participant"
)

// Outbound event names carried in the gateway's message envelope.
const (
	EventError          = "error"
	EventJoined         = "joined"
	EventPollCreated    = "poll_created" // answer-blind announcement
	EventPollDetails    = "poll_details" // moderators only: includes correct answer
	EventPollCurrent    = "poll_current"
	EventResultsUpdated = "results_updated"
	EventStudentsList   = "students_list"
	EventPollEnded      = "poll_ended"
	EventPollHistory    = "poll_history"
	EventChatHistory    = "chat_history"
	EventChatMessage    = "chat_message"
	EventKicked         = "kicked"
)

// CompletionReason tags why a poll ended.
type CompletionReason string

const (
	ReasonAllAnswered CompletionReason = "all_answered"
	ReasonTimeout     CompletionReason = "timeout"
)

// Broadcaster is the publish/subscribe gateway the coordinator emits into.
// Implementations must not block: sends are fire-and-forget and never roll
// back committed state.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
	BroadcastToRole(role, event string, payload interface{})
	SendTo(connID, event string, payload interface{})
}

// ModeratorPoll is the moderator-side poll projection: the public
// announcement plus the correct answer index.
type ModeratorPoll struct {
	Announcement
	CorrectAnswer int `json:"correctAnswer"`
}

type pollEnded struct {
	Reason CompletionReason `json:"reason"`
}

type joinedPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Coordinator owns the single mutable session state: the roster, the current
// poll, the history log and the chat transcript. Every mutating operation
// runs under one mutex, so no caller ever observes a half-applied transition.
// Broadcasts are emitted after the mutation commits.
type Coordinator struct {
	mu      sync.Mutex
	logger  *zap.Logger
	gateway Broadcaster

	roster  *Roster
	poll    *Poll
	history *HistoryLog
	chat    *ChatLog

	lastPollID int64

	now      func() time.Time
	schedule func(d time.Duration, f func())
}

// NewCoordinator creates a session coordinator emitting into the gateway.
func NewCoordinator(logger *zap.Logger, gateway Broadcaster) *Coordinator {
	return &Coordinator{
		logger:   logger,
		gateway:  gateway,
		roster:   NewRoster(),
		history:  NewHistoryLog(),
		chat:     NewChatLog(),
		now:      time.Now,
		schedule: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Join registers a participant and resyncs them: welcome payload, the
// running poll (with its remaining countdown) and live tallies when votes
// exist, and the chat transcript. Everyone receives the updated roster.
func (c *Coordinator) Join(connID, name string) error {
	c.mu.Lock()
	if err := c.roster.Add(connID, name, c.now()); err != nil {
		c.mu.Unlock()
		return err
	}
	var announcement *Announcement
	var results *Results
	if c.poll != nil {
		a := c.poll.Announcement(c.now())
		announcement = &a
		if c.poll.Active && c.poll.TotalVotes() > 0 {
			r := c.poll.Results()
			results = &r
		}
	}
	students := c.roster.Snapshot()
	transcript := c.chat.List()
	c.mu.Unlock()

	c.gateway.SendTo(connID, EventJoined, joinedPayload{ID: connID, Name: name})
	if announcement != nil {
		c.gateway.SendTo(connID, EventPollCreated, announcement)
		if results != nil {
			c.gateway.SendTo(connID, EventResultsUpdated, results)
		}
	}
	c.gateway.SendTo(connID, EventChatHistory, transcript)
	c.gateway.Broadcast(EventStudentsList, students)

	c.logger.Info("participant joined", zap.String("conn_id", connID), zap.String("name", name))
	return nil
}

// ModeratorJoin resyncs a (re)connecting moderator with the full session
// state. Moderators are not roster members and never vote.
func (c *Coordinator) ModeratorJoin(connID string) {
	c.mu.Lock()
	var current *ModeratorPoll
	var results *Results
	if c.poll != nil {
		current = &ModeratorPoll{Announcement: c.poll.Announcement(c.now()), CorrectAnswer: c.poll.CorrectAnswer}
		r := c.poll.Results()
		results = &r
	}
	students := c.roster.Snapshot()
	entries := c.history.List()
	transcript := c.chat.List()
	c.mu.Unlock()

	if current != nil {
		c.gateway.SendTo(connID, EventPollCurrent, current)
		c.gateway.SendTo(connID, EventResultsUpdated, results)
	}
	c.gateway.SendTo(connID, EventStudentsList, students)
	c.gateway.SendTo(connID, EventPollHistory, entries)
	c.gateway.SendTo(connID, EventChatHistory, transcript)

	c.logger.Info("moderator joined", zap.String("conn_id", connID))
}

// CreatePoll starts a new poll. The previous poll must be complete (ended or
// all-answered). Every participant's answer state is reset and a timeout is
// scheduled, tagged with the new poll id so a stale timer can never end a
// later poll. An empty roster is allowed; such a poll ends only by timeout.
func (c *Coordinator) CreatePoll(question string, options []string, correctAnswer int, timeLimit time.Duration) (Announcement, error) {
	c.mu.Lock()
	now := c.now()
	id := now.UnixMilli()
	if id <= c.lastPollID {
		id = c.lastPollID + 1
	}
	poll, err := newPoll(id, question, options, correctAnswer, timeLimit, now)
	if err != nil {
		c.mu.Unlock()
		return Announcement{}, err
	}
	if c.poll != nil && c.poll.Active && !c.roster.AllAnswered() {
		c.mu.Unlock()
		return Announcement{}, ErrPollInProgress
	}
	c.lastPollID = id
	c.roster.ResetAnswers()
	c.poll = poll
	c.schedule(poll.TimeLimit, func() { c.handleTimeout(id) })

	announcement := poll.Announcement(now)
	details := ModeratorPoll{Announcement: announcement, CorrectAnswer: poll.CorrectAnswer}
	results := poll.Results()
	students := c.roster.Snapshot()
	c.mu.Unlock()

	c.gateway.Broadcast(EventPollCreated, announcement)
	c.gateway.BroadcastToRole(RoleModerator, EventPollDetails, details)
	c.gateway.Broadcast(EventResultsUpdated, results)
	c.gateway.Broadcast(EventStudentsList, students)

	c.logger.Info("poll created",
		zap.Int64("poll_id", id),
		zap.String("question", question),
		zap.Duration("time_limit", poll.TimeLimit),
		zap.Int("participants", len(students)),
	)
	return announcement, nil
}

// SubmitAnswer records a participant's vote. The answered check and the vote
// increment commit atomically, so a duplicate submission from the same
// connection can never double-count. When the vote makes the roster
// all-answered the poll ends synchronously within the same operation,
// winning the race against the scheduled timeout.
func (c *Coordinator) SubmitAnswer(connID string, answerIndex int) (Results, error) {
	c.mu.Lock()
	if c.poll == nil || !c.poll.Active {
		c.mu.Unlock()
		return Results{}, ErrNoActivePoll
	}
	participant := c.roster.Get(connID)
	if participant == nil {
		c.mu.Unlock()
		return Results{}, ErrUnknownParticipant
	}
	if participant.HasAnswered {
		c.mu.Unlock()
		return Results{}, ErrAlreadyAnswered
	}
	if answerIndex < 0 || answerIndex >= OptionCount {
		c.mu.Unlock()
		return Results{}, ErrInvalidAnswerIndex
	}

	participant.HasAnswered = true
	participant.Answer = answerIndex
	c.poll.Options[answerIndex].Votes++

	completed := false
	if c.roster.AllAnswered() {
		c.endPollLocked()
		completed = true
	}
	results := c.poll.Results()
	students := c.roster.Snapshot()
	c.mu.Unlock()

	c.gateway.Broadcast(EventResultsUpdated, results)
	c.gateway.Broadcast(EventStudentsList, students)
	if completed {
		c.gateway.Broadcast(EventPollEnded, pollEnded{Reason: ReasonAllAnswered})
		c.logger.Info("poll ended", zap.Int64("poll_id", results.ID), zap.String("reason", string(ReasonAllAnswered)))
	}
	c.logger.Debug("answer submitted", zap.String("conn_id", connID), zap.Int("answer", answerIndex))
	return results, nil
}

// handleTimeout is the scheduled timeout action. It re-validates that the
// poll it was armed for is still current and still active: a timer firing
// for a replaced or already-ended poll is a no-op.
func (c *Coordinator) handleTimeout(pollID int64) {
	c.mu.Lock()
	if c.poll == nil || c.poll.ID != pollID || !c.poll.Active {
		c.mu.Unlock()
		return
	}
	c.endPollLocked()
	results := c.poll.Results()
	c.mu.Unlock()

	c.gateway.Broadcast(EventResultsUpdated, results)
	c.gateway.Broadcast(EventPollEnded, pollEnded{Reason: ReasonTimeout})
	c.logger.Info("poll ended", zap.Int64("poll_id", pollID), zap.String("reason", string(ReasonTimeout)))
}

// endPoll ends the current poll regardless of completion state. Ending an
// absent or already-ended poll is a no-op returning the latest results.
func (c *Coordinator) endPoll(reason CompletionReason) Results {
	c.mu.Lock()
	if c.poll == nil {
		c.mu.Unlock()
		return Results{}
	}
	ended := c.endPollLocked()
	results := c.poll.Results()
	c.mu.Unlock()

	if ended {
		c.gateway.Broadcast(EventResultsUpdated, results)
		c.gateway.Broadcast(EventPollEnded, pollEnded{Reason: reason})
		c.logger.Info("poll ended", zap.Int64("poll_id", results.ID), zap.String("reason", string(reason)))
	}
	return results
}

// endPollLocked transitions the current poll to ended, stamps EndTime
// exactly once and appends exactly one history entry. Reports whether a
// transition happened. Caller holds the mutex.
func (c *Coordinator) endPollLocked() bool {
	if c.poll == nil || !c.poll.Active {
		return false
	}
	c.poll.Active = false
	c.poll.EndTime = c.now()
	c.history.Record(snapshotEntry(c.poll, c.roster))
	return true
}

// Remove drops a connection from the roster. A vote the participant cast on
// the active poll is retracted atomically with the removal, keeping the
// vote-sum invariant. Once removed, the id is unknown to any in-flight
// submission. Unregistered ids (moderators, never-joined connections) are
// ignored.
func (c *Coordinator) Remove(connID string) bool {
	c.mu.Lock()
	participant := c.roster.Remove(connID)
	if participant == nil {
		c.mu.Unlock()
		return false
	}
	retracted := false
	if participant.HasAnswered && c.poll != nil && c.poll.Active {
		c.poll.Options[participant.Answer].Votes--
		retracted = true
	}
	var results *Results
	if retracted {
		r := c.poll.Results()
		results = &r
	}
	students := c.roster.Snapshot()
	c.mu.Unlock()

	c.gateway.Broadcast(EventStudentsList, students)
	if results != nil {
		c.gateway.Broadcast(EventResultsUpdated, results)
	}
	c.logger.Info("participant removed", zap.String("conn_id", connID), zap.String("name", participant.Name))
	return true
}

// Kick notifies the target they were removed, then drops them from the
// roster. The gateway severs the connection afterwards.
func (c *Coordinator) Kick(targetID string) bool {
	c.gateway.SendTo(targetID, EventKicked, nil)
	return c.Remove(targetID)
}

// AppendChat stamps, stores and relays a chat message verbatim.
func (c *Coordinator) AppendChat(sender, senderName, text string) (ChatMessage, error) {
	c.mu.Lock()
	msg, err := c.chat.Append(sender, senderName, text, c.now())
	c.mu.Unlock()
	if err != nil {
		return ChatMessage{}, err
	}
	c.gateway.Broadcast(EventChatMessage, msg)
	return msg, nil
}

// SendHistory delivers the history log snapshot to one connection.
func (c *Coordinator) SendHistory(connID string) {
	c.mu.Lock()
	entries := c.history.List()
	c.mu.Unlock()
	c.gateway.SendTo(connID, EventPollHistory, entries)
}

// History returns the recorded polls, most recent first.
func (c *Coordinator) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.List()
}

// Participants returns the current roster projection.
func (c *Coordinator) Participants() []ParticipantView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roster.Snapshot()
}

// CurrentPoll returns the answer-blind projection of the tracked poll, or
// nil when none was created yet.
func (c *Coordinator) CurrentPoll() *Announcement {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.poll == nil {
		return nil
	}
	a := c.poll.Announcement(c.now())
	return &a
}

// CurrentResults returns the live tally of the tracked poll, or nil when
// none was created yet.
func (c *Coordinator) CurrentResults() *Results {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.poll == nil {
		return nil
	}
	r := c.poll.Results()
	return &r
}
