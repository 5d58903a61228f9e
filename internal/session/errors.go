package session

import "errors"

// Request-scoped validation failures. All of them leave session state
// unchanged and are reported to the originating connection only.
var (
	ErrInvalidPollData     = errors.New("invalid poll data: question and 4 options required")
	ErrInvalidAnswerIndex  = errors.New("invalid answer index")
	ErrPollInProgress      = errors.New("cannot create new poll: previous poll is still active")
	ErrNoActivePoll        = errors.New("no active poll")
	ErrUnknownParticipant  = errors.New("participant not found")
	ErrAlreadyAnswered     = errors.New("participant has already answered")
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrNameTaken           = errors.New("name already taken")
	ErrEmptyMessage        = errors.New("chat message text is empty")
)
