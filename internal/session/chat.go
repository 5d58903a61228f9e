package session

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a relayed chat line with a server-assigned id and timestamp.
type ChatMessage struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"` // unix ms
}

// ChatLog is the append-only in-memory chat transcript, replayed to joining
// clients. Not safe for concurrent use; the Coordinator serializes access.
type ChatLog struct {
	messages []ChatMessage
}

// NewChatLog creates an empty chat log.
func NewChatLog() *ChatLog {
	return &ChatLog{}
}

// Append stamps and stores a message. Text must be non-empty; no other
// validation is applied.
func (l *ChatLog) Append(sender, senderName, text string, now time.Time) (ChatMessage, error) {
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	msg := ChatMessage{
		ID:         uuid.New().String(),
		Sender:     sender,
		SenderName: senderName,
		Text:       text,
		Timestamp:  now.UnixMilli(),
	}
	l.messages = append(l.messages, msg)
	return msg, nil
}

// List returns the transcript in arrival order.
func (l *ChatLog) List() []ChatMessage {
	out := make([]ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}
