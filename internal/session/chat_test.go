package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatAppendStampsMessage(t *testing.T) {
	l := NewChatLog()
	now := time.Now()

	msg, err := l.Append("s1", "Alice", "hello", now)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, now.UnixMilli(), msg.Timestamp)
	assert.Equal(t, "hello", msg.Text)

	other, err := l.Append("s2", "Bob", "hi", now)
	require.NoError(t, err)
	assert.NotEqual(t, msg.ID, other.ID)
}

func TestChatRejectsEmptyText(t *testing.T) {
	l := NewChatLog()
	_, err := l.Append("s1", "Alice", "", time.Now())
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, l.List())
}

func TestChatListPreservesOrder(t *testing.T) {
	l := NewChatLog()
	now := time.Now()
	for _, text := range []string{"one", "two", "three"} {
		_, err := l.Append("s1", "Alice", text, now)
		require.NoError(t, err)
	}
	msgs := l.List()
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "three", msgs[2].Text)
}
