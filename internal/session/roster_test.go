package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterAdd(t *testing.T) {
	r := NewRoster()
	now := time.Now()

	require.NoError(t, r.Add("s1", "Alice", now))
	assert.Equal(t, 1, r.Size())

	t.Run("duplicate connection", func(t *testing.T) {
		assert.ErrorIs(t, r.Add("s1", "Zoe", now), ErrDuplicateConnection)
	})

	t.Run("name taken case-insensitively", func(t *testing.T) {
		assert.ErrorIs(t, r.Add("s2", "alice", now), ErrNameTaken)
		assert.ErrorIs(t, r.Add("s2", "ALICE", now), ErrNameTaken)
	})

	t.Run("name freed after removal", func(t *testing.T) {
		require.NotNil(t, r.Remove("s1"))
		assert.NoError(t, r.Add("s2", "ALICE", now))
	})
}

func TestRosterAllAnswered(t *testing.T) {
	r := NewRoster()
	now := time.Now()

	// An empty roster is never all-answered.
	assert.False(t, r.AllAnswered())

	require.NoError(t, r.Add("s1", "Alice", now))
	require.NoError(t, r.Add("s2", "Bob", now))
	assert.False(t, r.AllAnswered())

	r.Get("s1").HasAnswered = true
	assert.False(t, r.AllAnswered())
	assert.Equal(t, 1, r.AnsweredCount())

	r.Get("s2").HasAnswered = true
	assert.True(t, r.AllAnswered())
}

func TestRosterResetAnswers(t *testing.T) {
	r := NewRoster()
	require.NoError(t, r.Add("s1", "Alice", time.Now()))
	p := r.Get("s1")
	p.HasAnswered = true
	p.Answer = 2

	r.ResetAnswers()

	assert.False(t, p.HasAnswered)
	assert.Equal(t, -1, p.Answer)
	assert.Equal(t, 0, r.AnsweredCount())
}

func TestRosterRemoveUnknown(t *testing.T) {
	r := NewRoster()
	assert.Nil(t, r.Remove("nobody"))
}

func TestRosterSnapshotOrderedByJoinTime(t *testing.T) {
	r := NewRoster()
	base := time.Now()
	require.NoError(t, r.Add("s2", "Bob", base.Add(2*time.Second)))
	require.NoError(t, r.Add("s1", "Alice", base.Add(time.Second)))
	require.NoError(t, r.Add("s3", "Cara", base.Add(3*time.Second)))

	views := r.Snapshot()
	require.Len(t, views, 3)
	assert.Equal(t, []string{"Alice", "Bob", "Cara"}, []string{views[0].Name, views[1].Name, views[2].Name})
	assert.Equal(t, base.Add(time.Second).UnixMilli(), views[0].JoinedAt)
}
