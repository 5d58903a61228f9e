package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryListMostRecentFirst(t *testing.T) {
	l := NewHistoryLog()
	l.Record(HistoryEntry{ID: 1, Question: "first"})
	l.Record(HistoryEntry{ID: 2, Question: "second"})
	l.Record(HistoryEntry{ID: 3, Question: "third"})

	entries := l.List()
	require.Len(t, entries, 3)
	assert.Equal(t, int64(3), entries[0].ID)
	assert.Equal(t, int64(1), entries[2].ID)
}

func TestHistoryListIsACopy(t *testing.T) {
	l := NewHistoryLog()
	l.Record(HistoryEntry{ID: 1, Question: "q"})

	entries := l.List()
	entries[0].Question = "tampered"

	assert.Equal(t, "q", l.List()[0].Question)
}

func TestSnapshotEntryFreezesRosterState(t *testing.T) {
	now := time.Now()
	p, err := newPoll(7, "Q", []string{"A", "B", "C", "D"}, 2, 30*time.Second, now)
	require.NoError(t, err)

	roster := NewRoster()
	require.NoError(t, roster.Add("s1", "Alice", now))
	require.NoError(t, roster.Add("s2", "Bob", now.Add(time.Second)))
	alice := roster.Get("s1")
	alice.HasAnswered = true
	alice.Answer = 2
	p.Options[2].Votes = 1
	p.Active = false
	p.EndTime = now.Add(10 * time.Second)

	entry := snapshotEntry(p, roster)

	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, 1, entry.TotalVotes)
	assert.Equal(t, now.Add(10*time.Second).UnixMilli(), entry.EndTime)
	require.Len(t, entry.Participants, 2)

	require.NotNil(t, entry.Participants[0].Answer)
	assert.Equal(t, 2, *entry.Participants[0].Answer)
	assert.True(t, entry.Participants[0].HasAnswered)

	assert.Nil(t, entry.Participants[1].Answer)
	assert.False(t, entry.Participants[1].HasAnswered)

	// A later retraction on the live poll must not reach the snapshot.
	p.Options[2].Votes = 0
	assert.Equal(t, 1, entry.Options[2].Votes)
}
