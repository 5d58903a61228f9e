package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulsepoll/backend/internal/session"
)

func newStubClient(id, role string) *Client {
	return &Client{ID: id, role: role, send: make(chan WSMessage, 4)}
}

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

type fakePublisher struct {
	published []string
}

func (p *fakePublisher) PublishEvent(origin, scope, role, event string, payload []byte) error {
	p.published = append(p.published, event)
	return nil
}

type fakeSubscriber struct {
	handler func(origin, scope, role, event string, payload []byte)
}

func (s *fakeSubscriber) Subscribe(handler func(origin, scope, role, event string, payload []byte)) (func(), error) {
	s.handler = handler
	return func() {}, nil
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h := NewHub(zap.NewNop(), "i1", nil, nil)
	mod := newStubClient("mod", session.RoleModerator)
	p1 := newStubClient("p1", session.RoleParticipant)
	h.Register(mod)
	h.Register(p1)

	h.Broadcast("results_updated", map[string]int{"totalVotes": 2})

	require.Len(t, drain(mod), 1)
	msgs := drain(p1)
	require.Len(t, msgs, 1)
	assert.Equal(t, "results_updated", msgs[0].Event)
}

func TestHubBroadcastToRole(t *testing.T) {
	h := NewHub(zap.NewNop(), "i1", nil, nil)
	mod := newStubClient("mod", session.RoleModerator)
	p1 := newStubClient("p1", session.RoleParticipant)
	h.Register(mod)
	h.Register(p1)

	h.BroadcastToRole(session.RoleModerator, "poll_details", nil)

	assert.Len(t, drain(mod), 1)
	assert.Empty(t, drain(p1))
}

func TestHubSendTo(t *testing.T) {
	h := NewHub(zap.NewNop(), "i1", nil, nil)
	p1 := newStubClient("p1", session.RoleParticipant)
	p2 := newStubClient("p2", session.RoleParticipant)
	h.Register(p1)
	h.Register(p2)

	h.SendTo("p1", "kicked", nil)
	h.SendTo("ghost", "kicked", nil) // unknown target: dropped

	assert.Len(t, drain(p1), 1)
	assert.Empty(t, drain(p2))
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub(zap.NewNop(), "i1", nil, nil)
	p1 := newStubClient("p1", session.RoleParticipant)
	h.Register(p1)

	for i := 0; i < 10; i++ {
		h.Broadcast("students_list", i)
	}

	assert.Len(t, drain(p1), cap(p1.send))
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	h := NewHub(zap.NewNop(), "i1", nil, nil)
	p1 := newStubClient("p1", session.RoleParticipant)
	h.Register(p1)
	h.Unregister(p1)

	h.Broadcast("students_list", nil)

	assert.Empty(t, drain(p1))
	assert.Equal(t, 0, h.ClientCount())
}

func TestHubSendAfterCloseIsSafe(t *testing.T) {
	h := NewHub(zap.NewNop(), "i1", nil, nil)
	p1 := newStubClient("p1", session.RoleParticipant)
	h.Register(p1)

	h.CloseClient("p1")
	assert.NotPanics(t, func() { h.Broadcast("students_list", nil) })
}

func TestHubPublishesBroadcasts(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHub(zap.NewNop(), "i1", pub, nil)
	h.Broadcast("poll_created", nil)
	h.BroadcastToRole(session.RoleModerator, "poll_details", nil)

	assert.Equal(t, []string{"poll_created", "poll_details"}, pub.published)
}

func TestHubSkipsOwnPublishedEvents(t *testing.T) {
	sub := &fakeSubscriber{}
	h := NewHub(zap.NewNop(), "i1", nil, sub)
	require.NoError(t, h.Start())
	defer h.Stop()

	p1 := newStubClient("p1", session.RoleParticipant)
	h.Register(p1)

	sub.handler("i1", scopeAll, "", "results_updated", []byte(`{}`)) // own echo
	assert.Empty(t, drain(p1))

	sub.handler("i2", scopeAll, "", "results_updated", []byte(`{}`))
	assert.Len(t, drain(p1), 1)
}
