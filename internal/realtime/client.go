package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pulsepoll/backend/internal/session"
)

var (
	errInvalidModeratorToken = errors.New("invalid moderator token")
	errModeratorOnly         = errors.New("moderator role required")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TokenValidator resolves a bearer token to a role.
type TokenValidator func(token string) (role string, err error)

// Client represents a single WebSocket connection in the session.
type Client struct {
	ID          string
	hub         *Hub
	coordinator *session.Coordinator
	conn        *websocket.Conn
	logger      *zap.Logger

	mu     sync.Mutex
	role   string
	closed bool
	send   chan WSMessage

	closeOnce sync.Once
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, coordinator *session.Coordinator, logger *zap.Logger, validateToken TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:          uuid.New().String(),
			hub:         hub,
			coordinator: coordinator,
			conn:        conn,
			logger:      logger,
			send:        make(chan WSMessage, 256),
		}
		hub.Register(client)
		go client.writePump()
		client.readPump(validateToken)
	}
}

// RoleIs reports whether the client joined with the given role.
func (c *Client) RoleIs(role string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role == role
}

func (c *Client) setRole(role string) {
	c.mu.Lock()
	c.role = role
	c.mu.Unlock()
}

// trySend queues a message without blocking. Messages to a full or closed
// client are dropped; the transport owns dead-connection cleanup.
func (c *Client) trySend(msg WSMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		// buffer full, skip
	}
}

// closeSend drains and severs the connection via the write pump.
func (c *Client) closeSend() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.send) })
}

type joinRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

type createPollRequest struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	TimeLimit     int      `json:"timeLimit"` // seconds; 0 means default
}

type submitAnswerRequest struct {
	AnswerIndex *int `json:"answerIndex"`
}

type kickRequest struct {
	TargetID string `json:"targetId"`
}

type chatRequest struct {
	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (c *Client) sendError(err error) {
	c.trySend(mustMessage(session.EventError, errorPayload{Message: err.Error()}))
}

func mustMessage(event string, payload interface{}) WSMessage {
	data, _ := json.Marshal(payload)
	return WSMessage{Event: event, Data: data}
}

func (c *Client) readPump(validateToken TokenValidator) {
	defer func() {
		c.hub.Unregister(c)
		c.coordinator.Remove(c.ID)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		c.dispatch(msg, validateToken)
	}
}

// dispatch routes one inbound event. Validation failures go back to the
// sender only; session state is broadcast by the coordinator.
func (c *Client) dispatch(msg WSMessage, validateToken TokenValidator) {
	switch msg.Event {
	case "join":
		var req joinRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return
		}
		if req.Role == session.RoleModerator {
			role, err := validateToken(req.Token)
			if err != nil || role != session.RoleModerator {
				c.sendError(errInvalidModeratorToken)
				return
			}
			c.setRole(session.RoleModerator)
			c.coordinator.ModeratorJoin(c.ID)
			return
		}
		if err := c.coordinator.Join(c.ID, req.Name); err != nil {
			c.sendError(err)
			return
		}
		c.setRole(session.RoleParticipant)

	case "create_poll":
		if !c.RoleIs(session.RoleModerator) {
			c.sendError(errModeratorOnly)
			return
		}
		var req createPollRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(session.ErrInvalidPollData)
			return
		}
		timeLimit := time.Duration(req.TimeLimit) * time.Second
		if _, err := c.coordinator.CreatePoll(req.Question, req.Options, req.CorrectAnswer, timeLimit); err != nil {
			c.sendError(err)
		}

	case "submit_answer":
		var req submitAnswerRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.AnswerIndex == nil {
			c.sendError(session.ErrInvalidAnswerIndex)
			return
		}
		if _, err := c.coordinator.SubmitAnswer(c.ID, *req.AnswerIndex); err != nil {
			c.sendError(err)
		}

	case "kick_participant":
		if !c.RoleIs(session.RoleModerator) {
			c.sendError(errModeratorOnly)
			return
		}
		var req kickRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.TargetID == "" {
			return
		}
		if c.coordinator.Kick(req.TargetID) {
			c.hub.CloseClient(req.TargetID)
		}

	case "request_history":
		c.coordinator.SendHistory(c.ID)

	case "chat_message":
		var req chatRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return
		}
		if _, err := c.coordinator.AppendChat(req.Sender, req.SenderName, req.Text); err != nil {
			c.sendError(err)
		}

	default:
		// ignore
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
