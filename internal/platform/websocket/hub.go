// Package websocket pushes case updates to the team's screens. Clients
// subscribe to case topics and receive every event published on them.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Event types published on case topics.
const (
	EventCaseOpened      = "case.opened"
	EventFindingsUpdated = "findings.updated"
	EventPhaseAdvanced   = "phase.advanced"
	EventTrailUpdated    = "trail.updated"
	EventReassessmentDue = "reassessment.due"
	EventCaseClosed      = "case.closed"
)

const topicPrefix = "case/"

// CaseTopic returns the topic carrying events for one case.
func CaseTopic(caseID string) string {
	return topicPrefix + caseID
}

// Event is a notification sent to subscribed clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	CaseID    string          `json:"case_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event on the case topic with payload encoded as data.
func NewEvent(eventType, caseID string, at time.Time, payload interface{}) (Event, error) {
	ev := Event{
		Type:      eventType,
		Topic:     CaseTopic(caseID),
		CaseID:    caseID,
		Timestamp: at.UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		ev.Data = data
	}
	return ev, nil
}

// ClientMessage is an inbound subscribe or unsubscribe request.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// EventPublisher delivers events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Client is one websocket connection.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> subscribers
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger.With().Str("component", "websocket").Logger(),
	}
}

// Register adds a client and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topics := validTopics(client.Topics)
	client.Topics = nil
	h.all[client] = struct{}{}
	h.subscribeLocked(client, topics)
}

// Unregister removes a client from every topic and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	h.unsubscribeLocked(client, client.Topics)
	delete(h.all, client)
	close(client.Send)
}

// Subscribe adds case topics to a registered client. Topics outside the
// case namespace are ignored.
func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribeLocked(client, validTopics(topics))
}

// Unsubscribe removes topics from a registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(client, topics)
}

func (h *Hub) subscribeLocked(client *Client, topics []string) {
	for _, topic := range topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		if _, dup := h.clients[topic][client]; dup {
			continue
		}
		h.clients[topic][client] = struct{}{}
		client.Topics = append(client.Topics, topic)
	}
}

func (h *Hub) unsubscribeLocked(client *Client, topics []string) {
	remove := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		remove[topic] = struct{}{}
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}
	remaining := make([]string, 0, len(client.Topics))
	for _, t := range client.Topics {
		if _, rm := remove[t]; !rm {
			remaining = append(remaining, t)
		}
	}
	client.Topics = remaining
}

// ProcessMessage dispatches a client message to Subscribe or Unsubscribe.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	default:
		h.logger.Debug().Str("client_id", client.ID).Str("action", msg.Action).Msg("ignoring unknown client action")
	}
}

// Broadcast sends an event to every subscriber of topic. Clients whose
// buffer is full miss the event.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn().Str("client_id", client.ID).Str("topic", topic).Msg("client buffer full, dropping event")
		}
	}
}

// Publish broadcasts the event on its own topic.
func (h *Hub) Publish(_ context.Context, event Event) error {
	if !strings.HasPrefix(event.Topic, topicPrefix) {
		return fmt.Errorf("publish %s: topic %q is not a case topic", event.Type, event.Topic)
	}
	h.Broadcast(event.Topic, event)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of subscribers of a topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func validTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if strings.HasPrefix(t, topicPrefix) && len(t) > len(topicPrefix) {
			out = append(out, t)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Handler upgrades HTTP requests to websocket connections.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler accepts connections from the given browser origins. A "*"
// entry allows any origin; requests without an Origin header are accepted.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSpace(o)] = struct{}{}
	}
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if _, ok := allowed["*"]; ok {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func (wsh *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

// HandleConnect upgrades the connection and registers the client. The
// optional case query parameter subscribes to that case immediately.
func (wsh *Handler) HandleConnect(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
	}
	if caseID := c.QueryParam("case"); caseID != "" {
		client.Topics = []string{CaseTopic(caseID)}
	}
	wsh.hub.Register(client)
	wsh.hub.logger.Debug().Str("client_id", client.ID).Strs("topics", client.Topics).Msg("websocket client connected")

	go wsh.writePump(client, ws)
	go wsh.readPump(client, ws)
	return nil
}

func (wsh *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		wsh.hub.Unregister(client)
		ws.Close()
	}()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		wsh.hub.ProcessMessage(client, msg)
	}
}

func (wsh *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
