package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/briarpatch/jeopardy-coordinator/internal/coordlog"
	"github.com/briarpatch/jeopardy-coordinator/internal/durable"
	"github.com/briarpatch/jeopardy-coordinator/internal/roundengine"
	"github.com/briarpatch/jeopardy-coordinator/internal/wire"
)

// Hub is one game room: grounded on the teacher's Hub/Client/channel
// pattern, generalized from three message-kind channels (joins/mods/
// guesses) to a single inbound channel feeding the twenty-one-entry
// dispatch table, since register/unreg stay the only structurally
// distinct transitions.
type Hub struct {
	id        string
	episodeID int64
	clients   map[*Client]bool

	register chan *Client
	unreg    chan *Client
	inbound  chan inboundFrame

	dispatcher *Dispatcher
	engine     *roundengine.Engine
	durable    durable.Store
	log        *coordlog.Logger

	mu         sync.RWMutex
	lastActive time.Time
	onEmpty    func(gameID string)
}

func newHub(gameID string, episodeID int64, engine *roundengine.Engine, dur durable.Store, log *coordlog.Logger, onEmpty func(gameID string)) *Hub {
	return &Hub{
		id:         gameID,
		episodeID:  episodeID,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		inbound:    make(chan inboundFrame),
		dispatcher: NewDispatcher(engine, gameID, episodeID),
		engine:     engine,
		durable:    dur,
		log:        log,
		lastActive: time.Now(),
		onEmpty:    onEmpty,
	}
}

// run is the single goroutine that owns this room's state transitions.
// Processing one inboundFrame to completion, including fanning its
// resulting broadcast out to every client's send channel, before
// pulling the next one off the channel is what gives "a broadcast from
// handler H reaches every client before the sender's next frame is
// processed" for free (spec.md section 5), the same guarantee the
// teacher's select loop already provides for its own message kinds.
func (h *Hub) run() {
	ctx := context.Background()
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			h.mu.Unlock()

			h.sendConnectionEstablished(ctx, c)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			empty := len(h.clients) == 0
			h.mu.Unlock()
			if empty && h.onEmpty != nil {
				h.onEmpty(h.id)
			}

		case f := <-h.inbound:
			h.lastActive = time.Now()
			h.handleFrame(ctx, f)
		}
	}
}

func (h *Hub) handleFrame(ctx context.Context, f inboundFrame) {
	frame := wire.Frame{Type: f.raw.Type, Fields: f.raw.Rest}

	broadcast, err := h.dispatcher.Dispatch(ctx, frame)
	if err != nil {
		var clientErr *wire.ClientError
		if !errors.As(err, &clientErr) {
			h.log.Errorf("gateway: %s for %s: %v", frame.Type, h.id, err)
			err = wire.NewClientError("internal error handling %q", frame.Type)
		}
		h.sendError(f.client, err)
		return
	}
	if broadcast == nil {
		return
	}
	h.fanOut(*broadcast)
}

func (h *Hub) sendError(c *Client, err error) {
	select {
	case c.send <- map[string]any{"type": "error", "message": err.Error()}:
	default:
	}
}

// fanOut delivers a broadcast to every connected client, respecting
// Scope: ScopeHostOnly reaches only the client resolved as host at
// connect time. A client whose send buffer is full is dropped rather
// than stalling the whole room, matching the teacher's
// broadcastCelebritiesLocked behavior on a full channel.
func (h *Hub) fanOut(b wire.Broadcast) {
	msg := map[string]any{"type": b.Type}
	for k, v := range b.Payload {
		msg[k] = v
	}

	for c := range h.clients {
		if b.Scope == wire.ScopeHostOnly && !c.isHost {
			continue
		}
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) sendConnectionEstablished(ctx context.Context, c *Client) {
	snapshot, err := h.engine.Snapshot(ctx, h.id)
	if err != nil {
		h.log.Errorf("gateway: snapshot for %s: %v", h.id, err)
		return
	}
	participants, err := h.durable.Participants(ctx, h.id)
	if err != nil {
		h.log.Errorf("gateway: participants for %s: %v", h.id, err)
		return
	}

	scores := make(map[string]int, len(participants))
	names := make(map[string]string, len(participants))
	for _, p := range participants {
		key := itoaSeat(p.Seat)
		scores[key] = snapshot.Scores[p.Seat]
		names[key] = p.PlayerName
	}

	c.send <- map[string]any{
		"type":           "connection_established",
		"status":         string(snapshot.Status),
		"current_round":  string(snapshot.CurrentRound),
		"current_player": snapshot.CurrentPlayer,
		"scores":         scores,
		"names":          names,
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}
