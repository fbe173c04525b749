package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/briarpatch/jeopardy-coordinator/internal/coordlog"
	"github.com/briarpatch/jeopardy-coordinator/internal/durable"
	"github.com/briarpatch/jeopardy-coordinator/internal/model"
	"github.com/briarpatch/jeopardy-coordinator/internal/roundengine"
)

const playerCookieName = "coordinator_player_id"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// closeGameNotFound is spec.md section 6's 4004 close code: a connect
// attempt against a game id the durable store has never heard of.
const closeGameNotFound = 4004

const writeWait = 5 * time.Second

// Manager (renamed from the teacher's GameManager) keys Hubs by game
// id. Unlike the teacher's party games, there is no wall-clock idle
// reaper here: live state is swept by the ephemeral store's own TTL
// (spec.md section 8.2), so the Manager only drops its in-memory Hub
// once the last client of an already-terminal game disconnects.
type Manager struct {
	mu      sync.Mutex
	hubs    map[string]*Hub
	engine  *roundengine.Engine
	durable durable.Store
	log     *coordlog.Logger
}

func NewManager(engine *roundengine.Engine, dur durable.Store, log *coordlog.Logger) *Manager {
	return &Manager{
		hubs:    make(map[string]*Hub),
		engine:  engine,
		durable: dur,
		log:     log,
	}
}

// ServeWS implements spec.md section 4.4's connect sequence for one
// incoming connection against gameID. The caller (cmd/coordinator's
// router) is responsible for extracting gameID from the request path.
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	ctx := r.Context()

	game, err := m.durable.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, durable.ErrGameNotFound) {
			m.rejectNotFound(w, r)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	playerID := getOrSetPlayerID(w, r)
	if playerID == "" {
		http.Error(w, "unable to assign player id", http.StatusInternalServerError)
		return
	}

	seat, isHost := m.resolveIdentity(ctx, game, playerID)

	hub, err := m.getHub(ctx, game)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Errorf("gateway: upgrade for %s: %v", gameID, err)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan any, 8),
		playerID: playerID,
		seat:     seat,
		isHost:   isHost,
	}

	hub.register <- client

	go client.writePump()
	client.readPump(hub)
}

func (m *Manager) rejectNotFound(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	closeMsg := websocket.FormatCloseMessage(closeGameNotFound, "game not found")
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
	_ = conn.Close()
}

func (m *Manager) resolveIdentity(ctx context.Context, game *model.Game, playerID string) (seat int, isHost bool) {
	if game.HostID == playerID {
		return 0, true
	}
	participants, err := m.durable.Participants(ctx, game.ID)
	if err != nil {
		return 0, false
	}
	for _, p := range participants {
		if p.PlayerID == playerID {
			return p.Seat, false
		}
	}
	return 0, false
}

// getHub lazily materializes a Hub plus, the first time any client
// connects to this game, its live state (spec.md section 4.4 step 2):
// Daily Doubles selected, every seat's score zeroed.
func (m *Manager) getHub(ctx context.Context, game *model.Game) (*Hub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[game.ID]; ok {
		return hub, nil
	}

	if err := m.engine.EnsureLiveState(ctx, game.ID, game.EpisodeID); err != nil {
		return nil, err
	}

	hub := newHub(game.ID, game.EpisodeID, m.engine, m.durable, m.log, func(gameID string) {
		m.dropIfTerminal(context.Background(), gameID)
	})
	m.hubs[game.ID] = hub
	go hub.run()
	return hub, nil
}

// dropIfTerminal removes a game's Hub once its last client leaves, if
// the game has already ended; otherwise the Hub stays registered so
// clients reconnecting after a brief all-clients-disconnected gap rejoin
// the same room (the game's live state itself lives in the ephemeral
// store either way).
func (m *Manager) dropIfTerminal(ctx context.Context, gameID string) {
	m.mu.Lock()
	hub, ok := m.hubs[gameID]
	m.mu.Unlock()
	if !ok || hub.clientCount() > 0 {
		return
	}

	snapshot, err := m.engine.Snapshot(ctx, gameID)
	if err != nil {
		return
	}
	if snapshot.Status != model.StatusCompleted && snapshot.Status != model.StatusAbandoned {
		return
	}

	m.mu.Lock()
	delete(m.hubs, gameID)
	m.mu.Unlock()
	hub.closeAll()
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}
