// Package ws serves Sabotage matches over plain WebSockets for deployments that do
// not run inside Nakama. Each match is an actor goroutine owning its SessionManager.
package ws

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"

	"cryptocrew/internal/domain"
	"cryptocrew/internal/logging"
	"cryptocrew/internal/ports"
)

// Config tunes the gateway. Zero values fall back to defaults in NewHub.
type Config struct {
	Rules        domain.Rules
	TickInterval time.Duration
	// EndGrace keeps a finished match open so clients can read the result.
	EndGrace time.Duration
	// LogDir receives <gameId>.json audit logs; empty disables archiving.
	LogDir string
	Sink   ports.PayoutSink
	Logger runtime.Logger
	Clock  func() time.Time
	Seed   func() int64
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub assigns sockets to matches. New players fill the current lobby until it
// starts; seated players are routed back to their own match.
type Hub struct {
	cfg Config
	ctx context.Context

	mu    sync.Mutex
	lobby *room
	seats map[string]*room
	rooms map[string]*room
}

// NewHub returns a hub whose matches stop when ctx is cancelled.
func NewHub(ctx context.Context, cfg Config) *Hub {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.EndGrace <= 0 {
		cfg.EndGrace = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Seed == nil {
		cfg.Seed = func() int64 { return time.Now().UnixNano() }
	}
	if cfg.Rules.MatchDuration == 0 {
		cfg.Rules = domain.DefaultRules()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New(os.Stderr, logging.LevelInfo)
	}
	return &Hub{
		cfg:   cfg,
		ctx:   ctx,
		seats: make(map[string]*room),
		rooms: make(map[string]*room),
	}
}

// Games returns the number of live matches.
func (h *Hub) Games() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// ServeHTTP upgrades the request and runs the socket until it closes. The player id
// comes from the "player" query parameter and the display name from "name".
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		http.Error(w, "player is required", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Warn("ServeHTTP: upgrade failed for %s: %v", playerID, err)
		return
	}

	c := newClient(playerID, conn)
	rm, err := h.assign(c, r.URL.Query().Get("name"))
	if err != nil {
		h.sendError(c, "", err)
		c.close()
		return
	}
	h.readLoop(c, rm)
}

func (h *Hub) readLoop(c *client, rm *room) {
	defer rm.detach(c)
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.cfg.Logger.Debug("readLoop: %s: %v", c.playerID, err)
			}
			return
		}
		cmd, err := decodeFrame(f)
		if err == nil {
			err = rm.submit(c, cmd)
		}
		if errors.Is(err, errRoomClosed) {
			return
		}
		if err != nil {
			h.sendError(c, rm.id, err)
		}
	}
}

// assign seats c in its existing match, the open lobby, or a fresh one.
func (h *Hub) assign(c *client, name string) (*room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rm, ok := h.seats[c.playerID]; ok {
		if err := rm.attach(c, name); err == nil {
			return rm, nil
		}
		delete(h.seats, c.playerID)
	}
	if h.lobby != nil {
		if err := h.lobby.attach(c, name); err == nil {
			h.seats[c.playerID] = h.lobby
			return h.lobby, nil
		}
	}

	rm := newRoom(uuid.NewString(), h.cfg)
	h.rooms[rm.id] = rm
	h.lobby = rm
	go rm.run(h.ctx, h.release)
	if err := rm.attach(c, name); err != nil {
		return nil, err
	}
	h.seats[c.playerID] = rm
	h.cfg.Logger.Info("assign: opened game %s for %s", rm.id, c.playerID)
	return rm, nil
}

func (h *Hub) release(rm *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, rm.id)
	if h.lobby == rm {
		h.lobby = nil
	}
	for id, seat := range h.seats {
		if seat == rm {
			delete(h.seats, id)
		}
	}
}

func (h *Hub) sendError(c *client, gameID string, err error) {
	f, ferr := newFrame(FrameError, gameID, ErrorPayload{
		Reason:  string(domain.ReasonOf(err)),
		Message: err.Error(),
	})
	if ferr != nil {
		return
	}
	f.PlayerID = c.playerID
	_ = c.send(f)
}
