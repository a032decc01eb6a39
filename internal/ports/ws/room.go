package ws

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"cryptocrew/internal/app"
	"cryptocrew/internal/domain"
)

var errRoomClosed = errors.New("game is closed")

type requestKind int

const (
	reqAttach requestKind = iota
	reqDetach
	reqCommand
)

type request struct {
	kind   requestKind
	client *client
	name   string
	cmd    app.Command // nil asks for a snapshot
	reply  chan error
}

// room owns one SessionManager. Every access goes through run, so the session is
// only ever touched by a single goroutine.
type room struct {
	id      string
	cfg     Config
	manager *app.SessionManager
	clients map[string]*client
	logger  runtime.Logger

	inbox chan request
	done  chan struct{}

	seated  bool
	settled bool
	endedAt time.Time
}

func newRoom(id string, cfg Config) *room {
	return &room{
		id:      id,
		cfg:     cfg,
		manager: app.NewSessionManager(id, cfg.Rules, cfg.Seed(), cfg.Clock()),
		clients: make(map[string]*client),
		logger:  cfg.Logger.WithField("game", id),
		inbox:   make(chan request),
		done:    make(chan struct{}),
	}
}

// do hands req to the room goroutine and waits for the answer.
func (r *room) do(req request) error {
	req.reply = make(chan error, 1)
	select {
	case r.inbox <- req:
	case <-r.done:
		return errRoomClosed
	}
	select {
	case err := <-req.reply:
		return err
	case <-r.done:
		return errRoomClosed
	}
}

func (r *room) attach(c *client, name string) error {
	return r.do(request{kind: reqAttach, client: c, name: name})
}

func (r *room) detach(c *client) {
	_ = r.do(request{kind: reqDetach, client: c})
}

func (r *room) submit(c *client, cmd app.Command) error {
	return r.do(request{kind: reqCommand, client: c, cmd: cmd})
}

// run processes requests and ticks until the match is over and drained, or ctx ends.
func (r *room) run(ctx context.Context, release func(*room)) {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer func() {
		ticker.Stop()
		close(r.done)
		for _, c := range r.clients {
			c.close()
		}
		release(r)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-r.inbox:
			req.reply <- r.handle(req)
		case <-ticker.C:
			phase := r.manager.Phase()
			r.deliver(r.manager.Tick(r.cfg.Clock()))
			if phase == domain.PhaseActive || phase == domain.PhaseMeeting {
				r.sendSnapshots()
			}
		}

		if r.manager.Ended() {
			r.finish(ctx)
			if len(r.clients) == 0 || r.cfg.Clock().Sub(r.endedAt) >= r.cfg.EndGrace {
				r.logger.Info("room: closing")
				return
			}
		} else if r.seated && r.manager.Phase() == domain.PhaseLobby && len(r.manager.PlayerIDs()) == 0 {
			r.logger.Debug("room: lobby emptied")
			return
		}
	}
}

func (r *room) handle(req request) error {
	c := req.client
	switch req.kind {
	case reqAttach:
		var cmd app.Command = app.Join{Name: req.name}
		if r.manager.Has(c.playerID) {
			cmd = app.Reconnect{}
		}
		events, err := r.manager.SubmitEvent(c.playerID, cmd)
		if err != nil && !(r.manager.Ended() && r.manager.Has(c.playerID)) {
			return err
		}
		if old, ok := r.clients[c.playerID]; ok && old != c {
			old.close()
		}
		r.clients[c.playerID] = c
		r.seated = true
		r.logger.Info("room: %s attached (%s)", c.playerID, cmd.Type())
		r.deliver(events)
		r.sendSnapshots()
		return nil

	case reqDetach:
		if r.clients[c.playerID] != c {
			return nil
		}
		delete(r.clients, c.playerID)
		events, err := r.manager.SubmitEvent(c.playerID, app.Disconnect{})
		if err != nil {
			r.logger.Debug("room: disconnect for %s ignored: %v", c.playerID, err)
			return nil
		}
		r.deliver(events)
		return nil

	case reqCommand:
		if req.cmd == nil {
			r.sendSnapshot(c.playerID)
			return nil
		}
		events, err := r.manager.SubmitEvent(c.playerID, req.cmd)
		if err != nil {
			r.logger.Debug("room: %s %s rejected: %v", c.playerID, req.cmd.Type(), err)
			return err
		}
		r.deliver(events)
		return nil
	}
	return nil
}

// finish settles the match once and archives its audit log.
func (r *room) finish(ctx context.Context) {
	if r.settled {
		return
	}
	r.settled = true
	r.endedAt = r.cfg.Clock()

	settlement := r.manager.Settlement()
	if r.cfg.Sink != nil {
		sctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := r.cfg.Sink.SubmitPayout(sctx, settlement); err != nil {
			r.logger.Error("room: payout failed: %v", err)
		} else {
			r.logger.Info("room: paid %d GC", settlement.Total())
		}
	}

	if r.cfg.LogDir == "" {
		return
	}
	data, err := json.MarshalIndent(r.manager.Log(), "", "  ")
	if err != nil {
		r.logger.Error("room: marshal audit log: %v", err)
		return
	}
	path := filepath.Join(r.cfg.LogDir, r.id+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.logger.Error("room: write audit log: %v", err)
		return
	}
	r.logger.Info("room: audit log written to %s", path)
}

func (r *room) deliver(events []app.Event) {
	for _, ev := range events {
		f, err := newFrame(string(ev.Kind), r.id, ev.Payload)
		if err != nil {
			r.logger.Error("room: encode %s: %v", ev.Kind, err)
			continue
		}
		if !ev.Private() {
			for _, c := range r.clients {
				r.send(c, f)
			}
			continue
		}
		for _, id := range ev.Recipients {
			if c, ok := r.clients[id]; ok {
				r.send(c, f)
			}
		}
	}
}

func (r *room) sendSnapshots() {
	for id := range r.clients {
		r.sendSnapshot(id)
	}
}

func (r *room) sendSnapshot(playerID string) {
	c, ok := r.clients[playerID]
	if !ok {
		return
	}
	f, err := newFrame(FrameSnapshot, r.id, r.manager.Snapshot(playerID))
	if err != nil {
		r.logger.Error("room: encode snapshot: %v", err)
		return
	}
	r.send(c, f)
}

func (r *room) send(c *client, f Frame) {
	f.PlayerID = c.playerID
	if err := c.send(f); err != nil {
		r.logger.Debug("room: write to %s failed: %v", c.playerID, err)
	}
}
