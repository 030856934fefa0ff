// Package server accepts TCP connections, performs the identity
// handshake and routes every player to the matchmaker or back into the
// session it belongs to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	gamestateDb "github.com/igs-sky/1A2B-Game/internal/database/gamestate/database"
	"github.com/igs-sky/1A2B-Game/internal/hashutil"
	"github.com/igs-sky/1A2B-Game/internal/database/gamestate/model"
	"github.com/igs-sky/1A2B-Game/internal/logging"
	"github.com/igs-sky/1A2B-Game/internal/match"
	"github.com/igs-sky/1A2B-Game/internal/proto"
)

// Store is the persistence surface the manager needs: everything a
// session checkpoints plus the lookups driving reconnect routing.
type Store interface {
	match.Store
	ReadPlayerGame(playerID string) (string, error)
	ReadGameState(sessionID string) (model.State, error)
}

func New(config *Config, store Store) *Manager {
	m := &Manager{
		config:   config,
		store:    store,
		sessions: map[string]*match.Session{},
		players:  map[string]*match.Session{},
	}

	m.matchConfig = match.Config{
		MaxRounds:     config.MaxRounds,
		ReconnectWait: config.ReconnectWait,
		DoneFn:        m.sessionDone,
	}
	m.matchmaker = match.NewMatchmaker(m.matchConfig, store, m.registerSession)

	return m
}

// Manager owns the raw transports, the waiting queue (via the
// matchmaker) and the active-session registries. Sessions themselves
// own their players once started.
type Manager struct {
	config      *Config
	store       Store
	matchmaker  *match.Matchmaker
	matchConfig match.Config

	mtx sync.RWMutex
	// key: session id
	sessions map[string]*match.Session
	// key: player id
	players map[string]*match.Session
}

// Run listens for game clients until the context closes. Each accepted
// connection is handed to its own handshake goroutine.
func (m *Manager) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("server.manager")

	ln, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", m.config.Addr, err)
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	go m.matchmaker.Run(ctx)
	logger.Infof("listening on %s", m.config.Addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Errorf("accept: %v", err)
			continue
		}

		go m.handshake(ctx, newLineConn(conn))
	}
}

// handshake asks a new transport for its identity token within a
// bounded window, then routes the player: fresh identities join the
// waiting queue, known ones are rebound into their session, live or
// rehydrated from the store.
func (m *Manager) handshake(ctx context.Context, conn *lineConn) {
	logger := logging.FromContext(ctx).Named("server.handshake")

	if err := conn.WriteLine(proto.CheckID()); err != nil {
		_ = conn.Close()
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(m.config.HandshakeTimeout))
	line, err := conn.ReadLine()
	if err != nil {
		logger.Infof("handshake failed: %v", err)
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	id := strings.TrimSpace(line)
	if id == "" {
		id = hashutil.SerializedSha1FromTime()
	}

	// session still live in memory
	if session, ok := m.lookupPlayer(id); ok {
		m.rebind(ctx, session, id, conn)
		logger.Infof("player %s rebound to live session %s", id, session.ID)
		return
	}

	sessionID, err := m.store.ReadPlayerGame(id)
	switch {
	case err == nil:
		if m.resume(ctx, id, sessionID, conn) {
			return
		}
	case !errors.Is(err, gamestateDb.ErrEntryNotFound):
		// store trouble is not fatal; treat the player as fresh
		logger.Errorf("read player game %s: %v", id, err)
	}

	player := match.NewPlayer(id)
	player.Bind(conn)
	m.startPeer(ctx, conn, player)
	m.matchmaker.Enqueue(player)
	logger.Infof("player %s queued for matchmaking", id)
}

// resume routes a returning identity whose session is not in memory:
// rehydrate the snapshot, restart its orchestrator, rebind the player.
// Reports false when the pointer turned out stale and the player should
// be matched fresh.
func (m *Manager) resume(ctx context.Context, id, sessionID string, conn *lineConn) bool {
	logger := logging.FromContext(ctx).Named("server.resume")

	if session, ok := m.lookupSession(sessionID); ok {
		m.rebind(ctx, session, id, conn)
		return true
	}

	state, err := m.store.ReadGameState(sessionID)
	if err != nil {
		if errors.Is(err, gamestateDb.ErrEntryNotFound) {
			// stale pointer from a finished game
			if err := m.store.DeletePlayerGame(id); err != nil {
				logger.Errorf("delete stale player game %s: %v", id, err)
			}
			return false
		}

		logger.Errorf("read game state %s: %v", sessionID, err)
		return false
	}

	session, err := match.NewFromSnapshot(state, m.matchConfig, m.store)
	if err != nil {
		logger.Errorf("rehydrate session %s: %v", sessionID, err)
		return false
	}

	// both seats can resume concurrently after a restart; exactly one
	// rehydrated copy may win the registry, the other rebinds into it
	session, fresh := m.adoptSession(session)
	if fresh {
		m.matchmaker.Resume(ctx, session)
	}
	m.rebind(ctx, session, id, conn)
	logger.Infof("player %s resumed session %s at round %d", id, sessionID, session.Round)

	return true
}

// adoptSession inserts a rehydrated session unless another resumer beat
// it to the registry, in which case the incumbent is returned and the
// duplicate discarded.
func (m *Manager) adoptSession(s *match.Session) (*match.Session, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if existing, ok := m.sessions[s.ID]; ok {
		return existing, false
	}

	m.sessions[s.ID] = s
	for _, p := range s.Players {
		m.players[p.ID] = s
	}

	return s, true
}

func (m *Manager) rebind(ctx context.Context, session *match.Session, id string, conn *lineConn) {
	player, ok := session.FindPlayer(id)
	if !ok {
		// registry pointed at a session that does not hold the player;
		// should not happen, fail the connection rather than misroute
		logging.FromContext(ctx).Named("server.rebind").Errorf("player %s not in session %s", id, session.ID)
		_ = conn.Close()
		return
	}

	player.Rebind(conn)
	m.startPeer(ctx, conn, player)
}

func (m *Manager) registerSession(s *match.Session) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.sessions[s.ID] = s
	for _, p := range s.Players {
		m.players[p.ID] = s
	}
}

func (m *Manager) sessionDone(s *match.Session) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	delete(m.sessions, s.ID)
	for _, p := range s.Players {
		delete(m.players, p.ID)
	}
}

func (m *Manager) lookupPlayer(id string) (*match.Session, bool) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	s, ok := m.players[id]
	return s, ok
}

func (m *Manager) lookupSession(id string) (*match.Session, bool) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}
