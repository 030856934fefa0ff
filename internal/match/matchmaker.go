package match

import (
	"context"

	"github.com/igs-sky/1A2B-Game/internal/logging"
)

const waitingQueueSize = 64

// NewMatchmaker builds a matchmaker. registerFn is invoked with every
// session before its orchestrator starts, so the owner can index it.
func NewMatchmaker(config Config, store Store, registerFn func(*Session)) *Matchmaker {
	return &Matchmaker{
		queue:      make(chan *Player, waitingQueueSize),
		config:     config,
		store:      store,
		registerFn: registerFn,
	}
}

// Matchmaker pairs waiting players into sessions, two at a time, and
// restarts rehydrated sessions without re-pairing them.
type Matchmaker struct {
	queue      chan *Player
	config     Config
	store      Store
	registerFn func(*Session)
}

// Enqueue hands a freshly connected player to the pairing loop.
func (m *Matchmaker) Enqueue(p *Player) {
	m.queue <- p
}

// Waiting reports how many players sit in the queue, not yet picked up
// by the pairing loop.
func (m *Matchmaker) Waiting() int {
	return len(m.queue)
}

// Resume registers a rehydrated session and starts its orchestrator
// directly, bypassing pairing.
func (m *Matchmaker) Resume(ctx context.Context, s *Session) {
	m.registerFn(s)
	s.Run(ctx)
}

// Run dequeues waiting players in pairs. Players whose heartbeat died
// while they waited are discarded, not matched.
func (m *Matchmaker) Run(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("match.matchmaker")

	var waiting *Player
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-m.queue:
			if !p.Alive() {
				logger.Infof("dropping dead waiting player %s", p.ID)
				continue
			}

			if waiting == nil || !waiting.Alive() {
				waiting = p
				continue
			}

			session := NewSession(m.config, m.store, waiting, p)
			waiting = nil

			for _, player := range session.Players {
				if err := m.store.SavePlayerGame(player.ID, session.ID); err != nil {
					logger.Errorf("save player game %s: %v", player.ID, err)
				}
			}

			if err := m.store.SaveGameState(session.ID, session.Snapshot()); err != nil {
				logger.Errorf("save game state %s: %v", session.ID, err)
			}

			logger.Infof("matched %s vs %s into session %s", session.Players[0].ID, session.Players[1].ID, session.ID)
			m.registerFn(session)
			session.Run(ctx)
		}
	}
}
