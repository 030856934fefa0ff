package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/igs-sky/1A2B-Game/internal/database/gamestate/model"
	"github.com/igs-sky/1A2B-Game/internal/game"
	"github.com/igs-sky/1A2B-Game/internal/logging"
	"github.com/igs-sky/1A2B-Game/internal/proto"
)

var (
	ErrContextClosed = fmt.Errorf("context closed")

	errPlayerGone = fmt.Errorf("player gone")
)

// Store is the durable side of a session: snapshots keyed by session id
// and the player→session pointers used to route reconnects.
type Store interface {
	SaveGameState(sessionID string, state model.State) error
	DeleteGameState(sessionID string) error
	SavePlayerGame(playerID, sessionID string) error
	DeletePlayerGame(playerID string) error
}

type Config struct {
	// Rounds before a game without a winner ends in a draw
	MaxRounds int

	// Grace period for a mid-prompt reconnect before the turn is
	// forfeited
	ReconnectWait time.Duration

	// Called once after teardown so the owner can evict its registries
	DoneFn func(*Session)
}

// NewSession builds a fresh two-player game: new decks, secret answers
// and opening hands dealt.
func NewSession(config Config, store Store, a, b *Player) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		Players:    [2]*Player{a, b},
		NumberDeck: game.BuildNumberDeck(),
		ToolDeck:   game.BuildToolDeck(),
		Round:      1,
		CreatedAt:  time.Now(),
		config:     config,
		store:      store,
	}

	for _, p := range s.Players {
		p.Answer = game.DealAnswer()
		s.drawUp(p)
	}

	return s
}

// Session owns both players and all card piles for the lifetime of one
// match. Run starts the single orchestrator goroutine; nothing else
// mutates the game state.
type Session struct {
	ID      string
	Players [2]*Player

	NumberDeck    []string
	ToolDeck      []string
	DiscardNumber []string
	DiscardTool   []string
	Round         int
	TurnIdx       int
	CreatedAt     time.Time

	config Config
	store  Store
	sema   sync.Once
}

func (s *Session) Run(ctx context.Context) {
	s.sema.Do(func() {
		go s.loop(ctx)
	})
}

// FindPlayer returns the seat with the given identity.
func (s *Session) FindPlayer(id string) (*Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}

	return nil, false
}

func (s *Session) loop(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("match.loop")
	logger.Infof("session %s started: %s vs %s, round %d", s.ID, s.Players[0].ID, s.Players[1].ID, s.Round)

	// the waiting seat sees its opening hand while the first turn runs
	s.sendHand(s.Players[1-s.TurnIdx])

	for s.Round <= s.config.MaxRounds {
		idx := s.TurnIdx
		current, opponent := s.Players[idx], s.Players[1-idx]

		won, err := s.playTurn(ctx, current, opponent)
		if err != nil {
			if errors.Is(err, errPlayerGone) {
				logger.Infof("session %s: %s gone, %s wins", s.ID, current.ID, opponent.ID)
				s.finish(ctx, proto.Winner(opponent.ID))
				return
			}
			// context closed; the last checkpoint stays resumable
			return
		}

		if won {
			logger.Infof("session %s: %s guessed the answer", s.ID, current.ID)
			s.finish(ctx, proto.Winner(current.ID))
			return
		}

		s.TurnIdx = 1 - idx
		if s.TurnIdx == 0 {
			s.Round++
		}

		s.checkpoint(ctx)
	}

	logger.Infof("session %s: rounds exhausted", s.ID)
	s.finish(ctx, proto.Draw())
}

func (s *Session) playTurn(ctx context.Context, current, opponent *Player) (bool, error) {
	s.sendHand(current)
	opponent.Send(proto.Status(current.ID))

	extraGuess, err := s.toolPhase(ctx, current, opponent)
	if err != nil {
		return false, err
	}

	guesses := 1
	if extraGuess {
		guesses = 2
	}

	for i := 0; i < guesses; i++ {
		won, err := s.guessPhase(ctx, current, opponent)
		if err != nil {
			return false, err
		}
		if won {
			return true, nil
		}
	}

	return false, nil
}

// toolPhase lets the current player spend at most one tool card. A skip
// sentinel or any out-of-range index declines. Reports whether DOUBLE
// granted an extra guess this turn.
func (s *Session) toolPhase(ctx context.Context, current, opponent *Player) (bool, error) {
	current.Prompt(proto.Tool())
	input, err := s.await(ctx, current, opponent)
	if err != nil {
		return false, err
	}

	idx, convErr := strconv.Atoi(input)
	if convErr != nil || idx < 1 || idx > len(current.ToolHand) {
		return false, nil
	}

	tool := current.ToolHand[idx-1]
	current.ToolHand = append(current.ToolHand[:idx-1], current.ToolHand[idx:]...)
	s.DiscardTool = append(s.DiscardTool, tool)

	current.Send(proto.UsedTool(tool))
	opponent.Send(proto.OppTool(current.ID, tool))

	switch tool {
	case game.ToolPos:
		for {
			current.Prompt(proto.Pos())
			input, err := s.await(ctx, current, opponent)
			if err != nil {
				return false, err
			}

			pos, convErr := strconv.Atoi(input)
			digit, posErr := game.Pos(opponent.Answer, pos)
			if convErr != nil || posErr != nil {
				continue
			}

			current.Send(proto.PosResult(pos, digit))
			break
		}

	case game.ToolShuffle:
		// shuffles the opponent's secret; the new arrangement is shown
		// only to the tool's user
		game.ShuffleAnswer(opponent.Answer)
		current.Send(proto.ShuffleResult(opponent.Answer))

	case game.ToolExclude:
		current.Send(proto.ExcludeResult(game.Exclude(opponent.Answer)))

	case game.ToolDouble:
		current.Send(proto.DoubleActive())
		return true, nil

	case game.ToolReshuffle:
		current.NumberHand, s.NumberDeck = game.Reshuffle(current.NumberHand, s.NumberDeck)
		current.Send(proto.ReshuffleDone())
	}

	return false, nil
}

// guessPhase runs one scored guess. Malformed guesses and guesses using
// cards the player does not hold are re-prompted, never applied.
func (s *Session) guessPhase(ctx context.Context, current, opponent *Player) (bool, error) {
	for {
		s.sendHand(current)
		current.Prompt(proto.Guess(current.NumberHand))

		input, err := s.await(ctx, current, opponent)
		if err != nil {
			return false, err
		}

		guess := strings.Split(strings.TrimSpace(input), "")
		if !validGuess(guess, current.NumberHand) {
			continue
		}

		for _, d := range guess {
			current.NumberHand = removeCard(current.NumberHand, d)
			s.DiscardNumber = append(s.DiscardNumber, d)
		}
		s.drawUp(current)

		a, b := game.CheckGuess(opponent.Answer, guess)
		if a > current.BestA {
			current.BestA, current.BestB = a, b
		} else if a == current.BestA && b > current.BestB {
			current.BestB = b
		}

		current.Send(proto.Result(a, b))
		opponent.Send(proto.OppGuess(current.ID, strings.Join(guess, ""), a, b))

		return a == game.GuessDigits, nil
	}
}

// await blocks on the player's command queue. An offline seat opens a
// bounded reconnect window: an answer arriving through a rebound
// transport continues the turn, expiry with the seat still offline
// forfeits it.
func (s *Session) await(ctx context.Context, p, other *Player) (string, error) {
	var timer *time.Timer
	var expired <-chan time.Time

	arm := func() {
		if expired != nil {
			return
		}
		other.Send(proto.Disconnected(p.ID))
		timer = time.NewTimer(s.config.ReconnectWait)
		expired = timer.C
	}
	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer, expired = nil, nil
		}
	}
	defer disarm()

	// the disconnect marker is lost when the command queue is full, and
	// a rehydrated seat that never reconnected posts none at all
	if !p.Alive() {
		arm()
	}

	for {
		select {
		case <-ctx.Done():
			return "", ErrContextClosed
		case <-expired:
			if p.Alive() {
				// reconnected inside the window; keep waiting for the
				// answer
				disarm()
				continue
			}
			return "", errPlayerGone
		case cmd := <-p.Recv():
			switch cmd.Kind {
			case CommandKindInput:
				p.AckPrompt()
				return cmd.Data, nil
			case CommandKindDisconnected:
				arm()
			}
		}
	}
}

func (s *Session) drawUp(p *Player) {
	p.NumberHand, s.NumberDeck, s.DiscardNumber = game.Draw(p.NumberHand, s.NumberDeck, s.DiscardNumber, game.MaxNumberHand)
	p.ToolHand, s.ToolDeck, s.DiscardTool = game.Draw(p.ToolHand, s.ToolDeck, s.DiscardTool, game.MaxToolHand)
}

func (s *Session) sendHand(p *Player) {
	line := proto.Hand(p.NumberHand, p.ToolHand)
	p.RecordHand(line)
	p.Send(line)
}

// checkpoint persists the full session snapshot. Store trouble is
// logged, not fatal: the game carries on in memory.
func (s *Session) checkpoint(ctx context.Context) {
	if err := s.store.SaveGameState(s.ID, s.Snapshot()); err != nil {
		logging.FromContext(ctx).Named("match.checkpoint").Errorf("save game state %s: %v", s.ID, err)
	}
}

// finish broadcasts the terminal line to both seats and tears the
// session down: snapshot and player pointers deleted, transports
// closed, owner notified.
func (s *Session) finish(ctx context.Context, terminal string) {
	logger := logging.FromContext(ctx).Named("match.finish")

	for _, p := range s.Players {
		p.Send(terminal)
	}

	for _, p := range s.Players {
		if err := s.store.DeletePlayerGame(p.ID); err != nil {
			logger.Errorf("delete player game %s: %v", p.ID, err)
		}
	}

	if err := s.store.DeleteGameState(s.ID); err != nil {
		logger.Errorf("delete game state %s: %v", s.ID, err)
	}

	for _, p := range s.Players {
		p.CloseTransport()
	}

	if s.config.DoneFn != nil {
		s.config.DoneFn(s)
	}
}

func validGuess(guess, hand []string) bool {
	if len(guess) != game.GuessDigits {
		return false
	}

	remaining := make([]string, len(hand))
	copy(remaining, hand)

	for _, d := range guess {
		if len(d) != 1 || d[0] < '0' || d[0] > '9' {
			return false
		}

		before := len(remaining)
		remaining = removeCard(remaining, d)
		if len(remaining) == before {
			return false
		}
	}

	return true
}

func removeCard(cards []string, card string) []string {
	for i, c := range cards {
		if c == card {
			return append(cards[:i], cards[i+1:]...)
		}
	}

	return cards
}
