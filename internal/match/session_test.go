package match

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/igs-sky/1A2B-Game/internal/database/gamestate/model"
)

type fakeTransport struct {
	mtx    sync.Mutex
	closed bool
	ch     chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{ch: make(chan string, 256)}
}

func (t *fakeTransport) WriteLine(line string) error {
	t.ch <- line
	return nil
}

func (t *fakeTransport) Close() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.closed = true
	return nil
}

// waitLine consumes received lines until one starts with prefix.
func (t *fakeTransport) waitLine(tb testing.TB, prefix string) string {
	tb.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case line := <-t.ch:
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-deadline:
			tb.Fatalf("timed out waiting for %q", prefix)
		}
	}
}

type memStore struct {
	mtx     sync.Mutex
	states  map[string]model.State
	players map[string]string
}

func newMemStore() *memStore {
	return &memStore{states: map[string]model.State{}, players: map[string]string{}}
}

func (s *memStore) SaveGameState(sessionID string, state model.State) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.states[sessionID] = state
	return nil
}

func (s *memStore) DeleteGameState(sessionID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.states, sessionID)
	return nil
}

func (s *memStore) SavePlayerGame(playerID, sessionID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.players[playerID] = sessionID
	return nil
}

func (s *memStore) DeletePlayerGame(playerID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.players, playerID)
	return nil
}

func (s *memStore) statesLen() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.states)
}

func (s *memStore) playersLen() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.players)
}

// newTestSession rigs a deterministic two-player game: both answers are
// 0123 and both hands can play 5678 (a miss) or 0123 (a win).
func newTestSession(config Config, store Store) (*Session, *fakeTransport, *fakeTransport, chan *Session) {
	doneCh := make(chan *Session, 1)
	if config.DoneFn == nil {
		config.DoneFn = func(s *Session) { doneCh <- s }
	}

	a, b := NewPlayer("alice"), NewPlayer("bob")
	s := NewSession(config, store, a, b)

	for _, p := range s.Players {
		p.Answer = []string{"0", "1", "2", "3"}
		p.NumberHand = []string{"0", "1", "2", "3", "5", "6", "7", "8"}
		p.ToolHand = []string{"DOUBLE", "POS"}
	}

	ta, tb := newFakeTransport(), newFakeTransport()
	a.Bind(ta)
	b.Bind(tb)

	_ = store.SavePlayerGame(a.ID, s.ID)
	_ = store.SavePlayerGame(b.ID, s.ID)
	_ = store.SaveGameState(s.ID, s.Snapshot())

	return s, ta, tb, doneCh
}

func TestWinningGuessEndsSession(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, ta, tb, done := newTestSession(Config{MaxRounds: 10, ReconnectWait: time.Second}, store)

	s.Run(context.Background())

	ta.waitLine(t, "TOOL")
	s.Players[0].Push("-1")
	ta.waitLine(t, "GUESS")
	s.Players[0].Push("0123")

	if got := ta.waitLine(t, "WINNER"); got != "WINNER alice" {
		t.Errorf("expected WINNER alice got %q", got)
	}
	tb.waitLine(t, "WINNER")

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("session not torn down")
	}

	if store.statesLen() != 0 {
		t.Errorf("snapshot not deleted")
	}

	if store.playersLen() != 0 {
		t.Errorf("player pointers not deleted")
	}
}

func TestRoundsExhaustedEndInDraw(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, ta, tb, done := newTestSession(Config{MaxRounds: 1, ReconnectWait: time.Second}, store)

	s.Run(context.Background())

	ta.waitLine(t, "TOOL")
	s.Players[0].Push("-1")
	ta.waitLine(t, "GUESS")
	s.Players[0].Push("5678")
	ta.waitLine(t, "RESULT 0 0")

	tb.waitLine(t, "TOOL")
	s.Players[1].Push("-1")
	tb.waitLine(t, "GUESS")
	s.Players[1].Push("5678")

	ta.waitLine(t, "DRAW")
	tb.waitLine(t, "DRAW")

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("session not torn down")
	}

	if store.statesLen() != 0 {
		t.Errorf("snapshot not deleted after draw")
	}
}

func TestCheckpointAfterTurn(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, ta, tb, _ := newTestSession(Config{MaxRounds: 10, ReconnectWait: time.Second}, store)

	s.Run(context.Background())

	ta.waitLine(t, "TOOL")
	s.Players[0].Push("-1")
	ta.waitLine(t, "GUESS")
	s.Players[0].Push("5678")
	ta.waitLine(t, "RESULT")

	// the checkpoint lands before bob's turn opens
	tb.waitLine(t, "TOOL")

	store.mtx.Lock()
	state, ok := store.states[s.ID]
	store.mtx.Unlock()

	if !ok {
		t.Fatal("no snapshot written")
	}

	if state.TurnIdx != 1 {
		t.Errorf("expected snapshot at bob's turn, got turn idx %d", state.TurnIdx)
	}

	total := len(state.NumberDeck) + len(state.DiscardNumber)
	for _, p := range state.Players {
		total += len(p.NumberHand)
	}
	if total != 40 {
		t.Errorf("number cards leaked: expected 40 got %d", total)
	}
}

func TestReconnectReplaysOutstandingPrompt(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, ta, tb, _ := newTestSession(Config{MaxRounds: 10, ReconnectWait: 5 * time.Second}, store)

	s.Run(context.Background())

	ta.waitLine(t, "TOOL")
	s.Players[0].Push("-1")
	prompt := ta.waitLine(t, "GUESS")

	s.Players[0].DisconnectFrom(ta)
	tb.waitLine(t, "DISCONNECTED alice")

	fresh := newFakeTransport()
	s.Players[0].Rebind(fresh)

	fresh.waitLine(t, "HAND")
	if replayed := fresh.waitLine(t, "GUESS"); replayed != prompt {
		t.Errorf("prompt not replayed verbatim: %q vs %q", replayed, prompt)
	}

	// the match continues without skipping the turn
	s.Players[0].Push("0123")
	fresh.waitLine(t, "WINNER alice")
}

func TestPermanentDisconnectAwardsWin(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, ta, tb, done := newTestSession(Config{MaxRounds: 10, ReconnectWait: 50 * time.Millisecond}, store)

	s.Run(context.Background())

	ta.waitLine(t, "TOOL")
	s.Players[0].DisconnectFrom(ta)

	tb.waitLine(t, "DISCONNECTED alice")
	if got := tb.waitLine(t, "WINNER"); got != "WINNER bob" {
		t.Errorf("expected WINNER bob got %q", got)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("session not torn down")
	}

	if store.statesLen() != 0 || store.playersLen() != 0 {
		t.Errorf("store not cleaned up")
	}
}

func TestDisconnectWithFullQueueStillForfeits(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, ta, tb, done := newTestSession(Config{MaxRounds: 10, ReconnectWait: 100 * time.Millisecond}, store)

	s.Run(context.Background())

	ta.waitLine(t, "TOOL")

	// bob floods his queue while it is not his turn, then dies; the
	// disconnect marker finds no free slot
	for i := 0; i < commandQueueSize; i++ {
		s.Players[1].Push("junk")
	}
	s.Players[1].DisconnectFrom(tb)

	s.Players[0].Push("-1")
	ta.waitLine(t, "GUESS")
	s.Players[0].Push("5678")
	ta.waitLine(t, "RESULT")

	// bob's turn drains the junk and must still forfeit
	ta.waitLine(t, "DISCONNECTED bob")
	if got := ta.waitLine(t, "WINNER"); got != "WINNER alice" {
		t.Errorf("expected WINNER alice got %q", got)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("session not torn down")
	}
}

func TestResumedSessionForfeitsAbsentSeat(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	config := Config{MaxRounds: 10, ReconnectWait: 50 * time.Millisecond}
	s, _, _, _ := newTestSession(config, store)

	doneCh := make(chan *Session, 1)
	config.DoneFn = func(s *Session) { doneCh <- s }

	restored, err := NewFromSnapshot(s.Snapshot(), config, store)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	// only bob returns; alice's seat never posts a disconnect marker
	// yet her turn must not wait forever
	tb := newFakeTransport()
	restored.Players[1].Rebind(tb)

	restored.Run(context.Background())

	tb.waitLine(t, "DISCONNECTED alice")
	if got := tb.waitLine(t, "WINNER"); got != "WINNER bob" {
		t.Errorf("expected WINNER bob got %q", got)
	}

	select {
	case <-doneCh:
	case <-time.After(3 * time.Second):
		t.Fatal("session not torn down")
	}

	if store.statesLen() != 0 {
		t.Errorf("snapshot not deleted")
	}
}

func TestReconnectOutlivesExpiredWindow(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, ta, tb, _ := newTestSession(Config{MaxRounds: 10, ReconnectWait: 150 * time.Millisecond}, store)

	s.Run(context.Background())

	ta.waitLine(t, "TOOL")
	s.Players[0].Push("-1")
	ta.waitLine(t, "GUESS")

	s.Players[0].DisconnectFrom(ta)
	tb.waitLine(t, "DISCONNECTED alice")

	fresh := newFakeTransport()
	s.Players[0].Rebind(fresh)
	fresh.waitLine(t, "GUESS")

	// alice is back inside the window but answers only after it lapsed;
	// being rebound must beat the expired timer
	time.Sleep(400 * time.Millisecond)
	s.Players[0].Push("0123")
	fresh.waitLine(t, "WINNER alice")
}

func TestMalformedGuessesReprompted(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, ta, _, _ := newTestSession(Config{MaxRounds: 10, ReconnectWait: time.Second}, store)

	s.Run(context.Background())

	ta.waitLine(t, "TOOL")
	s.Players[0].Push("-1")

	ta.waitLine(t, "GUESS")
	s.Players[0].Push("12") // wrong length
	ta.waitLine(t, "GUESS")
	s.Players[0].Push("9999") // cards not held
	ta.waitLine(t, "GUESS")
	s.Players[0].Push("07ab") // not digits
	ta.waitLine(t, "GUESS")
	s.Players[0].Push("5678")

	if got := ta.waitLine(t, "RESULT"); got != "RESULT 0 0" {
		t.Errorf("expected RESULT 0 0 got %q", got)
	}
}

func TestDoubleToolGrantsExtraGuess(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, ta, tb, _ := newTestSession(Config{MaxRounds: 10, ReconnectWait: time.Second}, store)

	s.Run(context.Background())

	ta.waitLine(t, "TOOL")
	s.Players[0].Push("1") // DOUBLE sits first in the rigged hand
	ta.waitLine(t, "DOUBLE_ACTIVE")
	tb.waitLine(t, "OPP_TOOL alice DOUBLE")

	ta.waitLine(t, "GUESS")
	s.Players[0].Push("5678")
	ta.waitLine(t, "RESULT 0 0")

	ta.waitLine(t, "GUESS")
	s.Players[0].Push("0123")
	ta.waitLine(t, "WINNER alice")
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	s, _, _, _ := newTestSession(Config{MaxRounds: 10, ReconnectWait: time.Second}, store)
	s.Round = 3
	s.TurnIdx = 1
	s.Players[0].BestA = 2
	s.Players[0].BestB = 1

	state := s.Snapshot()
	restored, err := NewFromSnapshot(state, s.config, store)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if !reflect.DeepEqual(restored.Snapshot(), state) {
		t.Errorf("snapshot does not round-trip:\n%+v\nvs\n%+v", restored.Snapshot(), state)
	}

	if restored.Round != 3 || restored.TurnIdx != 1 {
		t.Errorf("round/turn not restored: %d %d", restored.Round, restored.TurnIdx)
	}

	if restored.Players[0].Alive() {
		t.Errorf("restored players must start offline")
	}
}
