package match

import (
	"sync"
)

// Transport is the write half of a player's connection. The connection
// manager owns the raw socket; a session only ever writes lines or
// closes it.
type Transport interface {
	WriteLine(line string) error
	Close() error
}

type CommandKind uint8

const (
	// CommandKindInput carries one line typed by the player.
	CommandKindInput CommandKind = iota + 1
	// CommandKindDisconnected marks the transport gone, injected by the
	// reader or the heartbeat watcher.
	CommandKindDisconnected
)

// Command is the tagged variant consumed by a session's single blocking
// receive: either player input or a disconnect marker.
type Command struct {
	Kind CommandKind
	Data string
}

func NewPlayer(id string) *Player {
	return &Player{
		ID:    id,
		cmdCh: make(chan Command, commandQueueSize),
	}
}

const commandQueueSize = 16

// Player is one seat in a session. The owning session is the only
// mutator of the card fields; the connection manager's reader and
// heartbeat tasks touch nothing but the command queue and the
// transport binding.
type Player struct {
	ID         string
	Answer     []string
	NumberHand []string
	ToolHand   []string
	BestA      int
	BestB      int

	mtx             sync.Mutex
	transport       Transport
	alive           bool
	actionHistories []string
	outstanding     string
	handLine        string

	cmdCh chan Command
}

// Recv exposes the command queue the session blocks on.
func (p *Player) Recv() <-chan Command {
	return p.cmdCh
}

// Push queues one line of player input for the session, preserving the
// order bytes arrived on the wire.
func (p *Player) Push(data string) {
	p.cmdCh <- Command{Kind: CommandKindInput, Data: data}
}

// Bind attaches a transport to the player and marks it alive.
func (p *Player) Bind(t Transport) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.transport = t
	p.alive = true
}

// DisconnectFrom marks the player offline and wakes the session, but
// only if t is still the bound transport. A reader whose connection was
// replaced by a reconnect must not kill the fresh binding.
func (p *Player) DisconnectFrom(t Transport) {
	p.mtx.Lock()
	if p.transport != t {
		p.mtx.Unlock()
		return
	}
	p.alive = false
	p.mtx.Unlock()

	select {
	case p.cmdCh <- Command{Kind: CommandKindDisconnected}:
	default:
	}
}

// Owns reports whether t is the player's current transport.
func (p *Player) Owns(t Transport) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.transport == t
}

func (p *Player) Alive() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.alive
}

// Send writes one line to the player. An offline player swallows the
// message; a write failure flips the player offline.
func (p *Player) Send(line string) {
	p.mtx.Lock()
	t, alive := p.transport, p.alive
	p.mtx.Unlock()

	if t == nil || !alive {
		return
	}

	if err := t.WriteLine(line); err != nil {
		p.DisconnectFrom(t)
	}
}

// Prompt sends a line that expects a reply and records it as the
// player's one outstanding prompt, replayed verbatim after a reconnect.
func (p *Player) Prompt(line string) {
	p.mtx.Lock()
	p.outstanding = line
	p.actionHistories = append(p.actionHistories, line)
	p.mtx.Unlock()

	p.Send(line)
}

// RecordHand keeps the last HAND line so a reconnect can replay the
// player's view without reading session-owned card state.
func (p *Player) RecordHand(line string) {
	p.mtx.Lock()
	p.handLine = line
	p.mtx.Unlock()
}

// Rebind swaps in a fresh transport after a reconnect, closes the stale
// one, and replays the player's hand plus the one outstanding prompt.
func (p *Player) Rebind(t Transport) {
	p.mtx.Lock()
	old := p.transport
	p.transport = t
	p.alive = true
	hand, prompt := p.handLine, p.outstanding
	p.mtx.Unlock()

	if old != nil && old != t {
		_ = old.Close()
	}

	for _, line := range []string{hand, prompt} {
		if line == "" {
			continue
		}
		if err := t.WriteLine(line); err != nil {
			p.DisconnectFrom(t)
			return
		}
	}
}

// AckPrompt clears the outstanding prompt once its answer was consumed.
func (p *Player) AckPrompt() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.outstanding = ""
}

// Outstanding returns the prompt awaiting an answer, if any.
func (p *Player) Outstanding() string {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.outstanding
}

// CloseTransport shuts the player's connection, if any.
func (p *Player) CloseTransport() {
	p.mtx.Lock()
	t := p.transport
	p.transport = nil
	p.alive = false
	p.mtx.Unlock()

	if t != nil {
		_ = t.Close()
	}
}

func (p *Player) histories() []string {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	out := make([]string, len(p.actionHistories))
	copy(out, p.actionHistories)
	return out
}

func (p *Player) setHistories(h []string) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.actionHistories = append(p.actionHistories[:0], h...)
}
