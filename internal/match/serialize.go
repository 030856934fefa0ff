package match

import (
	"fmt"
	"time"

	"github.com/igs-sky/1A2B-Game/internal/database/gamestate/model"
)

// Snapshot flattens the session into its storable form. Together with
// NewFromSnapshot it must round-trip losslessly.
func (s *Session) Snapshot() model.State {
	state := model.State{
		ID:            s.ID,
		NumberDeck:    copyCards(s.NumberDeck),
		ToolDeck:      copyCards(s.ToolDeck),
		DiscardNumber: copyCards(s.DiscardNumber),
		DiscardTool:   copyCards(s.DiscardTool),
		Round:         s.Round,
		TurnIdx:       s.TurnIdx,
		CreatedAt:     s.CreatedAt,
	}

	for _, p := range s.Players {
		state.Players = append(state.Players, &model.Player{
			Name:            p.ID,
			Answer:          copyCards(p.Answer),
			NumberHand:      copyCards(p.NumberHand),
			ToolHand:        copyCards(p.ToolHand),
			BestA:           p.BestA,
			BestB:           p.BestB,
			ActionHistories: p.histories(),
		})
	}

	return state
}

// NewFromSnapshot rebuilds a session from a stored snapshot. Both seats
// come back offline; transports are rebound as the players reconnect.
func NewFromSnapshot(state model.State, config Config, store Store) (*Session, error) {
	if len(state.Players) != 2 {
		return nil, fmt.Errorf("snapshot %s holds %d players, want 2", state.ID, len(state.Players))
	}

	s := &Session{
		ID:            state.ID,
		NumberDeck:    copyCards(state.NumberDeck),
		ToolDeck:      copyCards(state.ToolDeck),
		DiscardNumber: copyCards(state.DiscardNumber),
		DiscardTool:   copyCards(state.DiscardTool),
		Round:         state.Round,
		TurnIdx:       state.TurnIdx,
		CreatedAt:     state.CreatedAt,
		config:        config,
		store:         store,
	}

	if s.Round == 0 {
		s.Round = 1
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	for i, sp := range state.Players {
		p := NewPlayer(sp.Name)
		p.Answer = copyCards(sp.Answer)
		p.NumberHand = copyCards(sp.NumberHand)
		p.ToolHand = copyCards(sp.ToolHand)
		p.BestA = sp.BestA
		p.BestB = sp.BestB
		p.setHistories(sp.ActionHistories)
		s.Players[i] = p
	}

	return s, nil
}

func copyCards(cards []string) []string {
	if cards == nil {
		return nil
	}

	out := make([]string, len(cards))
	copy(out, cards)
	return out
}
