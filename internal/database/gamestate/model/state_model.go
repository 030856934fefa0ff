package model

import "time"

// Player is the serialized form of one seat in a session. Cards are
// stored by face value.
type Player struct {
	Name       string   `json:"name"`
	Answer     []string `json:"answer"`
	NumberHand []string `json:"numberHand"`
	ToolHand   []string `json:"toolHand"`
	BestA      int      `json:"bestA"`
	BestB      int      `json:"bestB"`

	// prompts sent and not yet answered, newest last
	ActionHistories []string `json:"actionHistories"`
}

// State is a full session snapshot. It must round-trip losslessly:
// a session rehydrated from it continues from the last completed turn.
type State struct {
	ID            string    `json:"id"`
	NumberDeck    []string  `json:"numberDeck"`
	ToolDeck      []string  `json:"toolDeck"`
	DiscardNumber []string  `json:"discardNumber"`
	DiscardTool   []string  `json:"discardTool"`
	Round         int       `json:"round"`
	TurnIdx       int       `json:"turnIdx"`
	Players       []*Player `json:"players"`
	CreatedAt     time.Time `json:"createdAt"`
}
