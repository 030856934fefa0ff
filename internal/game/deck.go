// Package game holds the pure card and scoring rules: deck building,
// drawing, guess evaluation and tool-card effects. No I/O, no locking;
// callers own the slices they pass in.
package game

import (
	"math/rand"
	"sort"
)

const (
	NumberCopies  = 4
	MaxNumberHand = 8
	MaxToolHand   = 3
	MaxRounds     = 10
	GuessDigits   = 4
)

const (
	ToolPos       = "POS"
	ToolShuffle   = "SHUFFLE"
	ToolExclude   = "EXCLUDE"
	ToolDouble    = "DOUBLE"
	ToolReshuffle = "RESHUFFLE"
)

const digits = "0123456789"

// toolCounts is ordered so deck building stays deterministic before the
// shuffle.
var toolCounts = []struct {
	name  string
	count int
}{
	{ToolPos, 2},
	{ToolShuffle, 2},
	{ToolExclude, 2},
	{ToolDouble, 1},
	{ToolReshuffle, 1},
}

// BuildNumberDeck returns a shuffled deck of 4 copies of each digit card.
func BuildNumberDeck() []string {
	deck := make([]string, 0, len(digits)*NumberCopies)
	for _, d := range digits {
		for i := 0; i < NumberCopies; i++ {
			deck = append(deck, string(d))
		}
	}

	shuffle(deck)
	return deck
}

// BuildToolDeck returns a shuffled deck of the 8 tool cards.
func BuildToolDeck() []string {
	var deck []string
	for _, tc := range toolCounts {
		for i := 0; i < tc.count; i++ {
			deck = append(deck, tc.name)
		}
	}

	shuffle(deck)
	return deck
}

// DealAnswer picks 4 distinct secret digits in random order.
func DealAnswer() []string {
	pool := make([]string, 0, len(digits))
	for _, d := range digits {
		pool = append(pool, string(d))
	}

	shuffle(pool)
	return pool[:GuessDigits]
}

// Draw tops the hand up to target cards from the pile. An empty pile is
// refilled by shuffling the discard into it; when both run dry the hand
// simply stays short. The result hand is sorted for stable display.
func Draw(hand, pile, discard []string, target int) (newHand, newPile, newDiscard []string) {
	for len(hand) < target {
		if len(pile) == 0 {
			if len(discard) == 0 {
				break
			}
			pile = append(pile, discard...)
			discard = discard[:0]
			shuffle(pile)
		}

		hand = append(hand, pile[len(pile)-1])
		pile = pile[:len(pile)-1]
	}

	sort.Strings(hand)
	return hand, pile, discard
}

// Reshuffle merges the hand into the pile, shuffles, and deals the same
// number of cards back. The combined multiset is unchanged.
func Reshuffle(hand, pile []string) (newHand, newPile []string) {
	n := len(hand)
	merged := make([]string, 0, n+len(pile))
	merged = append(merged, hand...)
	merged = append(merged, pile...)
	shuffle(merged)

	newHand = merged[:n:n]
	newPile = merged[n:]
	sort.Strings(newHand)

	return newHand, newPile
}

func shuffle(cards []string) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
