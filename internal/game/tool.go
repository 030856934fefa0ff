package game

import (
	"fmt"

	"github.com/valyala/fastrand"
)

var ErrInvalidPosition = fmt.Errorf("position out of range")

// Pos reveals the answer digit at a 1-based position.
func Pos(answer []string, pos int) (string, error) {
	if pos < 1 || pos > len(answer) {
		return "", ErrInvalidPosition
	}

	return answer[pos-1], nil
}

// ShuffleAnswer permutes the answer digits in place. The multiset of
// digits is unchanged, only their order.
func ShuffleAnswer(answer []string) {
	shuffle(answer)
}

// Exclude picks a random digit that does not occur in the answer.
// Returns the empty string if every digit occurs, which cannot happen
// for a 4-digit answer but is handled anyway.
func Exclude(answer []string) string {
	present := map[string]struct{}{}
	for _, d := range answer {
		present[d] = struct{}{}
	}

	var absent []string
	for _, d := range digits {
		if _, ok := present[string(d)]; !ok {
			absent = append(absent, string(d))
		}
	}

	if len(absent) == 0 {
		return ""
	}

	return absent[fastrand.Uint32n(uint32(len(absent)))]
}
