package game

// CheckGuess scores a guess against an answer in the 1A2B fashion:
// a counts right digit in the right position, b counts right digit in
// the wrong position. Both sequences are GuessDigits long.
func CheckGuess(answer, guess []string) (a, b int) {
	for i := range answer {
		if i < len(guess) && answer[i] == guess[i] {
			a++
		}
	}

	seen := map[string]struct{}{}
	for _, d := range answer {
		seen[d] = struct{}{}
	}

	matched := map[string]struct{}{}
	for _, d := range guess {
		if _, ok := seen[d]; ok {
			matched[d] = struct{}{}
		}
	}

	return a, len(matched) - a
}
