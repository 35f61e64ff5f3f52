package uci

import "strconv"

// mateBase maps mate scores onto the centipawn scale, far above any realistic
// positional advantage so mate-missed events dominate loss ordering. A mate in
// fewer moves normalizes higher than a mate in more.
const mateBase = 20000

// Score is an engine evaluation, always from the side to move's perspective.
// Mate == 0 means no forced mate; positive Mate means the side to move
// delivers mate in N, negative means it receives mate in N.
type Score struct {
	CP   int `json:"cp"`
	Mate int `json:"mate,omitempty"`
}

// IsMate reports whether the score is a forced mate.
func (s Score) IsMate() bool { return s.Mate != 0 }

// Normalized returns the score as centipawns with mate scores mapped onto a
// bounded scale: mate in N becomes ±(20000 - 10N).
func (s Score) Normalized() int {
	switch {
	case s.Mate > 0:
		return mateBase - s.Mate*10
	case s.Mate < 0:
		return -mateBase - s.Mate*10
	default:
		return s.CP
	}
}

// Negate flips the score to the opponent's perspective.
func (s Score) Negate() Score {
	return Score{CP: -s.CP, Mate: -s.Mate}
}

// String renders a human-readable score: "+1.25", "-0.50", "#3", "#-5".
func (s Score) String() string {
	if s.IsMate() {
		return "#" + strconv.Itoa(s.Mate)
	}
	cp := s.CP
	sign := "+"
	if cp < 0 {
		sign = "-"
		cp = -cp
	}
	whole := cp / 100
	frac := cp % 100
	if frac < 10 {
		return sign + strconv.Itoa(whole) + ".0" + strconv.Itoa(frac)
	}
	return sign + strconv.Itoa(whole) + "." + strconv.Itoa(frac)
}
