package uci

import (
	"reflect"
	"testing"
)

func TestParseInfo(t *testing.T) {
	vocab := DefaultVocabulary()

	tests := []struct {
		name string
		line string
		ok   bool
		want infoLine
	}{
		{
			name: "full multipv line",
			line: "info depth 20 seldepth 28 multipv 2 score cp 35 nodes 123456 nps 900000 pv e2e4 e7e5 g1f3",
			ok:   true,
			want: infoLine{depth: 20, rank: 2, score: Score{CP: 35}, hasScore: true,
				moves: []string{"e2e4", "e7e5", "g1f3"}},
		},
		{
			name: "mate score",
			line: "info depth 12 score mate 3 pv d1h5",
			ok:   true,
			want: infoLine{depth: 12, rank: 1, score: Score{Mate: 3}, hasScore: true,
				moves: []string{"d1h5"}},
		},
		{
			name: "negative mate",
			line: "info depth 12 multipv 1 score mate -2 pv e8e7",
			ok:   true,
			want: infoLine{depth: 12, rank: 1, score: Score{Mate: -2}, hasScore: true,
				moves: []string{"e8e7"}},
		},
		{
			name: "currmove line has no score",
			line: "info depth 15 currmove e2e4 currmovenumber 1",
			ok:   false,
		},
		{
			name: "string line",
			line: "info string NNUE evaluation using nn-abc123.nnue",
			ok:   false,
		},
		{
			name: "not an info line",
			line: "bestmove e2e4 ponder e7e5",
			ok:   false,
		},
		{
			name: "score without pv",
			line: "info depth 5 score cp -12",
			ok:   true,
			want: infoLine{depth: 5, rank: 1, score: Score{CP: -12}, hasScore: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseInfo(tt.line, vocab)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseInfo(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseBestMove(t *testing.T) {
	vocab := DefaultVocabulary()

	tests := []struct {
		line string
		want string
	}{
		{"bestmove e2e4 ponder e7e5", "e2e4"},
		{"bestmove a7a8q", "a7a8q"},
		{"bestmove (none)", ""},
		{"info depth 1", ""},
		{"bestmove", ""},
	}
	for _, tt := range tests {
		if got := parseBestMove(tt.line, vocab); got != tt.want {
			t.Errorf("parseBestMove(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestScoreNormalized(t *testing.T) {
	tests := []struct {
		score Score
		want  int
	}{
		{Score{CP: 35}, 35},
		{Score{CP: -350}, -350},
		{Score{Mate: 1}, 19990},
		{Score{Mate: 3}, 19970},
		{Score{Mate: -2}, -19980},
		{Score{Mate: -5}, -19950},
	}
	for _, tt := range tests {
		if got := tt.score.Normalized(); got != tt.want {
			t.Errorf("%+v.Normalized() = %d, want %d", tt.score, got, tt.want)
		}
	}

	// Fewer moves to mate is better for the mating side, worse for the mated.
	if (Score{Mate: 2}).Normalized() <= (Score{Mate: 5}).Normalized() {
		t.Error("mate in 2 should normalize above mate in 5")
	}
	if (Score{Mate: -2}).Normalized() >= (Score{Mate: -5}).Normalized() {
		t.Error("mated in 2 should normalize below mated in 5")
	}
	// Any mate dominates any realistic centipawn score.
	if (Score{Mate: 50}).Normalized() <= 9999 {
		t.Error("mate scores should dominate centipawn scores")
	}
}

func TestScoreString(t *testing.T) {
	tests := []struct {
		score Score
		want  string
	}{
		{Score{CP: 125}, "+1.25"},
		{Score{CP: -50}, "-0.50"},
		{Score{CP: 0}, "+0.00"},
		{Score{CP: 7}, "+0.07"},
		{Score{Mate: 3}, "#3"},
		{Score{Mate: -5}, "#-5"},
	}
	for _, tt := range tests {
		if got := tt.score.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestScoreNegate(t *testing.T) {
	s := Score{CP: 40}
	if got := s.Negate(); got.CP != -40 {
		t.Errorf("Negate CP = %d, want -40", got.CP)
	}
	m := Score{Mate: -3}
	if got := m.Negate(); got.Mate != 3 {
		t.Errorf("Negate Mate = %d, want 3", got.Mate)
	}
	if got := s.Negate().Normalized(); got != -s.Normalized() {
		t.Errorf("Negate should mirror Normalized: %d", got)
	}
}
