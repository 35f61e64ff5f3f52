package uci

import (
	"strconv"
	"strings"
)

// infoLine is one parsed search-progress line.
type infoLine struct {
	depth    int
	rank     int // multipv rank, 1 if the engine omits the field
	score    Score
	hasScore bool
	moves    []string
}

// parseInfo scans an info line's fields. Field order is engine-specific, so
// each token is matched by name rather than position. Lines without a score
// (currmove reports, string lines) return ok=false.
func parseInfo(line string, vocab Vocabulary) (infoLine, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != vocab.Info {
		return infoLine{}, false
	}

	info := infoLine{rank: 1}
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				info.depth, _ = strconv.Atoi(fields[i+1])
				i++
			}
		case "multipv":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil && n > 0 {
					info.rank = n
				}
				i++
			}
		case "score":
			if i+2 < len(fields) {
				n, err := strconv.Atoi(fields[i+2])
				if err == nil {
					switch fields[i+1] {
					case "cp":
						info.score = Score{CP: n}
						info.hasScore = true
					case "mate":
						info.score = Score{Mate: n}
						info.hasScore = true
					}
				}
				i += 2
			}
		case "pv":
			info.moves = fields[i+1:]
			i = len(fields)
		}
	}

	return info, info.hasScore
}

// parseBestMove extracts the move from a terminal "bestmove e2e4 ponder ..."
// line. Returns "" if the line carries no move (e.g. "bestmove (none)").
func parseBestMove(line string, vocab Vocabulary) string {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != vocab.BestMove {
		return ""
	}
	if strings.HasPrefix(fields[1], "(") {
		return ""
	}
	return fields[1]
}

// prefixPredicate matches lines beginning with the given sentinel token.
func prefixPredicate(token string) func(string) bool {
	return func(line string) bool {
		return strings.HasPrefix(line, token)
	}
}
