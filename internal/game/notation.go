package game

import (
	"fmt"

	"github.com/notnil/chess"
)

// PositionFromFEN decodes a canonical board-state string.
func PositionFromFEN(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parsing FEN %q: %w", fen, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// SANLine renders a sequence of UCI moves starting from fen as SAN. Stops at
// the first move that fails to decode and returns what it has: engine lines
// can outrun the positions the library will validate (e.g. lines through a
// delivered mate).
func SANLine(fen string, ucis []string) ([]string, error) {
	pos, err := PositionFromFEN(fen)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, u := range ucis {
		m, err := chess.UCINotation{}.Decode(pos, u)
		if err != nil {
			break
		}
		out = append(out, chess.AlgebraicNotation{}.Encode(pos, m))
		pos = pos.Update(m)
		if pos == nil {
			break
		}
	}
	return out, nil
}
