package game

import (
	"strings"
	"testing"

	"github.com/notnil/chess"
)

func decodeGame(t *testing.T, pgn string) *chess.Game {
	t.Helper()
	opt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		t.Fatal(err)
	}
	return chess.NewGame(opt)
}

const scholarsMate = "1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0"

func TestFromGameMainline(t *testing.T) {
	tree, err := FromGame(decodeGame(t, scholarsMate))
	if err != nil {
		t.Fatal(err)
	}

	if tree.Len() != 8 { // root + 7 plies
		t.Fatalf("Len = %d, want 8", tree.Len())
	}

	root := tree.Root()
	if !root.IsRoot() || root.Ply != 0 || root.MoveUCI != "" {
		t.Errorf("bad root: %+v", root)
	}

	main := tree.Mainline()
	if len(main) != 8 {
		t.Fatalf("mainline length = %d, want 8", len(main))
	}

	wantSAN := []string{"e4", "e5", "Qh5", "Nc6", "Bc4", "Nf6", "Qxf7#"}
	for i, id := range main[1:] {
		node, err := tree.Node(id)
		if err != nil {
			t.Fatal(err)
		}
		if node.MoveSAN != wantSAN[i] {
			t.Errorf("ply %d SAN = %q, want %q", i+1, node.MoveSAN, wantSAN[i])
		}
		if node.Ply != i+1 {
			t.Errorf("ply %d recorded as %d", i+1, node.Ply)
		}
		parent, _ := tree.Node(node.Parent)
		if parent.Children[0] != id {
			t.Errorf("ply %d is not its parent's mainline child", i+1)
		}
	}

	// White moves on odd plies.
	e4, _ := tree.Node(main[1])
	if !e4.WhiteMoved() {
		t.Error("ply 1 should be White's move")
	}
	e5, _ := tree.Node(main[2])
	if e5.WhiteMoved() {
		t.Error("ply 2 should be Black's move")
	}
}

func TestAddVariation(t *testing.T) {
	tree, err := FromGame(decodeGame(t, "1. e4 e5 2. Nf3 *"))
	if err != nil {
		t.Fatal(err)
	}
	main := tree.Mainline()

	// Side line 2. f4 instead of 2. Nf3, grafted under the node after 1...e5.
	afterE5 := main[2]
	first, err := tree.AddVariationUCI(afterE5, []string{"f2f4", "e5f4"})
	if err != nil {
		t.Fatal(err)
	}

	node, _ := tree.Node(afterE5)
	if len(node.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(node.Children))
	}
	if node.Children[0] == first {
		t.Error("variation displaced the mainline continuation")
	}

	v, _ := tree.Node(first)
	if v.MoveSAN != "f4" {
		t.Errorf("variation SAN = %q, want f4", v.MoveSAN)
	}

	// Walk order: parent first, whole mainline subtree, then the variation.
	order := tree.Walk(false)
	if len(order) != tree.Len() {
		t.Fatalf("walk visits %d of %d nodes", len(order), tree.Len())
	}
	seen := make(map[NodeID]int)
	for i, id := range order {
		seen[id] = i
	}
	if seen[main[3]] > seen[first] {
		t.Error("mainline continuation should precede the side variation")
	}
	for _, id := range order[1:] {
		n, _ := tree.Node(id)
		if seen[n.Parent] > seen[id] {
			t.Errorf("node %d visited before its parent", id)
		}
	}

	// Mainline-only walk skips the variation entirely.
	mainOnly := tree.Walk(true)
	for _, id := range mainOnly {
		if id == first {
			t.Error("mainline-only walk included a variation node")
		}
	}
}

func TestWhiteMovedFromBlackToMoveStart(t *testing.T) {
	// Game set up from a position with Black to move: the first ply is
	// Black's, whatever the parity says.
	pos, err := PositionFromFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	tree := New(pos)
	first, err := tree.AddVariationUCI(0, []string{"e7e5", "g1f3"})
	if err != nil {
		t.Fatal(err)
	}

	reply, _ := tree.Node(first)
	if reply.Ply != 1 {
		t.Fatalf("first move ply = %d, want 1", reply.Ply)
	}
	if reply.WhiteMoved() {
		t.Error("Black's move attributed to White")
	}
	next, _ := tree.Node(reply.Children[0])
	if !next.WhiteMoved() {
		t.Error("White's reply attributed to Black")
	}
}

func TestAddVariationIllegalMove(t *testing.T) {
	tree, err := FromGame(decodeGame(t, "1. e4 *"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tree.AddVariationUCI(0, []string{"e1e8"}); err == nil {
		t.Fatal("illegal variation accepted")
	}
}

func TestNodeBounds(t *testing.T) {
	tree := New(chess.NewGame().Position())
	if _, err := tree.Node(NodeID(5)); err == nil {
		t.Error("out-of-range node lookup should fail")
	}
	if _, err := tree.Node(NoNode); err == nil {
		t.Error("NoNode lookup should fail")
	}
}

func TestSANLine(t *testing.T) {
	start := chess.NewGame().Position().String()
	san, err := SANLine(start, []string{"e2e4", "e7e5", "g1f3"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"e4", "e5", "Nf3"}
	if len(san) != len(want) {
		t.Fatalf("got %v, want %v", san, want)
	}
	for i := range want {
		if san[i] != want[i] {
			t.Errorf("san[%d] = %q, want %q", i, san[i], want[i])
		}
	}
}

func TestSANLineStopsAtUndecodableMove(t *testing.T) {
	start := chess.NewGame().Position().String()
	san, err := SANLine(start, []string{"e2e4", "zz99"})
	if err != nil {
		t.Fatal(err)
	}
	if len(san) != 1 || san[0] != "e4" {
		t.Errorf("got %v, want just e4", san)
	}
}
