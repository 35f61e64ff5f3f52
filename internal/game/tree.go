// Package game holds the game tree the analysis walks: one node per ply,
// arena-style. Nodes live in an indexed table and reference each other by
// index, so the weak child->parent links never participate in ownership.
package game

import (
	"fmt"

	"github.com/notnil/chess"
)

// NodeID indexes a node within its tree's arena.
type NodeID int

// NoNode marks the root's absent parent.
const NoNode NodeID = -1

// Node is one ply. The root carries no move, only the starting position.
// Children are ordered: Children[0] is the mainline continuation, the rest
// are side variations.
type Node struct {
	ID       NodeID
	Parent   NodeID
	Children []NodeID

	MoveUCI string // move that produced this node's position; "" at the root
	MoveSAN string
	FEN     string // position after the move
	Ply     int    // 0 at the root

	// byWhite records the mover's color, taken from the pre-move position's
	// turn. Ply parity would misattribute games set up from a Black-to-move
	// FEN.
	byWhite bool
}

// IsRoot reports whether the node is the tree's root.
func (n *Node) IsRoot() bool { return n.Parent == NoNode && n.MoveUCI == "" }

// WhiteMoved reports whether the move leading to this node was White's.
func (n *Node) WhiteMoved() bool { return n.byWhite }

// Tree is the arena of game nodes. Node 0 is always the root.
type Tree struct {
	nodes []Node

	// positions mirrors nodes; kept so variations can be grafted and moves
	// decoded without re-parsing FEN strings.
	positions []*chess.Position
}

// New creates a tree rooted at the given position.
func New(root *chess.Position) *Tree {
	t := &Tree{}
	t.nodes = append(t.nodes, Node{
		ID:     0,
		Parent: NoNode,
		FEN:    root.String(),
	})
	t.positions = append(t.positions, root)
	return t
}

// FromGame builds a tree from a decoded game's mainline. Each appended child
// is the mainline continuation of its parent.
func FromGame(g *chess.Game) (*Tree, error) {
	positions := g.Positions()
	moves := g.Moves()
	if len(positions) != len(moves)+1 {
		return nil, fmt.Errorf("inconsistent game: %d positions for %d moves",
			len(positions), len(moves))
	}

	t := New(positions[0])
	parent := NodeID(0)
	for i, m := range moves {
		id, err := t.AddChild(parent, m)
		if err != nil {
			return nil, fmt.Errorf("ply %d: %w", i+1, err)
		}
		parent = id
	}
	return t, nil
}

// AddChild appends a move under parent and returns the new node. The first
// child added to a node becomes its mainline continuation; later children are
// side variations.
func (t *Tree) AddChild(parent NodeID, m *chess.Move) (NodeID, error) {
	p, err := t.Node(parent)
	if err != nil {
		return NoNode, err
	}
	pos := t.positions[parent]

	// Match against the legal set rather than applying blindly: this both
	// validates the move and picks up the library's move tags (castle,
	// capture, check) needed for SAN encoding.
	legal := findLegal(pos, m)
	if legal == nil {
		return NoNode, fmt.Errorf("illegal move %s from %s", m, p.FEN)
	}
	m = legal
	next := pos.Update(m)

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		ID:      id,
		Parent:  parent,
		MoveUCI: chess.UCINotation{}.Encode(pos, m),
		MoveSAN: chess.AlgebraicNotation{}.Encode(pos, m),
		FEN:     next.String(),
		Ply:     p.Ply + 1,
		byWhite: pos.Turn() == chess.White,
	})
	t.positions = append(t.positions, next)
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	return id, nil
}

// findLegal returns the position's legal move matching m's squares and
// promotion, or nil if the move is not legal there.
func findLegal(pos *chess.Position, m *chess.Move) *chess.Move {
	for _, v := range pos.ValidMoves() {
		if v.S1() == m.S1() && v.S2() == m.S2() && v.Promo() == m.Promo() {
			return v
		}
	}
	return nil
}

// AddVariationUCI grafts a side line of UCI move strings under parent.
// Returns the node of the variation's first move.
func (t *Tree) AddVariationUCI(parent NodeID, moves []string) (NodeID, error) {
	first := NoNode
	at := parent
	for _, uciMove := range moves {
		m, err := chess.UCINotation{}.Decode(t.positions[at], uciMove)
		if err != nil {
			return NoNode, fmt.Errorf("variation move %q: %w", uciMove, err)
		}
		id, err := t.AddChild(at, m)
		if err != nil {
			return NoNode, err
		}
		if first == NoNode {
			first = id
		}
		at = id
	}
	return first, nil
}

// Node returns the node by ID.
func (t *Tree) Node(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, fmt.Errorf("no node %d in tree of %d", id, len(t.nodes))
	}
	return &t.nodes[id], nil
}

// Position returns the board position at a node.
func (t *Tree) Position(id NodeID) (*chess.Position, error) {
	if id < 0 || int(id) >= len(t.positions) {
		return nil, fmt.Errorf("no node %d in tree of %d", id, len(t.positions))
	}
	return t.positions[id], nil
}

// Root returns the root node.
func (t *Tree) Root() *Node { return &t.nodes[0] }

// Len returns the total node count, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Mainline returns the root-to-leaf chain of first children.
func (t *Tree) Mainline() []NodeID {
	ids := []NodeID{0}
	at := t.nodes[0]
	for len(at.Children) > 0 {
		next := at.Children[0]
		ids = append(ids, next)
		at = t.nodes[next]
	}
	return ids
}

// Walk returns every node in analysis order: preorder, mainline child first,
// so a parent always precedes its children and side variations follow the
// mainline continuation. With mainlineOnly set, variations are skipped.
func (t *Tree) Walk(mainlineOnly bool) []NodeID {
	if mainlineOnly {
		return t.Mainline()
	}
	var out []NodeID
	var visit func(NodeID)
	visit = func(id NodeID) {
		out = append(out, id)
		for _, c := range t.nodes[id].Children {
			visit(c)
		}
	}
	visit(0)
	return out
}
