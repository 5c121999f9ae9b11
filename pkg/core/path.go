// pkg/core/path.go
package core

// PathPlan is an ordered tile sequence from an entry tile to a tile on the
// destination boundary ring. A plan never changes after construction; the
// return leg uses Reversed.
type PathPlan struct {
	direction Direction
	tiles     []Tile
}

// NewPathPlan copies tiles into a new plan.
func NewPathPlan(direction Direction, tiles []Tile) PathPlan {
	cp := make([]Tile, len(tiles))
	copy(cp, tiles)
	return PathPlan{direction: direction, tiles: cp}
}

// Direction is the travel direction the plan was computed for.
func (p PathPlan) Direction() Direction { return p.direction }

// Len returns the number of tiles.
func (p PathPlan) Len() int { return len(p.tiles) }

// Empty reports whether the plan holds no tiles.
func (p PathPlan) Empty() bool { return len(p.tiles) == 0 }

// Tile returns the i-th tile.
func (p PathPlan) Tile(i int) Tile { return p.tiles[i] }

// First returns the entry tile.
func (p PathPlan) First() Tile { return p.tiles[0] }

// Last returns the boundary tile.
func (p PathPlan) Last() Tile { return p.tiles[len(p.tiles)-1] }

// Tiles returns a copy of the tile sequence.
func (p PathPlan) Tiles() []Tile {
	cp := make([]Tile, len(p.tiles))
	copy(cp, p.tiles)
	return cp
}

// Cells returns the cell coordinates along the plan.
func (p PathPlan) Cells() []Cell {
	cells := make([]Cell, len(p.tiles))
	for i, t := range p.tiles {
		cells[i] = t.Cell()
	}
	return cells
}

// Positions returns the tile world positions along the plan.
func (p PathPlan) Positions() []Position3D {
	out := make([]Position3D, len(p.tiles))
	for i, t := range p.tiles {
		out[i] = t.Position()
	}
	return out
}

// Reversed returns the plan walked backwards with the opposite direction.
func (p PathPlan) Reversed() PathPlan {
	n := len(p.tiles)
	rev := make([]Tile, n)
	for i, t := range p.tiles {
		rev[n-1-i] = t
	}
	return PathPlan{direction: p.direction.Reverse(), tiles: rev}
}
