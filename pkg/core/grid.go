// pkg/core/grid.go
package core

import "fmt"

// Cell addresses a tile by its ring and its index within the ring.
type Cell struct {
	Ring  int `json:"ring"`
	Index int `json:"index"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Ring, c.Index)
}

// Tile is one cell of a ring. Traversability belongs to whoever owns the grid;
// navigation code only reads it.
type Tile interface {
	Cell() Cell
	Position() Position3D
	IsTraversable() bool
}

// Ring is a cyclic sequence of tiles at a fixed distance band from the Citadel.
// Tile indices run over [0, TileCount()).
type Ring interface {
	TileCount() int
	Tile(index int) Tile
}

// Grid is the ordered set of rings, innermost first.
type Grid interface {
	RingCount() int
	Ring(index int) Ring
}

// Direction of travel relative to the Citadel.
type Direction uint8

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Inbound {
		return Outbound
	}
	return Inbound
}

// ParseDirection accepts "in"/"inbound" and "out"/"outbound".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "in", "inbound":
		return Inbound, nil
	case "out", "outbound":
		return Outbound, nil
	}
	return Inbound, fmt.Errorf("unknown direction %q", s)
}
