// Package grid provides the concentric ring grid vessels navigate over.
package grid

import (
	"fmt"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// Settings describes a uniform radial grid.
type Settings struct {
	RingCount    int
	InnerRadius  float64
	RingSpacing  float64
	TilesPerRing int
	Blocked      []core.Cell
}

// RadialGrid is an in-memory core.Grid. Ring r lies at InnerRadius + r*RingSpacing
// from the Citadel and tile i of a ring sits at bearing i*360/TileCount.
type RadialGrid struct {
	rings []*radialRing
}

var _ core.Grid = (*RadialGrid)(nil)

type radialRing struct {
	radius float64
	tiles  []*tile
}

type tile struct {
	cell        core.Cell
	position    core.Position3D
	traversable bool
}

func (t *tile) Cell() core.Cell            { return t.cell }
func (t *tile) Position() core.Position3D  { return t.position }
func (t *tile) IsTraversable() bool        { return t.traversable }
func (r *radialRing) TileCount() int       { return len(r.tiles) }
func (r *radialRing) Tile(i int) core.Tile { return r.tiles[i] }

// New builds a uniform grid from settings.
func New(s Settings) (*RadialGrid, error) {
	counts := make([]int, s.RingCount)
	for i := range counts {
		counts[i] = s.TilesPerRing
	}
	return NewWithCounts(s.InnerRadius, s.RingSpacing, counts, s.Blocked)
}

// NewWithCounts builds a grid whose rings may hold different tile counts.
func NewWithCounts(innerRadius, spacing float64, tileCounts []int, blocked []core.Cell) (*RadialGrid, error) {
	if len(tileCounts) == 0 {
		return nil, fmt.Errorf("grid needs at least one ring")
	}
	if innerRadius < 0 || spacing <= 0 {
		return nil, fmt.Errorf("invalid ring geometry: inner radius %v, spacing %v", innerRadius, spacing)
	}

	g := &RadialGrid{rings: make([]*radialRing, len(tileCounts))}
	for r, n := range tileCounts {
		if n <= 0 {
			return nil, fmt.Errorf("ring %d: tile count must be positive, got %d", r, n)
		}
		ring := &radialRing{
			radius: innerRadius + float64(r)*spacing,
			tiles:  make([]*tile, n),
		}
		for i := 0; i < n; i++ {
			ring.tiles[i] = &tile{
				cell:        core.Cell{Ring: r, Index: i},
				position:    geo.PointFromBearing(float64(i)*360/float64(n), ring.radius),
				traversable: true,
			}
		}
		g.rings[r] = ring
	}

	for _, c := range blocked {
		if err := g.SetTraversable(c, false); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// RingCount returns the number of rings.
func (g *RadialGrid) RingCount() int { return len(g.rings) }

// Ring returns ring r, innermost first.
func (g *RadialGrid) Ring(r int) core.Ring { return g.rings[r] }

// RingRadius returns the distance of ring r from the Citadel.
func (g *RadialGrid) RingRadius(r int) float64 { return g.rings[r].radius }

// SetTraversable marks a tile free or blocked.
func (g *RadialGrid) SetTraversable(c core.Cell, traversable bool) error {
	if c.Ring < 0 || c.Ring >= len(g.rings) {
		return fmt.Errorf("cell %s: ring out of range", c)
	}
	ring := g.rings[c.Ring]
	if c.Index < 0 || c.Index >= len(ring.tiles) {
		return fmt.Errorf("cell %s: index out of range", c)
	}
	ring.tiles[c.Index].traversable = traversable
	return nil
}

// BlockRing marks every tile of ring r as blocked.
func (g *RadialGrid) BlockRing(r int) error {
	if r < 0 || r >= len(g.rings) {
		return fmt.Errorf("ring %d out of range", r)
	}
	for _, t := range g.rings[r].tiles {
		t.traversable = false
	}
	return nil
}

// BlockedCells lists every blocked tile, ring by ring.
func (g *RadialGrid) BlockedCells() []core.Cell {
	var out []core.Cell
	for _, ring := range g.rings {
		for _, t := range ring.tiles {
			if !t.traversable {
				out = append(out, t.cell)
			}
		}
	}
	return out
}
