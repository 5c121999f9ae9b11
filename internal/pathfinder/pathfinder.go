// Package pathfinder plans tile paths across the navigable ring band.
package pathfinder

import (
	"errors"
	"fmt"
	"math"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/pkg/core"
)

var (
	// ErrConfiguration marks a grid or band setup the search cannot work with.
	ErrConfiguration = errors.New("pathfinder configuration")

	ErrNoEntryRing      = fmt.Errorf("%w: no entry ring for position", ErrConfiguration)
	ErrNoTileForBearing = fmt.Errorf("%w: no tile matches bearing", ErrConfiguration)
	ErrBandMismatch     = fmt.Errorf("%w: invalid ring band", ErrConfiguration)

	// ErrNoPath is returned when no candidate start tile reaches the boundary ring.
	ErrNoPath = errors.New("no path")
)

// minBandTiles is the smallest ring that fits the five candidate starts.
const minBandTiles = 5

// Config selects the band of rings paths run through.
type Config struct {
	Low  int
	High int
	// TileSlack widens each tile's angular window, in degrees.
	TileSlack float64
}

// Pathfinder plans paths over one grid. It keeps no per-call state, so
// independent vessels may plan concurrently as long as the grid is not written.
type Pathfinder struct {
	grid core.Grid
	cfg  Config
}

// New validates the band against the grid.
func New(grid core.Grid, cfg Config) (*Pathfinder, error) {
	if cfg.Low < 0 || cfg.High >= grid.RingCount() || cfg.Low >= cfg.High {
		return nil, fmt.Errorf("%w: band [%d, %d] on %d rings", ErrBandMismatch, cfg.Low, cfg.High, grid.RingCount())
	}

	n := grid.Ring(cfg.Low).TileCount()
	if n < minBandTiles {
		return nil, fmt.Errorf("%w: ring %d has %d tiles, need %d", ErrBandMismatch, cfg.Low, n, minBandTiles)
	}
	for r := cfg.Low + 1; r <= cfg.High; r++ {
		if c := grid.Ring(r).TileCount(); c != n {
			return nil, fmt.Errorf("%w: ring %d has %d tiles, ring %d has %d", ErrBandMismatch, r, c, cfg.Low, n)
		}
	}

	return &Pathfinder{grid: grid, cfg: cfg}, nil
}

// Config returns the band the pathfinder was built with.
func (p *Pathfinder) Config() Config { return p.cfg }

// search carries the values fixed for one FindPath call.
type search struct {
	grid      core.Grid
	direction core.Direction
	entry     int
	dest      int
	step      int
}

// FindPath plans a path from position toward the boundary ring of direction.
func (p *Pathfinder) FindPath(position core.Position3D, direction core.Direction) (core.PathPlan, error) {
	s := &search{grid: p.grid, direction: direction}
	if direction == core.Inbound {
		s.dest, s.step = p.cfg.Low, -1
	} else {
		s.dest, s.step = p.cfg.High, 1
	}

	entry, ok := p.entryRing(position, direction)
	if !ok {
		return core.PathPlan{}, fmt.Errorf("%w: %s at distance %.2f", ErrNoEntryRing, direction, geo.RadiusOf(position))
	}
	s.entry = entry

	ring := p.grid.Ring(entry)
	bearing := geo.Bearing(position)
	closest, ok := p.closestTile(ring, bearing)
	if !ok {
		return core.PathPlan{}, fmt.Errorf("%w: bearing %.3f on ring %d", ErrNoTileForBearing, bearing, entry)
	}

	n := ring.TileCount()
	starts := []int{closest}
	for i := 0; i < 4; i++ {
		starts = append(starts, geo.NextIndex(n, closest, (i%2)+1, i < 2, nil))
	}

	var paths [][]core.Tile
	for _, idx := range starts {
		start := ring.Tile(idx)
		if !start.IsTraversable() {
			continue
		}
		if path, ok := s.walk(start); ok {
			paths = append(paths, path)
		}
	}

	if len(paths) == 0 {
		return core.PathPlan{}, fmt.Errorf("%w: %s from ring %d tile %d", ErrNoPath, direction, entry, closest)
	}
	return core.NewPathPlan(direction, bestPath(paths, position)), nil
}

// entryRing scans the band from the far side toward the destination and picks
// the first ring on the vessel's side of its own distance.
func (p *Pathfinder) entryRing(position core.Position3D, direction core.Direction) (int, bool) {
	dist := geo.RadiusOf(position)
	radius := func(r int) float64 {
		return geo.RadiusOf(p.grid.Ring(r).Tile(0).Position())
	}

	if direction == core.Inbound {
		for r := p.cfg.High; r >= p.cfg.Low; r-- {
			if radius(r) <= dist {
				return r, true
			}
		}
		return 0, false
	}

	for r := p.cfg.Low; r <= p.cfg.High; r++ {
		if radius(r) >= dist {
			return r, true
		}
	}
	return 0, false
}

// closestTile returns the first tile whose angular window holds bearing.
func (p *Pathfinder) closestTile(ring core.Ring, bearing float64) (int, bool) {
	n := ring.TileCount()
	window := 180/float64(n) + p.cfg.TileSlack
	for i := 0; i < n; i++ {
		tb := geo.Bearing(ring.Tile(i).Position())
		if geo.AngularDistance(tb, bearing) <= window {
			return i, true
		}
	}
	return 0, false
}

// walk follows the band from start to the destination ring, stepping forward
// where possible and detouring along the current ring where not.
func (s *search) walk(start core.Tile) ([]core.Tile, bool) {
	path := []core.Tile{start}
	cur := start

	for cur.Cell().Ring != s.dest {
		next := s.grid.Ring(cur.Cell().Ring + s.step)
		if ahead := next.Tile(cur.Cell().Index); ahead.IsTraversable() {
			path = append(path, ahead)
			cur = ahead
			continue
		}

		detour, ok := s.sideStep(cur, false)
		if second, ok2 := s.sideStep(cur, true); ok2 {
			if !ok || pathLength(second) < pathLength(detour) {
				detour, ok = second, true
			}
		}
		if !ok {
			return nil, false
		}

		path = append(path, detour...)
		cur = detour[len(detour)-1]
	}
	return path, true
}

// sideStep walks the current ring in one index direction until a tile with a
// free forward neighbour appears. The walked tiles and that neighbour are
// returned. A blocked tile on the way fails the direction.
func (s *search) sideStep(from core.Tile, increasing bool) ([]core.Tile, bool) {
	ring := s.grid.Ring(from.Cell().Ring)
	next := s.grid.Ring(from.Cell().Ring + s.step)
	n := ring.TileCount()

	var side []core.Tile
	for i := 1; i <= n; i++ {
		idx := geo.NextIndex(n, from.Cell().Index, i, increasing, nil)
		t := ring.Tile(idx)
		if !t.IsTraversable() {
			return nil, false
		}
		side = append(side, t)

		if fwd := next.Tile(idx); fwd.IsTraversable() {
			return append(side, fwd), true
		}
	}
	return nil, false
}

// bestPath ranks paths by the squared distance to their first tile plus their
// squared length. Ties keep the earlier path.
func bestPath(paths [][]core.Tile, position core.Position3D) []core.Tile {
	if len(paths) == 1 {
		return paths[0]
	}

	best, bestScore := paths[0], math.MaxFloat64
	for _, path := range paths {
		score := geo.SquaredDistance2D(position, path[0].Position()) + pathLength(path)
		if score < bestScore {
			best, bestScore = path, score
		}
	}
	return best
}

// pathLength sums squared distances between consecutive tiles. It is a ranking
// proxy, not a true length.
func pathLength(path []core.Tile) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += geo.SquaredDistance2D(path[i-1].Position(), path[i].Position())
	}
	return total
}
