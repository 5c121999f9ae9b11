package geo

import (
	"fmt"

	"github.com/citadel-raid/raidnav/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PointFromPosition converts a position into a 2D point for storage.
func PointFromPosition(p core.Position3D) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   Planar(p),
		Type: geom.DimXY,
	})
}

// LineStringFromPositions builds a 2D line string through the given positions.
func LineStringFromPositions(positions []core.Position3D) (geom.LineString, error) {
	if len(positions) < 2 {
		return geom.LineString{}, fmt.Errorf("line string needs at least 2 points, got %d", len(positions))
	}

	flatCoords := make([]float64, 0, len(positions)*2)
	for _, p := range positions {
		flatCoords = append(flatCoords, p.X, p.Y)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// PathLineString is the polyline through a path plan's tile centres.
func PathLineString(plan core.PathPlan) (geom.LineString, error) {
	return LineStringFromPositions(plan.Positions())
}

// PositionsFromLineString reads the vertices back out of a line string.
func PositionsFromLineString(ls geom.LineString) []core.Position3D {
	seq := ls.Coordinates()
	out := make([]core.Position3D, seq.Length())
	for i := range out {
		xy := seq.GetXY(i)
		out[i] = core.Position3D{X: xy.X, Y: xy.Y}
	}
	return out
}
