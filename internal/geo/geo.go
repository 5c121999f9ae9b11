package geo

import (
	"math"

	"github.com/citadel-raid/raidnav/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// All bearings are degrees in [0, 360), counter-clockwise from the +X axis
// around the Citadel. Headings use the same convention for direction vectors.

// PositionTolerance is the planar distance under which two positions count as the same place.
const PositionTolerance = 2.0

// Citadel is the fixed centre every bearing and radius is measured from.
var Citadel = core.Position3D{}

const degToRad = math.Pi / 180

// Planar projects a position onto the ground plane.
func Planar(p core.Position3D) geom.XY {
	return geom.XY{X: p.X, Y: p.Y}
}

// Bearing returns the angular position of p around the Citadel.
// The angle to the +X axis is taken unsigned and the side is resolved by the sign of Y.
func Bearing(p core.Position3D) float64 {
	v := Planar(p).Sub(Planar(Citadel))
	length := v.Length()
	if length == 0 {
		return 0
	}
	cos := math.Max(-1, math.Min(1, v.X/length))
	angle := math.Acos(cos) / degToRad
	if v.Y >= 0 {
		return angle
	}
	return NormalizeBearing(360 - angle)
}

// PointFromBearing returns the ground position at radius from the Citadel along bearing.
func PointFromBearing(bearing, radius float64) core.Position3D {
	rad := bearing * degToRad
	return core.Position3D{
		X: Citadel.X + math.Cos(rad)*radius,
		Y: Citadel.Y + math.Sin(rad)*radius,
	}
}

// Distance2D is the planar distance between two positions.
func Distance2D(a, b core.Position3D) float64 {
	return Planar(a).Sub(Planar(b)).Length()
}

// SquaredDistance2D is the squared planar distance between two positions.
func SquaredDistance2D(a, b core.Position3D) float64 {
	d := Planar(a).Sub(Planar(b))
	return d.Dot(d)
}

// RadiusOf is the planar distance of p from the Citadel.
func RadiusOf(p core.Position3D) float64 {
	return Distance2D(p, Citadel)
}

// CloseEnough reports whether two positions are within PositionTolerance on the ground plane.
func CloseEnough(a, b core.Position3D) bool {
	return Distance2D(a, b) < PositionTolerance
}

// NormalizeBearing wraps an angle into [0, 360).
func NormalizeBearing(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a -= 360
	}
	return a
}

// SignedDelta is the rotation from one angle to another, in (-180, 180].
// Positive is counter-clockwise.
func SignedDelta(from, to float64) float64 {
	d := NormalizeBearing(to - from)
	if d > 180 {
		d -= 360
	}
	return d
}

// AngularDistance is the unsigned shortest angle between two bearings.
func AngularDistance(a, b float64) float64 {
	return math.Abs(SignedDelta(a, b))
}

// HeadingVector returns the unit direction for a heading.
func HeadingVector(heading float64) geom.XY {
	rad := heading * degToRad
	return geom.XY{X: math.Cos(rad), Y: math.Sin(rad)}
}

// HeadingTo returns the heading pointing from one position to another.
// Coincident positions yield heading 0.
func HeadingTo(from, to core.Position3D) float64 {
	d := Planar(to).Sub(Planar(from))
	if d.X == 0 && d.Y == 0 {
		return 0
	}
	return NormalizeBearing(math.Atan2(d.Y, d.X) / degToRad)
}

// Clockwise picks the rotational direction around the Citadel that leads from
// objectBearing to targetBearing. Clockwise means decreasing bearing.
//
// The choice compares 90°-wide quadrants. Within one quadrant the larger bearing
// goes clockwise. Adjacent quadrants go the short way round. Opposite quadrants
// split on the object's position inside its own quadrant.
func Clockwise(objectBearing, targetBearing float64) bool {
	qo := quadrant(objectBearing)
	qt := quadrant(targetBearing)

	if qo == qt {
		return objectBearing > targetBearing
	}

	switch qo {
	case 1:
		if qt == 2 {
			return false
		} else if qt == 4 {
			return true
		}
		return objectBearing <= 45
	case 2:
		if qt == 1 {
			return true
		} else if qt == 3 {
			return false
		}
		return objectBearing <= 135
	case 3:
		if qt == 2 {
			return true
		} else if qt == 4 {
			return false
		}
		return objectBearing <= 225
	case 4:
		if qt == 1 {
			return false
		} else if qt == 3 {
			return true
		}
		return objectBearing <= 315
	}
	return true
}

func quadrant(angle float64) int {
	switch {
	case angle <= 90:
		return 1
	case angle <= 180:
		return 2
	case angle <= 270:
		return 3
	default:
		return 4
	}
}

// NextIndex steps index by step positions forward or backward in a cyclic
// collection of the given length (> 0). If valid is non-nil and rejects the
// first candidate, the direction is flipped once and the mirrored candidate is
// returned whether or not it is valid.
func NextIndex(length, index, step int, forward bool, valid func(int) bool) int {
	next := 0
	for attempt := 0; attempt < 2; attempt++ {
		if forward {
			next = index + step
		} else {
			next = index - step
		}
		next = ((next % length) + length) % length

		if valid != nil && !valid(next) {
			forward = !forward
			continue
		}
		break
	}
	return next
}
