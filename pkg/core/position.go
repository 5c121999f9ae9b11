// pkg/core/position.go
package core

// Position3D is a world position. X and Y span the ground plane, Z is
// elevation and is ignored by all planar math.
type Position3D struct {
	X float64
	Y float64
	Z float64
}

// Add returns p offset by d.
func (p Position3D) Add(d Position3D) Position3D {
	return Position3D{X: p.X + d.X, Y: p.Y + d.Y, Z: p.Z + d.Z}
}

// Flat drops the elevation component.
func (p Position3D) Flat() Position3D {
	return Position3D{X: p.X, Y: p.Y}
}
