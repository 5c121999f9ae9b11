package vessel

import "github.com/citadel-raid/raidnav/internal/transporter"

// Class holds the data shared by every vessel of one type.
type Class struct {
	Name             string  `json:"name" mapstructure:"name"`
	MaxSpeed         float64 `json:"maxSpeed" mapstructure:"maxSpeed"`
	RotationSpeed    float64 `json:"rotationSpeed" mapstructure:"rotationSpeed"`
	BoundaryRadius   float64 `json:"boundaryRadius" mapstructure:"boundaryRadius"`
	AngleToEnterPort float64 `json:"angleToEnterPort" mapstructure:"angleToEnterPort"`
	AngleToLeave     float64 `json:"angleToLeave" mapstructure:"angleToLeave"`
	WaypointRadius   float64 `json:"waypointRadius" mapstructure:"waypointRadius"`
	DockTime         float64 `json:"dockTime" mapstructure:"dockTime"`
	Durability       int     `json:"durability" mapstructure:"durability"`
}

// DefaultClass is the stock raider.
func DefaultClass() Class {
	return Class{
		Name:             "raider",
		MaxSpeed:         30,
		RotationSpeed:    100,
		BoundaryRadius:   85,
		AngleToEnterPort: 10,
		AngleToLeave:     40,
		WaypointRadius:   20,
		DockTime:         5,
		Durability:       2,
	}
}

// Params converts the class into transporter constants.
func (c Class) Params() transporter.Params {
	p := transporter.DefaultParams()
	p.RotationRate = c.RotationSpeed
	p.BoundaryRadius = c.BoundaryRadius
	p.AngleToEnterPort = c.AngleToEnterPort
	p.AngleToLeave = c.AngleToLeave
	p.WaypointRadius = c.WaypointRadius
	return p
}
