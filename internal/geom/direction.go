package geom

import (
	"fmt"
	"strings"
)

// Direction is one of the six axis-aligned unit directions.
type Direction int

const (
	Forward  Direction = iota // -Z
	Backward                  // +Z
	Left                      // -X
	Right                     // +X
	Up                        // +Y
	Down                      // -Y
)

var directionVectors = [...]Vec3{
	Forward:  {0, 0, -1},
	Backward: {0, 0, 1},
	Left:     {-1, 0, 0},
	Right:    {1, 0, 0},
	Up:       {0, 1, 0},
	Down:     {0, -1, 0},
}

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// ParseDirection converts a name such as "up" or "Forward" into a Direction.
func ParseDirection(s string) (Direction, error) {
	for _, d := range AllDirections() {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("geom: unknown direction %q", s)
}

// Valid reports whether d is one of the six directions.
func (d Direction) Valid() bool {
	return d >= Forward && d <= Down
}

// Vector returns the unit offset for the direction.
func (d Direction) Vector() Vec3 {
	return directionVectors[d]
}

// Opposite returns the opposite direction
func (d Direction) Opposite() Direction {
	// Pairs are laid out adjacently: (Forward,Backward), (Left,Right), (Up,Down).
	return d ^ 1
}

// DirectionOf returns the direction whose vector equals v.
func DirectionOf(v Vec3) (Direction, bool) {
	for d, dv := range directionVectors {
		if dv == v {
			return Direction(d), true
		}
	}
	return 0, false
}

// AllDirections returns all six directions.
func AllDirections() []Direction {
	return []Direction{Forward, Backward, Left, Right, Up, Down}
}
