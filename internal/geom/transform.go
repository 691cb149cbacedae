package geom

import (
	"encoding/binary"
	"fmt"
)

// Transform is a rigid motion of the grid: rotate, then translate.
// It is comparable and can be used as a map key.
type Transform struct {
	Rotation    Rotation
	Translation Vec3
}

// Identity returns the transform that leaves every point in place.
func Identity() Transform {
	return Transform{Rotation: IdentityRotation}
}

// NewTransform builds a transform from a rotation and translation.
func NewTransform(r Rotation, t Vec3) Transform {
	return Transform{Rotation: r, Translation: t}
}

// Translate returns a pure translation.
func Translate(t Vec3) Transform {
	return Transform{Rotation: IdentityRotation, Translation: t}
}

// Apply maps a point.
func (t Transform) Apply(v Vec3) Vec3 {
	return t.Rotation.Apply(v).Add(t.Translation)
}

// ApplyDirection maps a direction. Translation has no effect on directions.
func (t Transform) ApplyDirection(d Direction) Direction {
	return t.Rotation.ApplyDirection(d)
}

// Invert returns the inverse transform.
func (t Transform) Invert() Transform {
	rt := t.Rotation.Transpose()
	return Transform{Rotation: rt, Translation: rt.Apply(t.Translation).Neg()}
}

// Then returns the transform that applies t first and next second.
func (t Transform) Then(next Transform) Transform {
	return Transform{
		Rotation:    next.Rotation.Mul(t.Rotation),
		Translation: next.Rotation.Apply(t.Translation).Add(next.Translation),
	}
}

// Compose returns the transform applying first and then second.
func Compose(first, second Transform) Transform {
	return first.Then(second)
}

// IsIdentity reports whether t leaves every point in place.
func (t Transform) IsIdentity() bool {
	return t == Identity()
}

// Bytes returns a stable binary encoding of the transform, suitable as
// hash input.
func (t Transform) Bytes() []byte {
	buf := make([]byte, 0, 12*4)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(t.Rotation[i][j])))
		}
	}
	for _, c := range t.Translation.Array() {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(c)))
	}
	return buf
}

func (t Transform) String() string {
	return fmt.Sprintf("R%v+%v", t.Rotation, t.Translation)
}
