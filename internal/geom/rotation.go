package geom

// Rotation is a proper rotation of the integer grid stored as a row-major
// 3x3 matrix. Every entry is -1, 0 or 1 and each row and column holds
// exactly one non-zero entry.
type Rotation [3][3]int

// IdentityRotation leaves every vector unchanged.
var IdentityRotation = Rotation{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

var allRotations = buildRotations()

// AllRotations returns the 24 rotations of the cube. The returned slice is
// shared and must not be modified.
func AllRotations() []Rotation {
	return allRotations
}

func buildRotations() []Rotation {
	perms := [][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2},
		{1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	var out []Rotation
	for _, p := range perms {
		for signs := 0; signs < 8; signs++ {
			var r Rotation
			for row := 0; row < 3; row++ {
				s := 1
				if signs&(1<<row) != 0 {
					s = -1
				}
				r[row][p[row]] = s
			}
			if r.Det() == 1 {
				out = append(out, r)
			}
		}
	}
	return out
}

// Apply rotates v.
func (r Rotation) Apply(v Vec3) Vec3 {
	return Vec3{
		r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// ApplyDirection rotates a direction.
func (r Rotation) ApplyDirection(d Direction) Direction {
	out, _ := DirectionOf(r.Apply(d.Vector()))
	return out
}

// Mul returns the product r*o, which applies o first and then r.
func (r Rotation) Mul(o Rotation) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[i][0]*o[0][j] + r[i][1]*o[1][j] + r[i][2]*o[2][j]
		}
	}
	return out
}

// Transpose returns the transpose, which for a rotation is its inverse.
func (r Rotation) Transpose() Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[j][i]
		}
	}
	return out
}

// Det returns the determinant.
func (r Rotation) Det() int {
	return r[0][0]*(r[1][1]*r[2][2]-r[1][2]*r[2][1]) -
		r[0][1]*(r[1][0]*r[2][2]-r[1][2]*r[2][0]) +
		r[0][2]*(r[1][0]*r[2][1]-r[1][1]*r[2][0])
}

// RotationsMapping returns every rotation that turns direction from into to.
// There are always four.
func RotationsMapping(from, to Direction) []Rotation {
	var out []Rotation
	want := to.Vector()
	for _, r := range allRotations {
		if r.Apply(from.Vector()) == want {
			out = append(out, r)
		}
	}
	return out
}
