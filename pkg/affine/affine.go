// Package affine provides 4x4 homogeneous transforms between coordinate
// representations and helpers to apply them to point sets.
package affine

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"

	"electrocoords/internal/models"
)

// ErrSingular is returned when a transform has no inverse.
var ErrSingular = errors.New("affine: singular matrix")

// Affine is an immutable 4x4 homogeneous transform. The zero value is not
// usable; build one with New or Identity.
type Affine struct {
	m *mat.Dense
}

// New builds an affine from row-major values.
func New(rows [4][4]float64) Affine {
	data := make([]float64, 0, 16)
	for _, row := range rows {
		data = append(data, row[:]...)
	}
	return Affine{m: mat.NewDense(4, 4, data)}
}

// FromLinear builds an affine from a 3x3 linear part and a translation.
func FromLinear(linear [3][3]float64, translation [3]float64) Affine {
	var rows [4][4]float64
	for i := 0; i < 3; i++ {
		copy(rows[i][:3], linear[i][:])
		rows[i][3] = translation[i]
	}
	rows[3][3] = 1
	return New(rows)
}

// Identity returns the identity transform.
func Identity() Affine {
	return New([4][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	})
}

// IsZero reports whether a is the zero value.
func (a Affine) IsZero() bool { return a.m == nil }

// Rows returns the matrix as row-major values.
func (a Affine) Rows() [4][4]float64 {
	var rows [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			rows[i][j] = a.m.At(i, j)
		}
	}
	return rows
}

// Mul returns a*b, the transform that applies b first and then a.
func (a Affine) Mul(b Affine) Affine {
	var out mat.Dense
	out.Mul(a.m, b.m)
	return Affine{m: &out}
}

// Inverse returns the transform mapping in the opposite direction.
func (a Affine) Inverse() (Affine, error) {
	var inv mat.Dense
	if err := inv.Inverse(a.m); err != nil {
		return Affine{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return Affine{m: &inv}, nil
}

// Apply transforms each point and returns the results in a new slice. The
// input order is preserved.
func (a Affine) Apply(points []models.Point) []models.Point {
	n := len(points)
	if n == 0 {
		return []models.Point{}
	}

	// Homogeneous coordinates as columns of a 4xN matrix
	hom := mat.NewDense(4, n, nil)
	for j, p := range points {
		hom.Set(0, j, p[0])
		hom.Set(1, j, p[1])
		hom.Set(2, j, p[2])
		hom.Set(3, j, 1)
	}

	var res mat.Dense
	res.Mul(a.m, hom)

	out := make([]models.Point, n)
	for j := range out {
		out[j] = models.Point{res.At(0, j), res.At(1, j), res.At(2, j)}
	}
	return out
}

// ApproxEqual reports whether every element of a and b agrees within tol.
func (a Affine) ApproxEqual(b Affine, tol Tolerance) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if !scalar.EqualWithinAbsOrRel(a.m.At(i, j), b.m.At(i, j), tol.Abs, tol.Rel) {
				return false
			}
		}
	}
	return true
}

func (a Affine) String() string {
	if a.m == nil {
		return "<nil affine>"
	}
	return fmt.Sprintf("%v", mat.Formatted(a.m, mat.Squeeze()))
}

// Tolerance is an element-wise closeness criterion. Two values are close
// when they differ by at most Abs or by at most Rel relative to the larger
// magnitude.
type Tolerance struct {
	Abs float64
	Rel float64
}

// DefaultTolerance absorbs the float32 round-off of image headers.
var DefaultTolerance = Tolerance{Abs: 1e-4, Rel: 1e-5}
