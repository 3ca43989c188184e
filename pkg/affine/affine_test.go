package affine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electrocoords/internal/models"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestApplyIdentity(t *testing.T) {
	pts := []models.Point{{1, 2, 3}, {-4, 5.5, 0}}
	got := Identity().Apply(pts)
	if diff := cmp.Diff(pts, got, approx); diff != "" {
		t.Errorf("identity changed points (-want +got):\n%s", diff)
	}
}

func TestApplyEmpty(t *testing.T) {
	assert.Empty(t, Identity().Apply(nil))
}

func TestApplyTranslationAndScale(t *testing.T) {
	a := FromLinear([3][3]float64{{2, 0, 0}, {0, 3, 0}, {0, 0, 4}}, [3]float64{1, -1, 10})
	got := a.Apply([]models.Point{{1, 1, 1}, {0, 0, 0}})
	want := []models.Point{{3, 2, 14}, {1, -1, 10}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	a := New([4][4]float64{
		{-1, 0, 0, 128},
		{0, 0, 1, -128},
		{0, -1, 0, 128},
		{0, 0, 0, 1},
	})
	inv, err := a.Inverse()
	require.NoError(t, err)

	pts := []models.Point{{10, 20, 30}, {128, 128, 128}}
	back := inv.Apply(a.Apply(pts))
	if diff := cmp.Diff(pts, back, approx); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, a.Mul(inv).ApproxEqual(Identity(), DefaultTolerance))
}

func TestInverseSingular(t *testing.T) {
	var rows [4][4]float64
	rows[3][3] = 1
	_, err := New(rows).Inverse()
	assert.ErrorIs(t, err, ErrSingular)
}

func TestMulOrder(t *testing.T) {
	scale := FromLinear([3][3]float64{{2, 0, 0}, {0, 2, 0}, {0, 0, 2}}, [3]float64{})
	shift := FromLinear([3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, [3]float64{1, 0, 0})

	// shift first, then scale
	got := scale.Mul(shift).Apply([]models.Point{{1, 0, 0}})
	assert.InDelta(t, 4.0, got[0][0], 1e-12)
}

func TestApproxEqual(t *testing.T) {
	a := Identity()
	rows := a.Rows()
	rows[0][3] = 5e-5
	assert.True(t, a.ApproxEqual(New(rows), DefaultTolerance))

	rows[0][3] = 0.01
	assert.False(t, a.ApproxEqual(New(rows), DefaultTolerance))
}

func TestString(t *testing.T) {
	assert.Contains(t, Identity().String(), "1")
	assert.Equal(t, "<nil affine>", Affine{}.String())
	assert.True(t, Affine{}.IsZero())
}
