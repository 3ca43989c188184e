package freesurfer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"electrocoords/pkg/affine"
)

// ReadXFM parses the linear transform of an MNI .xfm file such as
// mri/transforms/talairach.xfm. The transform maps scanner RAS to MNI
// Talairach space, both in millimeters.
func ReadXFM(r io.Reader) (affine.Affine, error) {
	scanner := bufio.NewScanner(r)

	found := false
	var values []float64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !found {
			if strings.HasPrefix(line, "Linear_Transform") {
				found = true
				// values may follow the "=" on the same line
				if _, rest, ok := strings.Cut(line, "="); ok {
					line = rest
				} else {
					continue
				}
			} else {
				continue
			}
		}

		done := strings.Contains(line, ";")
		line = strings.ReplaceAll(line, ";", " ")
		for _, field := range strings.Fields(line) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return affine.Affine{}, fmt.Errorf("invalid xfm value %q: %w", field, err)
			}
			values = append(values, v)
		}
		if done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return affine.Affine{}, err
	}

	if !found {
		return affine.Affine{}, fmt.Errorf("no Linear_Transform found in xfm")
	}
	if len(values) != 12 {
		return affine.Affine{}, fmt.Errorf("expected 12 xfm values, got %d", len(values))
	}

	var rows [4][4]float64
	for i := 0; i < 3; i++ {
		copy(rows[i][:], values[4*i:4*i+4])
	}
	rows[3][3] = 1
	return affine.New(rows), nil
}
