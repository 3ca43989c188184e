// Package labeling assigns anatomical labels to electrodes from a FreeSurfer
// segmentation volume.
package labeling

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"electrocoords/internal/models"
)

// LUT maps segmentation codes to structure names, as in
// FreeSurferColorLUT.txt.
type LUT map[int]string

// ReadLUT parses a FreeSurfer color lookup table. Each non-comment line is
// "<code> <name> <r> <g> <b> <a>"; only the code and name are kept.
func ReadLUT(r io.Reader) (LUT, error) {
	lut := LUT{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected code and name, got %q", lineNo, line)
		}
		code, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid code %q: %w", lineNo, fields[0], err)
		}
		lut[code] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lut, nil
}

// LoadLUT reads the lookup table at path.
func LoadLUT(path string) (LUT, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lut, err := ReadLUT(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return lut, nil
}

// atlases maps the FreeSurfer segmentation filenames to the atlas they use
var atlases = map[string]string{
	"aparc+aseg.mgz":        "desikan-killiany",
	"aparc.a2009s+aseg.mgz": "destrieux",
	"wmparc.mgz":            "desikan-killiany-wm",
}

// AtlasForImage returns the atlas name of a FreeSurfer segmentation file.
func AtlasForImage(path string) (string, error) {
	atlas, ok := atlases[filepath.Base(path)]
	if !ok {
		names := make([]string, 0, len(atlases))
		for name := range atlases {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("%w: image must be one of %v, got %s", models.ErrInvalidArgument, names, filepath.Base(path))
	}
	return atlas, nil
}
