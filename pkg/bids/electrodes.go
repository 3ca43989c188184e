// Package bids reads and writes iEEG electrode positions stored as BIDS
// *_electrodes.tsv and *_coordsystem.json files.
package bids

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"electrocoords/internal/models"
)

const (
	electrodesSuffix = "_electrodes.tsv"
	notAvailable     = "n/a"
	bidsURIPrefix    = "bids::"
)

// Coordsystem is the part of *_coordsystem.json needed to interpret
// electrode positions.
type Coordsystem struct {
	System      string `json:"iEEGCoordinateSystem"`
	Units       string `json:"iEEGCoordinateUnits"`
	Description string `json:"iEEGCoordinateSystemDescription,omitempty"`
	IntendedFor string `json:"IntendedFor,omitempty"`
}

// ReadCoordsystem decodes a coordsystem sidecar.
func ReadCoordsystem(path string) (*Coordsystem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cs := &Coordsystem{}
	if err := json.Unmarshal(data, cs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cs, nil
}

// Tag returns the frame and unit described by the sidecar.
func (cs *Coordsystem) Tag() (models.CoordinateTag, error) {
	frame, err := models.ParseFrame(cs.System)
	if err != nil {
		return models.CoordinateTag{}, err
	}
	unit, err := models.ParseUnit(cs.Units)
	if err != nil {
		return models.CoordinateTag{}, err
	}
	return models.CoordinateTag{Frame: frame, Unit: unit}, nil
}

// ReadElectrodes reads an electrodes.tsv file together with its coordsystem
// sidecar. A relative IntendedFor is resolved against root.
func ReadElectrodes(tsvPath, coordsystemPath, root string) (*models.Sensors, error) {
	if !strings.HasSuffix(tsvPath, electrodesSuffix) {
		return nil, fmt.Errorf("%w: BIDS path input should lead to the electrodes.tsv file, got %s", models.ErrInvalidArgument, tsvPath)
	}

	cs, err := ReadCoordsystem(coordsystemPath)
	if err != nil {
		return nil, err
	}
	tag, err := cs.Tag()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", coordsystemPath, err)
	}

	f, err := os.Open(tsvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := decodeElectrodes(f, tag, resolveIntendedFor(cs.IntendedFor, root))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tsvPath, err)
	}
	return s, nil
}

func resolveIntendedFor(intendedFor, root string) string {
	if intendedFor == "" {
		return ""
	}
	path := strings.TrimPrefix(intendedFor, bidsURIPrefix)
	if filepath.IsAbs(path) || root == "" {
		return filepath.FromSlash(path)
	}
	return filepath.Join(root, filepath.FromSlash(path))
}

func decodeElectrodes(r io.Reader, tag models.CoordinateTag, intendedFor string) (*models.Sensors, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	header := records[0]
	index := map[string]int{}
	for i, name := range header {
		index[name] = i
	}
	for _, required := range []string{"name", "x", "y", "z"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	rows := records[1:]
	names := make([]string, len(rows))
	points := make([]models.Point, len(rows))
	for r, row := range rows {
		names[r] = row[index["name"]]
		for axis, col := range []string{"x", "y", "z"} {
			v, err := parseCoordinate(row[index[col]])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r+2, col, err)
			}
			points[r][axis] = v
		}
	}

	s, err := models.NewSensors(names, points, tag, intendedFor)
	if err != nil {
		return nil, err
	}

	for i, name := range header {
		switch name {
		case "name", "x", "y", "z":
			continue
		}
		values := make([]string, len(rows))
		for r, row := range rows {
			values[r] = row[i]
		}
		if s, err = s.WithColumn(name, values); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func parseCoordinate(field string) (float64, error) {
	if field == notAvailable || field == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(field, 64)
}

func formatCoordinate(v float64) string {
	if math.IsNaN(v) {
		return notAvailable
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteElectrodes writes s as an electrodes.tsv file. Auxiliary columns
// follow x, y and z in insertion order.
func WriteElectrodes(path string, s *models.Sensors) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeElectrodes(f, s); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func encodeElectrodes(w io.Writer, s *models.Sensors) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	columns := s.Columns()
	values := make([][]string, len(columns))
	for i, name := range columns {
		values[i], _ = s.Column(name)
	}

	if err := writer.Write(append([]string{"name", "x", "y", "z"}, columns...)); err != nil {
		return err
	}
	names := s.Names()
	for r, p := range s.Points() {
		row := []string{names[r], formatCoordinate(p[0]), formatCoordinate(p[1]), formatCoordinate(p[2])}
		for i := range columns {
			row = append(row, values[i][r])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// unitName returns the BIDS spelling of u. BIDS calls voxel units pixels.
func unitName(u models.Unit) string {
	if u == models.Voxel {
		return "pixels"
	}
	return u.String()
}

// WriteCoordsystem writes the sidecar describing s. IntendedFor is written
// relative to root when it lies inside it.
func WriteCoordsystem(path string, s *models.Sensors, root string) error {
	cs := Coordsystem{
		System: s.Tag().Frame.String(),
		Units:  unitName(s.Tag().Unit),
	}
	if intended := s.IntendedFor(); intended != "" {
		cs.IntendedFor = filepath.ToSlash(intended)
		if root != "" {
			if rel, err := filepath.Rel(root, intended); err == nil && !strings.HasPrefix(rel, "..") {
				cs.IntendedFor = filepath.ToSlash(rel)
			}
		}
	}

	data, err := json.MarshalIndent(cs, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
