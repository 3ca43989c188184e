package models

import (
	"fmt"
)

// Sensors is an ordered set of named electrode contacts together with the
// coordinate tag of their positions and the image they were localized on.
//
// A Sensors value is immutable. Every conversion returns a new value. Slices
// are shared between derived values and are never written after construction.
type Sensors struct {
	// names holds one name per contact, in file order
	names []string

	// points holds one position per contact, aligned with names
	points []Point

	// columns holds auxiliary per-contact values (size, material, labels...)
	columns map[string][]string

	// columnOrder keeps the insertion order of columns
	columnOrder []string

	// tag describes the frame and unit of points
	tag CoordinateTag

	// intendedFor is the path of the reference image
	intendedFor string
}

// NewSensors creates a Sensors value. names and points must have the same
// length. The input slices are copied.
func NewSensors(names []string, points []Point, tag CoordinateTag, intendedFor string) (*Sensors, error) {
	if len(names) != len(points) {
		return nil, fmt.Errorf("%w: %d names but %d points", ErrInvalidArgument, len(names), len(points))
	}
	if !tag.Frame.Valid() || !tag.Unit.Valid() {
		return nil, fmt.Errorf("%w: coordinate tag %v", ErrInvalidArgument, tag)
	}

	return &Sensors{
		names:       append([]string(nil), names...),
		points:      append([]Point(nil), points...),
		columns:     map[string][]string{},
		tag:         tag,
		intendedFor: intendedFor,
	}, nil
}

// Len returns the number of contacts.
func (s *Sensors) Len() int { return len(s.points) }

// Names returns a copy of the contact names.
func (s *Sensors) Names() []string { return append([]string(nil), s.names...) }

// Points returns a copy of the contact positions.
func (s *Sensors) Points() []Point { return append([]Point(nil), s.points...) }

// Tag returns the coordinate tag of the positions.
func (s *Sensors) Tag() CoordinateTag { return s.tag }

// IntendedFor returns the reference image path, or "" if unset.
func (s *Sensors) IntendedFor() string { return s.intendedFor }

// Columns returns the auxiliary column names in insertion order.
func (s *Sensors) Columns() []string { return append([]string(nil), s.columnOrder...) }

// Column returns a copy of an auxiliary column.
func (s *Sensors) Column(name string) ([]string, bool) {
	values, ok := s.columns[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), values...), true
}

// WithPoints returns a new Sensors with the given positions and tag. All other
// fields are carried over unchanged.
func (s *Sensors) WithPoints(points []Point, tag CoordinateTag) (*Sensors, error) {
	if len(points) != len(s.points) {
		return nil, fmt.Errorf("%w: expected %d points, got %d", ErrInvalidArgument, len(s.points), len(points))
	}
	if !tag.Frame.Valid() || !tag.Unit.Valid() {
		return nil, fmt.Errorf("%w: coordinate tag %v", ErrInvalidArgument, tag)
	}

	out := *s
	out.points = append([]Point(nil), points...)
	out.tag = tag
	return &out, nil
}

// WithColumn returns a new Sensors with the auxiliary column name set to
// values. An existing column of that name is replaced.
func (s *Sensors) WithColumn(name string, values []string) (*Sensors, error) {
	if len(values) != len(s.points) {
		return nil, fmt.Errorf("%w: column %q has %d values for %d contacts", ErrInvalidArgument, name, len(values), len(s.points))
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty column name", ErrInvalidArgument)
	}

	out := *s
	out.columns = make(map[string][]string, len(s.columns)+1)
	for k, v := range s.columns {
		out.columns[k] = v
	}
	if _, exists := s.columns[name]; !exists {
		out.columnOrder = append(append([]string(nil), s.columnOrder...), name)
	}
	out.columns[name] = append([]string(nil), values...)
	return &out, nil
}

func (s *Sensors) String() string {
	return fmt.Sprintf("Sensors(%d contacts, %v, intended for %q)", len(s.points), s.tag, s.intendedFor)
}
