// Package testutil writes small FreeSurfer and BIDS fixtures for tests.
package testutil

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"electrocoords/pkg/volume"
)

// ConformedMGH returns the header of a 1mm coronal FreeSurfer volume with
// the given cubic size and center RAS.
func ConformedMGH(size int32, center [3]float32) volume.MGHHeader {
	return volume.MGHHeader{
		Version:     1,
		Dims:        [4]int32{size, size, size, 1},
		Type:        volume.MGHTypeUchar,
		GoodRASFlag: 1,
		Delta:       [3]float32{1, 1, 1},
		Mdc:         [9]float32{-1, 0, 0, 0, 0, -1, 0, 1, 0},
		Pxyz:        center,
	}
}

// WriteMGH writes an MGH file, gzipped when path ends in .mgz. data may be
// nil to write a header-only file.
func WriteMGH(tb testing.TB, path string, hdr volume.MGHHeader, data []float64) {
	tb.Helper()

	var buf bytes.Buffer
	must(tb, binary.Write(&buf, binary.BigEndian, hdr))
	buf.Write(make([]byte, 284-buf.Len()))
	for _, v := range data {
		switch hdr.Type {
		case volume.MGHTypeUchar:
			buf.WriteByte(uint8(v))
		case volume.MGHTypeInt:
			must(tb, binary.Write(&buf, binary.BigEndian, int32(v)))
		case volume.MGHTypeShort:
			must(tb, binary.Write(&buf, binary.BigEndian, int16(v)))
		case volume.MGHTypeFloat:
			must(tb, binary.Write(&buf, binary.BigEndian, float32(v)))
		default:
			tb.Fatalf("unsupported MGH type %d", hdr.Type)
		}
	}

	writeFile(tb, path, buf.Bytes(), strings.HasSuffix(path, ".mgz"))
}

// NIfTIHeader is the on-disk layout of a NIfTI-1 header.
type NIfTIHeader struct {
	SizeofHdr     int32
	DataType      [10]byte
	DbName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// NIfTI returns a NIfTI-1 header with an sform built from rows.
func NIfTI(shape [3]int16, datatype int16, sform [3][4]float32) NIfTIHeader {
	h := NIfTIHeader{
		SizeofHdr: 348,
		Dim:       [8]int16{3, shape[0], shape[1], shape[2], 1, 1, 1, 1},
		Datatype:  datatype,
		Pixdim:    [8]float32{1, 1, 1, 1, 1, 1, 1, 1},
		VoxOffset: 352,
		SclSlope:  1,
		SformCode: 1,
		SrowX:     sform[0],
		SrowY:     sform[1],
		SrowZ:     sform[2],
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	switch datatype {
	case volume.NIfTITypeUint8:
		h.Bitpix = 8
	case volume.NIfTITypeInt16:
		h.Bitpix = 16
	case volume.NIfTITypeFloat32:
		h.Bitpix = 32
	}
	return h
}

// WriteNIfTI writes a little-endian single-file NIfTI-1 image, gzipped when
// path ends in .gz. data may be nil to write a header-only file.
func WriteNIfTI(tb testing.TB, path string, hdr NIfTIHeader, data []float64) {
	tb.Helper()

	var buf bytes.Buffer
	must(tb, binary.Write(&buf, binary.LittleEndian, hdr))
	buf.Write(make([]byte, 4))
	for _, v := range data {
		switch hdr.Datatype {
		case volume.NIfTITypeUint8:
			buf.WriteByte(uint8(v))
		case volume.NIfTITypeInt16:
			must(tb, binary.Write(&buf, binary.LittleEndian, int16(v)))
		case volume.NIfTITypeFloat32:
			must(tb, binary.Write(&buf, binary.LittleEndian, float32(v)))
		default:
			tb.Fatalf("unsupported NIfTI type %d", hdr.Datatype)
		}
	}

	writeFile(tb, path, buf.Bytes(), strings.HasSuffix(path, ".gz"))
}

// WriteXFM writes an MNI linear transform file.
func WriteXFM(tb testing.TB, path string, rows [3][4]float64) {
	tb.Helper()

	var b strings.Builder
	b.WriteString("MNI Transform File\n")
	b.WriteString("% avi2talxfm\n\n")
	b.WriteString("Transform_Type = Linear;\n")
	b.WriteString("Linear_Transform =\n")
	for i, row := range rows {
		fmt.Fprintf(&b, "%g %g %g %g", row[0], row[1], row[2], row[3])
		if i == len(rows)-1 {
			b.WriteString(";")
		}
		b.WriteString("\n")
	}
	writeFile(tb, path, []byte(b.String()), false)
}

// WriteText writes contents to path, creating parent directories.
func WriteText(tb testing.TB, path, contents string) {
	tb.Helper()
	writeFile(tb, path, []byte(contents), false)
}

func writeFile(tb testing.TB, path string, data []byte, compressed bool) {
	tb.Helper()

	must(tb, os.MkdirAll(filepath.Dir(path), 0755))
	if compressed {
		var gz bytes.Buffer
		w := gzip.NewWriter(&gz)
		_, err := w.Write(data)
		must(tb, err)
		must(tb, w.Close())
		data = gz.Bytes()
	}
	must(tb, os.WriteFile(path, data, 0644))
}

func must(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatalf("failed to write fixture: %v", err)
	}
}
