// Package dicomtest builds minimal Part 10 files for tests.
package dicomtest

import (
	"bytes"
	"encoding/binary"
)

// Elem is one explicit VR little endian data element.
type Elem struct {
	Group, Element uint16
	VR             string
	Value          []byte
}

func US(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func padded(s string, pad byte) []byte {
	b := []byte(s)
	if len(b)%2 == 1 {
		b = append(b, pad)
	}
	return b
}

func writeElem(buf *bytes.Buffer, e Elem) {
	_ = binary.Write(buf, binary.LittleEndian, e.Group)
	_ = binary.Write(buf, binary.LittleEndian, e.Element)
	buf.WriteString(e.VR)
	switch e.VR {
	case "OB", "OW", "SQ", "UN", "UT":
		buf.Write([]byte{0, 0})
		_ = binary.Write(buf, binary.LittleEndian, uint32(len(e.Value)))
	default:
		_ = binary.Write(buf, binary.LittleEndian, uint16(len(e.Value)))
	}
	buf.Write(e.Value)
}

// Build assembles a Part 10 file with 16-bit monochrome pixel data.
func Build(rows, cols int, pixels []uint16, identity ...Elem) []byte {
	var meta bytes.Buffer
	writeElem(&meta, Elem{0x0002, 0x0010, "UI", padded("1.2.840.10008.1.2.1", 0)})

	var out bytes.Buffer
	out.Write(make([]byte, 128))
	out.WriteString("DICM")
	groupLen := make([]byte, 4)
	binary.LittleEndian.PutUint32(groupLen, uint32(meta.Len()))
	writeElem(&out, Elem{0x0002, 0x0000, "UL", groupLen})
	out.Write(meta.Bytes())

	writeElem(&out, Elem{0x0008, 0x0060, "CS", padded("DX", ' ')})
	for _, e := range identity {
		writeElem(&out, e)
	}

	pix := make([]byte, 0, len(pixels)*2)
	for _, v := range pixels {
		pix = append(pix, US(v)...)
	}
	for _, e := range []Elem{
		{0x0028, 0x0002, "US", US(1)},
		{0x0028, 0x0004, "CS", padded("MONOCHROME2", ' ')},
		{0x0028, 0x0010, "US", US(uint16(rows))},
		{0x0028, 0x0011, "US", US(uint16(cols))},
		{0x0028, 0x0100, "US", US(16)},
		{0x0028, 0x0101, "US", US(12)},
		{0x0028, 0x0102, "US", US(11)},
		{0x0028, 0x0103, "US", US(0)},
		{0x7FE0, 0x0010, "OW", pix},
	} {
		writeElem(&out, e)
	}
	return out.Bytes()
}

func PatientName(s string) Elem { return Elem{0x0010, 0x0010, "PN", padded(s, ' ')} }
func PatientID(s string) Elem   { return Elem{0x0010, 0x0020, "LO", padded(s, ' ')} }
func BirthDate(s string) Elem   { return Elem{0x0010, 0x0030, "DA", padded(s, ' ')} }

// Flat returns n copies of v.
func Flat(n int, v uint16) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Identity is the PatientName=Test, PatientID=1, PatientBirthDate=20200101 set.
func Identity() []Elem {
	return []Elem{PatientName("Test"), PatientID("1"), BirthDate("20200101")}
}
