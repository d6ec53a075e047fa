package exifmeta

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

type ifdEntry struct {
	tag, typ uint16
	count    uint32
	value    [4]byte
}

// gpsTIFF builds a little-endian TIFF block whose IFD0 points at a GPS IFD
// holding latitude/longitude rationals and their references.
func gpsTIFF(t *testing.T, latRef string, lat [3][2]uint32, lonRef string, lon [3][2]uint32) []byte {
	t.Helper()
	le := binary.LittleEndian
	var buf bytes.Buffer

	put16 := func(v uint16) { _ = binary.Write(&buf, le, v) }
	put32 := func(v uint32) { _ = binary.Write(&buf, le, v) }
	writeIFD := func(entries []ifdEntry) {
		put16(uint16(len(entries)))
		for _, e := range entries {
			put16(e.tag)
			put16(e.typ)
			put32(e.count)
			buf.Write(e.value[:])
		}
		put32(0)
	}
	u32 := func(v uint32) [4]byte {
		var b [4]byte
		le.PutUint32(b[:], v)
		return b
	}
	ascii := func(s string) [4]byte {
		var b [4]byte
		copy(b[:], s)
		return b
	}

	const (
		ifd0Offset = 8
		gpsOffset  = ifd0Offset + 2 + 12 + 4
		dataOffset = gpsOffset + 2 + 4*12 + 4
		latOffset  = dataOffset
		lonOffset  = dataOffset + 24
	)

	buf.WriteString("II")
	put16(42)
	put32(ifd0Offset)
	writeIFD([]ifdEntry{{tag: 0x8825, typ: 4, count: 1, value: u32(gpsOffset)}})
	writeIFD([]ifdEntry{
		{tag: 0x0001, typ: 2, count: 2, value: ascii(latRef)},
		{tag: 0x0002, typ: 5, count: 3, value: u32(latOffset)},
		{tag: 0x0003, typ: 2, count: 2, value: ascii(lonRef)},
		{tag: 0x0004, typ: 5, count: 3, value: u32(lonOffset)},
	})
	for _, r := range append(lat[:], lon[:]...) {
		put32(r[0])
		put32(r[1])
	}
	if buf.Len() != lonOffset+24 {
		t.Fatalf("built %d bytes, layout expects %d", buf.Len(), lonOffset+24)
	}
	return buf.Bytes()
}

func TestReadGPS(t *testing.T) {
	data := gpsTIFF(t,
		"N", [3][2]uint32{{40, 1}, {26, 1}, {4614, 100}},
		"W", [3][2]uint32{{79, 1}, {58, 1}, {5616, 100}},
	)

	md := Read(data)
	if _, ok := md[KeyGPSParsed].(map[string]any); !ok {
		t.Fatalf("GPSParsed missing: %#v", md)
	}
	c, ok := md.LatLon()
	if !ok {
		t.Fatalf("LatLon missing: %#v", md)
	}
	if math.Abs(c.Lat-40.44615) > 1e-5 || math.Abs(c.Lon-(-79.982267)) > 1e-5 {
		t.Errorf("LatLon = %+v, want ~{40.44615 -79.982267}", c)
	}
}

func TestReadZeroDenominatorHasNoPosition(t *testing.T) {
	data := gpsTIFF(t,
		"N", [3][2]uint32{{40, 1}, {26, 0}, {0, 1}},
		"E", [3][2]uint32{{79, 1}, {58, 1}, {0, 1}},
	)
	md := Read(data)
	if _, ok := md.LatLon(); ok {
		t.Errorf("LatLon present for zero denominator: %#v", md[KeyGPSLatLon])
	}
}

func TestReadGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"text", []byte("definitely not an image")},
		{"jpeg without exif", []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x04, 0x00, 0x00, 0xFF, 0xD9}},
		{"truncated tiff", []byte("II*\x00\x08\x00\x00\x00\x05\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := Read(tt.data)
			if md == nil {
				t.Fatal("Read returned nil map")
			}
			if _, ok := md.LatLon(); ok {
				t.Errorf("unexpected position in %#v", md)
			}
		})
	}
}

func r(n, d int64) Rational { return Rational{Num: n, Den: d} }

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name   string
		dms    []Rational
		ref    string
		want   float64
		wantOK bool
	}{
		{"north", []Rational{r(40, 1), r(30, 1), r(0, 1)}, "N", 40.5, true},
		{"south", []Rational{r(33, 1), r(52, 1), r(4, 1)}, "S", -(33 + 52.0/60 + 4.0/3600), true},
		{"west word", []Rational{r(1, 1), r(0, 1), r(0, 1)}, "West", -1, true},
		{"south lower", []Rational{r(1, 1), r(0, 1), r(0, 1)}, "south", -1, true},
		{"east", []Rational{r(151, 1), r(12, 1), r(36, 1)}, "E", 151.21, true},
		{"fractional seconds", []Rational{r(0, 1), r(0, 1), r(360, 100)}, "N", 0.001, true},
		{"zero denominator", []Rational{r(1, 1), r(1, 0), r(0, 1)}, "N", 0, false},
		{"too short", []Rational{r(1, 1), r(2, 1)}, "N", 0, false},
		{"nil", nil, "N", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToDecimal(tt.dms, tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("ToDecimal ok = %v, want %v", ok, tt.wantOK)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ToDecimal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoordinates(t *testing.T) {
	c, ok := Coordinates([]Rational{r(10, 1), r(0, 1), r(0, 1)}, "S", []Rational{r(20, 1), r(0, 1), r(0, 1)}, "E")
	if !ok || c.Lat != -10 || c.Lon != 20 {
		t.Errorf("Coordinates = %+v, %v", c, ok)
	}
	// A hemisphere ref on the wrong axis does not flip the sign.
	c, ok = Coordinates([]Rational{r(10, 1), r(0, 1), r(0, 1)}, "W", []Rational{r(20, 1), r(0, 1), r(0, 1)}, "S")
	if !ok || c.Lat != 10 || c.Lon != 20 {
		t.Errorf("Coordinates with swapped refs = %+v, %v; want 10, 20", c, ok)
	}
	c, ok = Coordinates([]Rational{r(10, 1), r(0, 1), r(0, 1)}, "N", []Rational{r(20, 1), r(0, 1), r(0, 1)}, "West")
	if !ok || c.Lat != 10 || c.Lon != -20 {
		t.Errorf("Coordinates west = %+v, %v", c, ok)
	}
	if _, ok := Coordinates([]Rational{r(10, 1)}, "N", []Rational{r(20, 1), r(0, 1), r(0, 1)}, "E"); ok {
		t.Error("Coordinates accepted a short latitude")
	}
}

func TestRationalValue(t *testing.T) {
	if got := r(3, 2).value(); got != 1.5 {
		t.Errorf("value = %v, want 1.5", got)
	}
	if got := r(3, 0).value(); got != "3/0" {
		t.Errorf("value = %v, want 3/0", got)
	}
}
