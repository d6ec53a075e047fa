// Package exifmeta reads embedded EXIF metadata from image bytes and decodes
// GPS positions into decimal coordinates.
package exifmeta

import (
	"fmt"
	"log/slog"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// Keys added to the metadata map next to the raw tag names.
const (
	KeyGPSParsed = "GPSParsed"
	KeyGPSLatLon = "GPSLatLon"
)

const gpsIfdPath = "IFD/GPSInfo"

// Metadata maps EXIF tag names to decoded values.
type Metadata map[string]any

// LatLon returns the decoded GPS position, if any.
func (m Metadata) LatLon() (profile.Coordinates, bool) {
	c, ok := m[KeyGPSLatLon].(profile.Coordinates)
	return c, ok
}

// Reader decodes EXIF metadata.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader. A nil logger uses slog.Default().
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// Read decodes the EXIF block of an image. It never fails: missing,
// truncated or corrupt metadata yields an empty map.
func Read(data []byte) Metadata {
	return NewReader(nil).Read(data)
}

// Read decodes the EXIF block of an image. See the package-level Read.
func (r *Reader) Read(data []byte) (md Metadata) {
	md = Metadata{}
	// go-exif panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("exif decoder panicked", "panic", fmt.Sprint(rec))
			md = Metadata{}
		}
	}()

	if len(data) == 0 {
		return md
	}
	raw, err := exif.SearchAndExtractExif(data)
	if err != nil || len(raw) == 0 {
		r.logger.Debug("no exif data", "error", err)
		return md
	}
	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		r.logger.Debug("failed to decode exif", "error", err)
		return md
	}

	gps := map[string]any{}
	gpsRaw := map[string]any{}
	for _, tag := range tags {
		if tag.ChildIfdPath != "" || strings.HasPrefix(tag.IfdPath, "IFD1") {
			continue // sub-IFD pointers and thumbnail tags
		}
		if tag.IfdPath == gpsIfdPath {
			if _, dup := gps[tag.TagName]; !dup {
				gps[tag.TagName] = decodeValue(tag.Value, tag.Formatted)
				gpsRaw[tag.TagName] = tag.Value
			}
			continue
		}
		if _, dup := md[tag.TagName]; !dup {
			md[tag.TagName] = decodeValue(tag.Value, tag.Formatted)
		}
	}

	if len(gps) > 0 {
		md[KeyGPSParsed] = gps
		if c, ok := coordinatesFromTags(gpsRaw); ok {
			md[KeyGPSLatLon] = c
		}
	}
	return md
}

// coordinatesFromTags converts raw GPS IFD values into a coordinate pair.
func coordinatesFromTags(tags map[string]any) (profile.Coordinates, bool) {
	latRef, _ := tags["GPSLatitudeRef"].(string)
	lonRef, _ := tags["GPSLongitudeRef"].(string)
	lat, latOK := rationals(tags["GPSLatitude"])
	lon, lonOK := rationals(tags["GPSLongitude"])
	if !latOK || !lonOK || latRef == "" || lonRef == "" {
		return profile.Coordinates{}, false
	}
	return Coordinates(lat, latRef, lon, lonRef)
}

func rationals(v any) ([]Rational, bool) {
	rs, ok := v.([]exifcommon.Rational)
	if !ok {
		return nil, false
	}
	out := make([]Rational, len(rs))
	for i, r := range rs {
		out[i] = Rational{Num: int64(r.Numerator), Den: int64(r.Denominator)}
	}
	return out, true
}

// decodeValue turns go-exif values into JSON-friendly ones.
func decodeValue(v any, formatted string) any {
	switch val := v.(type) {
	case string:
		return strings.TrimRight(val, "\x00 ")
	case []exifcommon.Rational:
		out := make([]any, len(val))
		for i, r := range val {
			out[i] = Rational{Num: int64(r.Numerator), Den: int64(r.Denominator)}.value()
		}
		return single(out)
	case []exifcommon.SignedRational:
		out := make([]any, len(val))
		for i, r := range val {
			out[i] = Rational{Num: int64(r.Numerator), Den: int64(r.Denominator)}.value()
		}
		return single(out)
	case []uint16:
		return single(toAny(val))
	case []uint32:
		return single(toAny(val))
	case []int32:
		return single(toAny(val))
	case []uint8:
		return formatted
	default:
		return formatted
	}
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func single(vs []any) any {
	if len(vs) == 1 {
		return vs[0]
	}
	return vs
}
