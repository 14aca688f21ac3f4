package media

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// PhotoInfo is the EXIF subset exposed for indexed photos.
type PhotoInfo struct {
	CameraMake  string     `json:"camera_make,omitempty"`
	CameraModel string     `json:"camera_model,omitempty"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	Orientation int        `json:"orientation,omitempty"`
	TakenAt     *time.Time `json:"taken_at,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
}

var exifTypes = map[string]bool{"jpg": true, "jpeg": true, "tif": true, "tiff": true}

// HasExif reports whether files of type ty may carry EXIF data.
func HasExif(ty string) bool {
	return exifTypes[ty]
}

// ReadPhotoInfo decodes EXIF from the file at path.
// A file without EXIF yields (nil, nil).
func ReadPhotoInfo(path string) (*PhotoInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, nil
	}

	info := &PhotoInfo{
		CameraMake:  tagString(x, exif.Make),
		CameraModel: tagString(x, exif.Model),
		Width:       tagInt(x, exif.PixelXDimension),
		Height:      tagInt(x, exif.PixelYDimension),
	}
	if o := tagInt(x, exif.Orientation); o >= 1 && o <= 8 {
		info.Orientation = o
	}
	if dt, err := x.DateTime(); err == nil {
		info.TakenAt = &dt
	}
	if lat, lon, err := x.LatLong(); err == nil && !math.IsNaN(lat) && !math.IsNaN(lon) {
		info.Latitude = &lat
		info.Longitude = &lon
	}
	return info, nil
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	if tag.Format() == tiff.StringVal {
		s, _ := tag.StringVal()
		return s
	}
	return tag.String()
}

func tagInt(x *exif.Exif, name exif.FieldName) int {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}
