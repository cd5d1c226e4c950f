package download

import (
	"net/http"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// exifTags are the EXIF tags worth reporting about a catalog photo.
var exifTags = map[string]bool{
	"Make":             true,
	"Model":            true,
	"Software":         true,
	"DateTime":         true,
	"DateTimeOriginal": true,
	"ImageWidth":       true,
	"ImageLength":      true,
	"Copyright":        true,
	"Artist":           true,
}

// Info describes downloaded image data.
type Info struct {
	ContentType string            `json:"content_type"`
	Size        int               `json:"size"`
	EXIF        map[string]string `json:"exif,omitempty"`
}

// IsImage reports whether the data sniffed as an image.
func (i Info) IsImage() bool {
	return strings.HasPrefix(i.ContentType, "image/")
}

// Inspect sniffs the content type of data and summarizes its EXIF block.
// Data without EXIF yields an empty summary.
func Inspect(data []byte) Info {
	info := Info{
		ContentType: http.DetectContentType(data),
		Size:        len(data),
	}

	raw, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return info
	}
	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return info
	}
	for _, entry := range entries {
		if !exifTags[entry.TagName] || entry.Formatted == "" {
			continue
		}
		if info.EXIF == nil {
			info.EXIF = make(map[string]string)
		}
		if _, seen := info.EXIF[entry.TagName]; !seen {
			info.EXIF[entry.TagName] = entry.Formatted
		}
	}
	return info
}
