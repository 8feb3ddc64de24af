package media

import (
	"path/filepath"
	"strings"
)

// ImageExtensions maps the supported image extensions to true. This set
// is the discovery contract: matching is case-insensitive and files
// outside the set are never candidates.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// MimeTypes maps supported extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// IsImagePath reports whether the path carries a supported image
// extension, matched case-insensitively.
func IsImagePath(path string) bool {
	return ImageExtensions[strings.ToLower(filepath.Ext(path))]
}

// MimeType returns the MIME type for a path, or application/octet-stream
// for unsupported extensions.
func MimeType(path string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// SupportedExtensions returns a copy of the allow-list so callers
// cannot mutate the contract set.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(ImageExtensions))
	for ext := range ImageExtensions {
		exts = append(exts, ext)
	}
	return exts
}
