package media

import (
	"image"
	"os"

	"github.com/disintegration/imaging"

	// Register the decoders the allow-list promises.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"photo-discovery/internal/logging"
)

// Validator is the capability the discovery service uses to decide
// whether a candidate file is a real, decodable image. Implementations
// must never panic; a file that cannot be decided is reported invalid.
type Validator interface {
	// Validate reports whether the file at path decodes as an image.
	Validate(path string) bool

	// Load decodes the full image at path. The second return is false
	// when the file cannot be decoded.
	Load(path string) (image.Image, bool)
}

// ImagingValidator validates with the pure-Go decoder stack. The
// zero value is ready to use.
type ImagingValidator struct{}

func (v ImagingValidator) Validate(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		logging.Debug("Validation open failed for %s: %v", path, err)
		return false
	}
	_, format, err := image.DecodeConfig(file)
	file.Close()
	if err != nil {
		logging.Debug("Validation decode failed for %s: %v", path, err)
		return false
	}

	// The header probe passes truncated files; the whole image must
	// decode before the file counts as valid.
	if _, ok := v.Load(path); !ok {
		logging.Debug("Validation full decode failed for %s", path)
		return false
	}

	logging.Debug("Validated %s as %s", path, format)
	return true
}

func (ImagingValidator) Load(path string) (image.Image, bool) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, true
	}

	logging.Debug("imaging.Open failed for %s: %v, trying standard decode", path, err)

	file, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		logging.Debug("Standard decode failed for %s: %v", path, err)
		return nil, false
	}

	logging.Debug("Decoded image format: %s for %s", format, path)
	return img, true
}

// DetectFormat sniffs the leading bytes of a file and returns the image
// format they announce, independent of the file's extension. Returns
// "unknown" for headers that match no supported format.
func DetectFormat(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	header := make([]byte, 32)
	n, err := file.Read(header)
	if err != nil {
		return "", err
	}
	header = header[:n]

	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return "jpeg", nil

	case len(header) >= 8 && header[0] == 0x89 && header[1] == 0x50 && header[2] == 0x4E && header[3] == 0x47:
		return "png", nil

	case len(header) >= 4 && header[0] == 0x47 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x38:
		return "gif", nil

	case len(header) >= 12 && header[0] == 0x52 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x46 &&
		header[8] == 0x57 && header[9] == 0x45 && header[10] == 0x42 && header[11] == 0x50:
		return "webp", nil

	case len(header) >= 2 && header[0] == 0x42 && header[1] == 0x4D:
		return "bmp", nil

	case len(header) >= 4 && ((header[0] == 0x49 && header[1] == 0x49 && header[2] == 0x2A && header[3] == 0x00) ||
		(header[0] == 0x4D && header[1] == 0x4D && header[2] == 0x00 && header[3] == 0x2A)):
		return "tiff", nil
	}

	return "unknown", nil
}
