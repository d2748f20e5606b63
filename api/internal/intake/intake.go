// Package intake validates user-supplied chart images before they reach an
// analysis engine.
package intake

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/util"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrUnsupportedImage = errors.New("unsupported image type; use PNG, JPEG or WEBP")
	ErrInvalidImage     = errors.New("image data is corrupt or does not match its type")
)

// Preview describes an accepted image; front-ends echo it back to the user.
type Preview struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
	SHA256 string `json:"sha256"`
}

func (p Preview) String() string {
	return fmt.Sprintf("%s %dx%d, %d KB", strings.ToUpper(p.Format), p.Width, p.Height, (p.Bytes+1023)/1024)
}

// Load accepts data when its MIME type (declared, else sniffed) is one the
// models take and the header decodes as that format. No size limit applies.
func Load(data []byte, declaredMIME string) (analysis.Image, Preview, error) {
	if len(data) == 0 {
		return analysis.Image{}, Preview{}, ErrEmptyImage
	}
	mime := util.PickMIME(declaredMIME, "", data)
	if !analysis.IsSupportedMIME(mime) {
		return analysis.Image{}, Preview{}, fmt.Errorf("%w (got %s)", ErrUnsupportedImage, orUnknown(mime))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return analysis.Image{}, Preview{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if "image/"+format != mime {
		return analysis.Image{}, Preview{}, fmt.Errorf("%w: declared %s, content is %s", ErrInvalidImage, mime, format)
	}

	img := analysis.Image{Data: data, MIMEType: mime}
	return img, Preview{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Bytes:  len(data),
		SHA256: util.SHA256Hex(data),
	}, nil
}

// LoadBase64 is Load for plain or data:URL base64 payloads. An explicit MIME
// wins over the data:URL prefix.
func LoadBase64(b64, declaredMIME string) (analysis.Image, Preview, error) {
	data, hint, err := util.DecodeBase64MaybeDataURL(b64)
	if err != nil {
		return analysis.Image{}, Preview{}, fmt.Errorf("%w: bad base64: %v", ErrInvalidImage, err)
	}
	return Load(data, util.PickMIME(declaredMIME, hint, data))
}

// IsRejection reports whether err is an intake rejection (a client mistake).
func IsRejection(err error) bool {
	return errors.Is(err, ErrEmptyImage) || errors.Is(err, ErrUnsupportedImage) || errors.Is(err, ErrInvalidImage)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
