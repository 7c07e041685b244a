package llm

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// EncodeImage reads a rendered page and returns it as a base64 data URL.
func EncodeImage(img entity.RasterImage) (entity.EncodedImage, error) {
	b, err := os.ReadFile(img.Path)
	if err != nil {
		return entity.EncodedImage{}, fmt.Errorf("read image: %w", err)
	}
	mt := img.MIMEType
	if mt == "" {
		mt = mimeForPath(img.Path)
	}
	return entity.EncodedImage{
		MIMEType: mt,
		DataURL:  "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b),
	}, nil
}

// DecodeDataURL reverses EncodeImage for providers that take raw bytes.
func DecodeDataURL(u string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("data url has no payload")
	}
	mt, isB64 := strings.CutSuffix(meta, ";base64")
	if !isB64 {
		return nil, "", fmt.Errorf("data url is not base64")
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return b, mt, nil
}

func mimeForPath(path string) string {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return mt
	}
	// fallbacks
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
