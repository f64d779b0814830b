package imageprep

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/disintegration/imaging"
)

// EnhanceForOCR applies a series of image processing operations that improve
// printed-text recognition on photographed receipts: grayscale for contrast,
// aggressive contrast boost, sharpening, a small brightness lift, and gamma
// correction. Input must be a decodable image; output is PNG.
func EnhanceForOCR(imageData []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decoding image for enhancement: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding enhanced image: %w", err)
	}

	return buf.Bytes(), nil
}
