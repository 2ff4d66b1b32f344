package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

// PrepareGarmentImage shrinks an uploaded photo so classifier uploads
// stay small. Images already within maxDimension pass through unscaled.
func PrepareGarmentImage(imageBytes []byte, maxDimension int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image to png: %w", err)
	}
	return buf.Bytes(), nil
}

// WhitenGarmentBackground composites the photo over white using a
// blurred luminance mask, so closet pictures get a clean catalog look
// without hard cutout edges.
// - threshold: brightness (0-255) above which a pixel counts as background.
// - blurSigma: feather radius for the mask, 3.0-5.0 works well.
func WhitenGarmentBackground(imageBytes []byte, threshold uint8, blurSigma float64) ([]byte, error) {
	originalImg, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := originalImg.Bounds()
	width, height := bounds.Max.X, bounds.Max.Y

	// hard mask first: white = background, black = garment
	mask := image.NewGray(bounds)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := originalImg.At(x, y).RGBA()
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)

			luminance := 0.299*float64(r8) + 0.587*float64(g8) + 0.114*float64(b8)
			if luminance >= float64(threshold) {
				mask.SetGray(x, y, color.Gray{Y: 255})
			} else {
				mask.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	blurredMask := imaging.Blur(mask, blurSigma)

	finalImg := image.NewNRGBA(bounds)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := originalImg.At(x, y).RGBA()

			// grayscale mask, R carries the value
			maskAlpha, _, _, _ := blurredMask.At(x, y).RGBA()

			// inverted: white on mask means background, so 0% original
			alpha := 1.0 - float64(maskAlpha)/65535.0

			finalR := float64(r)*alpha + 65535.0*(1.0-alpha)
			finalG := float64(g)*alpha + 65535.0*(1.0-alpha)
			finalB := float64(b)*alpha + 65535.0*(1.0-alpha)

			finalImg.SetNRGBA(x, y, color.NRGBA{
				R: uint8(finalR / 257),
				G: uint8(finalG / 257),
				B: uint8(finalB / 257),
				A: uint8(a / 257),
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, finalImg); err != nil {
		return nil, fmt.Errorf("failed to encode final image: %w", err)
	}
	return buf.Bytes(), nil
}
