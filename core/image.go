package slidewin

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
)

// GetImage reads an image file off the filesystem and converts it to NRGBA.
func GetImage(path string) (*image.NRGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeImage(file)
}

// DecodeImage decodes a jpeg, png or bmp stream into an NRGBA image.
func DecodeImage(r io.Reader) (*image.NRGBA, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return imaging.Clone(src), nil
}

// RgbToGrayscale converts an image to a single channel grayscale pixel
// buffer in row-major order.
func RgbToGrayscale(src image.Image) []uint8 {
	bounds := src.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	gray := make([]uint8, rows*cols)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray[y*cols+x] = uint8(((299*r + 587*g + 114*b) / 1000) >> 8)
		}
	}
	return gray
}
