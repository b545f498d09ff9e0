package imageio

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// ImageNet normalization constants, the convention for MiDaS-family encoders.
var (
	normMean = [3]float32{0.485, 0.456, 0.406}
	normStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess resizes the image to size x size and converts it to a normalized
// NCHW float32 tensor of shape (1, 3, size, size). Alpha is discarded.
func Preprocess(img image.Image, size int) ([]float32, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("image has zero dimensions")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid tensor size %d", size)
	}
	scaled := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	plane := size * size
	tensor := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := scaled.At(x, y).RGBA()
			i := y*size + x
			tensor[i] = (float32(r)/65535 - normMean[0]) / normStd[0]
			tensor[plane+i] = (float32(g)/65535 - normMean[1]) / normStd[1]
			tensor[2*plane+i] = (float32(b)/65535 - normMean[2]) / normStd[2]
		}
	}
	return tensor, nil
}
