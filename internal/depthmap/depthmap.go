package depthmap

import (
	"errors"
	"fmt"
)

// ErrEmptyMap is returned when a depth map is nil or has no pixels.
var ErrEmptyMap = errors.New("depth map is empty")

// DepthMap is a dense per-pixel relative-depth buffer in row-major order.
// Values are unitless: only their ordering within one map is meaningful.
type DepthMap struct {
	Width  int
	Height int
	Data   []float32 // len == Width*Height
}

// New allocates a zeroed depth map of the given dimensions.
func New(width, height int) (*DepthMap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	return &DepthMap{Width: width, Height: height, Data: make([]float32, width*height)}, nil
}

// FromData wraps an existing buffer. The slice is not copied.
func FromData(width, height int, data []float32) (*DepthMap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("buffer length %d does not match %dx%d", len(data), width, height)
	}
	return &DepthMap{Width: width, Height: height, Data: data}, nil
}

// Empty reports whether the map is nil or holds no pixels.
func (m *DepthMap) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Data) == 0
}

// At returns the depth value at (x, y). Caller must keep coordinates in range.
func (m *DepthMap) At(x, y int) float32 { return m.Data[y*m.Width+x] }

// Set writes the depth value at (x, y). Caller must keep coordinates in range.
func (m *DepthMap) Set(x, y int, v float32) { m.Data[y*m.Width+x] = v }

// MinMax returns the smallest and largest values in the map.
func (m *DepthMap) MinMax() (min, max float32) {
	min, max = m.Data[0], m.Data[0]
	for _, v := range m.Data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Resize samples the map bilinearly to the given dimensions. The receiver is
// returned unchanged when the dimensions already match; per-request buffers
// are never shared, so aliasing is safe.
func (m *DepthMap) Resize(width, height int) (*DepthMap, error) {
	if m.Empty() {
		return nil, ErrEmptyMap
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if width == m.Width && height == m.Height {
		return m, nil
	}
	out := &DepthMap{Width: width, Height: height, Data: make([]float32, width*height)}
	sx := float64(m.Width) / float64(width)
	sy := float64(m.Height) / float64(height)
	for y := 0; y < height; y++ {
		// sample at pixel centers
		fy := (float64(y)+0.5)*sy - 0.5
		y0 := int(fy)
		if fy < 0 {
			fy, y0 = 0, 0
		}
		y1 := y0 + 1
		if y1 >= m.Height {
			y1 = m.Height - 1
		}
		wy := float32(fy - float64(y0))
		for x := 0; x < width; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			x0 := int(fx)
			if fx < 0 {
				fx, x0 = 0, 0
			}
			x1 := x0 + 1
			if x1 >= m.Width {
				x1 = m.Width - 1
			}
			wx := float32(fx - float64(x0))
			top := m.At(x0, y0)*(1-wx) + m.At(x1, y0)*wx
			bot := m.At(x0, y1)*(1-wx) + m.At(x1, y1)*wx
			out.Set(x, y, top*(1-wy)+bot*wy)
		}
	}
	return out, nil
}
