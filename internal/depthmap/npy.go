package depthmap

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// NPY serialization of the raw depth buffer, byte-compatible with numpy.save:
// format version 1.0, dtype <f4 (little-endian float32), C order, shape (H, W).

var npyMagic = []byte("\x93NUMPY")

const npyAlign = 64

// WriteNPY serializes the depth map in NPY v1.0 form.
func WriteNPY(w io.Writer, m *DepthMap) error {
	if m.Empty() {
		return ErrEmptyMap
	}
	dict := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", m.Height, m.Width)
	// pad the header with spaces so the data section starts 64-byte aligned
	total := len(npyMagic) + 2 + 2 + len(dict) + 1
	pad := (npyAlign - total%npyAlign) % npyAlign
	header := dict + strings.Repeat(" ", pad) + "\n"

	buf := make([]byte, 0, len(npyMagic)+4+len(header)+4*len(m.Data))
	buf = append(buf, npyMagic...)
	buf = append(buf, 0x01, 0x00)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(header)))
	buf = append(buf, header...)
	for _, v := range m.Data {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write npy: %w", err)
	}
	return nil
}

// ReadNPY deserializes an NPY v1.0 buffer holding a 2-D float32 array.
func ReadNPY(r io.Reader) (*DepthMap, error) {
	head := make([]byte, 10)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}
	if string(head[:6]) != string(npyMagic) {
		return nil, fmt.Errorf("not an npy file")
	}
	if head[6] != 1 {
		return nil, fmt.Errorf("unsupported npy version %d.%d", head[6], head[7])
	}
	hlen := int(binary.LittleEndian.Uint16(head[8:10]))
	hdr := make([]byte, hlen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}
	height, width, err := parseNPYDict(string(hdr))
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 4*width*height)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read npy data: %w", err)
	}
	data := make([]float32, width*height)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return &DepthMap{Width: width, Height: height, Data: data}, nil
}

// parseNPYDict extracts shape from a header dict like
// {'descr': '<f4', 'fortran_order': False, 'shape': (384, 512), }
func parseNPYDict(dict string) (height, width int, err error) {
	if !strings.Contains(dict, "'<f4'") {
		return 0, 0, fmt.Errorf("npy dtype is not <f4: %s", strings.TrimSpace(dict))
	}
	if strings.Contains(dict, "'fortran_order': True") {
		return 0, 0, fmt.Errorf("fortran-order npy is not supported")
	}
	open := strings.Index(dict, "(")
	close := strings.Index(dict, ")")
	if open < 0 || close < open {
		return 0, 0, fmt.Errorf("npy header has no shape tuple")
	}
	parts := strings.Split(dict[open+1:close], ",")
	var dims []int
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, fmt.Errorf("npy shape: %w", err)
		}
		dims = append(dims, n)
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("npy shape has %d dimensions, want 2", len(dims))
	}
	if dims[0] <= 0 || dims[1] <= 0 {
		return 0, 0, fmt.Errorf("npy shape (%d, %d) is not positive", dims[0], dims[1])
	}
	return dims[0], dims[1], nil
}
