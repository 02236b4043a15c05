// Package safetensors reads and writes the .safetensors weight format used
// to ship model kernels.
package safetensors

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	json "github.com/goccy/go-json"
)

const metadataKey = "__metadata__"

type TensorInfo struct {
	DType string
	Shape []int
	Start int64
	End   int64
}

type File struct {
	Path      string
	DataStart int64
	Tensors   map[string]TensorInfo
	// Metadata holds the free-form string map stored under __metadata__.
	Metadata map[string]string
}

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int   `json:"shape"`
	DataOffsets []int64 `json:"data_offsets"`
}

// Tensor is an f32 tensor to be written by Write.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float32
}

func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	headerLen, err := readU64(f)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if headerLen > uint64(st.Size()) {
		return nil, fmt.Errorf("header length %d exceeds file size %d", headerLen, st.Size())
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, err
	}

	var meta map[string]string
	if msg, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(msg, &meta); err != nil {
			return nil, fmt.Errorf("parse %s: %w", metadataKey, err)
		}
		delete(raw, metadataKey)
	}

	dataLen := st.Size() - int64(8+headerLen)
	tensors := make(map[string]TensorInfo, len(raw))
	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, fmt.Errorf("parse tensor %s: %w", name, err)
		}
		if len(th.DataOffsets) != 2 {
			return nil, fmt.Errorf("tensor %s: invalid data_offsets", name)
		}
		start, end := th.DataOffsets[0], th.DataOffsets[1]
		if start < 0 || end < start || end > dataLen {
			return nil, fmt.Errorf("tensor %s: data_offsets [%d, %d] outside %d data bytes", name, start, end, dataLen)
		}
		tensors[name] = TensorInfo{
			DType: th.DType,
			Shape: th.Shape,
			Start: th.DataOffsets[0],
			End:   th.DataOffsets[1],
		}
	}
	return &File{
		Path:      path,
		DataStart: int64(8 + headerLen),
		Tensors:   tensors,
		Metadata:  meta,
	}, nil
}

func (f *File) Tensor(name string) (TensorInfo, bool) {
	t, ok := f.Tensors[name]
	return t, ok
}

func (f *File) ReadTensor(name string) ([]byte, TensorInfo, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return nil, TensorInfo{}, fmt.Errorf("tensor not found: %s", name)
	}
	if t.End < t.Start {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: invalid offsets", name)
	}
	buf := make([]byte, t.End-t.Start)

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	defer func() { _ = file.Close() }()

	if _, err := file.ReadAt(buf, f.DataStart+t.Start); err != nil {
		return nil, TensorInfo{}, fmt.Errorf("read tensor %s: %w", name, err)
	}
	return buf, t, nil
}

// ReadTensorF32 decodes an F32, F16 or BF16 tensor into float32 values.
func (f *File) ReadTensorF32(name string) ([]float32, TensorInfo, error) {
	raw, info, err := f.ReadTensor(name)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	n, err := numElements(info.Shape)
	if err != nil {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: %w", name, err)
	}
	var width int
	var decode func([]byte) float32
	switch info.DType {
	case "F32":
		width = 4
		decode = func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }
	case "BF16":
		width = 2
		decode = func(b []byte) float32 { return bf16ToF32(binary.LittleEndian.Uint16(b)) }
	case "F16":
		width = 2
		decode = func(b []byte) float32 { return fp16ToFloat32(binary.LittleEndian.Uint16(b)) }
	default:
		return nil, TensorInfo{}, fmt.Errorf("unsupported dtype %s", info.DType)
	}
	if len(raw) != n*width {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: invalid %s data size", name, info.DType)
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = decode(raw[i*width:])
	}
	return out, info, nil
}

// Write stores tensors as F32 in a new .safetensors file at path. Tensors
// are laid out in name order.
func Write(path string, tensors []Tensor, metadata map[string]string) error {
	sorted := make([]Tensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := make(map[string]any, len(sorted)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	var offset int64
	for _, t := range sorted {
		n, err := numElements(t.Shape)
		if err != nil {
			return fmt.Errorf("tensor %s: %w", t.Name, err)
		}
		if n != len(t.Data) {
			return fmt.Errorf("tensor %s: shape %v does not match %d values", t.Name, t.Shape, len(t.Data))
		}
		if _, dup := header[t.Name]; dup {
			return fmt.Errorf("duplicate tensor %s", t.Name)
		}
		end := offset + int64(n*4)
		header[t.Name] = tensorHeader{DType: "F32", Shape: t.Shape, DataOffsets: []int64{offset, end}}
		offset = end
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(headerBytes)))
	data := make([]byte, 0, 8+len(headerBytes)+int(offset))
	data = append(data, lenBuf[:]...)
	data = append(data, headerBytes...)
	for _, t := range sorted {
		for _, v := range t.Data {
			data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
		}
	}
	if _, err := out.Write(data); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func numElements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("empty shape")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("invalid dim %d", d)
		}
		if n > (int(^uint(0)>>1))/d {
			return 0, fmt.Errorf("tensor too large")
		}
		n *= d
	}
	return n, nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func bf16ToF32(u uint16) float32 {
	return math.Float32frombits(uint32(u) << 16)
}

func fp16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h & 0x3FF)
	var f uint32
	switch exp {
	case 0:
		if frac == 0 {
			f = sign << 31
		} else {
			e := uint32(127 - 15 + 1)
			for (frac & 0x400) == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			f = (sign << 31) | (e << 23) | (frac << 13)
		}
	case 0x1F:
		f = (sign << 31) | 0x7F800000 | (frac << 13)
	default:
		e := exp + (127 - 15)
		f = (sign << 31) | (e << 23) | (frac << 13)
	}
	return math.Float32frombits(f)
}
