package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// writeRaw writes a safetensors file with an arbitrary header and payload.
func writeRaw(t *testing.T, path string, header any, data []byte) {
	t.Helper()
	headerBytes, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(headerBytes)))
	buf := append(lenBuf[:], headerBytes...)
	buf = append(buf, data...)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func oneTensor(dtype string, shape []int, start, end int64) map[string]any {
	return map[string]any{
		"test": map[string]any{
			"dtype":        dtype,
			"shape":        shape,
			"data_offsets": []int64{start, end},
		},
	}
}

func TestWriteThenRead(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "kernel.safetensors")

	err := Write(path, []Tensor{
		{Name: "kernel", Shape: []int{4}, Data: []float32{0.25, 0.25, 0.25, 0.25}},
		{Name: "bias", Shape: []int{1, 2}, Data: []float32{-1, 1}},
	}, map[string]string{"format": "fir"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.Metadata["format"] != "fir" {
		t.Fatalf("expected metadata format=fir, got %v", f.Metadata)
	}
	if len(f.Tensors) != 2 {
		t.Fatalf("expected 2 tensors (metadata excluded), got %d", len(f.Tensors))
	}

	kernel, info, err := f.ReadTensorF32("kernel")
	if err != nil {
		t.Fatalf("ReadTensorF32: %v", err)
	}
	if info.DType != "F32" || len(info.Shape) != 1 || info.Shape[0] != 4 {
		t.Fatalf("unexpected info: %+v", info)
	}
	for i, v := range kernel {
		if v != 0.25 {
			t.Fatalf("kernel[%d]: expected 0.25, got %v", i, v)
		}
	}

	bias, _, err := f.ReadTensorF32("bias")
	if err != nil {
		t.Fatalf("ReadTensorF32 bias: %v", err)
	}
	if bias[0] != -1 || bias[1] != 1 {
		t.Fatalf("unexpected bias: %v", bias)
	}
}

func TestWriteRejectsBadTensors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name    string
		tensors []Tensor
	}{
		{"shape mismatch", []Tensor{{Name: "a", Shape: []int{3}, Data: []float32{1}}}},
		{"empty shape", []Tensor{{Name: "a", Data: []float32{1}}}},
		{"duplicate", []Tensor{
			{Name: "a", Shape: []int{1}, Data: []float32{1}},
			{Name: "a", Shape: []int{1}, Data: []float32{2}},
		}},
	}
	for _, tc := range tests {
		if err := Write(filepath.Join(dir, tc.name), tc.tensors, nil); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestOpenNonexistentFile(t *testing.T) {
	t.Parallel()
	if _, err := Open("/nonexistent/file.safetensors"); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestOpenTruncatedFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "truncated.safetensors")
	if err := os.WriteFile(path, []byte{0, 0, 0, 0}, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestOpenHeaderLongerThanFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "huge.safetensors")
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], 1<<40)
	if err := os.WriteFile(path, lenBuf[:], 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for oversized header length")
	}
}

func TestOpenInvalidJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "invalid.safetensors")
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], 12)
	if err := os.WriteFile(path, append(lenBuf[:], []byte("not valid js")...), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for invalid JSON header")
	}
}

func TestInvalidDataOffsets(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad_offsets.safetensors")
	writeRaw(t, path, map[string]any{
		"bad_tensor": map[string]any{
			"dtype":        "F32",
			"shape":        []int{1},
			"data_offsets": []int64{0},
		},
	}, nil)
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for invalid data_offsets")
	}
}

func TestDataOffsetsOutOfRange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name       string
		start, end int64
	}{
		{"past end of file", 0, 1 << 62},
		{"negative start", -4, 4},
		{"end before start", 8, 4},
		{"one byte too long", 0, 9},
	}
	for _, tc := range tests {
		path := filepath.Join(dir, tc.name+".safetensors")
		writeRaw(t, path, oneTensor("F32", []int{2}, tc.start, tc.end), make([]byte, 8))
		if _, err := Open(path); err == nil {
			t.Errorf("%s: expected error for data_offsets [%d, %d]", tc.name, tc.start, tc.end)
		}
	}
}

func TestTensorNotFound(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.safetensors")
	writeRaw(t, path, oneTensor("F32", []int{1}, 0, 4), make([]byte, 4))

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := f.Tensor("missing"); ok {
		t.Fatal("unexpected tensor")
	}
	if _, _, err := f.ReadTensorF32("missing"); err == nil {
		t.Fatal("expected error for missing tensor")
	}
}

func TestReadTensorHalfPrecision(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		dtype string
		bits  []uint16
		want  []float32
	}{
		{"BF16", []uint16{0x3F80, 0x4000}, []float32{1, 2}},
		{"F16", []uint16{0x3C00, 0xC000}, []float32{1, -2}},
	}
	for _, tc := range tests {
		data := make([]byte, 2*len(tc.bits))
		for i, b := range tc.bits {
			binary.LittleEndian.PutUint16(data[i*2:], b)
		}
		path := filepath.Join(dir, tc.dtype+".safetensors")
		writeRaw(t, path, oneTensor(tc.dtype, []int{len(tc.bits)}, 0, int64(len(data))), data)

		f, err := Open(path)
		if err != nil {
			t.Fatalf("%s Open: %v", tc.dtype, err)
		}
		got, _, err := f.ReadTensorF32("test")
		if err != nil {
			t.Fatalf("%s ReadTensorF32: %v", tc.dtype, err)
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Errorf("%s element %d: expected %v, got %v", tc.dtype, i, tc.want[i], got[i])
			}
		}
	}
}

func TestReadTensorUnsupportedDType(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "unsupported.safetensors")
	writeRaw(t, path, oneTensor("I32", []int{2}, 0, 8), make([]byte, 8))

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, err := f.ReadTensorF32("test"); err == nil {
		t.Fatal("expected error for unsupported dtype")
	}
}

func TestReadTensorSizeMismatch(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "mismatch.safetensors")
	// Shape says 4 elements but only 8 bytes are referenced.
	writeRaw(t, path, oneTensor("F32", []int{4}, 0, 8), make([]byte, 8))

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, err := f.ReadTensorF32("test"); err == nil {
		t.Fatal("expected error for size mismatch")
	}
}
