// Package tensor holds the dense buffers exchanged between a host and a
// waveform model: audio (channels x samples) and parameter values
// (parameters x samples).
package tensor

import (
	"math"
	"math/rand"
)

// Mat represents a dense row-major matrix of float32 values.
//
// R and C represent the number of rows and columns respectively. For audio a
// row is a channel and a column is a sample; for parameter buffers a row is a
// parameter. Stride is the number of elements between the starts of two
// consecutive rows (equal to C for every Mat built by this package).
//
// Mat does not perform any memory safety beyond the checks performed by Go's
// slice types; out-of-range indices will panic.
type Mat struct {
	R, C   int
	Stride int
	Data   []float32
}

// NewMat allocates a new matrix with the given number of rows and columns.
// The underlying slice is zero initialised.
func NewMat(r, c int) Mat {
	if r < 0 || c < 0 {
		panic("negative dimension for matrix")
	}
	return Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   make([]float32, r*c),
	}
}

// NewMatFromData creates a matrix from existing data.
// It checks that the data length matches r*c.
func NewMatFromData(r, c int, data []float32) Mat {
	if r*c != len(data) {
		panic("data length mismatch")
	}
	return Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   data,
	}
}

// FromRows copies equally sized rows into a new matrix.
func FromRows(rows [][]float32) (Mat, error) {
	if len(rows) == 0 {
		return Mat{}, nil
	}
	c := len(rows[0])
	m := NewMat(len(rows), c)
	for i, row := range rows {
		if len(row) != c {
			return Mat{}, errRaggedRows
		}
		copy(m.Row(i), row)
	}
	return m, nil
}

// Empty reports whether the matrix holds no values.
func (m Mat) Empty() bool {
	return m.R == 0 || m.C == 0
}

// Row returns a view of the i-th row of the matrix as a slice. Modifications
// to the returned slice update the underlying matrix values.
func (m Mat) Row(i int) []float32 {
	if i < 0 || i >= m.R {
		panic("row index out of range")
	}
	start := i * m.Stride
	return m.Data[start : start+m.C]
}

// RowTo copies the i-th row into dst. dst must have length >= C.
func (m Mat) RowTo(dst []float32, i int) {
	if len(dst) < m.C {
		panic("row buffer too small")
	}
	copy(dst[:m.C], m.Row(i))
}

// Rows returns a copy of the matrix as a slice of rows.
func (m Mat) Rows() [][]float32 {
	out := make([][]float32, m.R)
	for i := range out {
		out[i] = make([]float32, m.C)
		m.RowTo(out[i], i)
	}
	return out
}

// Clone returns a deep copy of m.
func (m Mat) Clone() Mat {
	out := NewMat(m.R, m.C)
	for i := 0; i < m.R; i++ {
		copy(out.Row(i), m.Row(i))
	}
	return out
}

// Cols returns a copy of columns [start, end) as a new matrix.
func (m Mat) Cols(start, end int) Mat {
	if start < 0 || end > m.C || start > end {
		panic("column range out of bounds")
	}
	out := NewMat(m.R, end-start)
	for i := 0; i < m.R; i++ {
		copy(out.Row(i), m.Row(i)[start:end])
	}
	return out
}

// Repeat tiles every column of m n times horizontally, so an (R x 1) matrix
// becomes (R x n).
func (m Mat) Repeat(n int) Mat {
	if n < 0 {
		panic("negative repeat count")
	}
	out := NewMat(m.R, m.C*n)
	for i := 0; i < m.R; i++ {
		src := m.Row(i)
		dst := out.Row(i)
		for k := 0; k < n; k++ {
			copy(dst[k*m.C:(k+1)*m.C], src)
		}
	}
	return out
}

// RowMean returns the arithmetic mean of row i. The mean of an empty row is 0.
func (m Mat) RowMean(i int) float32 {
	row := m.Row(i)
	if len(row) == 0 {
		return 0
	}
	var sum float64
	for _, v := range row {
		sum += float64(v)
	}
	return float32(sum / float64(len(row)))
}

// AllFinite reports whether no element is NaN or infinite.
func (m Mat) AllFinite() bool {
	for i := 0; i < m.R; i++ {
		for _, v := range m.Row(i) {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}

// FillRand fills the matrix with reproducible pseudo-random values in
// roughly (-amp, amp). The seed controls the random sequence; multiple calls
// with the same seed produce identical matrices.
func FillRand(m *Mat, seed int64, amp float32) {
	rng := rand.New(rand.NewSource(seed))
	for i := range m.Data {
		m.Data[i] = (rng.Float32()*2 - 1) * amp
	}
}

var errRaggedRows = fmtError("rows have different lengths")

type fmtError string

func (e fmtError) Error() string { return string(e) }
