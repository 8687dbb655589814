package core

import "fmt"

// Matrix is a dense, row-major host matrix of float64 values.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// NewMatrix creates a matrix, checking that data holds rows*cols values.
func NewMatrix(rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid matrix shape %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("matrix %dx%d needs %d values, got %d", rows, cols, rows*cols, len(data))
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// ColumnVector builds an n x 1 matrix from integer values.
func ColumnVector(values ...int) *Matrix {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return &Matrix{Rows: len(values), Cols: 1, Data: data}
}

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

// Clone returns a deep copy of the matrix.
func (m *Matrix) Clone() *Matrix {
	if m == nil {
		return nil
	}
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	return &Matrix{Rows: m.Rows, Cols: m.Cols, Data: data}
}
