package core

import (
	"encoding/json"
	"math"
)

// Vector, Matrix, Cube and Tensor are nested float64 slices whose JSON form
// encodes NaN and infinities as null, since bare JSON has no representation
// for them. Loading maps null back to NaN. Undefined cells (too-small
// subsets, untested windows) survive a store round trip this way.
type Vector []float64

// Matrix is a 2-D float array with null-safe JSON encoding.
type Matrix [][]float64

// Cube is a 3-D float array with null-safe JSON encoding.
type Cube [][][]float64

// Tensor is a 4-D float array with null-safe JSON encoding.
type Tensor [][][][]float64

func (v Vector) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(v))
	for i, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		f := f
		out[i] = &f
	}
	return json.Marshal(out)
}

func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = make(Vector, len(raw))
	for i, p := range raw {
		if p == nil {
			(*v)[i] = math.NaN()
		} else {
			(*v)[i] = *p
		}
	}
	return nil
}

func (m Matrix) MarshalJSON() ([]byte, error) {
	rows := make([]Vector, len(m))
	for i := range m {
		rows[i] = m[i]
	}
	return json.Marshal(rows)
}

func (m *Matrix) UnmarshalJSON(data []byte) error {
	var rows []Vector
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	*m = make(Matrix, len(rows))
	for i := range rows {
		(*m)[i] = rows[i]
	}
	return nil
}

func (c Cube) MarshalJSON() ([]byte, error) {
	mats := make([]Matrix, len(c))
	for i := range c {
		mats[i] = c[i]
	}
	return json.Marshal(mats)
}

func (c *Cube) UnmarshalJSON(data []byte) error {
	var mats []Matrix
	if err := json.Unmarshal(data, &mats); err != nil {
		return err
	}
	*c = make(Cube, len(mats))
	for i := range mats {
		(*c)[i] = mats[i]
	}
	return nil
}

func (t Tensor) MarshalJSON() ([]byte, error) {
	cubes := make([]Cube, len(t))
	for i := range t {
		cubes[i] = t[i]
	}
	return json.Marshal(cubes)
}

func (t *Tensor) UnmarshalJSON(data []byte) error {
	var cubes []Cube
	if err := json.Unmarshal(data, &cubes); err != nil {
		return err
	}
	*t = make(Tensor, len(cubes))
	for i := range cubes {
		(*t)[i] = cubes[i]
	}
	return nil
}
