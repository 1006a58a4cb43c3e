package params

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func filled(t *testing.T, sizes ...int) *Set {
	t.Helper()
	s, err := New("relu", sizes...)
	require.NoError(t, err)
	v := 0.5
	for _, ts := range s.Tensors() {
		for i := range ts {
			ts[i] = v
			v = -v * 1.1
		}
	}
	return s
}

func TestNewShapes(t *testing.T) {
	s, err := New("relu", 4, 3, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 4, s.InputSize())
	assert.Equal(t, 2, s.OutputSize())
	assert.Equal(t, []int{4, 3, 2}, s.Sizes())
	assert.Equal(t, 4*3+3+3*2+2, s.Count())
	assert.NoError(t, s.Validate())
	assert.NoError(t, s.Expect(4, 2))
	assert.ErrorIs(t, s.Expect(784, 10), ErrShapeMismatch)
}

func TestNewRejectsBadSizes(t *testing.T) {
	_, err := New("relu", 4)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = New("relu", 4, 0, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestValidateDetectsBrokenChain(t *testing.T) {
	s := filled(t, 4, 3, 2)
	s.Layers[1].W = mat.NewDense(5, 2, nil)
	assert.ErrorIs(t, s.Validate(), ErrShapeMismatch)

	s = filled(t, 4, 3, 2)
	s.Layers[0].B = mat.NewVecDense(2, nil)
	assert.ErrorIs(t, s.Validate(), ErrShapeMismatch)

	var empty Set
	assert.ErrorIs(t, empty.Validate(), ErrEmpty)
}

func TestCloneIsDeep(t *testing.T) {
	s := filled(t, 3, 2)
	c := s.Clone()
	c.Layers[0].W.Set(0, 0, 42)
	c.Layers[0].B.SetVec(0, 42)

	assert.NotEqual(t, 42.0, s.Layers[0].W.At(0, 0))
	assert.NotEqual(t, 42.0, s.Layers[0].B.AtVec(0))
	assert.NoError(t, s.SameShape(c))
}

func TestZerosLike(t *testing.T) {
	s := filled(t, 3, 2, 2)
	z := s.ZerosLike()
	require.NoError(t, s.SameShape(z))
	for _, ts := range z.Tensors() {
		for _, v := range ts {
			assert.Zero(t, v)
		}
	}
}

func TestTensorsAliasStorage(t *testing.T) {
	s := filled(t, 2, 2)
	ts := s.Tensors()
	require.Len(t, ts, 2)
	ts[0][1] = 7
	ts[1][0] = 9
	assert.Equal(t, 7.0, s.Layers[0].W.At(0, 1))
	assert.Equal(t, 9.0, s.Layers[0].B.AtVec(0))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := filled(t, 6, 4, 3)

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "relu", got.Activation)
	require.NoError(t, s.SameShape(got))
	for i := range s.Layers {
		assert.True(t, mat.Equal(s.Layers[i].W, got.Layers[i].W), "weights of layer %d", i)
		assert.True(t, mat.Equal(s.Layers[i].B, got.Layers[i].B), "biases of layer %d", i)
	}
}

func TestSaveLoad(t *testing.T) {
	s := filled(t, 5, 3)
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, s.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(s.Layers[0].W, got.Layers[0].W))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewBufferString("not a gob stream"))
	assert.Error(t, err)
}

func TestEncodeRejectsInvalidSet(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, (&Set{}).Encode(&buf), ErrEmpty)
}
