package device

import (
	"slices"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Element types a Tensor may hold. These are the dense array library's dtypes so views
// handed to tensor consumers agree on them.
var (
	Uint8 = tensor.Uint8
	Int16 = tensor.Int16
	Int32 = tensor.Int32
)

// Tensor is a row-major, device-resident array of uint8, int16 or int32 backed by a
// *tensor.Dense. Tensors are treated as immutable once built: they share the slice they were
// built from, and the typed accessors return that same storage.
type Tensor struct {
	dev   Device
	dtype tensor.Dtype
	// shape is kept for tensors with no elements, which have no dense backing.
	shape tensor.Shape
	dense *tensor.Dense
}

// New wraps data, which must be a []uint8, []int16 or []int32, as a tensor on dev. With
// no shape the tensor is one dimensional. The tensor takes ownership of data: the caller
// must not modify it afterwards.
func New(dev Device, data interface{}, shape ...int) (*Tensor, error) {
	if dev == nil {
		return nil, errors.New("tensor needs a device")
	}
	var (
		dt tensor.Dtype
		n  int
	)
	switch v := data.(type) {
	case []uint8:
		dt, n = Uint8, len(v)
	case []int16:
		dt, n = Int16, len(v)
	case []int32:
		dt, n = Int32, len(v)
	default:
		return nil, errors.Errorf("unsupported tensor backing %T", data)
	}
	if len(shape) == 0 {
		shape = []int{n}
	}
	size := 1
	for _, s := range shape {
		if s < 0 {
			return nil, errors.Errorf("negative dimension in shape %v", shape)
		}
		size *= s
	}
	if size != n {
		return nil, errors.Errorf("shape %v does not hold %d elements", shape, n)
	}
	return wrap(dev, dt, data, shape), nil
}

// wrap builds the tensor without checking data against shape.
func wrap(dev Device, dt tensor.Dtype, data interface{}, shape []int) *Tensor {
	t := &Tensor{dev: dev, dtype: dt, shape: tensor.Shape(shape).Clone()}
	if t.shape.TotalSize() > 0 {
		// The shape is always given so single element tensors do not become scalars.
		t.dense = tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
	}
	return t
}

// Uint8s returns a one dimensional uint8 tensor on dev that owns data.
func Uint8s(dev Device, data []uint8) *Tensor {
	return wrap(dev, Uint8, data, []int{len(data)})
}

// Int16s returns a one dimensional int16 tensor on dev that owns data.
func Int16s(dev Device, data []int16) *Tensor {
	return wrap(dev, Int16, data, []int{len(data)})
}

// Int32s returns a one dimensional int32 tensor on dev that owns data.
func Int32s(dev Device, data []int32) *Tensor {
	return wrap(dev, Int32, data, []int{len(data)})
}

// Device returns the device the tensor resides on.
func (t *Tensor) Device() Device {
	return t.dev
}

// Dtype returns the element type.
func (t *Tensor) Dtype() tensor.Dtype {
	return t.dtype
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	return []int(t.shape.Clone())
}

// Dims returns the number of dimensions.
func (t *Tensor) Dims() int {
	return t.shape.Dims()
}

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// Len returns the total number of elements.
func (t *Tensor) Len() int {
	return t.shape.TotalSize()
}

// Uint8Data returns the backing slice of a uint8 tensor, or nil. Callers must not modify it.
func (t *Tensor) Uint8Data() []uint8 {
	if t.dense == nil {
		return nil
	}
	v, _ := t.dense.Data().([]uint8)
	return v
}

// Int16Data returns the backing slice of an int16 tensor, or nil. Callers must not modify it.
func (t *Tensor) Int16Data() []int16 {
	if t.dense == nil {
		return nil
	}
	v, _ := t.dense.Data().([]int16)
	return v
}

// Int32Data returns the backing slice of an int32 tensor, or nil. Callers must not modify it.
func (t *Tensor) Int32Data() []int32 {
	if t.dense == nil {
		return nil
	}
	v, _ := t.dense.Data().([]int32)
	return v
}

// Reshape returns a view of t with a new shape holding the same number of elements.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if tensor.Shape(shape).TotalSize() != t.Len() {
		return nil, errors.Errorf("shape %v does not hold %d elements", shape, t.Len())
	}
	out := &Tensor{dev: t.dev, dtype: t.dtype, shape: tensor.Shape(shape).Clone()}
	if t.dense != nil {
		out.dense = t.dense.ShallowClone()
		if err := out.dense.Reshape(shape...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// To returns a copy of t on dev.
func (t *Tensor) To(dev Device) *Tensor {
	return dev.Transfer(t)
}

// Equal reports whether t and o hold the same dtype, shape and values. Devices are not
// compared.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	// tensor.Shape.Eq treats row vectors and flat vectors as equal, so shapes are compared here.
	if t.dtype != o.dtype || !slices.Equal(t.shape, o.shape) {
		return false
	}
	if t.dense == nil || o.dense == nil {
		return t.dense == o.dense
	}
	return t.dense.Eq(o.dense)
}

// Dense returns the *tensor.Dense backing t, for handing the tensor to dense array
// consumers. Empty tensors have no dense backing and return nil.
func (t *Tensor) Dense() *tensor.Dense {
	return t.dense
}

// SameStorage reports whether t and o share their backing array.
func (t *Tensor) SameStorage(o *Tensor) bool {
	if t == nil || o == nil || t.dense == nil || o.dense == nil {
		return false
	}
	return t.dense.Uintptr() == o.dense.Uintptr()
}

// cloneTo returns a deep copy of t tagged with dev.
func (t *Tensor) cloneTo(dev Device) *Tensor {
	out := &Tensor{dev: dev, dtype: t.dtype, shape: t.shape.Clone()}
	if t.dense != nil {
		out.dense = t.dense.Clone().(*tensor.Dense)
	}
	return out
}
