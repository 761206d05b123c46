package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// Tensor is a dense float64 array in row-major order.
// Grad has the same length as Data and accumulates gradients during Backward.
// Tensors are not safe for concurrent use.
type Tensor struct {
	Shape []int
	Data []float64
	Grad []float64
}

func shapeSize(shape []int) int {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return size
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func NewTensor(shape ...int) *Tensor {
	if len(shape) == 0 {
		panic("nn: shape cannot be empty")
	}
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("nn: shape[%d] must be positive, got %d", i, dim))
		}
	}
	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)
	size := shapeSize(shape)
	return &Tensor{
		Shape: shapeCopy,
		Data: make([]float64, size),
		Grad: make([]float64, size),
	}
}

// NewTensorUniform creates a tensor with values drawn uniformly from
// [-limit, limit]. Used for Glorot-style weight initialization.
func NewTensorUniform(limit float64, shape ...int) *Tensor {
	t := NewTensor(shape...)
	for i := range t.Data {
		t.Data[i] = (2*rand.Float64() - 1) * limit
	}
	return t
}

// GlorotLimit returns the uniform init bound sqrt(6 / (fanIn + fanOut)).
func GlorotLimit(fanIn, fanOut int) float64 {
	return math.Sqrt(6.0 / float64(fanIn+fanOut))
}

func (t *Tensor) Size() int {
	return len(t.Data)
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("nn: expected %d indices, got %d", len(t.Shape), len(indices)))
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			panic(fmt.Sprintf("nn: index[%d]=%d out of bounds [0,%d)", i, indices[i], t.Shape[i]))
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}
	return idx
}

func (t *Tensor) At(indices ...int) float64 {
	return t.Data[t.flatIndex(indices)]
}

func (t *Tensor) Set(value float64, indices ...int) {
	t.Data[t.flatIndex(indices)] = value
}

func (t *Tensor) ZeroGrad() {
	for i := range t.Grad {
		t.Grad[i] = 0
	}
}

// Reshape returns a view sharing Data and Grad with a new shape.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	if shapeSize(shape) != len(t.Data) {
		panic(fmt.Sprintf("nn: cannot reshape size %d to %v", len(t.Data), shape))
	}
	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)
	return &Tensor{
		Shape: shapeCopy,
		Data: t.Data,
		Grad: t.Grad,
	}
}

func (t *Tensor) Copy() *Tensor {
	out := NewTensor(t.Shape...)
	copy(out.Data, t.Data)
	copy(out.Grad, t.Grad)
	return out
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v)", t.Shape)
}

// Argmax returns the index of the largest element of a 1D tensor.
func (t *Tensor) Argmax() int {
	best := 0
	for i := 1; i < len(t.Data); i++ {
		if t.Data[i] > t.Data[best] {
			best = i
		}
	}
	return best
}
