package nn

import (
	"math"
	"testing"
)

func TestRescaling(t *testing.T) {
	layer := &Rescaling{Factor: 1.0 / 255}
	out, err := layer.Build([]int{2, 2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if !shapeEqual(out, []int{2, 2, 1}) {
		t.Errorf("rescaling changed shape to %v", out)
	}
	x := NewTensor(2, 2, 1)
	copy(x.Data, []float64{0, 51, 102, 255})
	y := layer.Forward(x)
	if y.Data[3] != 1 {
		t.Errorf("255 should rescale to 1, got %v", y.Data[3])
	}
	if y.Data[1] != 0.2 {
		t.Errorf("51 should rescale to 0.2, got %v", y.Data[1])
	}
}

func TestConv2DForward(t *testing.T) {
	layer := &Conv2D{Filters: 1, Size: 2}
	out, err := layer.Build([]int{3, 3, 1})
	if err != nil {
		t.Fatal(err)
	}
	if !shapeEqual(out, []int{2, 2, 1}) {
		t.Fatalf("conv output shape = %v; want [2 2 1]", out)
	}
	// all-ones kernel, zero bias: each output is the sum of a 2x2 window
	for i := range layer.W.Data {
		layer.W.Data[i] = 1
	}
	x := NewTensor(3, 3, 1)
	copy(x.Data, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	y := layer.Forward(x)
	expected := []float64{12, 16, 24, 28}
	for i := range expected {
		if y.Data[i] != expected[i] {
			t.Errorf("conv out[%d] = %v; want %v", i, y.Data[i], expected[i])
		}
	}
}

func TestConv2DRelu(t *testing.T) {
	layer := &Conv2D{Filters: 1, Size: 1, Activation: "relu"}
	if _, err := layer.Build([]int{1, 2, 1}); err != nil {
		t.Fatal(err)
	}
	layer.W.Data[0] = 1
	x := NewTensor(1, 2, 1)
	copy(x.Data, []float64{-3, 4})
	y := layer.Forward(x)
	if y.Data[0] != 0 || y.Data[1] != 4 {
		t.Errorf("relu output = %v; want [0 4]", y.Data)
	}
	// gradient must not flow through the clipped element
	grad := NewTensor(1, 2, 1)
	grad.Data[0] = 1
	grad.Data[1] = 1
	dx := layer.Backward(grad)
	if dx.Data[0] != 0 || dx.Data[1] != 1 {
		t.Errorf("relu grad = %v; want [0 1]", dx.Data)
	}
}

func TestMaxPool2D(t *testing.T) {
	layer := &MaxPool2D{Size: 2}
	out, err := layer.Build([]int{4, 4, 1})
	if err != nil {
		t.Fatal(err)
	}
	if !shapeEqual(out, []int{2, 2, 1}) {
		t.Fatalf("pool output shape = %v; want [2 2 1]", out)
	}
	x := NewTensor(4, 4, 1)
	copy(x.Data, []float64{
		1, 2, 5, 0,
		3, 4, 1, 1,
		0, 0, 9, 2,
		8, 0, 0, 0,
	})
	y := layer.Forward(x)
	expected := []float64{4, 5, 8, 9}
	for i := range expected {
		if y.Data[i] != expected[i] {
			t.Errorf("pool out[%d] = %v; want %v", i, y.Data[i], expected[i])
		}
	}

	// backward routes each gradient to the max element
	grad := NewTensor(2, 2, 1)
	copy(grad.Data, []float64{1, 2, 3, 4})
	dx := layer.Backward(grad)
	if dx.At(1, 1, 0) != 1 {
		t.Errorf("gradient for max at (1,1) = %v; want 1", dx.At(1, 1, 0))
	}
	if dx.At(0, 2, 0) != 2 {
		t.Errorf("gradient for max at (0,2) = %v; want 2", dx.At(0, 2, 0))
	}
	if dx.At(3, 0, 0) != 3 {
		t.Errorf("gradient for max at (3,0) = %v; want 3", dx.At(3, 0, 0))
	}
	if dx.At(2, 2, 0) != 4 {
		t.Errorf("gradient for max at (2,2) = %v; want 4", dx.At(2, 2, 0))
	}
}

func TestFlatten(t *testing.T) {
	layer := &Flatten{}
	out, err := layer.Build([]int{2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if !shapeEqual(out, []int{24}) {
		t.Errorf("flatten output shape = %v; want [24]", out)
	}
	x := NewTensor(2, 3, 4)
	y := layer.Forward(x)
	if len(y.Shape) != 1 || y.Shape[0] != 24 {
		t.Errorf("flatten forward shape = %v", y.Shape)
	}
	grad := NewTensor(24)
	dx := layer.Backward(grad)
	if !shapeEqual(dx.Shape, []int{2, 3, 4}) {
		t.Errorf("flatten backward shape = %v", dx.Shape)
	}
}

func TestDenseForward(t *testing.T) {
	layer := &Dense{Units: 2}
	if _, err := layer.Build([]int{3}); err != nil {
		t.Fatal(err)
	}
	// W is (in, units)
	copy(layer.W.Data, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	copy(layer.B.Data, []float64{0.5, -0.5})
	x := NewTensor(3)
	copy(x.Data, []float64{1, 2, 3})
	y := layer.Forward(x)
	if y.Data[0] != 4.5 || y.Data[1] != 4.5 {
		t.Errorf("dense forward = %v; want [4.5 4.5]", y.Data)
	}
}

// finite-difference check of the dense layer gradients
func TestDenseGradient(t *testing.T) {
	layer := &Dense{Units: 2}
	if _, err := layer.Build([]int{3}); err != nil {
		t.Fatal(err)
	}
	x := NewTensor(3)
	copy(x.Data, []float64{0.3, -0.2, 0.5})
	label := 1

	lossOf := func() float64 {
		return CrossEntropyFromLogits(layer.Forward(x), label)
	}

	logits := layer.Forward(x)
	layer.Backward(CrossEntropyGrad(logits, label))

	const eps = 1e-5
	for i := range layer.W.Data {
		orig := layer.W.Data[i]
		layer.W.Data[i] = orig + eps
		up := lossOf()
		layer.W.Data[i] = orig - eps
		down := lossOf()
		layer.W.Data[i] = orig
		numeric := (up - down) / (2 * eps)
		if math.Abs(numeric-layer.W.Grad[i]) > 1e-4 {
			t.Errorf("W grad[%d] = %v; numeric %v", i, layer.W.Grad[i], numeric)
		}
	}
}

func TestShapeChainErrors(t *testing.T) {
	// dense on 3D input must fail
	dense := &Dense{Units: 4}
	if _, err := dense.Build([]int{2, 2, 3}); err == nil {
		t.Errorf("dense on HWC input should fail")
	}
	// kernel larger than input must fail
	conv := &Conv2D{Filters: 1, Size: 5}
	if _, err := conv.Build([]int{3, 3, 1}); err == nil {
		t.Errorf("oversized kernel should fail")
	}
	// unknown activation must fail
	bad := &Dense{Units: 4, Activation: "swish"}
	if _, err := bad.Build([]int{3}); err == nil {
		t.Errorf("unknown activation should fail")
	}
}
