package nn

import (
	"math"
	"testing"
)

func TestCrossEntropyFromLogits(t *testing.T) {
	check := func(logits []float64, label int, expected float64) {
		x := NewTensor(len(logits))
		copy(x.Data, logits)
		res := CrossEntropyFromLogits(x, label)
		if math.Abs(res-expected) > 1e-9 {
			t.Errorf("loss(%v, %d) = %v; want %v", logits, label, res, expected)
		}
	}
	// uniform logits: loss is log of the class count
	check([]float64{0, 0}, 0, math.Log(2))
	check([]float64{0, 0, 0}, 2, math.Log(3))
	// shifting all logits must not change the loss
	check([]float64{100, 100}, 1, math.Log(2))
}

func TestCrossEntropyStability(t *testing.T) {
	x := NewTensor(3)
	copy(x.Data, []float64{1000, -1000, 0})
	res := CrossEntropyFromLogits(x, 0)
	if math.IsNaN(res) || math.IsInf(res, 0) {
		t.Errorf("loss with large logits = %v", res)
	}
	if res > 1e-9 {
		t.Errorf("dominant correct logit should give ~0 loss, got %v", res)
	}
}

func TestSoftmax(t *testing.T) {
	x := NewTensor(3)
	copy(x.Data, []float64{1, 2, 3})
	probs := Softmax(x)
	sum := 0.0
	for _, p := range probs.Data {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("softmax sums to %v; want 1", sum)
	}
	if !(probs.Data[2] > probs.Data[1] && probs.Data[1] > probs.Data[0]) {
		t.Errorf("softmax should preserve order: %v", probs.Data)
	}
}

func TestCrossEntropyGrad(t *testing.T) {
	x := NewTensor(3)
	copy(x.Data, []float64{0.5, -1, 2})
	grad := CrossEntropyGrad(x, 1)
	// gradient is softmax - onehot, so it sums to zero
	sum := 0.0
	for _, g := range grad.Data {
		sum += g
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("gradient sums to %v; want 0", sum)
	}
	if grad.Data[1] >= 0 {
		t.Errorf("gradient at the label must be negative, got %v", grad.Data[1])
	}
}
