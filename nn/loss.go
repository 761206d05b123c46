package nn

import (
	"fmt"
	"math"
)

// SparseCategoricalCrossentropy is the only loss currently supported:
// integer class labels against per-class logits.
const SparseCategoricalCrossentropy = "sparse_categorical_crossentropy"

// CrossEntropyFromLogits computes -log softmax(logits)[label] for one sample
// using the log-sum-exp trick for stability.
func CrossEntropyFromLogits(logits *Tensor, label int) float64 {
	if len(logits.Shape) != 1 {
		panic("nn: loss expects 1D logits")
	}
	if label < 0 || label >= len(logits.Data) {
		panic(fmt.Sprintf("nn: label %d out of range for %d classes", label, len(logits.Data)))
	}
	maxLogit := logits.Data[0]
	for _, v := range logits.Data[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	sumExp := 0.0
	for _, v := range logits.Data {
		sumExp += math.Exp(v - maxLogit)
	}
	logSumExp := maxLogit + math.Log(sumExp)
	return logSumExp - logits.Data[label]
}

// CrossEntropyGrad returns the gradient of the loss with respect to
// the logits: softmax(logits) - onehot(label).
func CrossEntropyGrad(logits *Tensor, label int) *Tensor {
	probs := Softmax(logits)
	probs.Data[label] -= 1
	return probs
}

// Softmax converts 1D logits to probabilities.
func Softmax(logits *Tensor) *Tensor {
	out := NewTensor(len(logits.Data))
	maxLogit := logits.Data[0]
	for _, v := range logits.Data[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	sum := 0.0
	for i, v := range logits.Data {
		out.Data[i] = math.Exp(v - maxLogit)
		sum += out.Data[i]
	}
	for i := range out.Data {
		out.Data[i] /= sum
	}
	return out
}
