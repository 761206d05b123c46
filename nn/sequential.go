package nn

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/rand"
	"strings"
)

// Sequential is an ordered stack of layers, Build'ed against a fixed input
// shape and Compile'd with an optimizer and loss before training.
type Sequential struct {
	Layers []Layer

	inShape []int
	outShapes [][]int
	built bool

	optimizer Optimizer
	loss string
	metrics []string
	compiled bool
}

func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{Layers: layers}
}

// Build chains the layer shapes from the given input shape,
// allocating parameters along the way.
func (m *Sequential) Build(inputShape ...int) error {
	shape := make([]int, len(inputShape))
	copy(shape, inputShape)
	m.inShape = shape
	m.outShapes = nil
	for i, layer := range m.Layers {
		out, err := layer.Build(shape)
		if err != nil {
			return fmt.Errorf("layer %d (%s): %v", i, layer.Name(), err)
		}
		m.outShapes = append(m.outShapes, out)
		shape = out
	}
	m.built = true
	return nil
}

// Compile binds the optimizer and loss to the model.
func (m *Sequential) Compile(opt Optimizer, loss string, metrics ...string) error {
	if !m.built {
		return fmt.Errorf("nn: model must be built before compiling")
	}
	if loss != SparseCategoricalCrossentropy {
		return fmt.Errorf("nn: unsupported loss %s", loss)
	}
	for _, metric := range metrics {
		if metric != "accuracy" {
			return fmt.Errorf("nn: unsupported metric %s", metric)
		}
	}
	m.optimizer = opt
	m.loss = loss
	m.metrics = metrics
	m.compiled = true
	return nil
}

func (m *Sequential) Compiled() bool { return m.compiled }

func (m *Sequential) Optimizer() Optimizer { return m.optimizer }

func (m *Sequential) Loss() string { return m.loss }

func (m *Sequential) Metrics() []string { return m.metrics }

func (m *Sequential) InputShape() []int { return m.inShape }

// OutputShape returns the shape produced by the final layer.
func (m *Sequential) OutputShape() []int {
	if len(m.outShapes) == 0 {
		return m.inShape
	}
	return m.outShapes[len(m.outShapes)-1]
}

func (m *Sequential) Params() []*Tensor {
	var params []*Tensor
	for _, layer := range m.Layers {
		params = append(params, layer.Params()...)
	}
	return params
}

// Forward runs one sample through the stack and returns the logits.
func (m *Sequential) Forward(x *Tensor) *Tensor {
	for _, layer := range m.Layers {
		x = layer.Forward(x)
	}
	return x
}

// Backward propagates the loss gradient back through the stack,
// accumulating parameter gradients.
func (m *Sequential) Backward(grad *Tensor) {
	for i := len(m.Layers) - 1; i >= 0; i-- {
		grad = m.Layers[i].Backward(grad)
	}
}

// Predict returns the per-class probabilities for one sample.
func (m *Sequential) Predict(x *Tensor) *Tensor {
	return Softmax(m.Forward(x))
}

// EpochStats is the result of one training epoch.
type EpochStats struct {
	Epoch int
	Loss float64
	Acc float64
	ValLoss float64
	ValAcc float64
}

type FitOptions struct {
	Epochs int
	BatchSize int
	Shuffle bool
	// Called after each epoch, e.g. to report progress to a job.
	OnEpoch func(stats EpochStats)
	// Checked between epochs; training ends early when it returns true.
	Stop func() bool
}

// Fit trains on (xs, ys) for the configured number of epochs, evaluating on
// (valXs, valYs) after each epoch when provided. Gradients are averaged over
// each mini-batch before the optimizer step.
func (m *Sequential) Fit(xs []*Tensor, ys []int, valXs []*Tensor, valYs []int, opts FitOptions) ([]EpochStats, error) {
	if !m.compiled {
		return nil, fmt.Errorf("nn: model must be compiled before training")
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("nn: no training samples")
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("nn: got %d samples but %d labels", len(xs), len(ys))
	}
	if len(valXs) != len(valYs) {
		return nil, fmt.Errorf("nn: got %d val samples but %d val labels", len(valXs), len(valYs))
	}
	classes := m.OutputShape()[0]
	if err := checkLabels(ys, classes); err != nil {
		return nil, err
	}
	if err := checkLabels(valYs, classes); err != nil {
		return nil, err
	}
	if opts.Epochs == 0 {
		opts.Epochs = 10
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 32
	}

	params := m.Params()
	var history []EpochStats
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if opts.Shuffle {
			rand.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		totalLoss := 0.0
		correct := 0
		for start := 0; start < len(order); start += opts.BatchSize {
			end := start + opts.BatchSize
			if end > len(order) {
				end = len(order)
			}
			m.optimizer.ZeroGrad(params)
			for _, idx := range order[start:end] {
				logits := m.Forward(xs[idx])
				totalLoss += CrossEntropyFromLogits(logits, ys[idx])
				if logits.Argmax() == ys[idx] {
					correct++
				}
				m.Backward(CrossEntropyGrad(logits, ys[idx]))
			}
			// average gradients over the mini-batch
			scale := 1.0 / float64(end-start)
			for _, p := range params {
				for i := range p.Grad {
					p.Grad[i] *= scale
				}
			}
			m.optimizer.Step(params)
		}

		stats := EpochStats{
			Epoch: epoch + 1,
			Loss: totalLoss / float64(len(order)),
			Acc: float64(correct) / float64(len(order)),
		}
		if len(valXs) > 0 {
			valLoss, valAcc, err := m.Evaluate(valXs, valYs)
			if err != nil {
				return history, err
			}
			stats.ValLoss = valLoss
			stats.ValAcc = valAcc
		}
		history = append(history, stats)
		if opts.OnEpoch != nil {
			opts.OnEpoch(stats)
		}
		if opts.Stop != nil && opts.Stop() {
			break
		}
	}

	return history, nil
}

// checkLabels verifies every label indexes a valid output class.
func checkLabels(ys []int, classes int) error {
	for i, y := range ys {
		if y < 0 || y >= classes {
			return fmt.Errorf("nn: label %d at index %d out of range for %d classes", y, i, classes)
		}
	}
	return nil
}

// Evaluate computes the mean loss and accuracy over a labeled set.
func (m *Sequential) Evaluate(xs []*Tensor, ys []int) (loss float64, acc float64, err error) {
	if len(xs) == 0 {
		return 0, 0, nil
	}
	if len(xs) != len(ys) {
		return 0, 0, fmt.Errorf("nn: got %d samples but %d labels", len(xs), len(ys))
	}
	if err := checkLabels(ys, m.OutputShape()[0]); err != nil {
		return 0, 0, err
	}
	correct := 0
	for i, x := range xs {
		logits := m.Forward(x)
		loss += CrossEntropyFromLogits(logits, ys[i])
		if logits.Argmax() == ys[i] {
			correct++
		}
	}
	return loss / float64(len(xs)), float64(correct) / float64(len(xs)), nil
}

// Summary returns a layer table in the style of a model summary:
// name, output shape, parameter count per layer.
func (m *Sequential) Summary() string {
	var b strings.Builder
	total := 0
	fmt.Fprintf(&b, "%-16s %-16s %s\n", "Layer", "Output Shape", "Params")
	for i, layer := range m.Layers {
		count := 0
		for _, p := range layer.Params() {
			count += p.Size()
		}
		total += count
		shape := "?"
		if i < len(m.outShapes) {
			shape = fmt.Sprintf("%v", m.outShapes[i])
		}
		fmt.Fprintf(&b, "%-16s %-16s %d\n", layer.Name(), shape, count)
	}
	fmt.Fprintf(&b, "Total params: %d\n", total)
	return b.String()
}

type savedParam struct {
	Shape []int
	Data []float64
}

type savedLayer struct {
	Name string
	Params []savedParam
}

type savedWeights struct {
	Layers []savedLayer
}

// SaveWeights writes all parameters to a JSON checkpoint file.
func (m *Sequential) SaveWeights(fname string) error {
	var saved savedWeights
	for _, layer := range m.Layers {
		sl := savedLayer{Name: layer.Name()}
		for _, p := range layer.Params() {
			sl.Params = append(sl.Params, savedParam{
				Shape: p.Shape,
				Data: p.Data,
			})
		}
		saved.Layers = append(saved.Layers, sl)
	}
	bytes, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(fname, bytes, 0644)
}

// LoadWeights restores parameters from a checkpoint written by SaveWeights.
// The model must already be built with a matching architecture.
func (m *Sequential) LoadWeights(fname string) error {
	bytes, err := ioutil.ReadFile(fname)
	if err != nil {
		return err
	}
	var saved savedWeights
	if err := json.Unmarshal(bytes, &saved); err != nil {
		return err
	}
	if len(saved.Layers) != len(m.Layers) {
		return fmt.Errorf("nn: checkpoint has %d layers, model has %d", len(saved.Layers), len(m.Layers))
	}
	for i, layer := range m.Layers {
		params := layer.Params()
		sl := saved.Layers[i]
		if sl.Name != layer.Name() {
			return fmt.Errorf("nn: checkpoint layer %d is %s, model has %s", i, sl.Name, layer.Name())
		}
		if len(sl.Params) != len(params) {
			return fmt.Errorf("nn: checkpoint layer %s has %d params, model has %d", sl.Name, len(sl.Params), len(params))
		}
		for j, p := range params {
			if !shapeEqual(p.Shape, sl.Params[j].Shape) {
				return fmt.Errorf("nn: checkpoint param shape %v does not match %v", sl.Params[j].Shape, p.Shape)
			}
			copy(p.Data, sl.Params[j].Data)
		}
	}
	return nil
}
