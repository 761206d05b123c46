package nn

import (
	"math"
)

// Optimizer updates parameters from their accumulated gradients.
// The learning rate lives in the optimizer, so a compiled model is
// the architecture plus its update rule.
type Optimizer interface {
	Name() string
	Step(params []*Tensor)
	ZeroGrad(params []*Tensor)
}

type SGD struct {
	LR float64
}

func NewSGD(lr float64) *SGD {
	if lr == 0 {
		lr = 0.01
	}
	return &SGD{LR: lr}
}

func (opt *SGD) Name() string { return "sgd" }

func (opt *SGD) Step(params []*Tensor) {
	for _, p := range params {
		for i := range p.Data {
			p.Data[i] -= opt.LR * p.Grad[i]
		}
	}
}

func (opt *SGD) ZeroGrad(params []*Tensor) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// Adam keeps per-parameter first and second moment estimates with bias
// correction. Moment buffers are allocated lazily on the first Step so that
// the optimizer can be constructed before the network is built.
type Adam struct {
	LR float64
	Beta1 float64
	Beta2 float64
	Epsilon float64

	m []*Tensor
	v []*Tensor
	t int
}

func NewAdam(lr float64) *Adam {
	if lr == 0 {
		lr = 0.001
	}
	return &Adam{
		LR: lr,
		Beta1: 0.9,
		Beta2: 0.999,
		Epsilon: 1e-7,
	}
}

func (opt *Adam) Name() string { return "adam" }

func (opt *Adam) Step(params []*Tensor) {
	if opt.m == nil {
		opt.m = make([]*Tensor, len(params))
		opt.v = make([]*Tensor, len(params))
		for i, p := range params {
			opt.m[i] = NewTensor(p.Shape...)
			opt.v[i] = NewTensor(p.Shape...)
		}
	}
	opt.t++
	bias1 := 1.0 - math.Pow(opt.Beta1, float64(opt.t))
	bias2 := 1.0 - math.Pow(opt.Beta2, float64(opt.t))
	for i, p := range params {
		m := opt.m[i]
		v := opt.v[i]
		for j := range p.Data {
			g := p.Grad[j]
			m.Data[j] = opt.Beta1*m.Data[j] + (1.0-opt.Beta1)*g
			v.Data[j] = opt.Beta2*v.Data[j] + (1.0-opt.Beta2)*g*g
			mHat := m.Data[j] / bias1
			vHat := v.Data[j] / bias2
			p.Data[j] -= opt.LR * mHat / (math.Sqrt(vHat) + opt.Epsilon)
		}
	}
}

func (opt *Adam) ZeroGrad(params []*Tensor) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
