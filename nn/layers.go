package nn

import (
	"fmt"
)

// Layer is one stage of a Sequential network.
// Build is called once with the input shape; it validates shape chaining and
// allocates any parameters. Forward caches whatever Backward needs, so a
// layer instance must not be shared between networks.
type Layer interface {
	Name() string
	Build(in []int) (out []int, err error)
	Forward(x *Tensor) *Tensor
	Backward(grad *Tensor) *Tensor
	Params() []*Tensor
}

func checkActivation(name string) error {
	if name != "" && name != "relu" {
		return fmt.Errorf("nn: unknown activation %s", name)
	}
	return nil
}

// Rescaling multiplies every element by a constant factor,
// e.g. 1/255 to map pixel bytes into [0, 1].
type Rescaling struct {
	Factor float64
}

func (l *Rescaling) Name() string { return "rescaling" }

func (l *Rescaling) Build(in []int) ([]int, error) {
	return in, nil
}

func (l *Rescaling) Forward(x *Tensor) *Tensor {
	out := NewTensor(x.Shape...)
	for i := range x.Data {
		out.Data[i] = x.Data[i] * l.Factor
	}
	return out
}

func (l *Rescaling) Backward(grad *Tensor) *Tensor {
	out := NewTensor(grad.Shape...)
	for i := range grad.Data {
		out.Data[i] = grad.Data[i] * l.Factor
	}
	return out
}

func (l *Rescaling) Params() []*Tensor { return nil }

// Conv2D is a 2D convolution over HWC input, valid padding, stride 1.
// Weights are (Size, Size, channels, Filters) with one bias per filter.
type Conv2D struct {
	Filters int
	Size int
	Activation string

	W *Tensor
	B *Tensor

	inShape []int
	x *Tensor
	z *Tensor
}

func (l *Conv2D) Name() string { return "conv2d" }

func (l *Conv2D) Build(in []int) ([]int, error) {
	if len(in) != 3 {
		return nil, fmt.Errorf("nn: conv2d expects HWC input, got shape %v", in)
	}
	if err := checkActivation(l.Activation); err != nil {
		return nil, err
	}
	h, w, c := in[0], in[1], in[2]
	if h < l.Size || w < l.Size {
		return nil, fmt.Errorf("nn: conv2d kernel %d larger than input %dx%d", l.Size, h, w)
	}
	if l.W == nil {
		fanIn := l.Size * l.Size * c
		fanOut := l.Size * l.Size * l.Filters
		l.W = NewTensorUniform(GlorotLimit(fanIn, fanOut), l.Size, l.Size, c, l.Filters)
		l.B = NewTensor(l.Filters)
	}
	l.inShape = in
	return []int{h - l.Size + 1, w - l.Size + 1, l.Filters}, nil
}

func (l *Conv2D) Forward(x *Tensor) *Tensor {
	h, w, c := l.inShape[0], l.inShape[1], l.inShape[2]
	outH, outW := h-l.Size+1, w-l.Size+1
	z := NewTensor(outH, outW, l.Filters)
	for i := 0; i < outH; i++ {
		for j := 0; j < outW; j++ {
			for f := 0; f < l.Filters; f++ {
				sum := l.B.Data[f]
				for di := 0; di < l.Size; di++ {
					xRow := ((i+di)*w + j) * c
					wRow := ((di*l.Size)*c)*l.Filters + f
					for dj := 0; dj < l.Size; dj++ {
						for ch := 0; ch < c; ch++ {
							sum += x.Data[xRow+dj*c+ch] * l.W.Data[wRow+(dj*c+ch)*l.Filters]
						}
					}
				}
				z.Data[(i*outW+j)*l.Filters+f] = sum
			}
		}
	}
	l.x = x
	l.z = z
	if l.Activation == "relu" {
		out := NewTensor(z.Shape...)
		for i := range z.Data {
			if z.Data[i] > 0 {
				out.Data[i] = z.Data[i]
			}
		}
		return out
	}
	return z
}

func (l *Conv2D) Backward(grad *Tensor) *Tensor {
	h, w, c := l.inShape[0], l.inShape[1], l.inShape[2]
	outH, outW := h-l.Size+1, w-l.Size+1
	dx := NewTensor(h, w, c)
	for i := 0; i < outH; i++ {
		for j := 0; j < outW; j++ {
			for f := 0; f < l.Filters; f++ {
				g := grad.Data[(i*outW+j)*l.Filters+f]
				if l.Activation == "relu" && l.z.Data[(i*outW+j)*l.Filters+f] <= 0 {
					continue
				}
				if g == 0 {
					continue
				}
				l.B.Grad[f] += g
				for di := 0; di < l.Size; di++ {
					for dj := 0; dj < l.Size; dj++ {
						for ch := 0; ch < c; ch++ {
							xIdx := (((i+di)*w)+(j+dj))*c + ch
							wIdx := (((di*l.Size)+dj)*c+ch)*l.Filters + f
							l.W.Grad[wIdx] += l.x.Data[xIdx] * g
							dx.Data[xIdx] += l.W.Data[wIdx] * g
						}
					}
				}
			}
		}
	}
	return dx
}

func (l *Conv2D) Params() []*Tensor {
	return []*Tensor{l.W, l.B}
}

// MaxPool2D downsamples HWC input by taking the max over non-overlapping
// Size x Size windows (stride equal to the window size).
type MaxPool2D struct {
	Size int

	inShape []int
	argmax []int
}

func (l *MaxPool2D) Name() string { return "max_pooling2d" }

func (l *MaxPool2D) Build(in []int) ([]int, error) {
	if len(in) != 3 {
		return nil, fmt.Errorf("nn: max_pooling2d expects HWC input, got shape %v", in)
	}
	h, w, c := in[0], in[1], in[2]
	if h < l.Size || w < l.Size {
		return nil, fmt.Errorf("nn: pool window %d larger than input %dx%d", l.Size, h, w)
	}
	l.inShape = in
	return []int{h / l.Size, w / l.Size, c}, nil
}

func (l *MaxPool2D) Forward(x *Tensor) *Tensor {
	h, w, c := l.inShape[0], l.inShape[1], l.inShape[2]
	outH, outW := h/l.Size, w/l.Size
	out := NewTensor(outH, outW, c)
	l.argmax = make([]int, len(out.Data))
	for i := 0; i < outH; i++ {
		for j := 0; j < outW; j++ {
			for ch := 0; ch < c; ch++ {
				bestIdx := ((i*l.Size)*w+(j*l.Size))*c + ch
				best := x.Data[bestIdx]
				for di := 0; di < l.Size; di++ {
					for dj := 0; dj < l.Size; dj++ {
						idx := ((i*l.Size+di)*w+(j*l.Size+dj))*c + ch
						if x.Data[idx] > best {
							best = x.Data[idx]
							bestIdx = idx
						}
					}
				}
				outIdx := (i*outW+j)*c + ch
				out.Data[outIdx] = best
				l.argmax[outIdx] = bestIdx
			}
		}
	}
	return out
}

func (l *MaxPool2D) Backward(grad *Tensor) *Tensor {
	dx := NewTensor(l.inShape...)
	for i, g := range grad.Data {
		dx.Data[l.argmax[i]] += g
	}
	return dx
}

func (l *MaxPool2D) Params() []*Tensor { return nil }

// Flatten collapses any input into a 1D vector.
type Flatten struct {
	inShape []int
}

func (l *Flatten) Name() string { return "flatten" }

func (l *Flatten) Build(in []int) ([]int, error) {
	l.inShape = in
	return []int{shapeSize(in)}, nil
}

func (l *Flatten) Forward(x *Tensor) *Tensor {
	return x.Reshape(len(x.Data))
}

func (l *Flatten) Backward(grad *Tensor) *Tensor {
	return grad.Reshape(l.inShape...)
}

func (l *Flatten) Params() []*Tensor { return nil }

// Dense is a fully-connected layer over 1D input.
// Weights are (in, Units) with one bias per unit.
type Dense struct {
	Units int
	Activation string

	W *Tensor
	B *Tensor

	in int
	x *Tensor
	z *Tensor
}

func (l *Dense) Name() string { return "dense" }

func (l *Dense) Build(in []int) ([]int, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("nn: dense expects 1D input, got shape %v (flatten first)", in)
	}
	if err := checkActivation(l.Activation); err != nil {
		return nil, err
	}
	if l.W == nil {
		l.W = NewTensorUniform(GlorotLimit(in[0], l.Units), in[0], l.Units)
		l.B = NewTensor(l.Units)
	}
	l.in = in[0]
	return []int{l.Units}, nil
}

func (l *Dense) Forward(x *Tensor) *Tensor {
	z := NewTensor(l.Units)
	for u := 0; u < l.Units; u++ {
		sum := l.B.Data[u]
		for i := 0; i < l.in; i++ {
			sum += x.Data[i] * l.W.Data[i*l.Units+u]
		}
		z.Data[u] = sum
	}
	l.x = x
	l.z = z
	if l.Activation == "relu" {
		out := NewTensor(l.Units)
		for i := range z.Data {
			if z.Data[i] > 0 {
				out.Data[i] = z.Data[i]
			}
		}
		return out
	}
	return z
}

func (l *Dense) Backward(grad *Tensor) *Tensor {
	dx := NewTensor(l.in)
	for u := 0; u < l.Units; u++ {
		g := grad.Data[u]
		if l.Activation == "relu" && l.z.Data[u] <= 0 {
			continue
		}
		if g == 0 {
			continue
		}
		l.B.Grad[u] += g
		for i := 0; i < l.in; i++ {
			l.W.Grad[i*l.Units+u] += l.x.Data[i] * g
			dx.Data[i] += l.W.Data[i*l.Units+u] * g
		}
	}
	return dx
}

func (l *Dense) Params() []*Tensor {
	return []*Tensor{l.W, l.B}
}
