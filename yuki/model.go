package yuki

import (
	"fmt"
	"os"

	"github.com/yukivision/yukivision/nn"
)

// Layer types understood by BuildModel.
const (
	RescaleLayer = "rescale"
	ConvLayer = "conv"
	PoolLayer = "pool"
	FlattenLayer = "flatten"
	DenseLayer = "dense"
)

// LayerConfig is one stage of a model architecture.
// Only the fields relevant to Type are set.
type LayerConfig struct {
	Type string
	// Rescale multiplier, e.g. 1/255 to map pixel bytes into [0, 1].
	Factor float64
	// Conv filter count.
	Filters int
	// Conv kernel size / pool window size.
	Size int
	// Dense output width.
	Units int
	// "relu" or empty for linear.
	Activation string
}

type CompileConfig struct {
	// "adam" or "sgd"
	Optimizer string
	LearningRate float64
	// currently only "sparse_categorical_crossentropy"
	Loss string
	// Whether the final layer emits logits rather than probabilities.
	FromLogits bool
	Metrics []string
}

// ModelConfig is the declarative architecture plus compile parameters,
// JSON-encodable so it can be stored in the models table.
type ModelConfig struct {
	// Input images are resized to InputSize x InputSize with Channels channels.
	InputSize int
	Channels int
	Layers []LayerConfig
	Compile CompileConfig
}

// DefaultConfig returns the stock tree/plastic/other classifier:
// two conv/pool stages to pick out features (leaves, plastic, etc.)
// followed by dense layers down to one logit per class.
func DefaultConfig() ModelConfig {
	return ModelConfig{
		InputSize: 180,
		Channels: 3,
		Layers: []LayerConfig{
			{Type: RescaleLayer, Factor: 1.0 / 255},
			{Type: ConvLayer, Filters: 32, Size: 3, Activation: "relu"},
			{Type: PoolLayer, Size: 2},
			{Type: ConvLayer, Filters: 64, Size: 3, Activation: "relu"},
			{Type: PoolLayer, Size: 2},
			{Type: FlattenLayer},
			{Type: DenseLayer, Units: 64, Activation: "relu"},
			{Type: DenseLayer, Units: len(DefaultClasses)},
		},
		Compile: CompileConfig{
			Optimizer: "adam",
			LearningRate: 0.001,
			Loss: nn.SparseCategoricalCrossentropy,
			FromLogits: true,
			Metrics: []string{"accuracy"},
		},
	}
}

// BuildModel turns a ModelConfig into a built, compiled network.
func BuildModel(cfg ModelConfig) (*nn.Sequential, error) {
	var layers []nn.Layer
	for _, lc := range cfg.Layers {
		switch lc.Type {
		case RescaleLayer:
			layers = append(layers, &nn.Rescaling{Factor: lc.Factor})
		case ConvLayer:
			layers = append(layers, &nn.Conv2D{
				Filters: lc.Filters,
				Size: lc.Size,
				Activation: lc.Activation,
			})
		case PoolLayer:
			layers = append(layers, &nn.MaxPool2D{Size: lc.Size})
		case FlattenLayer:
			layers = append(layers, &nn.Flatten{})
		case DenseLayer:
			layers = append(layers, &nn.Dense{
				Units: lc.Units,
				Activation: lc.Activation,
			})
		default:
			return nil, fmt.Errorf("unknown layer type %s", lc.Type)
		}
	}
	model := nn.NewSequential(layers...)
	if err := model.Build(cfg.InputSize, cfg.InputSize, cfg.Channels); err != nil {
		return nil, err
	}

	// the network emits raw logits, so the loss must expect them
	if !cfg.Compile.FromLogits {
		return nil, fmt.Errorf("loss must be computed from logits")
	}

	var opt nn.Optimizer
	lr := cfg.Compile.LearningRate
	switch cfg.Compile.Optimizer {
	case "adam":
		opt = nn.NewAdam(lr)
	case "sgd":
		opt = nn.NewSGD(lr)
	default:
		return nil, fmt.Errorf("unknown optimizer %s", cfg.Compile.Optimizer)
	}
	if err := model.Compile(opt, cfg.Compile.Loss, cfg.Compile.Metrics...); err != nil {
		return nil, err
	}
	return model, nil
}

// ImageTensor converts an image to an HWC tensor of raw byte values;
// rescaling into [0, 1] is the model's first layer, as in the architecture.
func ImageTensor(im Image) *nn.Tensor {
	t := nn.NewTensor(im.Height, im.Width, 3)
	for i := range im.Bytes {
		t.Data[i] = float64(im.Bytes[i])
	}
	return t
}

// Model is the stored entity: a named configuration plus trained state.
type Model struct {
	ID int
	Name string
	Config ModelConfig
	Trained bool
}

func (m Model) WeightsFname() string {
	return fmt.Sprintf("models/%d.weights.json", m.ID)
}

func (m Model) MkdirWeights() {
	os.MkdirAll("models", 0755)
}
