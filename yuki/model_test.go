package yuki

import (
	"testing"

	"github.com/yukivision/yukivision/nn"
)

// The stock classifier must match the published architecture exactly:
// rescale -> conv(32) -> pool -> conv(64) -> pool -> flatten -> dense(64) -> dense(3).
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.InputSize != 180 || cfg.Channels != 3 {
		t.Errorf("input = %dx%dx%d; want 180x180x3", cfg.InputSize, cfg.InputSize, cfg.Channels)
	}

	expected := []LayerConfig{
		{Type: RescaleLayer, Factor: 1.0 / 255},
		{Type: ConvLayer, Filters: 32, Size: 3, Activation: "relu"},
		{Type: PoolLayer, Size: 2},
		{Type: ConvLayer, Filters: 64, Size: 3, Activation: "relu"},
		{Type: PoolLayer, Size: 2},
		{Type: FlattenLayer},
		{Type: DenseLayer, Units: 64, Activation: "relu"},
		{Type: DenseLayer, Units: 3},
	}
	if len(cfg.Layers) != len(expected) {
		t.Fatalf("got %d layers; want %d", len(cfg.Layers), len(expected))
	}
	for i, lc := range cfg.Layers {
		if lc != expected[i] {
			t.Errorf("layer %d = %+v; want %+v", i, lc, expected[i])
		}
	}

	if cfg.Compile.Optimizer != "adam" {
		t.Errorf("optimizer = %s; want adam", cfg.Compile.Optimizer)
	}
	if cfg.Compile.Loss != nn.SparseCategoricalCrossentropy {
		t.Errorf("loss = %s", cfg.Compile.Loss)
	}
	if !cfg.Compile.FromLogits {
		t.Errorf("loss must be computed from logits")
	}
	if len(cfg.Compile.Metrics) != 1 || cfg.Compile.Metrics[0] != "accuracy" {
		t.Errorf("metrics = %v; want [accuracy]", cfg.Compile.Metrics)
	}
}

func TestBuildModel(t *testing.T) {
	model, err := BuildModel(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !model.Compiled() {
		t.Errorf("BuildModel must return a compiled model")
	}
	if model.Optimizer().Name() != "adam" {
		t.Errorf("optimizer = %s; want adam", model.Optimizer().Name())
	}
	if model.Loss() != nn.SparseCategoricalCrossentropy {
		t.Errorf("loss = %s", model.Loss())
	}

	// one logit per class
	out := model.OutputShape()
	if len(out) != 1 || out[0] != len(DefaultClasses) {
		t.Errorf("output shape = %v; want [%d]", out, len(DefaultClasses))
	}

	names := []string{
		"rescaling", "conv2d", "max_pooling2d", "conv2d",
		"max_pooling2d", "flatten", "dense", "dense",
	}
	if len(model.Layers) != len(names) {
		t.Fatalf("got %d layers; want %d", len(model.Layers), len(names))
	}
	for i, layer := range model.Layers {
		if layer.Name() != names[i] {
			t.Errorf("layer %d = %s; want %s", i, layer.Name(), names[i])
		}
	}
}

func TestBuildModelErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Layers[0].Type = "dropout"
	if _, err := BuildModel(cfg); err == nil {
		t.Errorf("unknown layer type should fail")
	}

	cfg = DefaultConfig()
	cfg.Compile.Optimizer = "rmsprop"
	if _, err := BuildModel(cfg); err == nil {
		t.Errorf("unknown optimizer should fail")
	}

	// the engine has no probability-output loss
	cfg = DefaultConfig()
	cfg.Compile.FromLogits = false
	if _, err := BuildModel(cfg); err == nil {
		t.Errorf("FromLogits=false should fail")
	}

	// dense before flatten breaks shape chaining
	cfg = DefaultConfig()
	cfg.Layers = []LayerConfig{
		{Type: ConvLayer, Filters: 8, Size: 3, Activation: "relu"},
		{Type: DenseLayer, Units: 4},
	}
	if _, err := BuildModel(cfg); err == nil {
		t.Errorf("dense on HWC input should fail")
	}
}

func TestImageTensor(t *testing.T) {
	im := NewImage(2, 2)
	im.SetRGB(1, 0, [3]uint8{255, 0, 128})
	x := ImageTensor(im)
	if len(x.Shape) != 3 || x.Shape[0] != 2 || x.Shape[1] != 2 || x.Shape[2] != 3 {
		t.Fatalf("tensor shape = %v; want [2 2 3]", x.Shape)
	}
	if x.At(0, 1, 0) != 255 || x.At(0, 1, 1) != 0 || x.At(0, 1, 2) != 128 {
		t.Errorf("pixel (1,0) = [%v %v %v]; want [255 0 128]",
			x.At(0, 1, 0), x.At(0, 1, 1), x.At(0, 1, 2))
	}
}
