package network

import (
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// BuilderConfig controls architecture assembly
type BuilderConfig struct {
	HiddenSizes []int   `json:"hidden_sizes"` // widths of the hidden stack
	Dropout     float64 `json:"dropout"`
	BatchNorm   bool    `json:"batch_norm"`
}

// getDefaultBuilderConfig returns the stock two-hidden-layer stack
func getDefaultBuilderConfig() *BuilderConfig {
	return &BuilderConfig{
		HiddenSizes: []int{64, 32},
		Dropout:     0.1,
	}
}

// ArchitectureBuilder assembles ordered layer configurations for one of
// the supported architecture presets and validates shapes before any
// weight is allocated.
type ArchitectureBuilder struct {
	logger *logrus.Logger
	config *BuilderConfig
}

// NewArchitectureBuilder creates a builder. Nil config or logger get
// defaults.
func NewArchitectureBuilder(config *BuilderConfig, logger *logrus.Logger) *ArchitectureBuilder {
	if config == nil {
		config = getDefaultBuilderConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ArchitectureBuilder{logger: logger, config: config}
}

// Build assembles an immutable NetworkConfig for the given architecture.
// Fails fast on invalid shapes; callers never see a partially built
// config.
func (b *ArchitectureBuilder) Build(arch models.Architecture, inputFeatures, outputSize int) (*models.NetworkConfig, error) {
	if inputFeatures <= 0 || outputSize <= 0 {
		return nil, errors.NewValidationError("INVALID_NETWORK_SHAPE", "input features and output size must be positive").
			WithContext("input_features", inputFeatures).
			WithContext("output_size", outputSize)
	}

	var layers []models.LayerConfig
	switch arch {
	case models.ArchitectureDense:
		layers = b.denseStack(inputFeatures, outputSize)
	case models.ArchitectureLSTM:
		layers = b.lstmStack(inputFeatures, outputSize)
	case models.ArchitectureConv:
		layers = b.convStack(inputFeatures, outputSize)
	case models.ArchitectureAttention:
		layers = b.attentionStack(inputFeatures, outputSize)
	case models.ArchitectureHybrid:
		layers = b.hybridStack(inputFeatures, outputSize)
	default:
		return nil, errors.NewValidationError("UNKNOWN_ARCHITECTURE", "unknown architecture").
			WithContext("architecture", string(arch))
	}

	config := &models.NetworkConfig{
		Layers:        layers,
		InputFeatures: inputFeatures,
		OutputSize:    outputSize,
		Architecture:  arch,
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"architecture":   arch,
		"layers":         len(layers),
		"input_features": inputFeatures,
		"output_size":    outputSize,
	}).Debug("Built network architecture")

	return config, nil
}

func (b *ArchitectureBuilder) denseStack(in, out int) []models.LayerConfig {
	var layers []models.LayerConfig
	prev := in
	for _, h := range b.config.HiddenSizes {
		layers = append(layers, models.LayerConfig{
			Type:       models.LayerDense,
			InputSize:  prev,
			OutputSize: h,
			Activation: models.ActivationLeakyReLU,
			Dropout:    b.config.Dropout,
			BatchNorm:  b.config.BatchNorm,
		})
		prev = h
	}
	layers = append(layers, outputLayer(prev, out))
	return layers
}

func (b *ArchitectureBuilder) lstmStack(in, out int) []models.LayerConfig {
	hidden := firstHidden(b.config.HiddenSizes)
	return []models.LayerConfig{
		{Type: models.LayerLSTM, InputSize: in, OutputSize: hidden, Activation: models.ActivationTanh, Dropout: b.config.Dropout},
		{Type: models.LayerDense, InputSize: hidden, OutputSize: hidden / 2, Activation: models.ActivationLeakyReLU},
		outputLayer(hidden/2, out),
	}
}

func (b *ArchitectureBuilder) convStack(in, out int) []models.LayerConfig {
	hidden := firstHidden(b.config.HiddenSizes)
	return []models.LayerConfig{
		{Type: models.LayerConv, InputSize: in, OutputSize: hidden, Activation: models.ActivationLeakyReLU, BatchNorm: b.config.BatchNorm},
		{Type: models.LayerConv, InputSize: hidden, OutputSize: hidden / 2, Activation: models.ActivationLeakyReLU},
		outputLayer(hidden/2, out),
	}
}

func (b *ArchitectureBuilder) attentionStack(in, out int) []models.LayerConfig {
	hidden := firstHidden(b.config.HiddenSizes)
	return []models.LayerConfig{
		{Type: models.LayerAttention, InputSize: in, OutputSize: hidden, Activation: models.ActivationTanh},
		{Type: models.LayerDense, InputSize: hidden, OutputSize: hidden, Activation: models.ActivationLeakyReLU, Dropout: b.config.Dropout},
		outputLayer(hidden, out),
	}
}

func (b *ArchitectureBuilder) hybridStack(in, out int) []models.LayerConfig {
	hidden := firstHidden(b.config.HiddenSizes)
	return []models.LayerConfig{
		{Type: models.LayerConv, InputSize: in, OutputSize: hidden, Activation: models.ActivationLeakyReLU},
		{Type: models.LayerLSTM, InputSize: hidden, OutputSize: hidden, Activation: models.ActivationTanh, Dropout: b.config.Dropout},
		{Type: models.LayerAttention, InputSize: hidden, OutputSize: hidden / 2, Activation: models.ActivationTanh},
		outputLayer(hidden/2, out),
	}
}

func outputLayer(in, out int) models.LayerConfig {
	return models.LayerConfig{
		Type:       models.LayerDense,
		InputSize:  in,
		OutputSize: out,
		Activation: models.ActivationSigmoid,
	}
}

func firstHidden(sizes []int) int {
	if len(sizes) > 0 {
		return sizes[0]
	}
	return 64
}

// ValidateConfig checks a layer chain for shape consistency: positive
// sizes, contiguous input/output widths, and boundary sizes matching
// the declared network shape.
func ValidateConfig(config *models.NetworkConfig) error {
	if config == nil || len(config.Layers) == 0 {
		return errors.NewValidationError("EMPTY_NETWORK", "network has no layers")
	}
	for i, layer := range config.Layers {
		if layer.InputSize <= 0 || layer.OutputSize <= 0 {
			return errors.NewValidationError("ZERO_SIZE_LAYER", "layer sizes must be positive").
				WithContext("layer", i)
		}
		if i > 0 && layer.InputSize != config.Layers[i-1].OutputSize {
			return errors.NewValidationError("LAYER_SHAPE_MISMATCH", "layer input does not match previous layer output").
				WithContext("layer", i).
				WithContext("input_size", layer.InputSize).
				WithContext("previous_output", config.Layers[i-1].OutputSize)
		}
	}
	if config.Layers[0].InputSize != config.InputFeatures {
		return errors.NewValidationError("INPUT_SHAPE_MISMATCH", "first layer does not match input features")
	}
	if config.Layers[len(config.Layers)-1].OutputSize != config.OutputSize {
		return errors.NewValidationError("OUTPUT_SHAPE_MISMATCH", "last layer does not match output size")
	}
	return nil
}
