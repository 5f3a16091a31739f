package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/trademl/pkg/models"
)

func TestBuildDenseStack(t *testing.T) {
	b := NewArchitectureBuilder(nil, nil)

	config, err := b.Build(models.ArchitectureDense, 32, 3)
	require.NoError(t, err)

	require.Len(t, config.Layers, 3)
	assert.Equal(t, 32, config.Layers[0].InputSize)
	assert.Equal(t, 64, config.Layers[0].OutputSize)
	assert.Equal(t, 64, config.Layers[1].InputSize)
	assert.Equal(t, 32, config.Layers[1].OutputSize)
	assert.Equal(t, 3, config.Layers[2].OutputSize)

	assert.Equal(t, models.ActivationLeakyReLU, config.Layers[0].Activation)
	assert.Equal(t, models.ActivationSigmoid, config.Layers[2].Activation)
}

func TestBuildAllArchitectures(t *testing.T) {
	b := NewArchitectureBuilder(nil, nil)

	archs := []models.Architecture{
		models.ArchitectureDense,
		models.ArchitectureLSTM,
		models.ArchitectureConv,
		models.ArchitectureAttention,
		models.ArchitectureHybrid,
	}
	for _, arch := range archs {
		config, err := b.Build(arch, 16, 3)
		require.NoError(t, err, string(arch))
		assert.Equal(t, 16, config.InputFeatures)
		assert.Equal(t, 3, config.OutputSize)
		assert.NoError(t, ValidateConfig(config))
	}
}

func TestBuildRejectsBadShapes(t *testing.T) {
	b := NewArchitectureBuilder(nil, nil)

	_, err := b.Build(models.ArchitectureDense, 0, 3)
	assert.Error(t, err)

	_, err = b.Build(models.ArchitectureDense, 16, 0)
	assert.Error(t, err)

	_, err = b.Build(models.Architecture("transformer"), 16, 3)
	assert.Error(t, err)
}

func TestValidateConfigFailsFast(t *testing.T) {
	tests := []struct {
		name   string
		config *models.NetworkConfig
	}{
		{"nil config", nil},
		{"empty layers", &models.NetworkConfig{InputFeatures: 4, OutputSize: 2}},
		{
			"zero size layer",
			&models.NetworkConfig{
				InputFeatures: 4, OutputSize: 2,
				Layers: []models.LayerConfig{
					{Type: models.LayerDense, InputSize: 4, OutputSize: 0, Activation: models.ActivationLinear},
				},
			},
		},
		{
			"chain mismatch",
			&models.NetworkConfig{
				InputFeatures: 4, OutputSize: 2,
				Layers: []models.LayerConfig{
					{Type: models.LayerDense, InputSize: 4, OutputSize: 8, Activation: models.ActivationLeakyReLU},
					{Type: models.LayerDense, InputSize: 6, OutputSize: 2, Activation: models.ActivationSigmoid},
				},
			},
		},
		{
			"input boundary mismatch",
			&models.NetworkConfig{
				InputFeatures: 5, OutputSize: 2,
				Layers: []models.LayerConfig{
					{Type: models.LayerDense, InputSize: 4, OutputSize: 2, Activation: models.ActivationSigmoid},
				},
			},
		},
		{
			"output boundary mismatch",
			&models.NetworkConfig{
				InputFeatures: 4, OutputSize: 3,
				Layers: []models.LayerConfig{
					{Type: models.LayerDense, InputSize: 4, OutputSize: 2, Activation: models.ActivationSigmoid},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateConfig(tt.config))
		})
	}
}
