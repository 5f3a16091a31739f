package training

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tradepulse/trademl/internal/network"
	"github.com/tradepulse/trademl/pkg/models"
)

func singleLayerConfig() *models.NetworkConfig {
	return &models.NetworkConfig{
		InputFeatures: 1,
		OutputSize:    1,
		Architecture:  models.ArchitectureDense,
		Layers: []models.LayerConfig{
			{Type: models.LayerDense, InputSize: 1, OutputSize: 1, Activation: models.ActivationSigmoid},
		},
	}
}

func TestOutputGradientMSE(t *testing.T) {
	config := singleLayerConfig()
	weights := []*mat.Dense{mat.NewDense(1, 1, []float64{0.1})}

	// prediction 0.6 against target 1.0 with previous activation 0.5:
	// upstream = 2*(0.6-1.0) = -0.8, weight gradient = -0.8*0.5 = -0.4
	result := &network.ForwardResult{
		Activations:    [][]float64{{0.5}, {0.6}},
		PreActivations: [][]float64{{0.4}},
		Output:         []float64{0.6},
	}

	grads, err := CalculateGradients(result, []float64{1.0}, config, weights, models.LossMSE)
	require.NoError(t, err)

	assert.InDelta(t, -0.8, grads.Biases[0].AtVec(0), 1e-12)
	assert.InDelta(t, -0.4, grads.Weights[0].At(0, 0), 1e-12)
}

func TestOutputGradientCrossEntropy(t *testing.T) {
	config := singleLayerConfig()
	weights := []*mat.Dense{mat.NewDense(1, 1, []float64{0.1})}

	result := &network.ForwardResult{
		Activations:    [][]float64{{0.5}, {0.6}},
		PreActivations: [][]float64{{0.4}},
		Output:         []float64{0.6},
	}

	grads, err := CalculateGradients(result, []float64{1.0}, config, weights, models.LossCrossEntropy)
	require.NoError(t, err)

	expected := (0.6 - 1.0) / (0.6*0.4 + 1e-8)
	assert.InDelta(t, expected, grads.Biases[0].AtVec(0), 1e-9)
	assert.InDelta(t, expected*0.5, grads.Weights[0].At(0, 0), 1e-9)
}

func TestCalculateGradientsFailsFastOnLengthMismatch(t *testing.T) {
	config := singleLayerConfig()
	weights := []*mat.Dense{mat.NewDense(1, 1, []float64{0.1})}

	result := &network.ForwardResult{
		Activations:    [][]float64{{0.5}, {0.6}},
		PreActivations: [][]float64{{0.4}},
		Output:         []float64{0.6},
	}

	_, err := CalculateGradients(result, []float64{1.0, 0.0}, config, weights, models.LossMSE)
	assert.Error(t, err)
}

func TestCalculateGradientsUnknownLoss(t *testing.T) {
	config := singleLayerConfig()
	weights := []*mat.Dense{mat.NewDense(1, 1, []float64{0.1})}

	result := &network.ForwardResult{
		Activations:    [][]float64{{0.5}, {0.6}},
		PreActivations: [][]float64{{0.4}},
		Output:         []float64{0.6},
	}

	_, err := CalculateGradients(result, []float64{1.0}, config, weights, models.LossFunction("hinge"))
	assert.Error(t, err)
}

func TestBackpropMatchesNumericalGradient(t *testing.T) {
	config := &models.NetworkConfig{
		InputFeatures: 2,
		OutputSize:    1,
		Architecture:  models.ArchitectureDense,
		Layers: []models.LayerConfig{
			{Type: models.LayerDense, InputSize: 2, OutputSize: 3, Activation: models.ActivationTanh},
			{Type: models.LayerDense, InputSize: 3, OutputSize: 1, Activation: models.ActivationLinear},
		},
	}
	init := network.NewInitializer(network.DefaultInitializerConfig(), rand.New(rand.NewSource(21)))
	net, err := network.NewNetwork(config, init)
	require.NoError(t, err)

	input := []float64{0.4, -0.7}
	target := []float64{0.9}

	result, err := net.Forward(input)
	require.NoError(t, err)
	grads, err := CalculateGradients(result, target, config, net.Weights(), models.LossMSE)
	require.NoError(t, err)

	const h = 1e-6
	lossAt := func() float64 {
		r, err := net.Forward(input)
		require.NoError(t, err)
		loss, err := CalculateLoss(r.Output, target, models.LossMSE)
		require.NoError(t, err)
		return loss
	}

	for l := range net.Weights() {
		w := net.Weights()[l]
		rows, cols := w.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				orig := w.At(i, j)
				w.Set(i, j, orig+h)
				up := lossAt()
				w.Set(i, j, orig-h)
				down := lossAt()
				w.Set(i, j, orig)

				numerical := (up - down) / (2 * h)
				assert.InDeltaf(t, numerical, grads.Weights[l].At(i, j), 1e-4,
					"layer %d weight (%d,%d)", l, i, j)
			}
		}
	}
}

func TestCalculateLossMSE(t *testing.T) {
	loss, err := CalculateLoss([]float64{0.5, 0.5}, []float64{1.0, 0.0}, models.LossMSE)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, loss, 1e-12)
}

func TestCalculateLossCrossEntropyFiniteAtExtremes(t *testing.T) {
	loss, err := CalculateLoss([]float64{0.0, 1.0}, []float64{1.0, 0.0}, models.LossCrossEntropy)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))
	assert.False(t, math.IsInf(loss, 0))
	assert.Greater(t, loss, 0.0)
}

func TestCalculateLossValidation(t *testing.T) {
	_, err := CalculateLoss([]float64{0.5}, []float64{1.0, 0.0}, models.LossMSE)
	assert.Error(t, err)

	_, err = CalculateLoss(nil, nil, models.LossMSE)
	assert.Error(t, err)

	_, err = CalculateLoss([]float64{0.5}, []float64{1.0}, models.LossFunction("hinge"))
	assert.Error(t, err)
}

func TestGradientNormGlobal(t *testing.T) {
	grads := &Gradients{
		Weights: []*mat.Dense{mat.NewDense(1, 2, []float64{3, 0})},
		Biases:  []*mat.VecDense{mat.NewVecDense(1, []float64{4})},
	}
	assert.InDelta(t, 5.0, GradientNorm(grads), 1e-12)
}

func TestGradientsAddScale(t *testing.T) {
	a := &Gradients{
		Weights: []*mat.Dense{mat.NewDense(1, 2, []float64{1, 2})},
		Biases:  []*mat.VecDense{mat.NewVecDense(1, []float64{3})},
	}
	b := &Gradients{
		Weights: []*mat.Dense{mat.NewDense(1, 2, []float64{10, 20})},
		Biases:  []*mat.VecDense{mat.NewVecDense(1, []float64{30})},
	}

	a.Add(b)
	a.Scale(0.5)

	assert.InDelta(t, 5.5, a.Weights[0].At(0, 0), 1e-12)
	assert.InDelta(t, 11.0, a.Weights[0].At(0, 1), 1e-12)
	assert.InDelta(t, 16.5, a.Biases[0].AtVec(0), 1e-12)
}
