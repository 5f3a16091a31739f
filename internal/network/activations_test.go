package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/trademl/pkg/models"
)

func TestLeakyReLU(t *testing.T) {
	assert.Equal(t, 2.5, LeakyReLU(2.5))
	assert.Equal(t, 0.0, LeakyReLU(0))
	assert.InDelta(t, -0.01, LeakyReLU(-1), 1e-12)

	assert.Equal(t, 1.0, LeakyReLUDerivative(2.5))
	assert.Equal(t, 0.01, LeakyReLUDerivative(-1))
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	assert.InDelta(t, 1.0/(1.0+math.Exp(-2)), Sigmoid(2), 1e-12)

	// Extreme inputs clamp instead of overflowing
	assert.False(t, math.IsNaN(Sigmoid(1e9)))
	assert.False(t, math.IsNaN(Sigmoid(-1e9)))
	assert.InDelta(t, 1.0, Sigmoid(1e9), 1e-9)
	assert.InDelta(t, 0.0, Sigmoid(-1e9), 1e-9)

	assert.InDelta(t, 0.25, SigmoidDerivative(0), 1e-12)
}

func TestTanh(t *testing.T) {
	assert.Equal(t, 0.0, Tanh(0))
	assert.InDelta(t, math.Tanh(1.5), Tanh(1.5), 1e-12)
	assert.False(t, math.IsNaN(Tanh(1e9)))
	assert.InDelta(t, 1.0, TanhDerivative(0), 1e-12)
}

func TestActivateDispatch(t *testing.T) {
	tests := []struct {
		fn       models.Activation
		input    float64
		expected float64
	}{
		{models.ActivationLeakyReLU, 3.0, 3.0},
		{models.ActivationLeakyReLU, -2.0, -0.02},
		{models.ActivationSigmoid, 0.0, 0.5},
		{models.ActivationTanh, 0.0, 0.0},
		{models.ActivationLinear, -7.25, -7.25},
	}
	for _, tt := range tests {
		got, err := Activate(tt.fn, tt.input)
		require.NoError(t, err)
		assert.InDelta(t, tt.expected, got, 1e-12)
	}
}

func TestActivateUnknownFails(t *testing.T) {
	_, err := Activate(models.Activation("softplus"), 1.0)
	assert.Error(t, err)

	_, err = Derivative(models.Activation("softplus"), 1.0)
	assert.Error(t, err)
}

func TestDerivativeMatchesNumericalGradient(t *testing.T) {
	const h = 1e-6
	fns := []models.Activation{
		models.ActivationLeakyReLU,
		models.ActivationSigmoid,
		models.ActivationTanh,
		models.ActivationLinear,
	}
	points := []float64{-2.0, -0.5, 0.3, 1.7}

	for _, fn := range fns {
		for _, x := range points {
			hi, err := Activate(fn, x+h)
			require.NoError(t, err)
			lo, err := Activate(fn, x-h)
			require.NoError(t, err)
			numerical := (hi - lo) / (2 * h)

			analytic, err := Derivative(fn, x)
			require.NoError(t, err)
			assert.InDeltaf(t, numerical, analytic, 1e-5, "%s at %v", fn, x)
		}
	}
}
