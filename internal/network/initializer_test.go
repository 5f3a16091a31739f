package network

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tradepulse/trademl/pkg/models"
)

func newTestInitializer(seed int64) *Initializer {
	return NewInitializer(DefaultInitializerConfig(), rand.New(rand.NewSource(seed)))
}

func TestXavierUniformRange(t *testing.T) {
	init := newTestInitializer(1)
	fanIn, fanOut := 64, 32
	gain := init.Gain(models.ActivationLeakyReLU)
	limit := gain * math.Sqrt(6.0/float64(fanIn+fanOut))

	w := init.XavierUniform(fanIn, fanOut, gain)

	rows, cols := w.Dims()
	assert.Equal(t, fanOut, rows)
	assert.Equal(t, fanIn, cols)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := w.At(i, j)
			assert.LessOrEqual(t, math.Abs(v), limit)
		}
	}
}

func TestXavierNormalStd(t *testing.T) {
	init := newTestInitializer(2)
	fanIn, fanOut := 128, 128
	gain := 1.0
	expected := gain * math.Sqrt(2.0/float64(fanIn+fanOut))

	w := init.XavierNormal(fanIn, fanOut, gain)

	rows, cols := w.Dims()
	var sum, sqSum float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum += w.At(i, j)
		}
	}
	mean := sum / float64(rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d := w.At(i, j) - mean
			sqSum += d * d
		}
	}
	std := math.Sqrt(sqSum / float64(rows*cols))

	assert.InDelta(t, 0, mean, expected/5)
	assert.InDelta(t, expected, std, expected/5)
}

func TestGainByActivation(t *testing.T) {
	init := newTestInitializer(3)

	assert.InDelta(t, math.Sqrt2*0.5, init.Gain(models.ActivationLeakyReLU), 1e-12)
	assert.Equal(t, 0.5, init.Gain(models.ActivationSigmoid))
	assert.Equal(t, 0.5, init.Gain(models.ActivationTanh))
}

func TestInitializeLayerDeterministicWithSeed(t *testing.T) {
	a := newTestInitializer(42)
	b := newTestInitializer(42)

	wa, err := a.InitializeLayer(models.LayerDense, 16, 8, models.ActivationLeakyReLU)
	require.NoError(t, err)
	wb, err := b.InitializeLayer(models.LayerDense, 16, 8, models.ActivationLeakyReLU)
	require.NoError(t, err)

	assert.True(t, mat.Equal(wa, wb))
}

func TestInitializeLayerSchemes(t *testing.T) {
	init := newTestInitializer(4)

	for _, lt := range []models.LayerType{models.LayerDense, models.LayerLSTM, models.LayerConv, models.LayerAttention} {
		w, err := init.InitializeLayer(lt, 10, 5, models.ActivationTanh)
		require.NoError(t, err, string(lt))
		rows, cols := w.Dims()
		assert.Equal(t, 5, rows)
		assert.Equal(t, 10, cols)
	}
}

func TestInitializeLayerRejectsBadShape(t *testing.T) {
	init := newTestInitializer(5)

	_, err := init.InitializeLayer(models.LayerDense, 0, 5, models.ActivationTanh)
	assert.Error(t, err)

	_, err = init.InitializeLayer(models.LayerDense, 5, -1, models.ActivationTanh)
	assert.Error(t, err)

	_, err = init.InitializeLayer(models.LayerType("recurrent"), 5, 5, models.ActivationTanh)
	assert.Error(t, err)
}

func TestVerifyGradientBalance(t *testing.T) {
	init := newTestInitializer(6)

	w, err := init.InitializeLayer(models.LayerDense, 64, 32, models.ActivationLeakyReLU)
	require.NoError(t, err)

	report := init.VerifyGradientBalance([]*mat.Dense{w})
	require.Len(t, report.Layers, 1)
	assert.True(t, report.IsBalanced)
	assert.True(t, report.Layers[0].Balanced)
	assert.InDelta(t, math.Sqrt(2.0/96.0), report.Layers[0].ExpectedStd, 1e-12)
}

func TestVerifyGradientBalanceFlagsDegenerateLayer(t *testing.T) {
	init := newTestInitializer(7)

	// All-zero weights have zero std, far below the band.
	w := mat.NewDense(8, 8, nil)
	report := init.VerifyGradientBalance([]*mat.Dense{w})

	assert.False(t, report.IsBalanced)
	assert.False(t, report.Layers[0].Balanced)
}
