package training

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradepulse/trademl/pkg/models"
)

func TestEvaluatorLossMetrics(t *testing.T) {
	eval := &evaluator{}
	eval.add([]float64{0.5}, []float64{1.0})
	eval.add([]float64{0.5}, []float64{0.0})

	loss := eval.lossMetrics()
	assert.InDelta(t, 0.25, loss.MSE, 1e-12)
	assert.InDelta(t, 0.5, loss.MAE, 1e-12)
	// ssTot = 0.5, ssRes = 0.5 -> R² = 0
	assert.InDelta(t, 0.0, loss.RSquared, 1e-12)
	assert.Equal(t, 2, eval.count())
}

func TestEvaluatorEmpty(t *testing.T) {
	eval := &evaluator{}

	assert.Equal(t, models.LossMetrics{}, eval.lossMetrics())
	assert.Equal(t, models.AccuracyMetrics{}, eval.accuracyMetrics())
}

func TestClassificationAccuracy(t *testing.T) {
	eval := &evaluator{}
	// up predicted, up labeled
	eval.add([]float64{0.1, 0.2, 0.7}, []float64{0, 0, 1})
	// down predicted, up labeled: wrong class AND wrong side
	eval.add([]float64{0.8, 0.1, 0.1}, []float64{0, 0, 1})
	// neutral predicted, neutral labeled
	eval.add([]float64{0.1, 0.8, 0.1}, []float64{0, 1, 0})
	// up predicted, neutral labeled: wrong both ways
	eval.add([]float64{0.1, 0.2, 0.7}, []float64{0, 1, 0})

	acc := eval.accuracyMetrics()
	assert.InDelta(t, 0.5, acc.Classification, 1e-12)
	assert.InDelta(t, 0.5, acc.Directional, 1e-12)
}

func TestScalarDirectionalAccuracy(t *testing.T) {
	eval := &evaluator{}
	// Scalar outputs match when prediction and target fall on the same
	// side of the midpoint.
	eval.add([]float64{0.9}, []float64{0.6})
	eval.add([]float64{0.2}, []float64{0.1})
	eval.add([]float64{0.7}, []float64{0.3})

	acc := eval.accuracyMetrics()
	assert.InDelta(t, 2.0/3.0, acc.Directional, 1e-12)
}

func TestArgmaxAndSign(t *testing.T) {
	assert.Equal(t, 2, argmaxOf([]float64{0.1, 0.3, 0.6}))
	assert.Equal(t, 0, argmaxOf([]float64{0.5, 0.5}))

	assert.Equal(t, 1, sign(3))
	assert.Equal(t, -1, sign(-2))
	assert.Equal(t, 0, sign(0))
}
