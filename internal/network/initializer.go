package network

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// InitializerConfig exposes the empirically chosen initialization
// constants. The damped gains and the balance factor were tuned against
// live crypto feature sets; they are configuration, not theory.
type InitializerConfig struct {
	ReLUGain       float64 `json:"relu_gain"`       // gain for ReLU-family activations
	SaturatingGain float64 `json:"saturating_gain"` // gain for sigmoid/tanh/softmax
	BalanceFactor  float64 `json:"balance_factor"`  // acceptable std band multiplier
}

// DefaultInitializerConfig returns the tuned defaults
func DefaultInitializerConfig() InitializerConfig {
	return InitializerConfig{
		ReLUGain:       math.Sqrt2 * constants.GainDamping,
		SaturatingGain: constants.SaturatingGain,
		BalanceFactor:  constants.BalanceFactor,
	}
}

// Initializer produces initial weight matrices. Deterministic when
// constructed with a seeded source.
type Initializer struct {
	config InitializerConfig
	rand   *rand.Rand
}

// NewInitializer creates an initializer backed by src. A nil source
// gets a time-seeded one.
func NewInitializer(config InitializerConfig, src *rand.Rand) *Initializer {
	if src == nil {
		src = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Initializer{config: config, rand: src}
}

// XavierUniform returns a fanOut×fanIn matrix of independent uniform
// samples in [-limit, limit] with limit = gain*sqrt(6/(fanIn+fanOut)).
func (init *Initializer) XavierUniform(fanIn, fanOut int, gain float64) *mat.Dense {
	limit := gain * math.Sqrt(6.0/float64(fanIn+fanOut))
	w := mat.NewDense(fanOut, fanIn, nil)
	for i := 0; i < fanOut; i++ {
		for j := 0; j < fanIn; j++ {
			w.Set(i, j, (init.rand.Float64()*2-1)*limit)
		}
	}
	return w
}

// XavierNormal returns a fanOut×fanIn matrix of samples from
// Normal(0, gain*sqrt(2/(fanIn+fanOut))).
func (init *Initializer) XavierNormal(fanIn, fanOut int, gain float64) *mat.Dense {
	std := gain * math.Sqrt(2.0/float64(fanIn+fanOut))
	w := mat.NewDense(fanOut, fanIn, nil)
	for i := 0; i < fanOut; i++ {
		for j := 0; j < fanIn; j++ {
			w.Set(i, j, init.rand.NormFloat64()*std)
		}
	}
	return w
}

// Gain maps an activation to its initialization gain
func (init *Initializer) Gain(activation models.Activation) float64 {
	switch activation {
	case models.ActivationLeakyReLU:
		return init.config.ReLUGain
	default:
		// sigmoid/tanh/linear share the damped saturating gain
		return init.config.SaturatingGain
	}
}

// InitializeLayer builds the weight matrix for one layer. Layer types
// all carry dense-shaped [fanOut][fanIn] tensors; the type selects the
// initialization scheme. The switch is exhaustive over LayerType.
func (init *Initializer) InitializeLayer(layerType models.LayerType, fanIn, fanOut int, activation models.Activation) (*mat.Dense, error) {
	if fanIn <= 0 || fanOut <= 0 {
		return nil, errors.NewValidationError("INVALID_LAYER_SHAPE", "layer fan-in and fan-out must be positive").
			WithContext("fan_in", fanIn).
			WithContext("fan_out", fanOut)
	}

	gain := init.Gain(activation)

	switch layerType {
	case models.LayerDense, models.LayerConv:
		return init.XavierUniform(fanIn, fanOut, gain), nil
	case models.LayerLSTM:
		// Gate-heavy layers start from normal samples to keep the
		// sigmoid gates off their saturation rails.
		return init.XavierNormal(fanIn, fanOut, gain), nil
	case models.LayerAttention:
		return init.XavierUniform(fanIn, fanOut, gain), nil
	default:
		return nil, errors.NewValidationError("UNKNOWN_LAYER_TYPE", "unknown layer type").
			WithContext("layer_type", string(layerType))
	}
}

// LayerStats summarizes one layer's weight distribution
type LayerStats struct {
	Layer       int     `json:"layer"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	ExpectedStd float64 `json:"expected_std"`
	Balanced    bool    `json:"balanced"`
}

// BalanceReport is the result of VerifyGradientBalance
type BalanceReport struct {
	IsBalanced bool         `json:"is_balanced"`
	Layers     []LayerStats `json:"layers"`
}

// VerifyGradientBalance checks that every layer's weight std sits inside
// [expected/BalanceFactor, expected*BalanceFactor] of the Xavier target.
// A layer outside the band tends to drown or starve its neighbors'
// gradients during early training.
func (init *Initializer) VerifyGradientBalance(weights []*mat.Dense) *BalanceReport {
	report := &BalanceReport{IsBalanced: true}
	for idx, w := range weights {
		rows, cols := w.Dims()
		n := float64(rows * cols)

		var sum float64
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				sum += w.At(i, j)
			}
		}
		mean := sum / n

		var sqSum float64
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				d := w.At(i, j) - mean
				sqSum += d * d
			}
		}
		std := math.Sqrt(sqSum / n)

		expected := math.Sqrt(2.0 / float64(rows+cols))
		balanced := std >= expected/init.config.BalanceFactor && std <= expected*init.config.BalanceFactor
		if !balanced {
			report.IsBalanced = false
		}

		report.Layers = append(report.Layers, LayerStats{
			Layer:       idx,
			Mean:        mean,
			Std:         std,
			ExpectedStd: expected,
			Balanced:    balanced,
		})
	}
	return report
}
