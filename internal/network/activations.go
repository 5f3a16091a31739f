package network

import (
	"math"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// clamp bounds x to the safe range for exponential evaluation. Inputs
// beyond ±constants.ActivationClamp overflow float64 exp.
func clamp(x float64) float64 {
	if x > constants.ActivationClamp {
		return constants.ActivationClamp
	}
	if x < -constants.ActivationClamp {
		return -constants.ActivationClamp
	}
	return x
}

// LeakyReLU applies the leaky rectifier with slope constants.LeakySlope
// below zero.
func LeakyReLU(x float64) float64 {
	if x > 0 {
		return x
	}
	return constants.LeakySlope * x
}

// LeakyReLUDerivative is the exact derivative of LeakyReLU
func LeakyReLUDerivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return constants.LeakySlope
}

// Sigmoid applies the logistic function with overflow-safe clamping
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-clamp(x)))
}

// SigmoidDerivative is s*(1-s) evaluated at x
func SigmoidDerivative(x float64) float64 {
	s := Sigmoid(x)
	return s * (1 - s)
}

// Tanh applies the hyperbolic tangent with overflow-safe clamping
func Tanh(x float64) float64 {
	return math.Tanh(clamp(x))
}

// TanhDerivative is 1-tanh² evaluated at x
func TanhDerivative(x float64) float64 {
	t := Tanh(x)
	return 1 - t*t
}

// Linear is the identity activation
func Linear(x float64) float64 {
	return x
}

// LinearDerivative is the constant derivative of the identity
func LinearDerivative(x float64) float64 {
	return 1
}

// Activate dispatches the forward activation for fn. The switch is
// exhaustive over models.Activation; unknown tags fail rather than
// falling back to identity.
func Activate(fn models.Activation, x float64) (float64, error) {
	switch fn {
	case models.ActivationLeakyReLU:
		return LeakyReLU(x), nil
	case models.ActivationSigmoid:
		return Sigmoid(x), nil
	case models.ActivationTanh:
		return Tanh(x), nil
	case models.ActivationLinear:
		return Linear(x), nil
	default:
		return 0, errors.NewValidationError("UNKNOWN_ACTIVATION", "unknown activation function").
			WithContext("activation", string(fn))
	}
}

// Derivative dispatches the activation derivative for fn. Must match
// Activate exactly; the backward pass depends on it.
func Derivative(fn models.Activation, x float64) (float64, error) {
	switch fn {
	case models.ActivationLeakyReLU:
		return LeakyReLUDerivative(x), nil
	case models.ActivationSigmoid:
		return SigmoidDerivative(x), nil
	case models.ActivationTanh:
		return TanhDerivative(x), nil
	case models.ActivationLinear:
		return LinearDerivative(x), nil
	default:
		return 0, errors.NewValidationError("UNKNOWN_ACTIVATION", "unknown activation function").
			WithContext("activation", string(fn))
	}
}
