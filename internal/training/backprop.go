package training

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"

	"github.com/tradepulse/trademl/internal/network"
)

// Gradients holds per-layer weight and bias gradients in the same order
// as the network's weight tensors, each shaped [OutputSize][InputSize]
// to mirror the matrix it updates.
type Gradients struct {
	Weights []*mat.Dense
	Biases  []*mat.VecDense
}

// NewZeroGradients allocates zero gradients shaped like config
func NewZeroGradients(config *models.NetworkConfig) *Gradients {
	g := &Gradients{
		Weights: make([]*mat.Dense, len(config.Layers)),
		Biases:  make([]*mat.VecDense, len(config.Layers)),
	}
	for i, layer := range config.Layers {
		g.Weights[i] = mat.NewDense(layer.OutputSize, layer.InputSize, nil)
		g.Biases[i] = mat.NewVecDense(layer.OutputSize, nil)
	}
	return g
}

// Add accumulates other into g, element-wise
func (g *Gradients) Add(other *Gradients) {
	for l := range g.Weights {
		g.Weights[l].Add(g.Weights[l], other.Weights[l])
		g.Biases[l].AddVec(g.Biases[l], other.Biases[l])
	}
}

// Scale multiplies every gradient entry by factor
func (g *Gradients) Scale(factor float64) {
	for l := range g.Weights {
		g.Weights[l].Scale(factor, g.Weights[l])
		g.Biases[l].ScaleVec(factor, g.Biases[l])
	}
}

// CalculateGradients runs the backward pass over one forward evaluation.
// The output-layer loss gradient is 2(p-t) for MSE and
// (p-t)/(p(1-p)+eps) for cross-entropy; weight gradients are the outer
// product of the layer's upstream gradient with the preceding layer's
// activations; the gradient propagated to the previous layer is the
// weighted sum over outgoing edges chained with the local activation
// derivative.
//
// Mismatched output/target lengths are a caller contract violation and
// fail fast before any gradient is produced.
func CalculateGradients(result *network.ForwardResult, target []float64, config *models.NetworkConfig, weights []*mat.Dense, lossFn models.LossFunction) (*Gradients, error) {
	if len(result.Output) != len(target) {
		return nil, errors.NewValidationError("LENGTH_MISMATCH", "output and target lengths differ").
			WithContext("output_len", len(result.Output)).
			WithContext("target_len", len(target))
	}
	if len(result.Activations) != len(config.Layers)+1 {
		return nil, errors.NewValidationError("FORWARD_SHAPE_MISMATCH", "forward result does not match network depth")
	}

	grads := &Gradients{
		Weights: make([]*mat.Dense, len(config.Layers)),
		Biases:  make([]*mat.VecDense, len(config.Layers)),
	}

	// Output-layer loss gradient
	upstream := make([]float64, len(target))
	for j := range target {
		p, t := result.Output[j], target[j]
		switch lossFn {
		case models.LossMSE:
			upstream[j] = 2 * (p - t)
		case models.LossCrossEntropy:
			upstream[j] = (p - t) / (p*(1-p) + constants.LossEpsilon)
		default:
			return nil, errors.NewValidationError("UNKNOWN_LOSS", "unknown loss function").
				WithContext("loss", string(lossFn))
		}
	}

	for l := len(config.Layers) - 1; l >= 0; l-- {
		layer := config.Layers[l]
		prevAct := result.Activations[l]

		wg := mat.NewDense(layer.OutputSize, layer.InputSize, nil)
		bg := mat.NewVecDense(layer.OutputSize, nil)
		for j := 0; j < layer.OutputSize; j++ {
			bg.SetVec(j, upstream[j])
			for i := 0; i < layer.InputSize; i++ {
				wg.Set(j, i, upstream[j]*prevAct[i])
			}
		}
		grads.Weights[l] = wg
		grads.Biases[l] = bg

		if l == 0 {
			break
		}

		// Propagate through the weights, then chain with the previous
		// layer's activation derivative at its pre-activations.
		prevLayer := config.Layers[l-1]
		prevPre := result.PreActivations[l-1]
		next := make([]float64, layer.InputSize)
		w := weights[l]
		for i := 0; i < layer.InputSize; i++ {
			var sum float64
			for j := 0; j < layer.OutputSize; j++ {
				sum += upstream[j] * w.At(j, i)
			}
			d, err := network.Derivative(prevLayer.Activation, prevPre[i])
			if err != nil {
				return nil, err
			}
			next[i] = sum * d
		}
		upstream = next
	}

	return grads, nil
}

// CalculateLoss computes the scalar training loss over one prediction
func CalculateLoss(predictions, targets []float64, lossFn models.LossFunction) (float64, error) {
	if len(predictions) != len(targets) {
		return 0, errors.NewValidationError("LENGTH_MISMATCH", "predictions and targets lengths differ").
			WithContext("predictions_len", len(predictions)).
			WithContext("targets_len", len(targets))
	}
	if len(predictions) == 0 {
		return 0, errors.NewValidationError("EMPTY_INPUT", "no predictions to score")
	}

	switch lossFn {
	case models.LossMSE:
		var sum float64
		for i := range predictions {
			d := predictions[i] - targets[i]
			sum += d * d
		}
		return sum / float64(len(predictions)), nil
	case models.LossCrossEntropy:
		var sum float64
		for i := range predictions {
			p := math.Min(math.Max(predictions[i], constants.LossEpsilon), 1-constants.LossEpsilon)
			t := targets[i]
			sum += -(t*math.Log(p) + (1-t)*math.Log(1-p))
		}
		return sum / float64(len(predictions)), nil
	default:
		return 0, errors.NewValidationError("UNKNOWN_LOSS", "unknown loss function").
			WithContext("loss", string(lossFn))
	}
}

// GradientNorm computes the global L2 norm across every layer's weight
// and bias gradients. Feeds both the clipper and the watchdog.
func GradientNorm(grads *Gradients) float64 {
	var sumSq float64
	for l := range grads.Weights {
		rows, cols := grads.Weights[l].Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				v := grads.Weights[l].At(i, j)
				sumSq += v * v
			}
		}
		for i := 0; i < grads.Biases[l].Len(); i++ {
			v := grads.Biases[l].AtVec(i)
			sumSq += v * v
		}
	}
	return math.Sqrt(sumSq)
}
