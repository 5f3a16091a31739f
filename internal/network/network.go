package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// Network holds the current weight tensors for a training session. One
// [OutputSize][InputSize] matrix plus an [OutputSize] bias vector per
// layer, shapes always equal to the corresponding LayerConfig. The
// tensors are owned by a single training session and mutated in place
// only by the optimizer.
type Network struct {
	config  *models.NetworkConfig
	weights []*mat.Dense
	biases  []*mat.VecDense
}

// ForwardResult records everything the backward pass needs: per-layer
// pre-activations and activations, with Activations[0] being the input
// vector itself.
type ForwardResult struct {
	Activations    [][]float64
	PreActivations [][]float64
	Output         []float64
}

// NewNetwork allocates and initializes weights for config
func NewNetwork(config *models.NetworkConfig, init *Initializer) (*Network, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	n := &Network{
		config:  config,
		weights: make([]*mat.Dense, len(config.Layers)),
		biases:  make([]*mat.VecDense, len(config.Layers)),
	}

	for i, layer := range config.Layers {
		w, err := init.InitializeLayer(layer.Type, layer.InputSize, layer.OutputSize, layer.Activation)
		if err != nil {
			return nil, err
		}
		n.weights[i] = w
		n.biases[i] = mat.NewVecDense(layer.OutputSize, nil)
	}

	return n, nil
}

// Config returns the immutable layer configuration
func (n *Network) Config() *models.NetworkConfig {
	return n.config
}

// Weights returns the live weight matrices in layer order. Callers must
// treat them as read-only outside an optimizer step.
func (n *Network) Weights() []*mat.Dense {
	return n.weights
}

// Biases returns the live bias vectors in layer order
func (n *Network) Biases() []*mat.VecDense {
	return n.biases
}

// Reinitialize replaces all weight tensors with fresh samples. Used by
// the watchdog during a full reset; shapes are preserved.
func (n *Network) Reinitialize(init *Initializer) error {
	for i, layer := range n.config.Layers {
		w, err := init.InitializeLayer(layer.Type, layer.InputSize, layer.OutputSize, layer.Activation)
		if err != nil {
			return err
		}
		n.weights[i] = w
		n.biases[i] = mat.NewVecDense(layer.OutputSize, nil)
	}
	return nil
}

// Forward evaluates the network on a single flat feature vector,
// recording per-layer pre-activations and activations for backprop.
func (n *Network) Forward(input []float64) (*ForwardResult, error) {
	if len(input) != n.config.InputFeatures {
		return nil, errors.NewValidationError("INPUT_LENGTH_MISMATCH", "input length does not match network input features").
			WithContext("expected", n.config.InputFeatures).
			WithContext("actual", len(input))
	}

	result := &ForwardResult{
		Activations:    make([][]float64, len(n.config.Layers)+1),
		PreActivations: make([][]float64, len(n.config.Layers)),
	}
	result.Activations[0] = input

	current := input
	for l, layer := range n.config.Layers {
		// All supported block types evaluate the shared affine path
		// over flat vectors; the tag gates initialization and keeps
		// the dispatch exhaustive so a new type cannot slip through
		// silently.
		switch layer.Type {
		case models.LayerDense, models.LayerLSTM, models.LayerConv, models.LayerAttention:
		default:
			return nil, errors.NewValidationError("UNKNOWN_LAYER_TYPE", "unknown layer type").
				WithContext("layer", l).
				WithContext("layer_type", string(layer.Type))
		}

		preAct := make([]float64, layer.OutputSize)
		act := make([]float64, layer.OutputSize)
		w := n.weights[l]
		b := n.biases[l]

		for j := 0; j < layer.OutputSize; j++ {
			sum := b.AtVec(j)
			for i := 0; i < layer.InputSize; i++ {
				sum += w.At(j, i) * current[i]
			}
			preAct[j] = sum

			a, err := Activate(layer.Activation, sum)
			if err != nil {
				return nil, err
			}
			act[j] = a
		}

		result.PreActivations[l] = preAct
		result.Activations[l+1] = act
		current = act
	}

	result.Output = current
	return result, nil
}

// Snapshot copies the current weights, biases, and shapes into a
// checkpoint-friendly form. Values are copied, not aliased.
func (n *Network) Snapshot() ([][][]float64, [][]float64) {
	weights := make([][][]float64, len(n.weights))
	biases := make([][]float64, len(n.biases))
	for l, w := range n.weights {
		rows, cols := w.Dims()
		weights[l] = make([][]float64, rows)
		for i := 0; i < rows; i++ {
			weights[l][i] = make([]float64, cols)
			for j := 0; j < cols; j++ {
				weights[l][i][j] = w.At(i, j)
			}
		}
		biases[l] = make([]float64, n.biases[l].Len())
		for i := 0; i < n.biases[l].Len(); i++ {
			biases[l][i] = n.biases[l].AtVec(i)
		}
	}
	return weights, biases
}

// Restore loads weights and biases from a snapshot, verifying that every
// tensor matches the configured layer shape.
func (n *Network) Restore(weights [][][]float64, biases [][]float64) error {
	if len(weights) != len(n.config.Layers) || len(biases) != len(n.config.Layers) {
		return errors.NewValidationError("SNAPSHOT_SHAPE_MISMATCH", "snapshot layer count does not match network")
	}
	for l, layer := range n.config.Layers {
		if len(weights[l]) != layer.OutputSize || len(biases[l]) != layer.OutputSize {
			return errors.NewValidationError("SNAPSHOT_SHAPE_MISMATCH",
				fmt.Sprintf("layer %d snapshot rows do not match output size", l))
		}
		for i, row := range weights[l] {
			if len(row) != layer.InputSize {
				return errors.NewValidationError("SNAPSHOT_SHAPE_MISMATCH",
					fmt.Sprintf("layer %d row %d does not match input size", l, i))
			}
			for j, v := range row {
				n.weights[l].Set(i, j, v)
			}
		}
		for i, v := range biases[l] {
			n.biases[l].SetVec(i, v)
		}
	}
	return nil
}
