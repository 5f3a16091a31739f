package training

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// AdamWConfig contains the optimizer hyperparameters
type AdamWConfig struct {
	Beta1       float64 `json:"beta1"`
	Beta2       float64 `json:"beta2"`
	Epsilon     float64 `json:"epsilon"`
	WeightDecay float64 `json:"weight_decay"`
}

// getDefaultAdamWConfig returns the standard hyperparameters
func getDefaultAdamWConfig() *AdamWConfig {
	return &AdamWConfig{
		Beta1:       constants.DefaultBeta1,
		Beta2:       constants.DefaultBeta2,
		Epsilon:     constants.DefaultEpsilon,
		WeightDecay: constants.DefaultWeightDecay,
	}
}

// AdamWOptimizer applies adaptive moment updates with decoupled weight
// decay: the decay term is subtracted from the weights directly rather
// than folded into the gradient. Moment state mirrors the weight shapes
// exactly and persists across epochs; only a watchdog reset zeroes it.
type AdamWOptimizer struct {
	config *AdamWConfig
	t      int

	m     []*mat.Dense
	v     []*mat.Dense
	mBias []*mat.VecDense
	vBias []*mat.VecDense
}

// NewAdamWOptimizer creates an optimizer. Nil config gets defaults.
func NewAdamWOptimizer(config *AdamWConfig) *AdamWOptimizer {
	if config == nil {
		config = getDefaultAdamWConfig()
	}
	return &AdamWOptimizer{config: config}
}

// Step returns the current global step counter
func (opt *AdamWOptimizer) Step() int {
	return opt.t
}

func (opt *AdamWOptimizer) initializeMoments(weights []*mat.Dense, biases []*mat.VecDense) {
	opt.m = make([]*mat.Dense, len(weights))
	opt.v = make([]*mat.Dense, len(weights))
	opt.mBias = make([]*mat.VecDense, len(biases))
	opt.vBias = make([]*mat.VecDense, len(biases))
	for i, w := range weights {
		rows, cols := w.Dims()
		opt.m[i] = mat.NewDense(rows, cols, nil)
		opt.v[i] = mat.NewDense(rows, cols, nil)
		opt.mBias[i] = mat.NewVecDense(biases[i].Len(), nil)
		opt.vBias[i] = mat.NewVecDense(biases[i].Len(), nil)
	}
}

// Update applies one AdamW step in place at learning rate lr. Biases
// receive the adaptive update without the decay term.
func (opt *AdamWOptimizer) Update(weights []*mat.Dense, biases []*mat.VecDense, grads *Gradients, lr float64) error {
	if len(weights) != len(grads.Weights) || len(biases) != len(grads.Biases) {
		return errors.NewValidationError("GRADIENT_SHAPE_MISMATCH", "gradient layer count does not match weights")
	}

	if len(opt.m) != len(weights) {
		opt.initializeMoments(weights, biases)
	}

	opt.t++
	beta1Corr := 1 - math.Pow(opt.config.Beta1, float64(opt.t))
	beta2Corr := 1 - math.Pow(opt.config.Beta2, float64(opt.t))

	for l, w := range weights {
		rows, cols := w.Dims()
		gw := grads.Weights[l]
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := gw.At(i, j)
				m := opt.config.Beta1*opt.m[l].At(i, j) + (1-opt.config.Beta1)*g
				v := opt.config.Beta2*opt.v[l].At(i, j) + (1-opt.config.Beta2)*g*g
				opt.m[l].Set(i, j, m)
				opt.v[l].Set(i, j, v)

				mHat := m / beta1Corr
				vHat := v / beta2Corr
				weight := w.At(i, j)
				weight -= lr * (mHat/(math.Sqrt(vHat)+opt.config.Epsilon) + opt.config.WeightDecay*weight)
				w.Set(i, j, weight)
			}
		}

		b := biases[l]
		gb := grads.Biases[l]
		for i := 0; i < b.Len(); i++ {
			g := gb.AtVec(i)
			m := opt.config.Beta1*opt.mBias[l].AtVec(i) + (1-opt.config.Beta1)*g
			v := opt.config.Beta2*opt.vBias[l].AtVec(i) + (1-opt.config.Beta2)*g*g
			opt.mBias[l].SetVec(i, m)
			opt.vBias[l].SetVec(i, v)

			mHat := m / beta1Corr
			vHat := v / beta2Corr
			b.SetVec(i, b.AtVec(i)-lr*mHat/(math.Sqrt(vHat)+opt.config.Epsilon))
		}
	}

	return nil
}

// Reset zeroes all moment state and the step counter. Called only by a
// watchdog-triggered full reset.
func (opt *AdamWOptimizer) Reset() {
	opt.t = 0
	opt.m = nil
	opt.v = nil
	opt.mBias = nil
	opt.vBias = nil
}

// Snapshot copies the optimizer state for checkpointing
func (opt *AdamWOptimizer) Snapshot() []models.OptimizerSnapshot {
	snaps := make([]models.OptimizerSnapshot, len(opt.m))
	for l := range opt.m {
		rows, cols := opt.m[l].Dims()
		snap := models.OptimizerSnapshot{
			M:     make([][]float64, rows),
			V:     make([][]float64, rows),
			BiasM: make([]float64, opt.mBias[l].Len()),
			BiasV: make([]float64, opt.vBias[l].Len()),
		}
		for i := 0; i < rows; i++ {
			snap.M[i] = make([]float64, cols)
			snap.V[i] = make([]float64, cols)
			for j := 0; j < cols; j++ {
				snap.M[i][j] = opt.m[l].At(i, j)
				snap.V[i][j] = opt.v[l].At(i, j)
			}
		}
		for i := 0; i < opt.mBias[l].Len(); i++ {
			snap.BiasM[i] = opt.mBias[l].AtVec(i)
			snap.BiasV[i] = opt.vBias[l].AtVec(i)
		}
		snaps[l] = snap
	}
	return snaps
}

// Restore loads optimizer state from a checkpoint snapshot
func (opt *AdamWOptimizer) Restore(snaps []models.OptimizerSnapshot, step int) error {
	opt.m = make([]*mat.Dense, len(snaps))
	opt.v = make([]*mat.Dense, len(snaps))
	opt.mBias = make([]*mat.VecDense, len(snaps))
	opt.vBias = make([]*mat.VecDense, len(snaps))
	for l, snap := range snaps {
		if len(snap.M) == 0 || len(snap.M) != len(snap.V) {
			return errors.NewValidationError("SNAPSHOT_SHAPE_MISMATCH", "optimizer snapshot moments malformed").
				WithContext("layer", l)
		}
		rows, cols := len(snap.M), len(snap.M[0])
		opt.m[l] = mat.NewDense(rows, cols, nil)
		opt.v[l] = mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				opt.m[l].Set(i, j, snap.M[i][j])
				opt.v[l].Set(i, j, snap.V[i][j])
			}
		}
		opt.mBias[l] = mat.NewVecDense(len(snap.BiasM), nil)
		opt.vBias[l] = mat.NewVecDense(len(snap.BiasV), nil)
		for i, v := range snap.BiasM {
			opt.mBias[l].SetVec(i, v)
		}
		for i, v := range snap.BiasV {
			opt.vBias[l].SetVec(i, v)
		}
	}
	opt.t = step
	return nil
}
