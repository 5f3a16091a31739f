package training

import (
	"math"

	"github.com/tradepulse/trademl/pkg/models"
)

// evaluator accumulates per-sample predictions and targets for one
// epoch and reduces them into loss and accuracy metrics.
type evaluator struct {
	predictions [][]float64
	targets     [][]float64
}

func (e *evaluator) add(prediction, target []float64) {
	e.predictions = append(e.predictions, prediction)
	e.targets = append(e.targets, target)
}

func (e *evaluator) count() int {
	return len(e.predictions)
}

// lossMetrics reduces the accumulated samples into MSE, MAE, and R²
func (e *evaluator) lossMetrics() models.LossMetrics {
	var n float64
	var sqSum, absSum, tgtSum float64
	for i := range e.predictions {
		for j := range e.predictions[i] {
			d := e.predictions[i][j] - e.targets[i][j]
			sqSum += d * d
			absSum += math.Abs(d)
			tgtSum += e.targets[i][j]
			n++
		}
	}
	if n == 0 {
		return models.LossMetrics{}
	}

	tgtMean := tgtSum / n
	var ssTot float64
	for i := range e.targets {
		for j := range e.targets[i] {
			d := e.targets[i][j] - tgtMean
			ssTot += d * d
		}
	}

	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1 - sqSum/ssTot
	}

	return models.LossMetrics{
		MSE:      sqSum / n,
		MAE:      absSum / n,
		RSquared: rSquared,
	}
}

// accuracyMetrics reduces the accumulated samples into directional and
// classification accuracy. Labels follow the down/neutral/up encoding;
// directional accuracy only requires the predicted side of neutral to
// match, classification requires the exact label.
func (e *evaluator) accuracyMetrics() models.AccuracyMetrics {
	if len(e.predictions) == 0 {
		return models.AccuracyMetrics{}
	}

	var directional, classification int
	for i := range e.predictions {
		pred, tgt := e.predictions[i], e.targets[i]
		if len(pred) == 1 {
			// Scalar outputs: direction is the side of the midpoint
			if (pred[0] >= 0.5) == (tgt[0] >= 0.5) {
				directional++
				classification++
			}
			continue
		}

		p, t := argmaxOf(pred), argmaxOf(tgt)
		if p == t {
			classification++
		}
		if sign(p-1) == sign(t-1) {
			directional++
		}
	}

	n := float64(len(e.predictions))
	return models.AccuracyMetrics{
		Directional:    float64(directional) / n,
		Classification: float64(classification) / n,
	}
}

func argmaxOf(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
