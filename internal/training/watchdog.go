package training

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/models"
)

// Verdict is the watchdog's judgement of one training step
type Verdict int

const (
	// VerdictHealthy means the step's numbers are finite and bounded
	VerdictHealthy Verdict = iota
	// VerdictUnstable means the step was bad but below the reset window
	VerdictUnstable
	// VerdictReset means the consecutive-failure window was hit and the
	// engine must perform a full reset
	VerdictReset
)

// WatchdogConfig exposes the instability thresholds. The explosion norm
// and window are empirically chosen, not derived.
type WatchdogConfig struct {
	ExplosionNorm float64 `json:"explosion_norm"` // gradient norm beyond which a step counts as exploding
	Window        int     `json:"window"`         // consecutive bad steps before a reset
	ResetBudget   int     `json:"reset_budget"`   // resets before training is declared fatal
	LRCutFactor   float64 `json:"lr_cut_factor"`  // learning-rate multiplier applied on reset
}

// getDefaultWatchdogConfig returns the tuned thresholds
func getDefaultWatchdogConfig() *WatchdogConfig {
	return &WatchdogConfig{
		ExplosionNorm: constants.DefaultExplosionNorm,
		Window:        constants.DefaultInstabilityWindow,
		ResetBudget:   constants.DefaultResetBudget,
		LRCutFactor:   constants.DefaultLRCutFactor,
	}
}

// Watchdog inspects each step's gradient norm and loss for NaN, Inf, or
// norm explosion. Every event is counted in the stability metrics, so
// training can never silently diverge without it being observable.
type Watchdog struct {
	logger    *logrus.Logger
	config    *WatchdogConfig
	stability models.StabilityMetrics
	streak    int
}

// NewWatchdog creates a watchdog. Nil config or logger get defaults.
func NewWatchdog(config *WatchdogConfig, logger *logrus.Logger) *Watchdog {
	if config == nil {
		config = getDefaultWatchdogConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Watchdog{logger: logger, config: config}
}

// Inspect judges one step. NaN and Inf are counted separately; a
// gradient norm beyond the explosion threshold counts as unstable
// without incrementing either counter. The streak resets on any healthy
// step.
func (w *Watchdog) Inspect(gradientNorm, loss float64) Verdict {
	unstable := false

	if math.IsNaN(gradientNorm) || math.IsNaN(loss) {
		w.stability.NaNCount++
		unstable = true
	}
	if math.IsInf(gradientNorm, 0) || math.IsInf(loss, 0) {
		w.stability.InfCount++
		unstable = true
	}
	if !unstable && gradientNorm > w.config.ExplosionNorm {
		unstable = true
	}

	if !unstable {
		w.streak = 0
		return VerdictHealthy
	}

	w.streak++
	w.logger.WithFields(logrus.Fields{
		"gradient_norm": gradientNorm,
		"loss":          loss,
		"streak":        w.streak,
	}).Warn("Numeric instability detected")

	if w.streak >= w.config.Window {
		w.streak = 0
		w.stability.ResetCount++
		return VerdictReset
	}
	return VerdictUnstable
}

// BudgetExhausted reports whether the reset budget has been spent
func (w *Watchdog) BudgetExhausted() bool {
	return w.stability.ResetCount > w.config.ResetBudget
}

// LRCutFactor returns the learning-rate multiplier applied on reset
func (w *Watchdog) LRCutFactor() float64 {
	return w.config.LRCutFactor
}

// Stability returns a copy of the cumulative stability counters
func (w *Watchdog) Stability() models.StabilityMetrics {
	return w.stability
}
