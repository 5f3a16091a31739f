package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/interfaces"
	"github.com/tradepulse/trademl/pkg/models"
)

// CollectorConfig configures the acquisition fan-out
type CollectorConfig struct {
	Symbols       []string      `json:"symbols"`
	BatchPerFetch int           `json:"batch_per_fetch"`
	FetchTimeout  time.Duration `json:"fetch_timeout"`
	MaxRetries    int           `json:"max_retries"`
	RetryBackoff  time.Duration `json:"retry_backoff"`
	Fanout        int           `json:"fanout"`
}

// getDefaultCollectorConfig returns the stock fetch limits
func getDefaultCollectorConfig() *CollectorConfig {
	return &CollectorConfig{
		BatchPerFetch: 100,
		FetchTimeout:  constants.DefaultFetchTimeout,
		MaxRetries:    constants.DefaultFetchRetries,
		RetryBackoff:  constants.DefaultFetchBackoff,
		Fanout:        constants.DefaultIngestFanout,
	}
}

// ActionSelector chooses an action from a policy prediction when
// generating fresh trajectories. Satisfied by replay.EpsilonGreedy.
type ActionSelector interface {
	SelectAction(prediction []float64) int
}

// Predictor evaluates the current policy network on a feature vector.
// Satisfied by training.Engine.
type Predictor interface {
	Predict(features []float64) ([]float64, error)
}

// Collector fans acquisition out across symbols and hands completed,
// immutable experiences to the buffer. Fetch calls are the core's only
// blocking externally-bounded operations; each carries its own timeout.
// The buffer's mutation remains the buffer's own critical section.
type Collector struct {
	logger   *logrus.Logger
	config   *CollectorConfig
	provider interfaces.FeatureProvider
	store    interfaces.ExperienceStore
	selector ActionSelector
	policy   Predictor
}

// NewCollector creates a collector. The selector and policy are
// optional; without them experiences keep their provider-labeled
// actions.
func NewCollector(config *CollectorConfig, provider interfaces.FeatureProvider, store interfaces.ExperienceStore, selector ActionSelector, policy Predictor, logger *logrus.Logger) *Collector {
	if config == nil {
		config = getDefaultCollectorConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Collector{
		logger:   logger,
		config:   config,
		provider: provider,
		store:    store,
		selector: selector,
		policy:   policy,
	}
}

// Collect fetches experiences for every configured symbol concurrently
// and stores them. Partial failures abort gracefully: successfully
// fetched vectors stay in the buffer and the combined failure surfaces
// as a retryable external-data error.
func (c *Collector) Collect(ctx context.Context) (int, error) {
	sem := make(chan struct{}, c.config.Fanout)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var stored int
	var failed []string

	for _, symbol := range c.config.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			n, err := c.collectSymbol(ctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			stored += n
			if err != nil {
				c.logger.WithError(err).WithField("symbol", symbol).Warn("Symbol collection failed")
				failed = append(failed, symbol)
			}
		}(symbol)
	}
	wg.Wait()

	if len(failed) > 0 {
		return stored, errors.NewExternalDataError("COLLECTION_INCOMPLETE", "one or more symbols failed to collect").
			WithContext("failed_symbols", failed).
			WithContext("stored", stored)
	}
	return stored, nil
}

// collectSymbol fetches one symbol's experiences with bounded retries
func (c *Collector) collectSymbol(ctx context.Context, symbol string) (int, error) {
	var exps []*models.Experience
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, errors.WrapError(ctx.Err(), errors.ErrorTypeExternalData, "FETCH_CANCELLED", "collection cancelled")
			case <-time.After(c.config.RetryBackoff * time.Duration(attempt)):
			}
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
		exps, lastErr = c.provider.FetchExperiences(fetchCtx, symbol, c.config.BatchPerFetch)
		cancel()
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return 0, errors.WrapError(lastErr, errors.ErrorTypeExternalData, "FETCH_FAILED", "feature provider fetch failed").
			WithContext("symbol", symbol)
	}

	stored := 0
	for _, exp := range exps {
		if exp.ID == "" {
			exp.ID = uuid.New().String()
		}
		if exp.Timestamp.IsZero() {
			exp.Timestamp = time.Now().UTC()
		}
		if exp.Symbol == "" {
			exp.Symbol = symbol
		}

		// Live trajectory generation: replace the provider's label with
		// the exploration policy's choice over the current network's
		// prediction.
		if c.selector != nil && c.policy != nil {
			if prediction, err := c.policy.Predict(exp.State); err == nil {
				exp.Action = c.selector.SelectAction(prediction)
			}
		}

		c.store.Add(exp)
		stored++
	}
	return stored, nil
}
