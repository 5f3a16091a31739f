package interfaces

import (
	"context"

	"github.com/tradepulse/trademl/pkg/models"
)

// FeatureProvider is the boundary to the external feature-extraction
// service. It turns market data for a symbol into fixed-length feature
// vectors with down/neutral/up labels. The training core treats these
// purely as shape-contracted numeric inputs; retry/backoff for the
// underlying market-data fetches lives behind this interface.
type FeatureProvider interface {
	// FetchExperiences returns up to limit labeled experiences for a symbol
	FetchExperiences(ctx context.Context, symbol string, limit int) ([]*models.Experience, error)
}

// ExperienceStore is the subset of the replay buffer the ingestion
// pipeline needs: a sink for completed, immutable feature vectors.
type ExperienceStore interface {
	// Add inserts one experience, evicting if the store is at capacity
	Add(exp *models.Experience)

	// Len reports the current number of stored experiences
	Len() int
}
