package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/models"
)

// HTTPFeatureProvider pulls labeled experience vectors from the feature
// service over REST.
type HTTPFeatureProvider struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

func NewHTTPFeatureProvider(baseURL string, logger *logrus.Logger) *HTTPFeatureProvider {
	return &HTTPFeatureProvider{
		baseURL: baseURL,
		client:  &http.Client{},
		logger:  logger,
	}
}

// FetchExperiences requests up to limit experiences for one symbol. The
// caller bounds the request lifetime through ctx.
func (p *HTTPFeatureProvider) FetchExperiences(ctx context.Context, symbol string, limit int) ([]*models.Experience, error) {
	endpoint := fmt.Sprintf("%s/api/v1/experiences?symbol=%s&limit=%d",
		p.baseURL, url.QueryEscape(symbol), limit)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var exps []*models.Experience
	if err := json.NewDecoder(resp.Body).Decode(&exps); err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"count":  len(exps),
	}).Debug("Experiences fetched")

	return exps, nil
}
