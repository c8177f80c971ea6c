package analyzer

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"go-trustshield/internal/logger"
	"go-trustshield/pkg/models"
	"go-trustshield/pkg/validation"
)

// URLScanOutcome is the result of one URL in a batch
type URLScanOutcome struct {
	URL    string                  `json:"url"`
	Result *models.CanonicalResult `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// BatchScanURLs scans every target on pool, each with its own analyzer from
// newAnalyzer. Outcomes are returned in input order.
func BatchScanURLs(ctx context.Context, pool *WorkerPool, newAnalyzer func() (*Analyzer, error), targets []string) []URLScanOutcome {
	outcomes := make([]URLScanOutcome, len(targets))
	var mu sync.Mutex

	pool.Start()

	for i, target := range targets {
		i, target := i, target
		job := func() {
			outcome := scanOne(ctx, newAnalyzer, target)
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
		}
		if !pool.Submit(job) {
			outcomes[i] = URLScanOutcome{URL: target, Error: "worker pool closed"}
		}
	}
	pool.Wait()

	logger.WithFields(logrus.Fields{
		"targets": len(targets),
		"stats":   pool.GetStats(),
	}).Info("Batch URL scan finished")
	return outcomes
}

func scanOne(ctx context.Context, newAnalyzer func() (*Analyzer, error), target string) URLScanOutcome {
	outcome := URLScanOutcome{URL: target}
	normalized, err := validation.ValidateTarget(target)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.URL = normalized

	a, err := newAnalyzer()
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	defer a.Reset()

	a.Collector().SetURL(normalized)
	if _, err := a.Submit(ctx); err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	if err := a.Wait(ctx); err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Result = a.Result()
	return outcome
}
