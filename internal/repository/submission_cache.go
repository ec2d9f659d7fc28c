package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/pkg/cache"
	"FinRisk/pkg/util"
)

const submissionPrefix = "submission"

// CacheSubmissionStore keeps the latest submission per symbol in a cache
// backend (memory or redis) under submission:{SYMBOL}.
type CacheSubmissionStore struct {
	c   cache.Service
	ttl time.Duration
}

// NewCacheSubmissionStore stores submissions in c. A zero ttl keeps them
// until overwritten.
func NewCacheSubmissionStore(c cache.Service, ttl time.Duration) *CacheSubmissionStore {
	return &CacheSubmissionStore{c: c, ttl: ttl}
}

func (s *CacheSubmissionStore) Init(context.Context) error { return nil }

func (s *CacheSubmissionStore) Save(ctx context.Context, sub *models.Submission) error {
	key := submissionKey(sub.Symbol)
	if err := s.c.Set(ctx, key, sub, s.ttl); err != nil {
		return fmt.Errorf("save submission %s: %w", key, err)
	}
	return nil
}

func (s *CacheSubmissionStore) Latest(ctx context.Context, symbol string) (*models.Submission, error) {
	var sub models.Submission
	if err := s.c.Get(ctx, submissionKey(symbol), &sub); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("load submission %s: %w", symbol, err)
	}
	return &sub, nil
}

func (s *CacheSubmissionStore) Close() error { return s.c.Close() }

func submissionKey(symbol string) string {
	return cache.GenerateKey(submissionPrefix, util.NormalizeSymbol(symbol))
}

var _ domrepo.SubmissionStore = (*CacheSubmissionStore)(nil)
