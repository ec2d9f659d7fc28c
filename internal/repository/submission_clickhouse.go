package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	pkgch "FinRisk/pkg/clickhouse"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/util"
)

const userForecastsTable = "user_forecasts"

// CHSubmissionStore persists submissions in ClickHouse. The table is a
// ReplacingMergeTree keyed by symbol, so the newest row wins on merge and
// Latest reads with FINAL.
type CHSubmissionStore struct {
	ch  *pkgch.Client
	db  *sql.DB
	log *applogger.Logger
}

func NewCHSubmissionStore(ch *pkgch.Client, log *applogger.Logger) *CHSubmissionStore {
	return &CHSubmissionStore{ch: ch, db: ch.DB(), log: log}
}

func (s *CHSubmissionStore) Init(ctx context.Context) error {
	return s.ch.ApplySchema(ctx,
		`CREATE TABLE IF NOT EXISTS ` + userForecastsTable + ` (
			symbol      LowCardinality(String),
			id          String,
			created_at  DateTime64(3, 'UTC'),
			base_price  Float64,
			base_time   DateTime64(3, 'UTC'),
			step_ms     Int64,
			predictions String
		) ENGINE = ReplacingMergeTree(created_at)
		ORDER BY symbol`,
	)
}

func (s *CHSubmissionStore) Save(ctx context.Context, sub *models.Submission) error {
	start := time.Now()
	preds, err := json.Marshal(sub.Predictions)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	const q = `INSERT INTO ` + userForecastsTable +
		` (symbol, id, created_at, base_price, base_time, step_ms, predictions) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		util.NormalizeSymbol(sub.Symbol),
		sub.ID,
		sub.CreatedAt.UTC(),
		sub.BasePrice,
		sub.BaseTime.UTC(),
		sub.Step.Milliseconds(),
		string(preds),
	)
	if err != nil {
		s.log.Error("clickhouse save_submission error",
			applogger.String("symbol", sub.Symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("insert submission: %w", err)
	}
	s.log.Debug("clickhouse save_submission ok",
		applogger.String("symbol", sub.Symbol),
		applogger.String("id", sub.ID),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHSubmissionStore) Latest(ctx context.Context, symbol string) (*models.Submission, error) {
	const q = `SELECT symbol, id, created_at, base_price, base_time, step_ms, predictions
		FROM ` + userForecastsTable + ` FINAL
		WHERE symbol = ?
		ORDER BY created_at DESC
		LIMIT 1`

	var (
		sub    models.Submission
		stepMS int64
		preds  string
	)
	err := s.db.QueryRowContext(ctx, q, util.NormalizeSymbol(symbol)).
		Scan(&sub.Symbol, &sub.ID, &sub.CreatedAt, &sub.BasePrice, &sub.BaseTime, &stepMS, &preds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query submission: %w", err)
	}
	if err := json.Unmarshal([]byte(preds), &sub.Predictions); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	sub.Step = time.Duration(stepMS) * time.Millisecond
	return &sub, nil
}

func (s *CHSubmissionStore) Close() error { return s.ch.Close() }

var _ domrepo.SubmissionStore = (*CHSubmissionStore)(nil)
