package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"IndexSentinel/internal/model"
)

// PostgresRecorder persists the same tables to Postgres through a pgx pool.
type PostgresRecorder struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

// NewPostgresRecorder connects, pings and migrates.
func NewPostgresRecorder(ctx context.Context, dsn string, logger logrus.FieldLogger) (*PostgresRecorder, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := &PostgresRecorder{pool: pool, logger: logger.WithField("component", "postgres")}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r.logger.WithField("max_conns", cfg.MaxConns).Info("postgres recorder opened")
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		`create table if not exists analysis_runs (
			id bigserial primary key,
			ts timestamptz not null,
			idx text not null,
			spot double precision,
			phase text,
			bias text,
			score double precision,
			confidence double precision,
			mode text,
			condition text,
			blocks int,
			signals int,
			alerts int,
			payload jsonb
		)`,
		`create index if not exists idx_analysis_ts on analysis_runs(idx, ts)`,
		`create table if not exists signals (
			id text primary key,
			ts timestamptz not null,
			idx text not null,
			direction text,
			signal_type text,
			entry_price double precision,
			stop_loss double precision,
			target double precision,
			risk_reward double precision,
			source_level double precision,
			source text,
			timeframe text,
			distance double precision,
			sentiment text,
			strike double precision,
			option_type text,
			status text
		)`,
		`create index if not exists idx_signals_ts on signals(idx, ts)`,
		`create table if not exists alerts (
			id text primary key,
			ts timestamptz not null,
			symbol text not null,
			alert_type text,
			level double precision,
			level_type text,
			price double precision,
			distance double precision,
			timeframe text,
			volume double precision
		)`,
		`create index if not exists idx_alerts_ts on alerts(symbol, ts)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *PostgresRecorder) RecordAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	var payload any
	if len(rec.Payload) > 0 {
		payload = string(rec.Payload)
	}
	_, err := r.pool.Exec(ctx, `insert into analysis_runs
		(ts, idx, spot, phase, bias, score, confidence, mode, condition, blocks, signals, alerts, payload)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rec.Time, rec.Index, rec.Spot, rec.Phase, string(rec.Bias), rec.Score, rec.Confidence,
		string(rec.Mode), string(rec.Condition), rec.Blocks, rec.Signals, rec.Alerts, payload,
	)
	return err
}

func (r *PostgresRecorder) RecordSignal(ctx context.Context, sig *model.TradingSignal) error {
	_, err := r.pool.Exec(ctx, `insert into signals
		(id, ts, idx, direction, signal_type, entry_price, stop_loss, target, risk_reward,
		 source_level, source, timeframe, distance, sentiment, strike, option_type, status)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		on conflict (id) do update set status = excluded.status`,
		sig.ID, sig.Timestamp, sig.Index, string(sig.Direction), sig.SignalType,
		sig.EntryPrice, sig.StopLoss, sig.Target, sig.RiskReward,
		sig.SourceLevel, sig.Source, sig.Timeframe, sig.Distance, string(sig.MarketSentiment),
		sig.Strike, sig.OptionType, string(sig.Status),
	)
	return err
}

func (r *PostgresRecorder) RecordAlert(ctx context.Context, a *model.ProximityAlert) error {
	_, err := r.pool.Exec(ctx, `insert into alerts
		(id, ts, symbol, alert_type, level, level_type, price, distance, timeframe, volume)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		on conflict (id) do nothing`,
		a.ID, a.Timestamp, a.Symbol, string(a.Type), a.Level, a.LevelType,
		a.Price, a.Distance, a.Timeframe, a.Volume,
	)
	return err
}

func (r *PostgresRecorder) RecentSignals(ctx context.Context, index string, limit int) ([]model.TradingSignal, error) {
	rows, err := r.pool.Query(ctx, `select
		id, ts, idx, direction, signal_type, entry_price, stop_loss, target, risk_reward,
		source_level, source, timeframe, distance, sentiment, strike, option_type, status
		from signals where ($1 = '' or idx = $1) order by ts desc limit $2`, index, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []model.TradingSignal
	for rows.Next() {
		var s model.TradingSignal
		var dir, sentiment, status string
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.Index, &dir, &s.SignalType, &s.EntryPrice, &s.StopLoss, &s.Target,
			&s.RiskReward, &s.SourceLevel, &s.Source, &s.Timeframe, &s.Distance, &sentiment, &s.Strike,
			&s.OptionType, &status); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		s.Direction = model.OptionSide(dir)
		s.MarketSentiment = model.BiasLabel(sentiment)
		s.Status = model.SignalStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRecorder) Close() error {
	r.pool.Close()
	r.logger.Info("postgres recorder closed")
	return nil
}
