package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"IndexSentinel/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger logrus.FieldLogger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger logrus.FieldLogger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.WithField("component", "sqlite")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			idx         TEXT NOT NULL,
			spot        REAL,
			phase       TEXT,
			bias        TEXT,
			score       REAL,
			confidence  REAL,
			mode        TEXT,
			condition   TEXT,
			blocks      INTEGER,
			signals     INTEGER,
			alerts      INTEGER,
			payload     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_ts ON analysis_runs(idx, timestamp)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			idx          TEXT NOT NULL,
			direction    TEXT,
			signal_type  TEXT,
			entry_price  REAL,
			stop_loss    REAL,
			target       REAL,
			risk_reward  REAL,
			source_level REAL,
			source       TEXT,
			timeframe    TEXT,
			distance     REAL,
			sentiment    TEXT,
			strike       REAL,
			option_type  TEXT,
			status       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(idx, timestamp)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id         TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			alert_type TEXT,
			level      REAL,
			level_type TEXT,
			price      REAL,
			distance   REAL,
			timeframe  TEXT,
			volume     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO analysis_runs
		(timestamp, idx, spot, phase, bias, score, confidence, mode, condition, blocks, signals, alerts, payload)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.Time.UnixMilli(), rec.Index, rec.Spot, rec.Phase, string(rec.Bias), rec.Score, rec.Confidence,
		string(rec.Mode), string(rec.Condition), rec.Blocks, rec.Signals, rec.Alerts, string(rec.Payload),
	)
	return err
}

func (r *SQLiteRecorder) RecordSignal(ctx context.Context, sig *model.TradingSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO signals
		(id, timestamp, idx, direction, signal_type, entry_price, stop_loss, target, risk_reward,
		 source_level, source, timeframe, distance, sentiment, strike, option_type, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		sig.ID, sig.Timestamp.UnixMilli(), sig.Index, string(sig.Direction), sig.SignalType,
		sig.EntryPrice, sig.StopLoss, sig.Target, sig.RiskReward,
		sig.SourceLevel, sig.Source, sig.Timeframe, sig.Distance, string(sig.MarketSentiment),
		sig.Strike, sig.OptionType, string(sig.Status),
	)
	return err
}

func (r *SQLiteRecorder) RecordAlert(ctx context.Context, a *model.ProximityAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO alerts
		(id, timestamp, symbol, alert_type, level, level_type, price, distance, timeframe, volume)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Timestamp.UnixMilli(), a.Symbol, string(a.Type), a.Level, a.LevelType,
		a.Price, a.Distance, a.Timeframe, a.Volume,
	)
	return err
}

func (r *SQLiteRecorder) RecentSignals(ctx context.Context, index string, limit int) ([]model.TradingSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT
		id, timestamp, idx, direction, signal_type, entry_price, stop_loss, target, risk_reward,
		source_level, source, timeframe, distance, sentiment, strike, option_type, status
		FROM signals WHERE (? = '' OR idx = ?) ORDER BY timestamp DESC LIMIT ?`, index, index, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []model.TradingSignal
	for rows.Next() {
		var s model.TradingSignal
		var ts int64
		var dir, sentiment, status string
		if err := rows.Scan(&s.ID, &ts, &s.Index, &dir, &s.SignalType, &s.EntryPrice, &s.StopLoss, &s.Target,
			&s.RiskReward, &s.SourceLevel, &s.Source, &s.Timeframe, &s.Distance, &sentiment, &s.Strike,
			&s.OptionType, &status); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		s.Timestamp = time.UnixMilli(ts)
		s.Direction = model.OptionSide(dir)
		s.MarketSentiment = model.BiasLabel(sentiment)
		s.Status = model.SignalStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
