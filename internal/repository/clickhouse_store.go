package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradeMood/internal/domain/models"
	"TradeMood/internal/domain/repository"
)

// ClickHouseStore implements SignalStore on ClickHouse. History tables are
// append-only; idempotency comes from ReplacingMergeTree keyed by
// (symbol, window start) for trends and by sequence number for signals and
// trades, so at-least-once retries collapse to one row.
type ClickHouseStore struct {
	db       *sql.DB
	database string
}

// NewClickHouseStore creates ClickHouse-backed signal storage.
func NewClickHouseStore(db *sql.DB, database string) repository.SignalStore {
	return &ClickHouseStore{db: db, database: database}
}

// Schema returns the DDL statements for the store's tables.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.sentiment_samples (
			symbol String, source String, ts DateTime, label String, confidence Float64, score Float64
		) ENGINE=MergeTree ORDER BY (symbol, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.trend_signals (
			symbol String, window_start DateTime, window_end DateTime,
			sample_count UInt32, mean_score Float64, dispersion Float64,
			direction String, insufficient UInt8, generated_at DateTime
		) ENGINE=ReplacingMergeTree(generated_at) ORDER BY (symbol, window_start)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.trading_signals (
			symbol String, seq UInt64, ts DateTime, action String, confidence Float64,
			mean_score Float64, direction String, price Float64
		) ENGINE=ReplacingMergeTree(ts) ORDER BY (symbol, seq)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.trades (
			symbol String, side String, quantity Float64,
			entry_price Float64, entry_ts DateTime, exit_price Float64, exit_ts DateTime,
			realized_pnl Float64, open_seq UInt64, close_seq UInt64
		) ENGINE=ReplacingMergeTree(exit_ts) ORDER BY (symbol, close_seq)`, database),
	}
}

func (s *ClickHouseStore) Init(ctx context.Context) error {
	return nil // schema init in pkg
}

func (s *ClickHouseStore) StoreSample(ctx context.Context, sm *models.SentimentSample) error {
	q := fmt.Sprintf("INSERT INTO %s.sentiment_samples (symbol, source, ts, label, confidence, score) VALUES (?, ?, ?, ?, ?, ?)", s.database)
	_, err := s.db.ExecContext(ctx, q, sm.Symbol, sm.Source, sm.Timestamp, string(sm.Label), sm.Confidence, sm.Score())
	return err
}

func (s *ClickHouseStore) StoreTrend(ctx context.Context, t *models.TrendSignal) error {
	q := fmt.Sprintf(`INSERT INTO %s.trend_signals
		(symbol, window_start, window_end, sample_count, mean_score, dispersion, direction, insufficient, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	insufficient := uint8(0)
	if t.Insufficient {
		insufficient = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		t.Symbol, t.Window.Start, t.Window.End,
		uint32(t.SampleCount), t.MeanScore, t.Dispersion,
		string(t.Direction), insufficient, t.GeneratedAt,
	)
	return err
}

func (s *ClickHouseStore) StoreSignal(ctx context.Context, sig *models.TradingSignal) error {
	q := fmt.Sprintf(`INSERT INTO %s.trading_signals
		(symbol, seq, ts, action, confidence, mean_score, direction, price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	_, err := s.db.ExecContext(ctx, q,
		sig.Symbol, sig.Sequence, sig.Timestamp, string(sig.Action), sig.Confidence,
		sig.Trend.MeanScore, string(sig.Trend.Direction), sig.Price.Price,
	)
	return err
}

func (s *ClickHouseStore) StoreTrade(ctx context.Context, t *models.Trade) error {
	q := fmt.Sprintf(`INSERT INTO %s.trades
		(symbol, side, quantity, entry_price, entry_ts, exit_price, exit_ts, realized_pnl, open_seq, close_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database)
	_, err := s.db.ExecContext(ctx, q,
		t.Symbol, string(t.Side), t.Quantity,
		t.EntryPrice, t.EntryTime, t.ExitPrice, t.ExitTime,
		t.RealizedPNL, t.OpenSequence, t.CloseSequence,
	)
	return err
}

func (s *ClickHouseStore) QueryTrades(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Trade, error) {
	q := fmt.Sprintf(`SELECT symbol, side, quantity, entry_price, entry_ts, exit_price, exit_ts, realized_pnl, open_seq, close_seq
		FROM %s.trades FINAL
		WHERE symbol = ? AND exit_ts >= ? AND exit_ts <= ?
		ORDER BY close_seq DESC LIMIT ?`, s.database)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		var side string
		if err := rows.Scan(&t.Symbol, &side, &t.Quantity, &t.EntryPrice, &t.EntryTime, &t.ExitPrice, &t.ExitTime, &t.RealizedPNL, &t.OpenSequence, &t.CloseSequence); err != nil {
			return nil, err
		}
		t.Side = models.Side(side)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *ClickHouseStore) QuerySignals(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.TradingSignal, error) {
	q := fmt.Sprintf(`SELECT symbol, seq, ts, action, confidence, mean_score, direction, price
		FROM %s.trading_signals FINAL
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY seq DESC LIMIT ?`, s.database)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []*models.TradingSignal
	for rows.Next() {
		var sig models.TradingSignal
		var action, direction string
		if err := rows.Scan(&sig.Symbol, &sig.Sequence, &sig.Timestamp, &action, &sig.Confidence, &sig.Trend.MeanScore, &direction, &sig.Price.Price); err != nil {
			return nil, err
		}
		sig.Action = models.Action(action)
		sig.Trend.Symbol = sig.Symbol
		sig.Trend.Direction = models.Direction(direction)
		sig.Price.Symbol = sig.Symbol
		sigs = append(sigs, &sig)
	}
	return sigs, rows.Err()
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStore) Close() error {
	return nil // managed by pkg
}
