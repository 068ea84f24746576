// Package sqlite implements the sequence and signal repositories on a
// local SQLite database. The store exclusively owns persisted state;
// sequence mutations go through an optimistic version check so a stale
// snapshot surfaces as a conflict instead of silently overwriting.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"signalbot/internal/domain"
	"signalbot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.SequenceRepository and ports.SignalRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signalbot.db"
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, but the Go driver benefits
	// from limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sequences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		status TEXT NOT NULL,
		weighted_avg_entry REAL NOT NULL,
		take_profit_1 REAL NOT NULL,
		take_profit_2 REAL NOT NULL,
		max_steps INTEGER NOT NULL,
		trigger_pct REAL NOT NULL,
		tp1_pct REAL NOT NULL,
		tp2_pct REAL NOT NULL,
		leverage REAL NOT NULL,
		last_suggestion_time TIMESTAMP DEFAULT NULL,
		close_outcome TEXT DEFAULT NULL,
		close_price REAL DEFAULT NULL,
		close_time TIMESTAMP DEFAULT NULL,
		opened_at TIMESTAMP NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS sequence_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence_id INTEGER NOT NULL REFERENCES sequences(id),
		step_number INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		margin REAL NOT NULL,
		multiplier REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		UNIQUE (sequence_id, step_number)
	);

	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL DEFAULT 0,
		take_profit_1 REAL NOT NULL,
		take_profit_2 REAL NOT NULL,
		confidence REAL NOT NULL,
		strategy TEXT NOT NULL,
		leverage REAL NOT NULL,
		margin REAL NOT NULL,
		rsi REAL NOT NULL DEFAULT 0,
		macd REAL NOT NULL DEFAULT 0,
		macd_signal REAL NOT NULL DEFAULT 0,
		ema50 REAL NOT NULL DEFAULT 0,
		sequence_id INTEGER DEFAULT NULL,
		step_number INTEGER NOT NULL DEFAULT 0,
		signal_time TIMESTAMP NOT NULL,
		outcome TEXT DEFAULT NULL,
		exit_price REAL DEFAULT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		pnl REAL NOT NULL DEFAULT 0,
		pnl_pct REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sequences_symbol_status ON sequences (symbol, status);
	CREATE INDEX IF NOT EXISTS idx_steps_sequence ON sequence_steps (sequence_id);
	CREATE INDEX IF NOT EXISTS idx_signals_status_kind ON signals (status, kind);
	CREATE INDEX IF NOT EXISTS idx_signals_sequence ON signals (sequence_id);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- SequenceRepository Implementation ---

// CreateSequence persists a new sequence with its steps and returns its assigned ID.
func (r *Repository) CreateSequence(ctx context.Context, seq *domain.Sequence) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %v", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback()

	const query = `
	INSERT INTO sequences (symbol, direction, status, weighted_avg_entry, take_profit_1, take_profit_2,
	                       max_steps, trigger_pct, tp1_pct, tp2_pct, leverage, last_suggestion_time, opened_at, version)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`

	result, err := tx.ExecContext(ctx, query,
		seq.Symbol, seq.Direction, seq.Status, seq.WeightedAvgEntry, seq.TakeProfit1, seq.TakeProfit2,
		seq.MaxSteps, seq.TriggerPct, seq.TP1Pct, seq.TP2Pct, seq.Leverage,
		nullTime(seq.LastSuggestionTime), seq.OpenedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sequence for symbol %s: %w", seq.Symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for sequence %s: %w", seq.Symbol, err)
	}

	if err := insertSteps(ctx, tx, id, seq.Steps); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: failed to commit sequence insert: %v", ports.ErrQueryFailed, err)
	}

	seq.ID = id
	seq.Version = 1
	r.logger.Debug(ctx, "Sequence created", map[string]interface{}{"sequenceID": id, "symbol": seq.Symbol})
	return id, nil
}

// SaveSequence persists a mutated sequence snapshot. The stored version
// must match the snapshot's; otherwise the write is rejected with
// ErrConflict and the caller retries on a fresh read.
func (r *Repository) SaveSequence(ctx context.Context, seq *domain.Sequence) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback()

	const query = `
	UPDATE sequences
	SET status = ?, weighted_avg_entry = ?, take_profit_1 = ?, take_profit_2 = ?,
	    last_suggestion_time = ?, close_outcome = ?, close_price = ?, close_time = ?,
	    version = version + 1
	WHERE id = ? AND version = ?`

	result, err := tx.ExecContext(ctx, query,
		seq.Status, seq.WeightedAvgEntry, seq.TakeProfit1, seq.TakeProfit2,
		nullTime(seq.LastSuggestionTime), nullString(string(seq.CloseOutcome)),
		nullFloat(seq.ClosePrice), nullTime(seq.CloseTime),
		seq.ID, seq.Version)
	if err != nil {
		return fmt.Errorf("failed to update sequence ID %d: %w", seq.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for sequence ID %d: %w", seq.ID, err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sequences WHERE id = ?)`, seq.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check existence of sequence ID %d: %w", seq.ID, err)
		}
		if !exists {
			return fmt.Errorf("sequence ID %d not found for update: %w", seq.ID, ports.ErrNotFound)
		}
		return fmt.Errorf("sequence ID %d changed since it was read (version %d): %w", seq.ID, seq.Version, ports.ErrConflict)
	}

	// Steps are append-only; replacing the set keeps the write simple.
	if _, err := tx.ExecContext(ctx, `DELETE FROM sequence_steps WHERE sequence_id = ?`, seq.ID); err != nil {
		return fmt.Errorf("failed to clear steps for sequence ID %d: %w", seq.ID, err)
	}
	if err := insertSteps(ctx, tx, seq.ID, seq.Steps); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit sequence update: %v", ports.ErrQueryFailed, err)
	}

	seq.Version++
	r.logger.Debug(ctx, "Sequence saved", map[string]interface{}{"sequenceID": seq.ID, "status": seq.Status, "version": seq.Version})
	return nil
}

// FindSequenceByID retrieves a sequence with all its steps. Returns nil, nil if not found.
func (r *Repository) FindSequenceByID(ctx context.Context, id int64) (*domain.Sequence, error) {
	row := r.db.QueryRowContext(ctx, sequenceSelect+` WHERE id = ?`, id)
	seq, err := scanSequence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query sequence by ID %d: %w", id, err)
	}
	if err := r.loadSteps(ctx, seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// FindActiveSequences retrieves all sequences with status ACTIVE, steps included.
func (r *Repository) FindActiveSequences(ctx context.Context) ([]*domain.Sequence, error) {
	rows, err := r.db.QueryContext(ctx, sequenceSelect+` WHERE status = ? ORDER BY opened_at`, domain.SequenceActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sequences: %w", err)
	}
	defer rows.Close()

	sequences := make([]*domain.Sequence, 0)
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence during FindActiveSequences: %w", err)
		}
		sequences = append(sequences, seq)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sequence rows: %w", err)
	}
	for _, seq := range sequences {
		if err := r.loadSteps(ctx, seq); err != nil {
			return nil, err
		}
	}
	return sequences, nil
}

// FindActiveSequenceBySymbol retrieves the active sequence for a symbol
// and direction, if any. Returns nil, nil if none is open.
func (r *Repository) FindActiveSequenceBySymbol(ctx context.Context, symbol string, dir domain.Direction) (*domain.Sequence, error) {
	row := r.db.QueryRowContext(ctx, sequenceSelect+` WHERE symbol = ? AND direction = ? AND status = ?`,
		symbol, dir, domain.SequenceActive)
	seq, err := scanSequence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query active sequence for symbol %s: %w", symbol, err)
	}
	if err := r.loadSteps(ctx, seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// TouchSuggestionTime records the last suggestion timestamp. The write
// deliberately skips the version bump: a delivered suggestion must not
// invalidate a concurrent step append.
func (r *Repository) TouchSuggestionTime(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE sequences SET last_suggestion_time = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch suggestion time for sequence ID %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for sequence ID %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("sequence ID %d not found: %w", id, ports.ErrNotFound)
	}
	return nil
}

func (r *Repository) loadSteps(ctx context.Context, seq *domain.Sequence) error {
	const query = `
	SELECT step_number, entry_price, margin, multiplier, entry_time
	FROM sequence_steps WHERE sequence_id = ? ORDER BY step_number`

	rows, err := r.db.QueryContext(ctx, query, seq.ID)
	if err != nil {
		return fmt.Errorf("failed to query steps for sequence ID %d: %w", seq.ID, err)
	}
	defer rows.Close()

	steps := make([]domain.Step, 0, 2)
	for rows.Next() {
		var st domain.Step
		if err := rows.Scan(&st.StepNumber, &st.EntryPrice, &st.Margin, &st.Multiplier, &st.EntryTime); err != nil {
			return fmt.Errorf("failed to scan step for sequence ID %d: %w", seq.ID, err)
		}
		steps = append(steps, st)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating step rows for sequence ID %d: %w", seq.ID, err)
	}
	seq.Steps = steps
	return nil
}

func insertSteps(ctx context.Context, tx *sql.Tx, sequenceID int64, steps []domain.Step) error {
	const query = `
	INSERT INTO sequence_steps (sequence_id, step_number, entry_price, margin, multiplier, entry_time)
	VALUES (?, ?, ?, ?, ?, ?)`
	for _, st := range steps {
		if _, err := tx.ExecContext(ctx, query,
			sequenceID, st.StepNumber, st.EntryPrice, st.Margin, st.Multiplier, st.EntryTime); err != nil {
			return fmt.Errorf("failed to insert step %d for sequence ID %d: %w", st.StepNumber, sequenceID, err)
		}
	}
	return nil
}

// --- SignalRepository Implementation ---

// CreateSignal persists a new signal record and returns its assigned ID.
func (r *Repository) CreateSignal(ctx context.Context, sig *domain.Signal) (int64, error) {
	const query = `
	INSERT INTO signals (symbol, direction, kind, status, entry_price, stop_loss, take_profit_1, take_profit_2,
	                     confidence, strategy, leverage, margin, rsi, macd, macd_signal, ema50,
	                     sequence_id, step_number, signal_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var sequenceID sql.NullInt64
	if sig.SequenceID != 0 {
		sequenceID = sql.NullInt64{Int64: sig.SequenceID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		sig.Symbol, sig.Direction, sig.Kind, sig.Status, sig.EntryPrice, sig.StopLoss, sig.TakeProfit1, sig.TakeProfit2,
		sig.Confidence, sig.StrategyName, sig.RecommendedLev, sig.RecommendedMargin,
		sig.Indicators.RSI, sig.Indicators.MACD, sig.Indicators.MACDSignal, sig.Indicators.EMA50,
		sequenceID, sig.StepNumber, sig.SignalTime)
	if err != nil {
		return 0, fmt.Errorf("failed to insert signal for symbol %s: %w", sig.Symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for signal %s: %w", sig.Symbol, err)
	}
	sig.ID = id
	r.logger.Debug(ctx, "Signal created", map[string]interface{}{"signalID": id, "symbol": sig.Symbol, "kind": sig.Kind})
	return id, nil
}

// UpdateSignal persists a mutated signal (status, outcome, PnL).
func (r *Repository) UpdateSignal(ctx context.Context, sig *domain.Signal) error {
	const query = `
	UPDATE signals
	SET status = ?, outcome = ?, exit_price = ?, exit_time = ?, pnl = ?, pnl_pct = ?
	WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		sig.Status, nullString(string(sig.Outcome)), nullFloat(sig.ExitPrice), nullTime(sig.ExitTime),
		sig.PNL, sig.PNLPct, sig.ID)
	if err != nil {
		return fmt.Errorf("failed to update signal ID %d: %w", sig.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for signal ID %d: %w", sig.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("signal ID %d not found for update: %w", sig.ID, ports.ErrNotFound)
	}
	return nil
}

// FindActiveStandaloneSignals retrieves active signals without a sequence linkage.
func (r *Repository) FindActiveStandaloneSignals(ctx context.Context) ([]*domain.Signal, error) {
	rows, err := r.db.QueryContext(ctx, signalSelect+` WHERE status = ? AND sequence_id IS NULL ORDER BY signal_time`,
		domain.SignalActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active standalone signals: %w", err)
	}
	defer rows.Close()

	signals := make([]*domain.Signal, 0)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal during FindActiveStandaloneSignals: %w", err)
		}
		signals = append(signals, sig)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return signals, nil
}

// CloseSignalsForSequence marks all active signals of a sequence closed
// with the given outcome.
func (r *Repository) CloseSignalsForSequence(ctx context.Context, sequenceID int64, outcome domain.SignalOutcome, exitPrice float64, at time.Time) error {
	const query = `
	UPDATE signals
	SET status = ?, outcome = ?, exit_price = ?, exit_time = ?
	WHERE sequence_id = ? AND status = ?`

	_, err := r.db.ExecContext(ctx, query,
		domain.SignalClosed, string(outcome), exitPrice, at, sequenceID, domain.SignalActive)
	if err != nil {
		return fmt.Errorf("failed to close signals for sequence ID %d: %w", sequenceID, err)
	}
	return nil
}

// GetPerformance aggregates closed-signal statistics since the given time.
func (r *Repository) GetPerformance(ctx context.Context, since time.Time) (*ports.Performance, error) {
	const query = `
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN outcome IN (?, ?) THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(pnl), 0),
	       COALESCE(MAX(pnl), 0),
	       COALESCE(MIN(pnl), 0)
	FROM signals
	WHERE status = ? AND exit_time >= ?`

	perf := &ports.Performance{}
	err := r.db.QueryRowContext(ctx, query,
		domain.SignalHitTP1, domain.SignalHitTP2, domain.SignalClosed, since).
		Scan(&perf.TotalSignals, &perf.WinningSignals, &perf.TotalPNL, &perf.BestPNL, &perf.WorstPNL)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate signal performance: %w", err)
	}

	perf.LosingSignals = perf.TotalSignals - perf.WinningSignals
	if perf.TotalSignals > 0 {
		perf.WinRate = float64(perf.WinningSignals) / float64(perf.TotalSignals) * 100
		perf.AvgPNL = perf.TotalPNL / float64(perf.TotalSignals)
	}
	return perf, nil
}

// --- Helper Scan Functions ---

const sequenceSelect = `
	SELECT id, symbol, direction, status, weighted_avg_entry, take_profit_1, take_profit_2,
	       max_steps, trigger_pct, tp1_pct, tp2_pct, leverage,
	       last_suggestion_time, close_outcome, close_price, close_time, opened_at, version
	FROM sequences`

const signalSelect = `
	SELECT id, symbol, direction, kind, status, entry_price, stop_loss, take_profit_1, take_profit_2,
	       confidence, strategy, leverage, margin, rsi, macd, macd_signal, ema50,
	       sequence_id, step_number, signal_time, outcome, exit_price, exit_time, pnl, pnl_pct
	FROM signals`

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSequence(s scanner) (*domain.Sequence, error) {
	seq := &domain.Sequence{}
	var (
		direction, status  string
		lastSuggestion     sql.NullTime
		closeOutcome       sql.NullString
		closePrice         sql.NullFloat64
		closeTime          sql.NullTime
	)
	err := s.Scan(
		&seq.ID, &seq.Symbol, &direction, &status, &seq.WeightedAvgEntry, &seq.TakeProfit1, &seq.TakeProfit2,
		&seq.MaxSteps, &seq.TriggerPct, &seq.TP1Pct, &seq.TP2Pct, &seq.Leverage,
		&lastSuggestion, &closeOutcome, &closePrice, &closeTime, &seq.OpenedAt, &seq.Version)
	if err != nil {
		return nil, err // handle sql.ErrNoRows in the caller
	}
	seq.Direction = domain.Direction(direction)
	seq.Status = domain.SequenceStatus(status)
	if lastSuggestion.Valid {
		seq.LastSuggestionTime = lastSuggestion.Time
	}
	if closeOutcome.Valid {
		seq.CloseOutcome = domain.CloseOutcome(closeOutcome.String)
	}
	if closePrice.Valid {
		seq.ClosePrice = closePrice.Float64
	}
	if closeTime.Valid {
		seq.CloseTime = closeTime.Time
	}
	return seq, nil
}

func scanSignal(s scanner) (*domain.Signal, error) {
	sig := &domain.Signal{}
	var (
		direction, kind, status string
		sequenceID              sql.NullInt64
		outcome                 sql.NullString
		exitPrice               sql.NullFloat64
		exitTime                sql.NullTime
	)
	err := s.Scan(
		&sig.ID, &sig.Symbol, &direction, &kind, &status,
		&sig.EntryPrice, &sig.StopLoss, &sig.TakeProfit1, &sig.TakeProfit2,
		&sig.Confidence, &sig.StrategyName, &sig.RecommendedLev, &sig.RecommendedMargin,
		&sig.Indicators.RSI, &sig.Indicators.MACD, &sig.Indicators.MACDSignal, &sig.Indicators.EMA50,
		&sequenceID, &sig.StepNumber, &sig.SignalTime, &outcome, &exitPrice, &exitTime, &sig.PNL, &sig.PNLPct)
	if err != nil {
		return nil, err // handle sql.ErrNoRows in the caller
	}
	sig.Direction = domain.Direction(direction)
	sig.Kind = domain.SignalKind(kind)
	sig.Status = domain.SignalStatus(status)
	if sequenceID.Valid {
		sig.SequenceID = sequenceID.Int64
	}
	if outcome.Valid {
		sig.Outcome = domain.SignalOutcome(outcome.String)
	}
	if exitPrice.Valid {
		sig.ExitPrice = exitPrice.Float64
	}
	if exitTime.Valid {
		sig.ExitTime = exitTime.Time
	}
	return sig, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
