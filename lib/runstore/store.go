// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runstore

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/neuromorphic-platform/nmpi-ci/lib/codec"
	"github.com/neuromorphic-platform/nmpi-ci/lib/pipeline"
	"github.com/neuromorphic-platform/nmpi-ci/lib/sqlitepool"
)

// schema is applied to every new connection. CREATE IF NOT EXISTS
// makes it idempotent; the first connection creates the tables.
const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id           INTEGER PRIMARY KEY,
		pipeline     TEXT NOT NULL,
		fingerprint  TEXT NOT NULL,
		status       TEXT NOT NULL,
		started_at   TEXT NOT NULL,
		completed_at TEXT NOT NULL,
		duration_ms  INTEGER NOT NULL,
		document     BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON runs(pipeline, id);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status, id);

	CREATE TABLE IF NOT EXISTS stage_logs (
		run_id            INTEGER NOT NULL,
		stage             TEXT NOT NULL,
		compression       INTEGER NOT NULL,
		digest            TEXT NOT NULL,
		uncompressed_size INTEGER NOT NULL,
		compressed_size   INTEGER NOT NULL,
		content           BLOB NOT NULL,
		PRIMARY KEY (run_id, stage)
	);
`

// Store manages SQLite storage for run history. Runs are write-once:
// RecordRun inserts a complete run with its stage logs in one
// transaction, and nothing updates a run afterwards.
//
// Store is safe for concurrent use.
type Store struct {
	pool        *sqlitepool.Pool
	logger      *slog.Logger
	compression CompressionTag
}

// Config holds the parameters for opening a run store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to
	// 2 if zero or negative: the CLI records one run and reads a few.
	PoolSize int

	// Compression selects the stage log compression algorithm.
	// Defaults to zstd. Content that does not shrink is stored raw
	// regardless.
	Compression CompressionTag

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// Open opens (creating if necessary) a run store at the configured
// path. The caller must call Close.
func Open(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("run store: Logger is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}
	compression := cfg.Compression
	if compression == CompressionNone {
		compression = CompressionZstd
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("run store: %w", err)
	}

	return &Store{
		pool:        pool,
		logger:      cfg.Logger,
		compression: compression,
	}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// StageLog is the captured output of one stage, as passed to
// RecordRun. Output is the masked bytes; skipped stages have no entry.
type StageLog struct {
	Stage  string
	Output []byte
}

// RunSummary is one row of ListRuns output: the run's summary columns
// without the full document.
type RunSummary struct {
	ID          int64  `json:"id"`
	Pipeline    string `json:"pipeline"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
	DurationMS  int64  `json:"duration_ms"`
}

// RecordRun stores a completed run and its stage logs in a single
// transaction. The result must validate; the run document is encoded
// as deterministic CBOR. Returns the new run's ID.
func (s *Store) RecordRun(ctx context.Context, result *pipeline.RunResult, logs []StageLog) (int64, error) {
	if err := result.Validate(); err != nil {
		return 0, fmt.Errorf("run store: %w", err)
	}

	document, err := codec.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("run store: encoding run document: %w", err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("run store: record run: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("run store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `INSERT INTO runs
		(pipeline, fingerprint, status, started_at, completed_at, duration_ms, document)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			result.Pipeline,
			result.Fingerprint,
			result.Status,
			result.StartedAt,
			result.CompletedAt,
			result.DurationMS,
			document,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("run store: inserting run: %w", err)
	}
	runID := conn.LastInsertRowID()

	for _, log := range logs {
		if err = s.insertStageLog(conn, runID, log); err != nil {
			return 0, err
		}
	}

	s.logger.Debug("run recorded",
		"id", runID,
		"pipeline", result.Pipeline,
		"status", result.Status,
		"stage_logs", len(logs))
	return runID, nil
}

// insertStageLog compresses, digests, and inserts one stage's output.
func (s *Store) insertStageLog(conn *sqlite.Conn, runID int64, log StageLog) error {
	digest := HashStageLog(log.Output)
	content, tag, err := Compress(log.Output, s.compression)
	if err != nil {
		return fmt.Errorf("run store: compressing log for stage %q: %w", log.Stage, err)
	}

	err = sqlitex.Execute(conn, `INSERT INTO stage_logs
		(run_id, stage, compression, digest, uncompressed_size, compressed_size, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			runID,
			log.Stage,
			int(tag),
			FormatDigest(digest),
			len(log.Output),
			len(content),
			content,
		},
	})
	if err != nil {
		return fmt.Errorf("run store: inserting log for stage %q: %w", log.Stage, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. A non-positive
// limit defaults to 20.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("run store: list runs: %w", err)
	}
	defer s.pool.Put(conn)

	var summaries []RunSummary
	err = sqlitex.Execute(conn, `SELECT id, pipeline, fingerprint, status,
		started_at, completed_at, duration_ms
		FROM runs ORDER BY id DESC LIMIT ?`, &sqlitex.ExecOptions{
		Args: []any{limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			summaries = append(summaries, RunSummary{
				ID:          stmt.ColumnInt64(0),
				Pipeline:    stmt.ColumnText(1),
				Fingerprint: stmt.ColumnText(2),
				Status:      stmt.ColumnText(3),
				StartedAt:   stmt.ColumnText(4),
				CompletedAt: stmt.ColumnText(5),
				DurationMS:  stmt.ColumnInt64(6),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("run store: list runs: %w", err)
	}
	return summaries, nil
}

// GetRunDocument returns a run's raw CBOR document. Callers that want
// the decoded result use GetRun; the raw form feeds diagnostic export.
func (s *Store) GetRunDocument(ctx context.Context, id int64) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("run store: get run %d: %w", id, err)
	}
	defer s.pool.Put(conn)

	var document []byte
	err = sqlitex.Execute(conn, `SELECT document FROM runs WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			document = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, document)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("run store: get run %d: %w", id, err)
	}
	if document == nil {
		return nil, fmt.Errorf("run store: run %d not found", id)
	}
	return document, nil
}

// GetRun returns a stored run result.
func (s *Store) GetRun(ctx context.Context, id int64) (*pipeline.RunResult, error) {
	document, err := s.GetRunDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	var result pipeline.RunResult
	if err := codec.Unmarshal(document, &result); err != nil {
		return nil, fmt.Errorf("run store: decoding run %d: %w", id, err)
	}
	return &result, nil
}

// GetStageLog returns one stage's output, decompressed and verified
// against its stored digest.
func (s *Store) GetStageLog(ctx context.Context, id int64, stage string) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("run store: get stage log: %w", err)
	}
	defer s.pool.Put(conn)

	var content []byte
	var tag CompressionTag
	var storedDigest string
	var uncompressedSize int
	found := false

	err = sqlitex.Execute(conn, `SELECT compression, digest, uncompressed_size, content
		FROM stage_logs WHERE run_id = ? AND stage = ?`, &sqlitex.ExecOptions{
		Args: []any{id, stage},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			tag = CompressionTag(stmt.ColumnInt(0))
			storedDigest = stmt.ColumnText(1)
			uncompressedSize = stmt.ColumnInt(2)
			content = make([]byte, stmt.ColumnLen(3))
			stmt.ColumnBytes(3, content)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("run store: get stage log: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("run store: no log for run %d stage %q", id, stage)
	}

	output, err := Decompress(content, tag, uncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("run store: run %d stage %q: %w", id, stage, err)
	}

	if computed := FormatDigest(HashStageLog(output)); computed != storedDigest {
		return nil, fmt.Errorf("run store: run %d stage %q: digest mismatch (stored %s, computed %s)",
			id, stage, storedDigest, computed)
	}
	return output, nil
}
