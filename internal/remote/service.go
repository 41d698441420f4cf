package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/hackpath/internal/content"
)

const tracerName = "github.com/roach88/hackpath/internal/remote"

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Service is a SQL-backed progress service.
type Service struct {
	db     *sqlx.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider. Default: otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// Open connects to the database and creates the tables.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Service, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("remote: unsupported driver %q (want %s or %s)", driver, DriverSQLite, DriverPostgres)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	s := New(db, opts...)
	if err := s.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. The schema must already exist; use Open to
// create it.
func New(db *sqlx.DB, opts ...Option) *Service {
	s := &Service{
		db:     db,
		tracer: otel.GetTracerProvider().Tracer(tracerName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database.
func (s *Service) Close() error {
	return s.db.Close()
}

func (s *Service) initializeSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS completions (
			subject_id   TEXT    NOT NULL,
			node_id      TEXT    NOT NULL,
			completed_at BIGINT  NOT NULL,
			view_count   INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (subject_id, node_id)
		)`,
		`CREATE TABLE IF NOT EXISTS routine_positions (
			subject_id TEXT    NOT NULL,
			routine_id TEXT    NOT NULL,
			position   INTEGER NOT NULL,
			progress   INTEGER NOT NULL,
			updated_at BIGINT  NOT NULL,
			PRIMARY KEY (subject_id, routine_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

type completionRow struct {
	SubjectID   string `db:"subject_id"`
	NodeID      string `db:"node_id"`
	CompletedAt int64  `db:"completed_at"`
	ViewCount   int    `db:"view_count"`
}

func (r completionRow) record() content.CompletionRecord {
	return content.CompletionRecord{
		SubjectID:   r.SubjectID,
		NodeID:      r.NodeID,
		CompletedAt: time.UnixMilli(r.CompletedAt).UTC(),
		ViewCount:   r.ViewCount,
	}
}

type positionRow struct {
	SubjectID string `db:"subject_id"`
	RoutineID string `db:"routine_id"`
	Position  int    `db:"position"`
	Progress  int    `db:"progress"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r positionRow) position() content.RoutinePosition {
	return content.RoutinePosition{
		RoutineID: r.RoutineID,
		Position:  r.Position,
		Progress:  r.Progress,
		UpdatedAt: time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

// span starts a span for op; end records err on it.
func (s *Service) span(ctx context.Context, op string, id content.Identity, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs,
		attribute.String("hackpath.identity", id.String()),
		attribute.String("db.system", s.db.DriverName()),
	)
	ctx, span := s.tracer.Start(ctx, "remote."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// FetchCompletionSet returns every completion of id, ordered by node id.
func (s *Service) FetchCompletionSet(ctx context.Context, id content.Identity) (out []content.CompletionRecord, err error) {
	ctx, end := s.span(ctx, "fetch_completions", id)
	defer func() { end(err) }()

	var rows []completionRow
	q := s.db.Rebind(`SELECT subject_id, node_id, completed_at, view_count
		FROM completions WHERE subject_id = ? ORDER BY node_id ASC`)
	if err := s.db.SelectContext(ctx, &rows, q, id.String()); err != nil {
		return nil, fmt.Errorf("fetch completions: %w", err)
	}
	out = make([]content.CompletionRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

// UpsertCompletion stores rec for id, keeping the earliest completion time
// and the highest view count.
func (s *Service) UpsertCompletion(ctx context.Context, id content.Identity, rec content.CompletionRecord) (err error) {
	ctx, end := s.span(ctx, "upsert_completion", id, attribute.String("hackpath.node", rec.NodeID))
	defer func() { end(err) }()

	viewCount := max(rec.ViewCount, 1)
	q := s.db.Rebind(`INSERT INTO completions (subject_id, node_id, completed_at, view_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (subject_id, node_id) DO UPDATE SET
			completed_at = CASE WHEN excluded.completed_at < completions.completed_at
				THEN excluded.completed_at ELSE completions.completed_at END,
			view_count = CASE WHEN excluded.view_count > completions.view_count
				THEN excluded.view_count ELSE completions.view_count END`)
	if _, err := s.db.ExecContext(ctx, q, id.String(), content.NormalizeID(rec.NodeID), rec.CompletedAt.UnixMilli(), viewCount); err != nil {
		return fmt.Errorf("upsert completion %s: %w", rec.NodeID, err)
	}
	return nil
}

// FetchRoutinePosition returns the stored position of one routine.
func (s *Service) FetchRoutinePosition(ctx context.Context, id content.Identity, routineID string) (pos content.RoutinePosition, ok bool, err error) {
	ctx, end := s.span(ctx, "fetch_position", id, attribute.String("hackpath.routine", routineID))
	defer func() { end(err) }()

	var row positionRow
	q := s.db.Rebind(`SELECT subject_id, routine_id, position, progress, updated_at
		FROM routine_positions WHERE subject_id = ? AND routine_id = ?`)
	err = s.db.GetContext(ctx, &row, q, id.String(), content.NormalizeID(routineID))
	if errors.Is(err, sql.ErrNoRows) {
		return content.RoutinePosition{}, false, nil
	}
	if err != nil {
		return content.RoutinePosition{}, false, fmt.Errorf("fetch position %s: %w", routineID, err)
	}
	return row.position(), true, nil
}

// FetchRoutinePositions returns every stored position of id.
func (s *Service) FetchRoutinePositions(ctx context.Context, id content.Identity) (out []content.RoutinePosition, err error) {
	ctx, end := s.span(ctx, "fetch_positions", id)
	defer func() { end(err) }()

	var rows []positionRow
	q := s.db.Rebind(`SELECT subject_id, routine_id, position, progress, updated_at
		FROM routine_positions WHERE subject_id = ? ORDER BY routine_id ASC`)
	if err := s.db.SelectContext(ctx, &rows, q, id.String()); err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	out = make([]content.RoutinePosition, len(rows))
	for i, r := range rows {
		out[i] = r.position()
	}
	return out, nil
}

// UpsertRoutinePosition stores pos unless a newer position is stored.
// Replaying the same write is a no-op.
func (s *Service) UpsertRoutinePosition(ctx context.Context, id content.Identity, pos content.RoutinePosition) (err error) {
	ctx, end := s.span(ctx, "upsert_position", id,
		attribute.String("hackpath.routine", pos.RoutineID),
		attribute.Int("hackpath.position", pos.Position),
	)
	defer func() { end(err) }()

	q := s.db.Rebind(`INSERT INTO routine_positions (subject_id, routine_id, position, progress, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (subject_id, routine_id) DO UPDATE SET
			position = excluded.position,
			progress = excluded.progress,
			updated_at = excluded.updated_at
		WHERE routine_positions.updated_at <= excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, q, id.String(), content.NormalizeID(pos.RoutineID), pos.Position, pos.Progress, pos.UpdatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("upsert position %s: %w", pos.RoutineID, err)
	}
	return nil
}
