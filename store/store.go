package store

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	versioner "github.com/reoring/versioner"
)

// ErrNotFound is returned by backends when a key does not exist.
var ErrNotFound = errors.New("store: record not found")

// Backend persists encoded records by key.
type Backend interface {
	// Get returns the stored bytes or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists the keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Store reads records of any registered version and hands them out migrated
// to the latest one. Records are stored as JSON.
type Store struct {
	chain     *versioner.Chain
	backend   Backend
	writeBack bool
	logger    *zap.Logger
	tracer    trace.Tracer
}

// Option configures a Store.
type Option func(*Store)

// WithWriteBack makes Load persist records it had to upgrade.
func WithWriteBack(enabled bool) Option {
	return func(s *Store) { s.writeBack = enabled }
}

// WithLogger attaches a zap logger. nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New creates a Store migrating through chain and persisting to backend.
func New(chain *versioner.Chain, backend Backend, opts ...Option) *Store {
	s := &Store{
		chain:   chain,
		backend: backend,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("github.com/reoring/versioner/store"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load reads key and migrates it to the latest version.
func (s *Store) Load(ctx context.Context, key string) (map[string]any, error) {
	ctx, span := s.tracer.Start(ctx, "store.Load", trace.WithAttributes(attribute.String("record.key", key)))
	defer span.End()

	data, err := s.read(ctx, key)
	if err != nil {
		return nil, fail(span, err)
	}
	rec, err := s.chain.SafeUpgradeToLatest(ctx, data)
	if err != nil {
		s.logger.Warn("record migration failed", zap.String("key", key), zap.Error(err))
		return nil, fail(span, err)
	}
	upgraded := versionChanged(data, rec)
	span.SetAttributes(attribute.Bool("record.upgraded", upgraded))
	if upgraded && s.writeBack {
		if err := s.write(ctx, key, rec); err != nil {
			return nil, fail(span, err)
		}
		s.logger.Debug("upgraded record written back", zap.String("key", key), zap.Any("v", rec[versioner.VersionField]))
	}
	return rec, nil
}

// LoadAt reads key and migrates it up to target only. Records are never
// written back from here.
func (s *Store) LoadAt(ctx context.Context, key string, target int) (map[string]any, error) {
	ctx, span := s.tracer.Start(ctx, "store.LoadAt", trace.WithAttributes(
		attribute.String("record.key", key),
		attribute.Int("record.target", target)))
	defer span.End()

	data, err := s.read(ctx, key)
	if err != nil {
		return nil, fail(span, err)
	}
	rec, err := s.chain.SafeUpgradeTo(ctx, data, target)
	if err != nil {
		return nil, fail(span, err)
	}
	return rec, nil
}

// Save validates rec against the latest schema and persists the normalized
// record. Validation failures are returned as versioner.Issues.
func (s *Store) Save(ctx context.Context, key string, rec map[string]any) error {
	ctx, span := s.tracer.Start(ctx, "store.Save", trace.WithAttributes(attribute.String("record.key", key)))
	defer span.End()

	latest := s.chain.LatestSchema()
	if latest == nil {
		return fail(span, versioner.ErrNoVersions)
	}
	norm, err := latest.Parse(ctx, rec)
	if err != nil {
		return fail(span, err)
	}
	if err := s.write(ctx, key, norm); err != nil {
		return fail(span, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	return nil
}

// Report summarizes a MigrateAll run.
type Report struct {
	Scanned  int
	Upgraded int
	Current  int              // records already at the latest version
	Failed   map[string]error // per-key migration or write failures
}

// MigrateAll upgrades and rewrites every record under prefix. Per-record
// failures are collected in the report; the returned error is reserved for
// listing failures and context cancellation.
func (s *Store) MigrateAll(ctx context.Context, prefix string) (Report, error) {
	ctx, span := s.tracer.Start(ctx, "store.MigrateAll", trace.WithAttributes(attribute.String("record.prefix", prefix)))
	defer span.End()

	rep := Report{Failed: map[string]error{}}
	keys, err := s.backend.Keys(ctx, prefix)
	if err != nil {
		return rep, fail(span, fmt.Errorf("store: list %q: %w", prefix, err))
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return rep, fail(span, err)
		}
		rep.Scanned++
		data, err := s.read(ctx, key)
		if err != nil {
			rep.Failed[key] = err
			continue
		}
		rec, err := s.chain.SafeUpgradeToLatest(ctx, data)
		if err != nil {
			rep.Failed[key] = err
			continue
		}
		if !versionChanged(data, rec) {
			rep.Current++
			continue
		}
		if err := s.write(ctx, key, rec); err != nil {
			rep.Failed[key] = err
			continue
		}
		rep.Upgraded++
	}
	span.SetAttributes(
		attribute.Int("migrate.scanned", rep.Scanned),
		attribute.Int("migrate.upgraded", rep.Upgraded),
		attribute.Int("migrate.failed", len(rep.Failed)))
	s.logger.Info("bulk migration finished",
		zap.String("prefix", prefix),
		zap.Int("scanned", rep.Scanned),
		zap.Int("upgraded", rep.Upgraded),
		zap.Int("current", rep.Current),
		zap.Int("failed", len(rep.Failed)))
	return rep, nil
}

func (s *Store) read(ctx context.Context, key string) (any, error) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", key, err)
	}
	data, err := versioner.DecodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("store: decode %q: %w", key, err)
	}
	return data, nil
}

func (s *Store) write(ctx context.Context, key string, rec map[string]any) error {
	b, err := versioner.EncodeJSON(rec)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, key, b); err != nil {
		return fmt.Errorf("store: save %q: %w", key, err)
	}
	return nil
}

// versionChanged compares the stored "v" with the migrated one.
func versionChanged(data any, rec map[string]any) bool {
	m, _ := data.(map[string]any)
	before, ok1 := versioner.ToFloat64(m[versioner.VersionField])
	after, ok2 := versioner.ToFloat64(rec[versioner.VersionField])
	return !ok1 || !ok2 || before != after
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
