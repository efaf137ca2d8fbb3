package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	versioner "github.com/reoring/versioner"
	"github.com/reoring/versioner/dsl"
	"github.com/reoring/versioner/store"
)

func noteChain() *versioner.Chain {
	v1 := dsl.Object().Version(1).Field("title", dsl.String()).Required().MustBuild()
	v2 := dsl.Extend(v1).Version(2).Field("content", dsl.String()).Required().MustBuild()
	return versioner.New().
		Register(v1, nil).
		Register(v2, func(prev map[string]any) map[string]any {
			prev["content"] = "migrated"
			return prev
		})
}

func put(t *testing.T, b store.Backend, key, raw string) {
	t.Helper()
	require.NoError(t, b.Put(context.Background(), key, []byte(raw)))
}

func TestStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("upgrades without write-back", func(t *testing.T) {
		mem := store.NewMemory()
		put(t, mem, "notes/1", `{"v":1,"title":"T"}`)
		s := store.New(noteChain(), mem)

		rec, err := s.Load(ctx, "notes/1")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"v": 2, "title": "T", "content": "migrated"}, rec)

		raw, err := mem.Get(ctx, "notes/1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":1,"title":"T"}`, string(raw))
	})

	t.Run("write-back persists upgraded records", func(t *testing.T) {
		mem := store.NewMemory()
		put(t, mem, "notes/1", `{"v":1,"title":"T"}`)
		s := store.New(noteChain(), mem, store.WithWriteBack(true))

		_, err := s.Load(ctx, "notes/1")
		require.NoError(t, err)

		raw, err := mem.Get(ctx, "notes/1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2,"title":"T","content":"migrated"}`, string(raw))
	})

	t.Run("missing key", func(t *testing.T) {
		s := store.New(noteChain(), store.NewMemory())
		_, err := s.Load(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		mem := store.NewMemory()
		put(t, mem, "bad", `{"v":`)
		_, err := store.New(noteChain(), mem).Load(ctx, "bad")
		iss, ok := versioner.AsIssues(err)
		require.True(t, ok)
		assert.Equal(t, versioner.CodeParseError, iss[0].Code)
	})

	t.Run("unsupported version is classified", func(t *testing.T) {
		mem := store.NewMemory()
		put(t, mem, "old", `{"v":0,"title":"T"}`)
		_, err := store.New(noteChain(), mem).Load(ctx, "old")
		assert.True(t, versioner.IsUnsupportedVersion(err))
	})
}

func TestStore_LoadAt(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	put(t, mem, "n", `{"v":1,"title":"T"}`)
	s := store.New(noteChain(), mem, store.WithWriteBack(true))

	rec, err := s.LoadAt(ctx, "n", 1)
	require.NoError(t, err)
	v, ok := versioner.ToFloat64(rec["v"])
	require.True(t, ok)
	assert.Equal(t, float64(1), v)
	assert.Equal(t, "T", rec["title"])

	_, err = s.LoadAt(ctx, "n", 7)
	assert.ErrorIs(t, err, versioner.ErrUnknownTargetVersion)

	raw, _ := mem.Get(ctx, "n")
	assert.JSONEq(t, `{"v":1,"title":"T"}`, string(raw), "LoadAt never writes back")
}

func TestStore_Save(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	s := store.New(noteChain(), mem)

	require.NoError(t, s.Save(ctx, "n", map[string]any{"v": 2, "title": "T", "content": "C"}))
	raw, err := mem.Get(ctx, "n")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2,"title":"T","content":"C"}`, string(raw))

	err = s.Save(ctx, "old", map[string]any{"v": 1, "title": "T"})
	require.Error(t, err)
	_, err = mem.Get(ctx, "old")
	assert.ErrorIs(t, err, store.ErrNotFound, "rejected records are not written")

	err = store.New(versioner.New(), mem).Save(ctx, "x", map[string]any{"v": 1})
	assert.ErrorIs(t, err, versioner.ErrNoVersions)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	put(t, mem, "n", `{"v":2,"title":"T","content":"C"}`)
	s := store.New(noteChain(), mem)

	require.NoError(t, s.Delete(ctx, "n"))
	_, err := s.Load(ctx, "n")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "n"), "deleting a missing key is not an error")
}

func TestStore_MigrateAll(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	put(t, mem, "notes/a", `{"v":1,"title":"A"}`)
	put(t, mem, "notes/b", `{"v":2,"title":"B","content":"kept"}`)
	put(t, mem, "notes/c", `{"v":9}`)
	put(t, mem, "other/d", `{"v":1,"title":"D"}`)

	core, logs := observer.New(zapcore.InfoLevel)
	s := store.New(noteChain(), mem, store.WithLogger(zap.New(core)))

	rep, err := s.MigrateAll(ctx, "notes/")
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Scanned)
	assert.Equal(t, 1, rep.Upgraded)
	assert.Equal(t, 1, rep.Current)
	require.Len(t, rep.Failed, 1)
	assert.True(t, versioner.IsUnsupportedVersion(rep.Failed["notes/c"]))

	raw, _ := mem.Get(ctx, "notes/a")
	assert.JSONEq(t, `{"v":2,"title":"A","content":"migrated"}`, string(raw))
	raw, _ = mem.Get(ctx, "other/d")
	assert.JSONEq(t, `{"v":1,"title":"D"}`, string(raw), "keys outside the prefix are untouched")

	entries := logs.FilterMessage("bulk migration finished").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["upgraded"])
}

func TestStore_MigrateAllCancelled(t *testing.T) {
	mem := store.NewMemory()
	put(t, mem, "a", `{"v":1,"title":"A"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.New(noteChain(), mem).MigrateAll(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

type failingBackend struct{ store.Backend }

func (failingBackend) Keys(context.Context, string) ([]string, error) {
	return nil, errors.New("backend down")
}

func TestStore_MigrateAllListFailure(t *testing.T) {
	_, err := store.New(noteChain(), failingBackend{store.NewMemory()}).MigrateAll(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

func TestStore_Tracing(t *testing.T) {
	ctx := context.Background()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mem := store.NewMemory()
	put(t, mem, "ok", `{"v":1,"title":"T"}`)
	s := store.New(noteChain(), mem, store.WithTracer(tp.Tracer("test")))

	_, err := s.Load(ctx, "ok")
	require.NoError(t, err)
	_, err = s.Load(ctx, "missing")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "store.Load", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestMemory_Isolation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	buf := []byte(`{"v":1}`)
	require.NoError(t, mem.Put(ctx, "k", buf))
	buf[0] = 'x'

	got, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(got))

	got[0] = 'y'
	again, _ := mem.Get(ctx, "k")
	assert.Equal(t, `{"v":1}`, string(again))

	require.NoError(t, mem.Put(ctx, "b", nil))
	keys, err := mem.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "k"}, keys)
}
