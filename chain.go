package versioner

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reoring/versioner/i18n"
	js "github.com/reoring/versioner/jsonschema"
)

// noVersion marks "no version known yet" in logs and metrics.
const noVersion = math.MinInt

// UpgradeFunc converts a record shaped like the previous version into one
// shaped like the version it is registered with. The "v" field is removed
// from the input and overwritten on the output by the Chain.
type UpgradeFunc func(prev map[string]any) map[string]any

type handler struct {
	version int
	schema  Versioned
	// upgrade is the stamped wrapper; nil only for the first handler.
	upgrade  func(map[string]any) map[string]any
	declared bool // whether the caller supplied an UpgradeFunc
}

// Chain is an append-only registry of versioned schemas and the upgrades
// between them. Migration walks the registry in registration order, never in
// numeric version order.
//
// Register during setup; all other methods are safe for concurrent use.
type Chain struct {
	mu       sync.RWMutex
	handlers []handler
	index    map[int]int // version -> position in handlers

	name    string
	logger  *zap.Logger
	metrics *Metrics
}

// New creates an empty Chain.
func New(opts ...Option) *Chain {
	c := &Chain{
		index:  map[int]int{},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.name != "" {
		c.logger = c.logger.With(zap.String("chain", c.name))
	}
	return c
}

// Register appends a schema and its optional upgrade from the previously
// registered schema. It panics with *RegistrationError when the version or
// the schema itself is already registered; use SafeRegister to get the error.
func (c *Chain) Register(s Versioned, up UpgradeFunc) *Chain {
	if err := c.SafeRegister(s, up); err != nil {
		panic(err)
	}
	return c
}

// SafeRegister is like Register but returns the registration error.
func (c *Chain) SafeRegister(s Versioned, up UpgradeFunc) error {
	if s == nil {
		return &RegistrationError{Reason: "nil schema"}
	}
	ver, ok := s.VersionLiteral()
	if !ok {
		return &RegistrationError{Reason: `schema does not declare an integer literal for "v"`}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i, dup := c.index[ver]; dup {
		return &RegistrationError{Version: ver, Conflict: true, Existing: c.handlers[i].version}
	}
	for _, h := range c.handlers {
		if sameSchema(h.schema, s) {
			return &RegistrationError{Version: ver, Conflict: true, Existing: h.version}
		}
	}
	if len(c.handlers) == 0 && up != nil {
		return &RegistrationError{Version: ver, Reason: "the first version has no predecessor to upgrade from"}
	}

	h := handler{version: ver, schema: s, declared: up != nil}
	if len(c.handlers) > 0 {
		h.upgrade = stamp(ver, up)
	}
	c.handlers = append(c.handlers, h)
	c.index[ver] = len(c.handlers) - 1

	c.logger.Info("version registered",
		zap.Int("version", ver),
		zap.Int("position", len(c.handlers)-1),
		zap.Bool("upgrade", up != nil))
	return nil
}

// stamp wraps up so it receives a copy without "v" and its output always
// carries ver, whatever the function wrote there. A nil up carries the record
// over unchanged apart from the version.
func stamp(ver int, up UpgradeFunc) func(map[string]any) map[string]any {
	return func(prev map[string]any) map[string]any {
		in := make(map[string]any, len(prev))
		for k, v := range prev {
			if k != VersionField {
				in[k] = v
			}
		}
		out := in
		if up != nil {
			out = up(in)
		}
		res := make(map[string]any, len(out)+1)
		for k, v := range out {
			res[k] = v
		}
		res[VersionField] = ver
		return res
	}
}

// snapshot returns the handlers registered so far. The registry is
// append-only, so the returned prefix never changes under the caller.
func (c *Chain) snapshot() []handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handlers[:len(c.handlers):len(c.handlers)]
}

// LatestVersion returns the version of the most recently registered schema,
// or 0 when nothing is registered.
func (c *Chain) LatestVersion() int {
	hs := c.snapshot()
	if len(hs) == 0 {
		return 0
	}
	return hs[len(hs)-1].version
}

// LatestSchema returns the most recently registered schema, or nil.
func (c *Chain) LatestSchema() Versioned {
	hs := c.snapshot()
	if len(hs) == 0 {
		return nil
	}
	return hs[len(hs)-1].schema
}

// Versions lists the registered versions in registration order.
func (c *Chain) Versions() []int {
	return versionsOf(c.snapshot())
}

// Len returns the number of registered versions.
func (c *Chain) Len() int { return len(c.snapshot()) }

// SafeUpgradeToLatest migrates data through every remaining upgrade up to the
// last registered schema. Data problems are reported as Issues.
func (c *Chain) SafeUpgradeToLatest(ctx context.Context, data any) (map[string]any, error) {
	start := time.Now()
	hs := c.snapshot()
	if len(hs) == 0 {
		c.metrics.observeMigration(start, noVersion, noVersion, OutcomeNoVersions)
		return nil, ErrNoVersions
	}
	to := hs[len(hs)-1].version
	out, from, err := c.migrate(ctx, data, hs)
	c.metrics.observeMigration(start, from, to, outcomeOf(err))
	return out, err
}

// SafeUpgradeTo migrates data up to and including the handler registered for
// target. An unregistered target yields *UnknownTargetError, whether or not
// data itself is valid.
func (c *Chain) SafeUpgradeTo(ctx context.Context, data any, target int) (map[string]any, error) {
	start := time.Now()
	c.mu.RLock()
	i, ok := c.index[target]
	hs := c.handlers[:len(c.handlers):len(c.handlers)]
	c.mu.RUnlock()
	if !ok {
		c.metrics.observeMigration(start, noVersion, target, OutcomeUnknownTarget)
		return nil, &UnknownTargetError{Target: target, Registered: versionsOf(hs)}
	}
	out, from, err := c.migrate(ctx, data, hs[:i+1])
	c.metrics.observeMigration(start, from, target, outcomeOf(err))
	return out, err
}

// IsLatest reports whether data validates against the latest schema as is.
func (c *Chain) IsLatest(ctx context.Context, data any) bool {
	s := c.LatestSchema()
	if s == nil {
		return false
	}
	return Is[map[string]any](ctx, s, data)
}

// HasLatestStructure reports whether data matches every field of the latest
// schema other than "v". The "v" value must still be numeric but is replaced
// by the latest version before validation.
func (c *Chain) HasLatestStructure(ctx context.Context, data any) bool {
	hs := c.snapshot()
	if len(hs) == 0 {
		return false
	}
	rec, _, err := readVersion(data)
	if err != nil {
		return false
	}
	latest := hs[len(hs)-1]
	rec[VersionField] = latest.version
	_, err = latest.schema.Parse(ctx, rec)
	return err == nil
}

// JSONSchemas projects every registered schema into JSON Schema, keyed by version.
func (c *Chain) JSONSchemas() (map[int]*js.Schema, error) {
	hs := c.snapshot()
	out := make(map[int]*js.Schema, len(hs))
	for _, h := range hs {
		s, err := h.schema.JSONSchema()
		if err != nil {
			return nil, err
		}
		if s == nil {
			s = &js.Schema{}
		}
		s.SchemaURI = js.Draft
		if s.Title == "" {
			s.Title = "v" + strconv.Itoa(h.version)
		}
		out[h.version] = s
	}
	return out, nil
}

// migrate walks hs from the handler matching the record's version to the end
// of hs, validating the output of every later step. The starting record is
// not validated, so a record already at the end of hs comes back as given. It also returns the source version for
// observability (noVersion when it could not be determined).
func (c *Chain) migrate(ctx context.Context, data any, hs []handler) (map[string]any, int, error) {
	rec, n, err := readVersion(data)
	if err != nil {
		return nil, noVersion, err
	}

	p := -1
	if ver, ok := asVersion(n); ok {
		for i, h := range hs {
			if h.version == ver {
				p = i
				break
			}
		}
	}
	if p < 0 {
		return nil, noVersion, unsupportedVersion(n, hs)
	}

	from := hs[p].version
	cur := rec
	for i := p + 1; i < len(hs); i++ {
		h := hs[i]
		if err := ctx.Err(); err != nil {
			return nil, from, err
		}
		next := h.upgrade(cur)
		out, err := h.schema.Parse(ctx, next)
		if err != nil {
			c.logger.Debug("upgrade step rejected",
				zap.Int("from", from),
				zap.Int("to", h.version),
				zap.Error(err))
			return nil, from, err
		}
		c.metrics.observeStep(h.version)
		c.logger.Debug("upgrade step applied",
			zap.Int("from", from),
			zap.Int("to", h.version),
			zap.Bool("transform", h.declared))
		cur = out
	}
	return cur, from, nil
}

func unsupportedVersion(n float64, hs []handler) Issues {
	supported := versionsOf(hs)
	got := strconv.FormatFloat(n, 'f', -1, 64)
	msg := i18n.T(i18n.KeyUnsupportedVersion, map[string]string{"got": got, "supported": joinInts(supported)})
	return Issues{Root().Field(VersionField).Issue(CodeInvalidValue, msg, "got", n, "supported", supported)}
}

func versionsOf(hs []handler) []int {
	out := make([]int, len(hs))
	for i, h := range hs {
		out[i] = h.version
	}
	return out
}
