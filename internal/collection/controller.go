package collection

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/obs"
)

// State tracks where a list page is in its lifecycle.
type State int

const (
	// StateIdle means nothing has been loaded yet.
	StateIdle State = iota
	// StateLoading means the initial or a fresh page fetch is in flight.
	StateLoading
	// StateLoaded means a snapshot is available.
	StateLoaded
	// StateLoadError means the last load failed and no snapshot exists.
	StateLoadError
	// StateMutating means a create/update/delete is in flight.
	StateMutating
	// StateMutateError means the last mutation failed; the prior snapshot
	// is retained.
	StateMutateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadError:
		return "load_error"
	case StateMutating:
		return "mutating"
	case StateMutateError:
		return "mutate_error"
	default:
		return "unknown"
	}
}

// Controller implements the generic list-page pattern for one entity
// collection: paged load, client-side filter, and mutations that converge
// the local snapshot by invalidate-then-refetch. One instance per entity
// page; entity pages never share a controller.
type Controller struct {
	desc   Descriptor
	api    *backend.Client
	cache  *Cache
	logger zerolog.Logger

	mu       sync.Mutex
	state    State
	page     int
	perPage  int
	snapshot []map[string]any
	total    int
	lastErr  string
}

// ControllerConfig wires a Controller's dependencies.
type ControllerConfig struct {
	Descriptor Descriptor
	API        *backend.Client
	Cache      *Cache
	Logger     zerolog.Logger
}

// NewController constructs a Controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("collection %q: backend client is required", cfg.Descriptor.Name)
	}
	if strings.TrimSpace(cfg.Descriptor.Name) == "" || strings.TrimSpace(cfg.Descriptor.Path) == "" {
		return nil, fmt.Errorf("collection descriptor needs a name and path")
	}
	return &Controller{
		desc:   cfg.Descriptor,
		api:    cfg.API,
		cache:  cfg.Cache,
		logger: cfg.Logger.With().Str("collection", cfg.Descriptor.Name).Logger(),
		state:  StateIdle,
		total:  -1,
	}, nil
}

// Descriptor returns the collection descriptor.
func (c *Controller) Descriptor() Descriptor {
	return c.desc
}

// Load fetches one page of the collection and replaces the snapshot. The
// cache is consulted first; a miss goes to the backend via limit/offset.
// On failure the controller lands in StateLoadError and the error message
// is retained for display; there is no automatic retry.
func (c *Controller) Load(ctx context.Context, page, perPage int) error {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	c.mu.Lock()
	c.state = StateLoading
	c.page = page
	c.perPage = perPage
	c.mu.Unlock()

	var snap snapshot
	if c.cache != nil {
		if ok, err := c.cache.GetPage(ctx, c.desc.Name, page, perPage, &snap); err != nil {
			c.logger.Warn().Err(err).Msg("collection cache read failed")
		} else if ok {
			c.install(snap)
			return nil
		}
	}

	query := url.Values{
		"limit":  {strconv.Itoa(perPage)},
		"offset": {strconv.Itoa(common.Offset(page, perPage))},
	}
	result, err := c.api.List(ctx, c.collectionPath(), query)
	if err != nil {
		c.fail(StateLoadError, err)
		return err
	}

	snap = snapshot{Items: result.Items, Total: result.Total}
	if c.cache != nil {
		if err := c.cache.SetPage(ctx, c.desc.Name, page, perPage, snap); err != nil {
			c.logger.Warn().Err(err).Msg("collection cache write failed")
		}
	}
	c.install(snap)
	return nil
}

// Snapshot returns the most recently fetched page and its pagination
// metadata. The slice is a copy; callers may range freely.
func (c *Controller) Snapshot() ([]map[string]any, common.Pagination) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]map[string]any, len(c.snapshot))
	copy(items, c.snapshot)
	p := common.Pagination{
		Page:    c.page,
		PerPage: c.perPage,
		HasPrev: common.HasPrev(c.page),
		HasNext: common.HasNext(c.page, c.perPage, c.total, len(c.snapshot)),
	}
	if c.total >= 0 {
		p.TotalItems = c.total
	}
	return items, p
}

// Filter applies a case-insensitive substring match over the configured
// search keys of the loaded page. An empty query returns the full page.
func (c *Controller) Filter(query string) []map[string]any {
	items, _ := c.Snapshot()
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" || len(c.desc.SearchKeys) == 0 {
		return items
	}
	matched := items[:0]
	for _, item := range items {
		for _, key := range c.desc.SearchKeys {
			v, ok := item[key]
			if !ok || v == nil {
				continue
			}
			if strings.Contains(strings.ToLower(fmt.Sprintf("%v", v)), needle) {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}

// Create validates required fields locally, then posts the record. Nothing
// is sent when validation fails; on backend success the collection is
// invalidated and the current page refetched.
func (c *Controller) Create(ctx context.Context, fields map[string]any) error {
	for _, f := range c.desc.Fields {
		if !f.Required {
			continue
		}
		if isEmptyValue(fields[f.Key]) {
			return common.NewAppError("VALIDATION", f.Label+" is required", 400, nil)
		}
	}
	return c.mutate(ctx, "create", func() error {
		return c.api.PostJSON(ctx, c.collectionPath(), fields, nil)
	})
}

// Update puts changed fields for one record. Secret fields left empty are
// dropped from the payload entirely: an empty password means "keep the
// current one", and sending "" would overwrite server state.
func (c *Controller) Update(ctx context.Context, id string, fields map[string]any) error {
	payload := make(map[string]any, len(fields))
	for key, value := range fields {
		if f, ok := c.desc.field(key); ok && f.Secret && isEmptyValue(value) {
			continue
		}
		payload[key] = value
	}
	return c.mutate(ctx, "update", func() error {
		return c.api.PutJSON(ctx, c.itemPath(id), payload, nil)
	})
}

// Delete removes one record permanently.
func (c *Controller) Delete(ctx context.Context, id string) error {
	return c.mutate(ctx, "delete", func() error {
		return c.api.Delete(ctx, c.itemPath(id))
	})
}

// ToggleState flips the record's state sub-resource (activo/bloqueado) and
// returns the updated record. The backend client handles the verb fallback.
func (c *Controller) ToggleState(ctx context.Context, id, newState string) (map[string]any, error) {
	if c.desc.StateKey == "" {
		return nil, common.NewAppError("UNSUPPORTED", c.desc.Name+" has no state toggle", 404, nil)
	}
	var updated map[string]any
	err := c.mutate(ctx, "toggle_state", func() error {
		body := map[string]any{c.desc.StateKey: newState}
		return c.api.ToggleState(ctx, c.itemPath(id)+"/estado", body, &updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// State reports the controller's lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the retained error message for display, if any.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) mutate(ctx context.Context, op string, fn func() error) error {
	c.mu.Lock()
	c.state = StateMutating
	c.mu.Unlock()

	if err := fn(); err != nil {
		c.fail(StateMutateError, err)
		countMutation(c.desc.Name, op, "error")
		return err
	}
	countMutation(c.desc.Name, op, "ok")

	if c.cache != nil {
		if err := c.cache.Invalidate(ctx, c.desc.Name); err != nil {
			c.logger.Warn().Err(err).Msg("collection invalidate failed")
		}
	}

	c.mu.Lock()
	page, perPage := c.page, c.perPage
	c.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if err := c.Load(ctx, page, perPage); err != nil {
		// The mutation itself succeeded; a failed refetch leaves the stale
		// snapshot in place and surfaces as a load error on the page.
		return nil
	}
	return nil
}

func (c *Controller) install(snap snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snap.Items
	c.total = snap.Total
	c.state = StateLoaded
	c.lastErr = ""
}

func (c *Controller) fail(state State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.lastErr = err.Error()
}

func (c *Controller) collectionPath() string {
	if c.desc.Tenanted {
		return c.api.TenantPath(c.desc.Path)
	}
	return c.desc.Path
}

func (c *Controller) itemPath(id string) string {
	return c.collectionPath() + "/" + url.PathEscape(id)
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func countMutation(name, op, result string) {
	if obs.CollectionMutationsTotal == nil {
		return
	}
	obs.CollectionMutationsTotal.WithLabelValues(name, op, result).Inc()
}
