package security

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tablero/tablero/internal/shared"
	"github.com/tablero/tablero/internal/store"
)

// MethodGrant is one (profile, object, method) permission row.
type MethodGrant struct {
	Profile int64
	Object  string
	Method  string
}

// MenuGrant is one (profile, option, module) permission row.
type MenuGrant struct {
	Profile int64
	Menu    string
	Module  int64
}

// Option is a UI option visible to a profile. The module id is part of the
// grant key but not of the wire shape clients consume.
type Option struct {
	Option string `json:"option"`
}

type methodKey struct {
	profile int64
	object  string
	method  string
}

type menuKey struct {
	profile int64
	menu    string
	module  int64
}

// snapshot is the immutable state readers see. Mutation always builds a new
// snapshot and publishes it with a pointer swap; readers never block.
type snapshot struct {
	methods map[methodKey]struct{}
	menus   map[menuKey]struct{}
}

func emptySnapshot() *snapshot {
	return &snapshot{
		methods: make(map[methodKey]struct{}),
		menus:   make(map[menuKey]struct{}),
	}
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		methods: make(map[methodKey]struct{}, len(s.methods)),
		menus:   make(map[menuKey]struct{}, len(s.menus)),
	}
	for k := range s.methods {
		next.methods[k] = struct{}{}
	}
	for k := range s.menus {
		next.menus[k] = struct{}{}
	}
	return next
}

// Cache answers authorization checks against an in-memory copy of the
// permission tables. Lifecycle: construct, Reload once at startup, serve,
// Reload or patch incrementally after administrative writes.
type Cache struct {
	store  store.Querier
	logger *slog.Logger

	mu   sync.Mutex // serializes writers; readers go through snap only
	snap atomic.Pointer[snapshot]
}

// NewCache constructs an empty cache; call Reload before serving.
func NewCache(querier store.Querier, logger *slog.Logger) *Cache {
	c := &Cache{store: querier, logger: logger}
	c.snap.Store(emptySnapshot())
	return c
}

// Reload rebuilds both mappings from the store and swaps the result in as one
// unit. On failure the previous state stays published untouched.
func (c *Cache) Reload(ctx context.Context) error {
	next := emptySnapshot()

	g, gctx := errgroup.WithContext(ctx)
	var methodRows, menuRows *store.Result
	g.Go(func() error {
		var err error
		methodRows, err = c.store.ExecuteQuery(gctx, "security", "loadPermission")
		return err
	})
	g.Go(func() error {
		var err error
		menuRows, err = c.store.ExecuteQuery(gctx, "security", "loadMenu")
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Error("reload permissions", slog.Any("error", err))
		return fmt.Errorf("%w: %w", shared.ErrCacheLoad, err)
	}

	for _, row := range methodRows.Rows {
		key := methodKey{
			profile: row.Int64("id_profile"),
			object:  row.String("object"),
			method:  row.String("method"),
		}
		next.methods[key] = struct{}{}
	}
	for _, row := range menuRows.Rows {
		key := menuKey{
			profile: row.Int64("id_profile"),
			menu:    row.String("menu"),
			module:  row.Int64("fk_id_module"),
		}
		next.menus[key] = struct{}{}
	}

	c.mu.Lock()
	c.snap.Store(next)
	c.mu.Unlock()

	c.logger.Info("permission cache loaded",
		slog.Int("methods", len(next.methods)),
		slog.Int("menus", len(next.menus)))
	return nil
}

// IsAuthorized reports whether profile may call method on object. Check order
// matters: the super-admin bypass comes before the protected-object override,
// so profile 1 is exempt from protection.
func (c *Cache) IsAuthorized(profile int64, object, method string) bool {
	if profile == SuperAdminProfile {
		return true
	}
	if IsProtectedObject(object) {
		return false
	}
	snap := c.snap.Load()
	_, ok := snap.methods[methodKey{profile: profile, object: object, method: method}]
	return ok
}

// VisibleOptions returns the UI options granted to profile. A grant on the
// same option under two modules yields one entry.
func (c *Cache) VisibleOptions(profile int64) []Option {
	snap := c.snap.Load()
	seen := make(map[string]struct{})
	options := make([]Option, 0)
	for key := range snap.menus {
		if key.profile != profile {
			continue
		}
		if _, dup := seen[key.menu]; dup {
			continue
		}
		seen[key.menu] = struct{}{}
		options = append(options, Option{Option: key.menu})
	}
	return options
}

// Empty reports whether the published state carries no grants at all.
// An empty mapping locks every non-admin profile out, so callers may want
// to refuse startup on it.
func (c *Cache) Empty() bool {
	snap := c.snap.Load()
	return len(snap.methods) == 0 && len(snap.menus) == 0
}

// GrantMethod inserts a method grant into the live mapping.
func (c *Cache) GrantMethod(g MethodGrant) {
	c.mutate(func(s *snapshot) {
		s.methods[methodKey{profile: g.Profile, object: g.Object, method: g.Method}] = struct{}{}
	})
}

// RevokeMethod removes a method grant from the live mapping.
func (c *Cache) RevokeMethod(g MethodGrant) {
	c.mutate(func(s *snapshot) {
		delete(s.methods, methodKey{profile: g.Profile, object: g.Object, method: g.Method})
	})
}

// RegrantMethod atomically replaces an existing grant; readers observe either
// the old grant or the new one, never neither.
func (c *Cache) RegrantMethod(old, updated MethodGrant) {
	c.mutate(func(s *snapshot) {
		delete(s.methods, methodKey{profile: old.Profile, object: old.Object, method: old.Method})
		s.methods[methodKey{profile: updated.Profile, object: updated.Object, method: updated.Method}] = struct{}{}
	})
}

// GrantMenu inserts a menu grant into the live mapping.
func (c *Cache) GrantMenu(g MenuGrant) {
	c.mutate(func(s *snapshot) {
		s.menus[menuKey{profile: g.Profile, menu: g.Menu, module: g.Module}] = struct{}{}
	})
}

// RevokeMenu removes a menu grant from the live mapping.
func (c *Cache) RevokeMenu(g MenuGrant) {
	c.mutate(func(s *snapshot) {
		delete(s.menus, menuKey{profile: g.Profile, menu: g.Menu, module: g.Module})
	})
}

// RegrantMenu atomically replaces an existing menu grant.
func (c *Cache) RegrantMenu(old, updated MenuGrant) {
	c.mutate(func(s *snapshot) {
		delete(s.menus, menuKey{profile: old.Profile, menu: old.Menu, module: old.Module})
		s.menus[menuKey{profile: updated.Profile, menu: updated.Menu, module: updated.Module}] = struct{}{}
	})
}

func (c *Cache) mutate(apply func(*snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.snap.Load().clone()
	apply(next)
	c.snap.Store(next)
}
