package fixture

import (
	"sync"

	"github.com/fastestgo/fastest/internal/errors"
	"github.com/fastestgo/fastest/internal/model"
)

// SetupFunc instantiates a fixture given its dependencies' values (keyed
// by name) and returns its value plus an optional teardown, following the
// generator-fixture convention (spec.md §3): a yield-style fixture's
// teardown resumes it past the yield.
type SetupFunc func(deps map[string]interface{}) (value interface{}, teardown func() error, err error)

// scopeEntry is one fixture instance plus the teardown stack discipline:
// entries sharing a scope-id are torn down in the reverse of their setup
// order (LIFO), mirroring the stack invariant in the teacher's
// planner/fixture stack.
type scopeEntry struct {
	instance *model.FixtureInstance
	teardown func() error
}

// Cache instantiates and memoizes fixture values by model.FixtureKey, and
// tears each scope down in LIFO order exactly once when the owning scope
// closes (spec.md §4.D: function scope closes at test end, class/module/
// package/session scopes close when the last dependent in that scope
// finishes).
type Cache struct {
	mu sync.Mutex

	values map[model.FixtureKey]*model.FixtureInstance
	// order, per scope-id, of entries in setup order; CloseScope tears
	// them down in reverse.
	stacks map[string][]*scopeEntry
}

// NewCache creates an empty fixture cache.
func NewCache() *Cache {
	return &Cache{
		values: map[model.FixtureKey]*model.FixtureInstance{},
		stacks: map[string][]*scopeEntry{},
	}
}

// GetOrCreate returns the cached instance for key if present, otherwise
// calls setup with the already-resolved deps and caches the result under
// key and its scope-id's teardown stack.
//
// Errors from setup are wrapped as *errors.FixtureSetupFailure.
func (c *Cache) GetOrCreate(key model.FixtureKey, deps map[string]interface{}, setup SetupFunc) (*model.FixtureInstance, error) {
	c.mu.Lock()
	if inst, ok := c.values[key]; ok {
		c.mu.Unlock()
		return inst, nil
	}
	c.mu.Unlock()

	value, teardown, err := setup(deps)
	if err != nil {
		return nil, errors.NewFixtureSetupFailure(key.Name, err)
	}

	inst := &model.FixtureInstance{
		Name:        key.Name,
		Scope:       key.Scope,
		ScopeID:     key.ScopeID,
		ParamIndex:  key.ParamIndex,
		Value:       value,
		Teardown:    teardown,
		IsGenerator: teardown != nil,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.values[key]; ok {
		// Lost a race with a concurrent caller for the same key: discard
		// our instance (invoking its teardown immediately, if any) and
		// return the winner's, preserving the single-instantiation
		// guarantee (spec.md §3 invariant).
		if teardown != nil {
			_ = teardown()
		}
		return existing, nil
	}
	c.values[key] = inst
	c.stacks[key.ScopeID] = append(c.stacks[key.ScopeID], &scopeEntry{instance: inst, teardown: teardown})
	return inst, nil
}

// CloseScope tears down every fixture instance owned by scopeID, in the
// reverse of their setup order, and removes them from the cache. It
// collects every *errors.TeardownError encountered rather than stopping
// at the first, so an earlier fixture's teardown failure never prevents
// a later (in stack order) fixture from also being torn down.
func (c *Cache) CloseScope(scopeID string) []error {
	c.mu.Lock()
	entries := c.stacks[scopeID]
	delete(c.stacks, scopeID)
	for _, e := range entries {
		delete(c.values, e.instance.KeyOf())
	}
	c.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.teardown == nil {
			continue
		}
		if err := e.teardown(); err != nil {
			errs = append(errs, errors.NewTeardownError(e.instance.Name, err))
		}
	}
	return errs
}

// CloseAll closes every scope still holding cached instances, including
// session scope. It is the backstop a caller runs once after a whole test
// run finishes (spec.md §8: "no cache entries remain at session end"),
// catching any class/module/package scope whose reference count never
// reached zero (e.g. a test skipped, or one whose fixture setup failed
// before the scope was registered as one of its dependents).
func (c *Cache) CloseAll() []error {
	c.mu.Lock()
	scopeIDs := make([]string, 0, len(c.stacks))
	for id := range c.stacks {
		scopeIDs = append(scopeIDs, id)
	}
	c.mu.Unlock()

	var errs []error
	for _, id := range scopeIDs {
		errs = append(errs, c.CloseScope(id)...)
	}
	return errs
}
