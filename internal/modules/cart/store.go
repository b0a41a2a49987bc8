package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/georgemunganga/printa-pos/internal/modules/localcache"
)

// ErrNotPersisted means a cart change was applied but could not be written to the
// local cache. The in-memory cart keeps the change.
var ErrNotPersisted = errors.New("cart change not saved")

// Store owns one terminal's cart. Dispatches are serialised and each successful one
// persists the whole state under key.
type Store struct {
	mu    sync.Mutex
	state State
	cache localcache.Cache
	key   string
	log   log.FieldLogger
}

// OpenStore restores the cart persisted under key, or starts from empty when nothing
// usable is stored.
func OpenStore(ctx context.Context, cache localcache.Cache, key string, empty State, logger log.FieldLogger) *Store {
	s := &Store{cache: cache, key: key, state: empty, log: logger.WithField("cart", key)}

	var restored State
	err := cache.Get(ctx, key, &restored)
	switch {
	case err == nil:
		s.state = restored
	case errors.Is(err, localcache.ErrCacheMiss):
	default:
		s.log.WithError(err).Warn("cart restore failed, starting empty")
	}
	return s
}

// State returns a copy of the current cart.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Dispatch applies action and persists the result. A rejected action leaves the cart
// unchanged and returns its error.
func (s *Store) Dispatch(ctx context.Context, action Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, action)
	if err != nil {
		return s.state.clone(), err
	}
	s.state = next

	if err := s.cache.Set(ctx, s.key, next); err != nil {
		s.log.WithError(err).Warn("cart persist failed")
		return next.clone(), fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return next.clone(), nil
}
