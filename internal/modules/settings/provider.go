package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/georgemunganga/printa-pos/internal/modules/localcache"
)

// ErrRemoteSave means settings were applied locally but the remote write failed.
var ErrRemoteSave = errors.New("settings saved locally but not on the server")

// Provider supplies store settings to the cart, checkout and formatter. It keeps the
// current snapshot per store in memory, mirrors it to the local cache and refreshes it
// from the remote repository.
type Provider struct {
	repo     Repository
	cache    localcache.Cache
	defaults StoreSettings
	log      log.FieldLogger

	group   singleflight.Group
	mu      sync.RWMutex
	current map[uuid.UUID]StoreSettings
}

// NewProvider creates a provider. defaults is used for stores with neither remote nor
// cached settings.
func NewProvider(repo Repository, cache localcache.Cache, defaults StoreSettings, logger log.FieldLogger) *Provider {
	return &Provider{
		repo:     repo,
		cache:    cache,
		defaults: defaults,
		log:      logger,
		current:  make(map[uuid.UUID]StoreSettings),
	}
}

type loadResult struct {
	settings StoreSettings
	source   Source
}

// Load fetches the store's settings from the remote repository and merges the fields
// present in the response over the current snapshot. When the fetch fails it falls back
// to the cached snapshot, then to the defaults. Concurrent loads of one store share a
// single remote call.
func (p *Provider) Load(ctx context.Context, storeID uuid.UUID) (StoreSettings, Source) {
	v, _, _ := p.group.Do(storeID.String(), func() (interface{}, error) {
		return p.load(ctx, storeID), nil
	})
	res := v.(loadResult)
	return res.settings.clone(), res.source
}

func (p *Provider) load(ctx context.Context, storeID uuid.UUID) loadResult {
	base, source := p.base(ctx, storeID)
	base.StoreID = storeID
	logger := p.log.WithField("store_id", storeID)

	remote, err := p.repo.Get(ctx, storeID)
	switch {
	case errors.Is(err, ErrNotFound):
		// nothing saved remotely yet; keep what we have
	case err != nil:
		logger.WithError(err).WithField("fallback", source).Warn("settings fetch failed")
	default:
		base = remote.Apply(base)
		source = SourceRemote
		if err := p.cache.Set(ctx, localcache.SettingsKey(storeID), base); err != nil {
			logger.WithError(err).Warn("settings cache write failed")
		}
	}

	p.mu.Lock()
	p.current[storeID] = base
	p.mu.Unlock()
	return loadResult{settings: base, source: source}
}

// base returns the snapshot remote fields are merged over: the in-memory one, else the
// local cache, else the defaults.
func (p *Provider) base(ctx context.Context, storeID uuid.UUID) (StoreSettings, Source) {
	p.mu.RLock()
	cur, ok := p.current[storeID]
	p.mu.RUnlock()
	if ok {
		return cur.clone(), SourceCache
	}

	var cached StoreSettings
	err := p.cache.Get(ctx, localcache.SettingsKey(storeID), &cached)
	if err == nil {
		return cached, SourceCache
	}
	if !errors.Is(err, localcache.ErrCacheMiss) {
		p.log.WithError(err).WithField("store_id", storeID).Warn("settings cache read failed")
	}
	d := p.defaults.clone()
	d.StoreID = storeID
	return d, SourceDefaults
}

// Get returns the current snapshot, loading it on first use.
func (p *Provider) Get(ctx context.Context, storeID uuid.UUID) StoreSettings {
	p.mu.RLock()
	cur, ok := p.current[storeID]
	p.mu.RUnlock()
	if ok {
		return cur.clone()
	}
	s, _ := p.Load(ctx, storeID)
	return s
}

// TaxRate returns the store's tax rate as a fraction.
func (p *Provider) TaxRate(ctx context.Context, storeID uuid.UUID) decimal.Decimal {
	return p.Get(ctx, storeID).TaxRate
}

// Save merges patch into the current settings, writes the result to the local cache
// and then to the remote repository. A remote failure is returned wrapped in
// ErrRemoteSave together with the merged settings; the local copy is kept.
func (p *Provider) Save(ctx context.Context, storeID uuid.UUID, patch Patch) (StoreSettings, error) {
	merged := patch.Apply(p.Get(ctx, storeID))
	merged.StoreID = storeID
	logger := p.log.WithField("store_id", storeID)

	p.mu.Lock()
	p.current[storeID] = merged
	p.mu.Unlock()

	if err := p.cache.Set(ctx, localcache.SettingsKey(storeID), merged); err != nil {
		logger.WithError(err).Warn("settings cache write failed")
	}

	if err := p.repo.Upsert(ctx, merged); err != nil {
		logger.WithError(err).Error("settings remote save failed")
		return merged.clone(), fmt.Errorf("%w: %v", ErrRemoteSave, err)
	}
	logger.Info("settings saved")
	return merged.clone(), nil
}
