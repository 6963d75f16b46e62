package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

const lookupListKey = "all"

type LookupInput struct {
	Name  string
	Color string
	Icon  string
}

// LookupService manages one reference table. List reads go through the cache and
// concurrent misses share a single store round trip.
type LookupService[T any] struct {
	repo      repository.LookupRepository[T]
	cache     LookupCacheStore
	ttl       time.Duration
	namespace string
	notFound  error
	build     func(domain.Lookup) *T
	logger    *slog.Logger
	sf        singleflight.Group
	now       func() time.Time
}

func newLookupService[T any](repo repository.LookupRepository[T], cache LookupCacheStore, ttl time.Duration, namespace string, notFound error, build func(domain.Lookup) *T, logger *slog.Logger) *LookupService[T] {
	if cache == nil {
		cache = NoopLookupCacheStore{}
	}
	return &LookupService[T]{
		repo:      repo,
		cache:     cache,
		ttl:       ttl,
		namespace: namespace,
		notFound:  notFound,
		build:     build,
		logger:    logger,
		now:       time.Now,
	}
}

func NewGenderService(repo repository.LookupRepository[domain.Gender], cache LookupCacheStore, ttl time.Duration, logger *slog.Logger) *LookupService[domain.Gender] {
	return newLookupService(repo, cache, ttl, "genders", ErrGenderNotFound,
		func(l domain.Lookup) *domain.Gender { return &domain.Gender{Lookup: l} }, logger)
}

func NewStatusAccountService(repo repository.LookupRepository[domain.StatusAccount], cache LookupCacheStore, ttl time.Duration, logger *slog.Logger) *LookupService[domain.StatusAccount] {
	return newLookupService(repo, cache, ttl, "statuses", ErrStatusNotFound,
		func(l domain.Lookup) *domain.StatusAccount { return &domain.StatusAccount{Lookup: l} }, logger)
}

func NewTypeSlotService(repo repository.LookupRepository[domain.TypeSlot], cache LookupCacheStore, ttl time.Duration, logger *slog.Logger) *LookupService[domain.TypeSlot] {
	return newLookupService(repo, cache, ttl, "type_slots", ErrTypeSlotNotFound,
		func(l domain.Lookup) *domain.TypeSlot { return &domain.TypeSlot{Lookup: l} }, logger)
}

func (s *LookupService[T]) List(ctx context.Context) ([]T, error) {
	if items, ok := s.cached(ctx); ok {
		return items, nil
	}
	v, err, shared := s.sf.Do(s.namespace, func() (any, error) {
		if items, ok := s.cached(ctx); ok {
			return items, nil
		}
		items, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(items); err == nil {
			if err := s.cache.Set(ctx, s.namespace, lookupListKey, payload, s.ttl); err != nil {
				observability.RecordLookupCacheEvent(ctx, s.namespace, "store_error")
				s.logger.WarnContext(ctx, "lookup cache write failed", "namespace", s.namespace, "error", err)
			}
		}
		return items, nil
	})
	if shared {
		observability.RecordLookupCacheEvent(ctx, s.namespace, "singleflight_shared")
	}
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func (s *LookupService[T]) cached(ctx context.Context) ([]T, bool) {
	payload, ok, err := s.cache.Get(ctx, s.namespace, lookupListKey)
	if err != nil {
		observability.RecordLookupCacheEvent(ctx, s.namespace, "store_error")
		return nil, false
	}
	if !ok {
		observability.RecordLookupCacheEvent(ctx, s.namespace, "miss")
		return nil, false
	}
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		observability.RecordLookupCacheEvent(ctx, s.namespace, "decode_error")
		return nil, false
	}
	observability.RecordLookupCacheEvent(ctx, s.namespace, "hit")
	return items, true
}

func (s *LookupService[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, s.notFound)
	}
	return item, nil
}

func (s *LookupService[T]) Create(ctx context.Context, in LookupInput) (*T, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, newError(ErrValidation, "name is required")
	}
	item := s.build(domain.Lookup{Name: name, Color: strings.TrimSpace(in.Color), Icon: strings.TrimSpace(in.Icon)})
	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateLookup
		}
		return nil, err
	}
	s.invalidate(ctx)
	return item, nil
}

func (s *LookupService[T]) Update(ctx context.Context, id uuid.UUID, in LookupInput) (*T, error) {
	updates := map[string]any{}
	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
	}
	if in.Color != "" {
		updates["color"] = strings.TrimSpace(in.Color)
	}
	if in.Icon != "" {
		updates["icon"] = strings.TrimSpace(in.Icon)
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrDuplicateLookup
			}
			return nil, fromRepo(err, s.notFound)
		}
		s.invalidate(ctx)
	}
	return s.Get(ctx, id)
}

func (s *LookupService[T]) Archive(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, id, s.now().UTC()); err != nil {
		return fromRepo(err, s.notFound)
	}
	s.invalidate(ctx)
	return nil
}

func (s *LookupService[T]) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateNamespace(ctx, s.namespace); err != nil {
		observability.RecordLookupCacheEvent(ctx, s.namespace, "invalidate_error")
		s.logger.WarnContext(ctx, "lookup cache invalidation failed", "namespace", s.namespace, "error", err)
		return
	}
	observability.RecordLookupCacheEvent(ctx, s.namespace, "invalidated")
}
