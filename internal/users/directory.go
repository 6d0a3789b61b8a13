package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"busline/internal/shared/constants"
	"busline/pkg/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// Directory resolves user ids to contact profiles
type Directory interface {
	Profile(ctx context.Context, id uuid.UUID) (*Profile, error)
}

type repository struct {
	db    *gorm.DB
	cache cache.Service
	ttl   time.Duration
}

// NewDirectory reads profiles from Postgres. cacheService may be nil.
func NewDirectory(db *gorm.DB, cacheService cache.Service, ttl time.Duration) Directory {
	if ttl <= 0 {
		ttl = constants.TTL_USER_PROFILE
	}
	return &repository{db: db, cache: cacheService, ttl: ttl}
}

func (r *repository) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	if r.cache == nil {
		return r.load(ctx, id)
	}

	var profile Profile
	err := r.cache.GetOrSet(ctx, constants.BuildUserProfileKey(id.String()), r.ttl,
		func() (interface{}, error) {
			return r.load(ctx, id)
		}, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) load(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var user User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	profile := user.Profile()
	return &profile, nil
}

// MemoryDirectory is an in-process directory for the memory store and tests
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[uuid.UUID]User)}
}

func (m *MemoryDirectory) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryDirectory) Profile(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	profile := u.Profile()
	return &profile, nil
}
