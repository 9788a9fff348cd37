package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"ygodeck/internal/catalog"
	"ygodeck/internal/model"
	"ygodeck/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, username string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, username, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uint, string, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uint), args.String(1), args.Error(2)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// MockDeckRepository is a mock implementation of DeckRepository.
type MockDeckRepository struct {
	mock.Mock
}

func (m *MockDeckRepository) Create(ctx context.Context, deck *model.Deck) error {
	args := m.Called(ctx, deck)
	if args.Error(0) == nil && deck.ID == 0 {
		deck.ID = 42
	}
	return args.Error(0)
}

func (m *MockDeckRepository) ListByOwner(ctx context.Context, userID uint) ([]model.Deck, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Deck), args.Error(1)
}

func (m *MockDeckRepository) FindByIDAndOwner(ctx context.Context, id, userID uint) (*model.Deck, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Deck), args.Error(1)
}

func (m *MockDeckRepository) ExistsByName(ctx context.Context, userID uint, name string, excludeID uint) (bool, error) {
	args := m.Called(ctx, userID, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeckRepository) Update(ctx context.Context, deck *model.Deck) error {
	args := m.Called(ctx, deck)
	return args.Error(0)
}

func (m *MockDeckRepository) Delete(ctx context.Context, id, userID uint) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// WithTransaction runs fn against the same mock so expectations set on the
// repository apply inside the transaction too.
func (m *MockDeckRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.DeckRepository) error) error {
	m.Called(ctx)
	return fn(ctx, m)
}

// MockCardCatalog is a mock implementation of CardCatalog.
type MockCardCatalog struct {
	mock.Mock
}

func (m *MockCardCatalog) SearchQuery(ctx context.Context, q catalog.Query) ([]catalog.Card, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Card), args.Error(1)
}

func (m *MockCardCatalog) Banlist(ctx context.Context) (catalog.Banlist, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(catalog.Banlist), args.Error(1)
}

// memoryCache is an in-process ResponseCache.
type memoryCache struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	return c.entries[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}
