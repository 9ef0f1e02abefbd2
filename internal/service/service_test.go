package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"k9aliases/backend/internal/domain"
	"k9aliases/backend/internal/storage"
	"k9aliases/backend/internal/storage/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]string
}

func (n *recordingNotifier) Publish(userID string, event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[string][]string)
	}
	n.events[userID] = append(n.events[userID], event.Type)
}

func (n *recordingNotifier) types(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events[userID]...)
}

func seedUser(t *testing.T, store *memory.Store, id, email string) {
	t.Helper()
	user := &domain.User{ID: id, Email: email, PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.CreateUser(context.Background(), user, domain.DefaultSettings(id, email)))
}

func boolPtr(v bool) *bool {
	return &v
}

// MockStore 模拟存储接口，只覆盖测试用到的方法
type MockStore struct {
	storage.Store
	mock.Mock
}

func (m *MockStore) WithinUserTx(ctx context.Context, userID string, fn func(tx storage.Store) error) error {
	args := m.Called(userID)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *MockStore) ListAliases(ctx context.Context, userID string, filter storage.AliasFilter) ([]*domain.Alias, error) {
	args := m.Called(userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Alias), args.Error(1)
}

func (m *MockStore) CountActiveAliases(ctx context.Context, userID string) (int, error) {
	args := m.Called(userID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) FindAliasByAddress(ctx context.Context, userID, address string) (*domain.Alias, error) {
	args := m.Called(userID, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Alias), args.Error(1)
}

func (m *MockStore) CreateAlias(ctx context.Context, alias *domain.Alias) error {
	args := m.Called(alias)
	return args.Error(0)
}

func TestStorageFailure(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection reset by peer")

	t.Run("列表查询失败返回通用消息", func(t *testing.T) {
		store := new(MockStore)
		store.On("ListAliases", "user-1", mock.Anything).Return(nil, dbErr)

		svc := NewAliasService(store, DefaultLimits(), nil, nil)
		_, err := svc.List(ctx, "user-1", domain.AliasStateAny)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.ErrorIs(t, err, dbErr)
		assert.Equal(t, "A database error occurred.", domain.MessageOf(err))
		store.AssertExpectations(t)
	})

	t.Run("事务无法开始", func(t *testing.T) {
		store := new(MockStore)
		store.On("WithinUserTx", "user-1").Return(dbErr)

		svc := NewAliasService(store, DefaultLimits(), nil, nil)
		_, err := svc.Create(ctx, "user-1", CreateAliasInput{Address: "a+b@example.com", Description: "Shop"})

		assert.ErrorIs(t, err, domain.ErrStorage)
		store.AssertNotCalled(t, "CreateAlias", mock.Anything)
	})

	t.Run("写入失败时不发送事件", func(t *testing.T) {
		store := new(MockStore)
		store.On("WithinUserTx", "user-1").Return(nil)
		store.On("CountActiveAliases", "user-1").Return(0, nil)
		store.On("FindAliasByAddress", "user-1", "a+b@example.com").Return(nil, storage.ErrNotFound)
		store.On("CreateAlias", mock.AnythingOfType("*domain.Alias")).Return(dbErr)

		notifier := &recordingNotifier{}
		svc := NewAliasService(store, DefaultLimits(), nil, nil)
		svc.SetNotifier(notifier)

		_, err := svc.Create(ctx, "user-1", CreateAliasInput{Address: "a+b@example.com", Description: "Shop"})
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.Empty(t, notifier.types("user-1"))
		store.AssertExpectations(t)
	})

	t.Run("业务错误原样返回", func(t *testing.T) {
		store := new(MockStore)
		store.On("WithinUserTx", "user-1").Return(nil)
		store.On("CountActiveAliases", "user-1").Return(30, nil)

		svc := NewAliasService(store, DefaultLimits(), nil, nil)
		_, err := svc.Create(ctx, "user-1", CreateAliasInput{Address: "a+b@example.com", Description: "Shop"})
		assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
		assert.NotErrorIs(t, err, domain.ErrStorage)
	})
}
