package catalog

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mu         sync.Mutex
	categories map[uuid.UUID]Category
}

func newMockRepository() *mockRepository {
	return &mockRepository{categories: make(map[uuid.UUID]Category)}
}

func (m *mockRepository) taken(c *Category) bool {
	for _, existing := range m.categories {
		if existing.ID != c.ID && existing.StoreID == c.StoreID && existing.Name == c.Name {
			return true
		}
	}
	return false
}

func (m *mockRepository) Create(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(c) {
		return ErrDuplicateName
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, storeID, id uuid.UUID) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || c.StoreID != storeID {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *mockRepository) List(_ context.Context, storeID uuid.UUID) ([]*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Category
	for _, c := range m.categories {
		if c.StoreID == storeID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRepository) Update(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(c) {
		return ErrDuplicateName
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *mockRepository) Delete(_ context.Context, storeID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || c.StoreID != storeID {
		return ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func TestCategoryLifecycle(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()
	storeID := uuid.New()

	paper, err := svc.CreateCategory(ctx, storeID, CategoryRequest{Name: " Paper ", Description: "A4, A3"})
	require.NoError(t, err)
	assert.Equal(t, "Paper", paper.Name)
	_, err = svc.CreateCategory(ctx, storeID, CategoryRequest{Name: "Ink"})
	require.NoError(t, err)

	list, err := svc.ListCategories(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ink", list[0].Name)

	renamed, err := svc.UpdateCategory(ctx, storeID, paper.ID, CategoryRequest{Name: "Paper & Card"})
	require.NoError(t, err)
	assert.Equal(t, "Paper & Card", renamed.Name)
	assert.Empty(t, renamed.Description)

	_, err = svc.UpdateCategory(ctx, storeID, paper.ID, CategoryRequest{Name: "Ink"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	require.NoError(t, svc.DeleteCategory(ctx, storeID, paper.ID))
	_, err = svc.GetCategory(ctx, storeID, paper.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryNamesAreScopedToStore(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, uuid.New(), CategoryRequest{Name: "Ink"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, uuid.New(), CategoryRequest{Name: "Ink"})
	assert.NoError(t, err)
}

func TestCategoryRequiresName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	_, err := svc.CreateCategory(context.Background(), uuid.New(), CategoryRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = svc.UpdateCategory(context.Background(), uuid.New(), uuid.New(), CategoryRequest{})
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Empty(t, repo.categories)
}
