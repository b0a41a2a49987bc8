package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Service defines catalog business logic.
type Service interface {
	CreateCategory(ctx context.Context, storeID uuid.UUID, req CategoryRequest) (*Category, error)
	GetCategory(ctx context.Context, storeID, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, storeID uuid.UUID) ([]*Category, error)
	UpdateCategory(ctx context.Context, storeID, id uuid.UUID, req CategoryRequest) (*Category, error)
	DeleteCategory(ctx context.Context, storeID, id uuid.UUID) error
}

// CategoryRequest holds the data for creating or renaming a category.
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (req CategoryRequest) normalize() (CategoryRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return req, ErrInvalidName
	}
	return req, nil
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateCategory(ctx context.Context, storeID uuid.UUID, req CategoryRequest) (*Category, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}
	c := &Category{
		ID:          uuid.New(),
		StoreID:     storeID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) GetCategory(ctx context.Context, storeID, id uuid.UUID) (*Category, error) {
	return s.repo.GetByID(ctx, storeID, id)
}

func (s *service) ListCategories(ctx context.Context, storeID uuid.UUID) ([]*Category, error) {
	return s.repo.List(ctx, storeID)
}

func (s *service) UpdateCategory(ctx context.Context, storeID, id uuid.UUID, req CategoryRequest) (*Category, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	c.Name = req.Name
	c.Description = req.Description
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) DeleteCategory(ctx context.Context, storeID, id uuid.UUID) error {
	return s.repo.Delete(ctx, storeID, id)
}
