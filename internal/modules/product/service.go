package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/restaurantcrm/backend/internal/modules/media"
	"github.com/restaurantcrm/backend/internal/realtime"
)

var (
	// ErrHasSalesHistory is returned when deleting a product that historical
	// order items still reference.
	ErrHasSalesHistory = errors.New("product has sales history and cannot be deleted")
	// ErrInvalidPrice is returned for a negative price.
	ErrInvalidPrice = errors.New("price must not be negative")
	// ErrInvalidStock is returned for a negative stock quantity.
	ErrInvalidStock = errors.New("stock must not be negative")
	// ErrNameRequired is returned when the product name is empty.
	ErrNameRequired = errors.New("name is required")
)

// Image is an optional uploaded image accompanying a create or update.
type Image struct {
	Filename string
	Data     io.Reader
}

// Service defines product business logic.
type Service interface {
	ListProducts(ctx context.Context) ([]*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)

	// CreateProduct stores the image first (when present) and only then
	// writes the row, so a failed upload aborts the whole operation.
	CreateProduct(ctx context.Context, req CreateProductRequest, img *Image) (*Product, error)

	// UpdateProduct behaves like CreateProduct with respect to images; an
	// absent image keeps the existing reference.
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest, img *Image) (*Product, error)

	// DeleteProduct refuses to delete a product referenced by any order item.
	DeleteProduct(ctx context.Context, id string) error
}

type service struct {
	repo   Repository
	images media.Store
	feed   realtime.Publisher
}

// NewService creates a new product service.
func NewService(repo Repository, images media.Store, feed realtime.Publisher) Service {
	return &service{repo: repo, images: images, feed: feed}
}

func (s *service) ListProducts(ctx context.Context) ([]*Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest, img *Image) (*Product, error) {
	if err := validate(req.Name, req.Price, req.Stock); err != nil {
		return nil, err
	}

	p := &Product{
		ID:       uuid.New(),
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Stock:    req.Stock,
	}

	if img != nil {
		url, err := s.images.Save(ctx, img.Filename, img.Data)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		p.ImageURL = url
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("persist product: %w", err)
	}

	s.notify(ctx, realtime.OpInsert, p.ID.String())
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest, img *Image) (*Product, error) {
	if err := validate(req.Name, req.Price, req.Stock); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product not found: %w", err)
	}

	p.Name = req.Name
	p.Category = req.Category
	p.Price = req.Price
	p.Stock = req.Stock

	if img != nil {
		url, err := s.images.Save(ctx, img.Filename, img.Data)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		p.ImageURL = url
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("persist product: %w", err)
	}

	s.notify(ctx, realtime.OpUpdate, p.ID.String())
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	refs, err := s.repo.CountOrderItemRefs(ctx, id)
	if err != nil {
		return fmt.Errorf("check sales history: %w", err)
	}
	if refs > 0 {
		return ErrHasSalesHistory
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.notify(ctx, realtime.OpDelete, id)
	return nil
}

// notify is best-effort: the mutation already committed, and consumers that
// miss a signal reconcile on their next relist.
func (s *service) notify(ctx context.Context, op realtime.Op, id string) {
	c := realtime.Change{Table: realtime.TableProducts, Op: op, ID: id}
	if err := s.feed.Publish(ctx, c); err != nil {
		log.Printf("realtime publish failed: %v", err)
	}
}

func validate(name string, price float64, stock int) error {
	if name == "" {
		return ErrNameRequired
	}
	if price < 0 {
		return ErrInvalidPrice
	}
	if stock < 0 {
		return ErrInvalidStock
	}
	return nil
}
