package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/restaurantcrm/backend/internal/realtime"
)

type mockRepo struct {
	mu       sync.Mutex
	products map[string]*Product
	refs     map[string]int

	createCalls int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		products: make(map[string]*Product),
		refs:     make(map[string]int),
	}
}

func (m *mockRepo) add(p *Product) *Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.products[p.ID.String()] = p
	return p
}

func (m *mockRepo) ListProducts(ctx context.Context) ([]*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepo) GetProductByID(ctx context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("no such product")
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) CreateProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.products[p.ID.String()] = p
	return nil
}

func (m *mockRepo) UpdateProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID.String()]; !ok {
		return fmt.Errorf("no such product")
	}
	m.products[p.ID.String()] = p
	return nil
}

func (m *mockRepo) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return fmt.Errorf("no such product")
	}
	delete(m.products, id)
	return nil
}

func (m *mockRepo) CountOrderItemRefs(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs[id], nil
}

type mockImages struct {
	saveErr error
	saved   int
}

func (m *mockImages) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved++
	return "/media/" + filename, nil
}

type countingPublisher struct {
	mu sync.Mutex
	n  int
}

func (p *countingPublisher) Publish(ctx context.Context, c realtime.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	return nil
}

func TestCreateProduct(t *testing.T) {
	repo := newMockRepo()
	images := &mockImages{}
	pub := &countingPublisher{}
	svc := NewService(repo, images, pub)

	p, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Name:     "espresso",
		Category: "drinks",
		Price:    2.50,
		Stock:    100,
	}, &Image{Filename: "espresso.jpg", Data: strings.NewReader("jpeg")})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if p.ImageURL != "/media/espresso.jpg" {
		t.Errorf("image url = %q", p.ImageURL)
	}
	if _, ok := repo.products[p.ID.String()]; !ok {
		t.Error("product not persisted")
	}
	if pub.n != 1 {
		t.Errorf("publishes = %d, want 1", pub.n)
	}
}

func TestCreateProduct_FailedUploadAbortsBeforePersisting(t *testing.T) {
	repo := newMockRepo()
	images := &mockImages{saveErr: fmt.Errorf("disk full")}
	svc := NewService(repo, images, &countingPublisher{})

	_, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Name:  "latte",
		Price: 3.50,
	}, &Image{Filename: "latte.jpg", Data: strings.NewReader("jpeg")})
	if err == nil {
		t.Fatal("expected upload error")
	}
	if repo.createCalls != 0 {
		t.Error("row must not be written when the image upload fails")
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), &mockImages{}, &countingPublisher{})
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateProductRequest
		want error
	}{
		{"empty name", CreateProductRequest{Price: 1}, ErrNameRequired},
		{"negative price", CreateProductRequest{Name: "x", Price: -1}, ErrInvalidPrice},
		{"negative stock", CreateProductRequest{Name: "x", Price: 1, Stock: -5}, ErrInvalidStock},
	}
	for _, tc := range cases {
		_, err := svc.CreateProduct(ctx, tc.req, nil)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestUpdateProduct_KeepsImageWhenNoneUploaded(t *testing.T) {
	repo := newMockRepo()
	p := repo.add(&Product{Name: "cake", Price: 4.00, Stock: 3, ImageURL: "/media/cake.jpg"})
	svc := NewService(repo, &mockImages{}, &countingPublisher{})

	got, err := svc.UpdateProduct(context.Background(), p.ID.String(), UpdateProductRequest{
		Name:  "cheesecake",
		Price: 4.50,
		Stock: 3,
	}, nil)
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if got.Name != "cheesecake" || got.Price != 4.50 {
		t.Errorf("fields not updated: %+v", got)
	}
	if got.ImageURL != "/media/cake.jpg" {
		t.Errorf("image url = %q, want existing reference kept", got.ImageURL)
	}
}

func TestDeleteProduct_BlockedBySalesHistory(t *testing.T) {
	repo := newMockRepo()
	p := repo.add(&Product{Name: "wings", Price: 9.00})
	repo.refs[p.ID.String()] = 4
	pub := &countingPublisher{}
	svc := NewService(repo, &mockImages{}, pub)

	err := svc.DeleteProduct(context.Background(), p.ID.String())
	if !errors.Is(err, ErrHasSalesHistory) {
		t.Fatalf("expected ErrHasSalesHistory, got %v", err)
	}
	if _, ok := repo.products[p.ID.String()]; !ok {
		t.Error("referenced product must remain intact")
	}
	if pub.n != 0 {
		t.Error("rejected delete must not publish")
	}
}

func TestDeleteProduct_UnreferencedSucceeds(t *testing.T) {
	repo := newMockRepo()
	p := repo.add(&Product{Name: "salad", Price: 6.00})
	svc := NewService(repo, &mockImages{}, &countingPublisher{})

	if err := svc.DeleteProduct(context.Background(), p.ID.String()); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, ok := repo.products[p.ID.String()]; ok {
		t.Error("product still present after delete")
	}
}
