package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"product-catalog/internal/products"
	"product-catalog/internal/products/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type mockImageStore struct {
	uploads []products.Image
	err     error
}

func (m *mockImageStore) Upload(_ context.Context, img products.Image) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.uploads = append(m.uploads, img)
	return "/images/" + img.Name, nil
}

type mockPublisher struct {
	events []products.ProductEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event products.ProductEvent) error {
	m.events = append(m.events, event)
	return m.err
}

type failingRepo struct {
	Repository
	err error
}

func (r *failingRepo) Create(context.Context, products.Fields) (products.Product, error) {
	return products.Product{}, r.err
}

func (r *failingRepo) List(context.Context, products.Filter) ([]products.Product, error) {
	return nil, r.err
}

func newMetrics() Metrics {
	counter := func(name string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "t"})
	}
	return Metrics{
		Created:        counter("t_created"),
		Updated:        counter("t_updated"),
		Deleted:        counter("t_deleted"),
		ImagesUploaded: counter("t_images"),
	}
}

type fixture struct {
	svc     *Service
	repo    Repository
	images  *mockImageStore
	pub     *mockPublisher
	metrics Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := repository.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	f := &fixture{
		repo:    repo,
		images:  &mockImageStore{},
		pub:     &mockPublisher{},
		metrics: newMetrics(),
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	f.svc = New(f.repo, f.images, f.pub, logger, f.metrics)
	return f
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	list, err := f.repo.List(context.Background(), products.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return len(list)
}

func pen(status, date string) products.Input {
	return products.Input{Title: "Pen", Status: status, Date: date}
}

func TestCreateProduct(t *testing.T) {
	tests := []struct {
		name       string
		input      products.Input
		wantFields []string
	}{
		{name: "success", input: pen("active", "2024-01-01")},
		{name: "empty title", input: products.Input{Status: "active", Date: "2024-01-01"}, wantFields: []string{"title"}},
		{name: "unknown status", input: pen("archived", "2024-01-01"), wantFields: []string{"status"}},
		{name: "missing date", input: pen("active", ""), wantFields: []string{"date"}},
		{name: "all invalid", input: products.Input{}, wantFields: []string{"title", "status", "date"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			product, err := f.svc.CreateProduct(context.Background(), tt.input, nil)

			if len(tt.wantFields) > 0 {
				var verr *products.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("want *ValidationError, got %v", err)
				}
				for _, field := range tt.wantFields {
					if _, ok := verr.Fields[field]; !ok {
						t.Fatalf("want field %q in %v", field, verr.Fields)
					}
				}
				if n := f.count(t); n != 0 {
					t.Fatalf("want nothing persisted, got %d records", n)
				}
				if len(f.pub.events) != 0 {
					t.Fatalf("want no events, got %v", f.pub.events)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := f.svc.GetProduct(context.Background(), product.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Title != "Pen" || got.Status != products.StatusActive {
				t.Fatalf("unexpected product: %+v", got)
			}
			if got.Date.Format(products.DateLayout) != "2024-01-01" {
				t.Fatalf("want date 2024-01-01, got %v", got.Date)
			}
			if got.Description != "" || got.ImageURL != "" {
				t.Fatalf("want empty description and image url, got %+v", got)
			}
			if len(f.pub.events) != 1 || f.pub.events[0].EventType != products.EventCreated {
				t.Fatalf("want %q event, got %v", products.EventCreated, f.pub.events)
			}
			if v := testutil.ToFloat64(f.metrics.Created); v != 1 {
				t.Fatalf("want created counter 1, got %v", v)
			}
		})
	}
}

func TestCreateProduct_WithImage(t *testing.T) {
	f := newFixture(t)

	product, err := f.svc.CreateProduct(context.Background(), pen("active", "2024-01-01"),
		&products.Image{Name: "pen.png", Data: pngHeader})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.ImageURL == "" {
		t.Fatal("want image url to be set")
	}
	if len(f.images.uploads) != 1 || f.images.uploads[0].ContentType != "image/png" {
		t.Fatalf("want one sniffed png upload, got %+v", f.images.uploads)
	}
	if v := testutil.ToFloat64(f.metrics.ImagesUploaded); v != 1 {
		t.Fatalf("want images counter 1, got %v", v)
	}
}

func TestCreateProduct_ImageValidatedWithFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateProduct(context.Background(), products.Input{Status: "active", Date: "2024-01-01"},
		&products.Image{Name: "notes.txt", Data: []byte("plain text")})

	var verr *products.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want *ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["title"]; !ok {
		t.Fatalf("want title error, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["image"]; !ok {
		t.Fatalf("want image error, got %v", verr.Fields)
	}
	if len(f.images.uploads) != 0 {
		t.Fatal("invalid input must not reach the image store")
	}
}

func TestCreateProduct_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.images.err = errors.New("quota exceeded")

	_, err := f.svc.CreateProduct(context.Background(), pen("active", "2024-01-01"),
		&products.Image{Name: "pen.png", Data: pngHeader})

	var serr *products.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("want *StorageError, got %v", err)
	}
	if n := f.count(t); n != 0 {
		t.Fatalf("want nothing persisted, got %d records", n)
	}
}

func TestCreateProduct_RepoError(t *testing.T) {
	f := newFixture(t)
	errDB := errors.New("db down")
	f.svc.repo = &failingRepo{Repository: f.repo, err: errDB}

	_, err := f.svc.CreateProduct(context.Background(), pen("active", "2024-01-01"), nil)
	if !errors.Is(err, errDB) {
		t.Fatalf("want error wrapping %v, got %v", errDB, err)
	}
}

func TestCreateProduct_PublishFail_StillReturnsProduct(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	product, err := f.svc.CreateProduct(context.Background(), pen("active", "2024-01-01"), nil)
	if err != nil {
		t.Fatalf("expected no error despite publish failure, got: %v", err)
	}
	if product.Title != "Pen" {
		t.Fatalf("want title Pen, got %q", product.Title)
	}
}

func TestUpdateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("changes status and keeps the image", func(t *testing.T) {
		f := newFixture(t)
		in := products.Input{Title: "Pen", Description: "blue", Status: "active", Date: "2024-01-01"}
		created, _ := f.svc.CreateProduct(ctx, in, &products.Image{Name: "pen.png", Data: pngHeader})

		in.Status = "inactive"
		got, err := f.svc.UpdateProduct(ctx, created.ID, in, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != products.StatusInactive {
			t.Fatalf("want inactive, got %q", got.Status)
		}
		if got.Title != created.Title || got.Description != created.Description ||
			!got.Date.Equal(created.Date) || got.ImageURL != created.ImageURL {
			t.Fatalf("other fields changed: before %+v, after %+v", created, got)
		}
		if last := f.pub.events[len(f.pub.events)-1]; last.EventType != products.EventUpdated {
			t.Fatalf("want %q event, got %q", products.EventUpdated, last.EventType)
		}
	})

	t.Run("new image replaces url", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.svc.CreateProduct(ctx, pen("active", "2024-01-01"), &products.Image{Name: "a.png", Data: pngHeader})

		got, err := f.svc.UpdateProduct(ctx, created.ID, pen("active", "2024-01-01"), &products.Image{Name: "b.png", Data: pngHeader})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ImageURL == created.ImageURL || got.ImageURL == "" {
			t.Fatalf("want new image url, got %q (was %q)", got.ImageURL, created.ImageURL)
		}
	})

	t.Run("omitted status and date are rejected", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.svc.CreateProduct(ctx, pen("active", "2024-01-01"), nil)

		_, err := f.svc.UpdateProduct(ctx, created.ID, products.Input{Title: "Pen"}, nil)
		var verr *products.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want *ValidationError, got %v", err)
		}
		got, _ := f.svc.GetProduct(ctx, created.ID)
		if got.Status != products.StatusActive {
			t.Fatalf("record must be unchanged, got %+v", got)
		}
	})

	t.Run("unknown id with image uploads nothing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.UpdateProduct(ctx, "missing", pen("active", "2024-01-01"), &products.Image{Name: "a.png", Data: pngHeader})
		if !errors.Is(err, products.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
		if len(f.images.uploads) != 0 {
			t.Fatalf("want no uploads, got %d", len(f.images.uploads))
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.UpdateProduct(ctx, "missing", pen("active", "2024-01-01"), nil)
		if !errors.Is(err, products.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, _ := f.svc.CreateProduct(ctx, pen("active", "2024-01-01"), nil)

	if err := f.svc.DeleteProduct(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.GetProduct(ctx, created.ID); !errors.Is(err, products.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
	if err := f.svc.DeleteProduct(ctx, created.ID); !errors.Is(err, products.ErrNotFound) {
		t.Fatalf("want ErrNotFound on second delete, got %v", err)
	}

	last := f.pub.events[len(f.pub.events)-1]
	if last.EventType != products.EventDeleted || last.ProductID != created.ID {
		t.Fatalf("want delete event for %s, got %+v", created.ID, last)
	}
	if v := testutil.ToFloat64(f.metrics.Deleted); v != 1 {
		t.Fatalf("want deleted counter 1, got %v", v)
	}
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	seed := []products.Input{
		{Title: "Jan 10", Status: "active", Date: "2024-01-10"},
		{Title: "Jan 31", Status: "inactive", Date: "2024-01-31"},
		{Title: "Feb 01", Status: "active", Date: "2024-02-01"},
		{Title: "Dec 31", Status: "inactive", Date: "2023-12-31"},
	}
	for _, in := range seed {
		if _, err := f.svc.CreateProduct(ctx, in, nil); err != nil {
			t.Fatalf("seed %q: %v", in.Title, err)
		}
	}

	mustFilter := func(status, start, end string) products.Filter {
		filter, err := products.ParseFilter(status, start, end)
		if err != nil {
			t.Fatalf("parse filter: %v", err)
		}
		return filter
	}

	tests := []struct {
		name    string
		filter  products.Filter
		wantLen int
	}{
		{name: "all", filter: products.Filter{}, wantLen: 4},
		{name: "active only", filter: mustFilter("active", "", ""), wantLen: 2},
		{name: "january inclusive", filter: mustFilter("", "2024-01-01", "2024-01-31"), wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := f.svc.ListProducts(ctx, tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != tt.wantLen {
				t.Fatalf("want %d items, got %d", tt.wantLen, len(items))
			}
			for i, p := range items {
				if !matchesFilter(tt.filter, p) {
					t.Fatalf("item %+v does not match filter %+v", p, tt.filter)
				}
				if i > 0 && p.Date.After(items[i-1].Date) {
					t.Fatalf("want date descending, got %v after %v", p.Date, items[i-1].Date)
				}
			}
		})
	}

	t.Run("repo error is wrapped", func(t *testing.T) {
		errDB := errors.New("db down")
		f.svc.repo = &failingRepo{Repository: f.repo, err: errDB}
		if _, err := f.svc.ListProducts(ctx, products.Filter{}); !errors.Is(err, errDB) {
			t.Fatalf("want error wrapping %v, got %v", errDB, err)
		}
	})
}

// matchesFilter is the in-memory equivalent of the stores' list query.
func matchesFilter(f products.Filter, p products.Product) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if !f.StartDate.IsZero() && p.Date.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && p.Date.After(f.EndDate) {
		return false
	}
	return true
}
