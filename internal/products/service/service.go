package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"product-catalog/internal/products"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "product-catalog/service"

type Repository interface {
	Create(ctx context.Context, f products.Fields) (products.Product, error)
	Get(ctx context.Context, id string) (products.Product, error)
	Update(ctx context.Context, id string, f products.Fields) (products.Product, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter products.Filter) ([]products.Product, error)
}

type ImageStore interface {
	Upload(ctx context.Context, img products.Image) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event products.ProductEvent) error
}

type Metrics struct {
	Created        prometheus.Counter
	Updated        prometheus.Counter
	Deleted        prometheus.Counter
	ImagesUploaded prometheus.Counter
}

type Service struct {
	repo      Repository
	images    ImageStore
	publisher Publisher
	logger    *slog.Logger
	metrics   Metrics
	tracer    trace.Tracer
}

func New(repo Repository, images ImageStore, publisher Publisher, logger *slog.Logger, metrics Metrics) *Service {
	return &Service{
		repo:      repo,
		images:    images,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// validate checks the form fields and the optional image together.
func validate(in products.Input, img *products.Image) (products.Fields, error) {
	fields, err := in.Fields()
	if img != nil {
		err = products.JoinValidation(err, img.Check())
	}
	return fields, err
}

// CreateProduct validates the input, uploads the image when given, then
// stores the record. A failed write after a successful upload leaves the
// image orphaned.
func (s *Service) CreateProduct(ctx context.Context, in products.Input, img *products.Image) (products.Product, error) {
	ctx, span := s.tracer.Start(ctx, "Service.CreateProduct")
	defer span.End()

	fields, err := validate(in, img)
	if err != nil {
		return products.Product{}, fail(span, err)
	}

	if img != nil {
		url, err := s.uploadImage(ctx, *img)
		if err != nil {
			return products.Product{}, fail(span, err)
		}
		fields.ImageURL = &url
	}

	product, err := s.repo.Create(ctx, fields)
	if err != nil {
		s.warnOrphan(ctx, fields.ImageURL, err)
		return products.Product{}, fail(span, fmt.Errorf("repo create: %w", err))
	}
	span.SetAttributes(attribute.String("product.id", product.ID))

	s.publish(ctx, products.EventCreated, product)
	s.metrics.Created.Inc()
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (products.Product, error) {
	ctx, span := s.tracer.Start(ctx, "Service.GetProduct", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return products.Product{}, fail(span, fmt.Errorf("repo get: %w", err))
	}
	return product, nil
}

// UpdateProduct replaces title, description, status and date. The stored
// image URL changes only when a new image is supplied.
func (s *Service) UpdateProduct(ctx context.Context, id string, in products.Input, img *products.Image) (products.Product, error) {
	ctx, span := s.tracer.Start(ctx, "Service.UpdateProduct", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	fields, err := validate(in, img)
	if err != nil {
		return products.Product{}, fail(span, err)
	}

	if img != nil {
		// unknown ids must not leave an uploaded image behind
		if _, err := s.repo.Get(ctx, id); err != nil {
			return products.Product{}, fail(span, fmt.Errorf("repo get: %w", err))
		}
		url, err := s.uploadImage(ctx, *img)
		if err != nil {
			return products.Product{}, fail(span, err)
		}
		fields.ImageURL = &url
	}

	product, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		s.warnOrphan(ctx, fields.ImageURL, err)
		return products.Product{}, fail(span, fmt.Errorf("repo update: %w", err))
	}

	s.publish(ctx, products.EventUpdated, product)
	s.metrics.Updated.Inc()
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "Service.DeleteProduct", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		return fail(span, fmt.Errorf("repo delete: %w", err))
	}

	s.publish(ctx, products.EventDeleted, products.Product{ID: id})
	s.metrics.Deleted.Inc()
	return nil
}

// ListProducts returns the products matching filter, newest date first.
func (s *Service) ListProducts(ctx context.Context, filter products.Filter) ([]products.Product, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ListProducts")
	defer span.End()

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fail(span, fmt.Errorf("repo list: %w", err))
	}
	span.SetAttributes(attribute.Int("product.count", len(items)))
	return items, nil
}

func (s *Service) uploadImage(ctx context.Context, img products.Image) (string, error) {
	url, err := s.images.Upload(ctx, img)
	if err != nil {
		var serr *products.StorageError
		if !errors.As(err, &serr) {
			err = &products.StorageError{Op: "upload", Err: err}
		}
		return "", err
	}
	s.metrics.ImagesUploaded.Inc()
	return url, nil
}

func (s *Service) warnOrphan(ctx context.Context, imageURL *string, cause error) {
	if imageURL == nil {
		return
	}
	s.logger.WarnContext(ctx, "product write failed after image upload, image orphaned",
		"image_url", *imageURL,
		"error", cause,
	)
}

func (s *Service) publish(ctx context.Context, eventType string, product products.Product) {
	if err := s.publisher.Publish(ctx, products.ProductEvent{
		EventType: eventType,
		ProductID: product.ID,
		Title:     product.Title,
		Status:    product.Status,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.ErrorContext(ctx, "publish "+eventType+" event failed",
			"product_id", product.ID,
			"error", err,
		)
	}
}
