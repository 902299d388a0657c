package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"product-catalog/internal/products"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	headerContentType  = "Content-Type"
	defaultContentType = "application/octet-stream"
)

// JetStream keeps images in a NATS JetStream object store bucket.
type JetStream struct {
	conn      *nats.Conn
	store     jetstream.ObjectStore
	urlPrefix string
}

// NewJetStream connects to NATS and opens the bucket, creating it when missing.
func NewJetStream(ctx context.Context, natsURL, bucket, urlPrefix string) (*JetStream, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	store, err := js.ObjectStore(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "Product images",
		})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open object store %q: %w", bucket, err)
	}

	return &JetStream{conn: conn, store: store, urlPrefix: urlPrefix}, nil
}

func (s *JetStream) Upload(ctx context.Context, img products.Image) (string, error) {
	contentType := img.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	name := objectName(img.Name)
	meta := jetstream.ObjectMeta{
		Name: name,
		Headers: nats.Header{
			headerContentType: []string{contentType},
		},
	}

	if _, err := s.store.Put(ctx, meta, bytes.NewReader(img.Data)); err != nil {
		return "", &products.StorageError{Op: "upload", Err: err}
	}

	return publicURL(s.urlPrefix, name), nil
}

func (s *JetStream) Open(ctx context.Context, name string) ([]byte, string, error) {
	if !validName(name) {
		return nil, "", ErrNotFound
	}

	info, err := s.store.GetInfo(ctx, name)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", &products.StorageError{Op: "read", Err: err}
	}

	data, err := s.store.GetBytes(ctx, name)
	if err != nil {
		return nil, "", &products.StorageError{Op: "read", Err: err}
	}

	contentType := defaultContentType
	if info.Headers != nil {
		if ct := info.Headers.Get(headerContentType); ct != "" {
			contentType = ct
		}
	}
	return data, contentType, nil
}

func (s *JetStream) Health() error {
	if s.conn == nil || !s.conn.IsConnected() {
		return errors.New("nats disconnected")
	}
	return nil
}

func (s *JetStream) Close() error {
	s.conn.Close()
	return nil
}
