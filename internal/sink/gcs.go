package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCS writes artifacts as objects in a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCS connects with application default credentials unless opts say
// otherwise.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCS{client: c, bucket: c.Bucket(bucket), name: bucket, prefix: prefix}, nil
}

func (g *GCS) Ensure(ctx context.Context) error {
	if _, err := g.bucket.Attrs(ctx); err != nil {
		var gerr *googleapi.Error
		if errors.Is(err, storage.ErrBucketNotExist) || (errors.As(err, &gerr) && gerr.Code == http.StatusNotFound) {
			return fmt.Errorf("bucket %s does not exist: %w", g.name, err)
		}
		return fmt.Errorf("check bucket %s: %w", g.name, err)
	}
	return nil
}

// Write uploads data, overwriting an existing object of the same name.
func (g *GCS) Write(ctx context.Context, name string, data []byte) error {
	obj := objectName(g.prefix, name)
	w := g.bucket.Object(obj).NewWriter(ctx)
	w.ContentType = contentType(name)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			log.Error().Int("code", gerr.Code).Str("object", obj).Msg("gcs write rejected")
		}
		return fmt.Errorf("write gs://%s/%s: %w", g.name, obj, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", g.name, obj, err)
	}
	return nil
}

func (g *GCS) Location(name string) string {
	return "gs://" + g.name + "/" + objectName(g.prefix, name)
}

// Close releases the storage client.
func (g *GCS) Close() error { return g.client.Close() }
