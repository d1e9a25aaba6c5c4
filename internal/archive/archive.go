// Package archive keeps raw statement files in a GCS bucket.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

const (
	objectPrefix  = "statements"
	uploadTimeout = 2 * time.Minute
)

// ObjectName returns the object path for content imported into accountID
// at the given time: statements/<accountID>/<yyyy>/<mm>/<dd>/<sha256>.ofx.
func ObjectName(accountID string, content []byte, at time.Time) string {
	sum := sha256.Sum256(content)
	return path.Join(objectPrefix, accountID, at.UTC().Format("2006/01/02"), hex.EncodeToString(sum[:])+".ofx")
}

// ParseURI splits gs://bucket/object into its bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// GCSArchiver stores statements in one bucket.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewGCSArchiver creates an archiver with its own client. It assumes
// Application Default Credentials are configured.
func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSArchiver: create storage client: %w", err)
	}
	return NewGCSArchiverWithClient(client, bucket), nil
}

// NewGCSArchiverWithClient creates an archiver over client.
func NewGCSArchiverWithClient(client *storage.Client, bucket string) *GCSArchiver {
	return &GCSArchiver{client: client, bucket: bucket, now: time.Now}
}

// Close closes the storage client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// Archive uploads content and returns its gs:// URI. Content already
// archived under the same name is left as is.
func (a *GCSArchiver) Archive(ctx context.Context, accountID string, content []byte) (string, error) {
	name := ObjectName(accountID, content, a.now())
	uri := fmt.Sprintf("gs://%s/%s", a.bucket, name)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	obj := a.client.Bucket(a.bucket).Object(name).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = "application/x-ofx"

	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: write %s: %w", uri, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return uri, nil
		}
		return "", fmt.Errorf("Archive: finalize upload %s: %w", uri, err)
	}
	return uri, nil
}

// Fetch downloads the object at a gs:// URI.
func (a *GCSArchiver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	r, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: open object %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: read object: %w", err)
	}
	return data, nil
}
