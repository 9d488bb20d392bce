package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/pulse-correction-bot/internal/application"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

type uploadFunc func(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)

// GCSArchive stores accepted photos under orders/<order id>/<filename>.
type GCSArchive struct {
	upload uploadFunc
}

func NewGCSArchive(client *storage.Client, bucket string) *GCSArchive {
	return &GCSArchive{
		upload: func(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
			return helpers.UploadObject(ctx, client, bucket, objectPath, contentType, r)
		},
	}
}

func objectPath(orderID int64, filename string) string {
	return path.Join("orders", strconv.FormatInt(orderID, 10), path.Base(filename))
}

// Archive uploads every photo and stops at the first failure.
func (a *GCSArchive) Archive(ctx context.Context, orderID int64, photos []entity.Photo) error {
	for _, p := range photos {
		if _, err := a.upload(ctx, objectPath(orderID, p.Filename), "image/jpeg", bytes.NewReader(p.Content)); err != nil {
			return fmt.Errorf("archive %s of order %d: %w", p.Filename, orderID, err)
		}
	}
	return nil
}

var _ application.PhotoArchive = (*GCSArchive)(nil)
