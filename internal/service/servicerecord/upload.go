// internal/service/servicerecord/upload.go
package servicerecord

import (
	"context"
	"fmt"

	"fleetcare-service/internal/domain/servicerecord"
	xerrors "fleetcare-service/internal/pkg/errors"
	"fleetcare-service/internal/pkg/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	kindImages      = "images"
	kindAttachments = "attachments"
)

type uploadResult struct {
	imageURLs   []string
	imagePaths  []string
	attachments []servicerecord.Attachment
}

// uploadAll stores every file concurrently. The first failure cancels the
// rest and is returned as ErrUploadFailed.
func (s *ServiceRecordService) uploadAll(
	ctx context.Context,
	ownerID, recordID string,
	images, attachments []servicerecord.FileUpload,
) (*uploadResult, error) {
	res := &uploadResult{
		imageURLs:   make([]string, len(images)),
		imagePaths:  make([]string, len(images)),
		attachments: make([]servicerecord.Attachment, len(attachments)),
	}
	if len(images) == 0 && len(attachments) == 0 {
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)

	for i, f := range images {
		g.Go(func() error {
			p := ObjectPath(ownerID, recordID, kindImages, f.Name)
			url, err := s.put(gctx, p, f)
			if err != nil {
				return err
			}
			res.imageURLs[i] = url
			res.imagePaths[i] = p
			return nil
		})
	}

	for i, f := range attachments {
		g.Go(func() error {
			p := ObjectPath(ownerID, recordID, kindAttachments, f.Name)
			url, err := s.put(gctx, p, f)
			if err != nil {
				return err
			}
			res.attachments[i] = servicerecord.Attachment{
				Name:        f.Name,
				URL:         url,
				Path:        p,
				ContentType: contentTypeOrDefault(f.ContentType),
				Size:        f.Size,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUploadFailed, err)
	}
	return res, nil
}

func (s *ServiceRecordService) put(ctx context.Context, objectPath string, f servicerecord.FileUpload) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	url, err := s.store.Upload(ctx, objectPath, contentTypeOrDefault(f.ContentType), rc)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}
	return url, nil
}

// ObjectPath is where a record's file is stored.
func ObjectPath(ownerID, recordID, kind, name string) string {
	return fmt.Sprintf("service-records/%s/%s/%s/%s-%s",
		ownerID, recordID, kind, uuid.NewString(), storage.SanitizeName(name))
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
