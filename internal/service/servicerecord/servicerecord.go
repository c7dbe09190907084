// internal/service/servicerecord/servicerecord.go
package servicerecord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetcare-service/internal/domain/device"
	"fleetcare-service/internal/domain/servicerecord"
	"fleetcare-service/internal/domain/vehicle"
	"fleetcare-service/internal/pkg/dates"
	xerrors "fleetcare-service/internal/pkg/errors"
	"fleetcare-service/internal/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadPolicy limits what may be attached to a record.
type UploadPolicy struct {
	MaxBytes   int64
	ImageTypes []string
}

var DefaultImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/heic"}

type ServiceRecordService struct {
	repo        servicerecord.Repository
	vehicleRepo vehicle.Repository
	deviceRepo  device.Repository
	store       storage.Store
	policy      UploadPolicy
	logger      *zap.Logger
	now         func() time.Time
}

func NewServiceRecordService(
	repo servicerecord.Repository,
	vehicleRepo vehicle.Repository,
	deviceRepo device.Repository,
	store storage.Store,
	policy UploadPolicy,
	logger *zap.Logger,
) *ServiceRecordService {
	if len(policy.ImageTypes) == 0 {
		policy.ImageTypes = DefaultImageTypes
	}
	return &ServiceRecordService{
		repo:        repo,
		vehicleRepo: vehicleRepo,
		deviceRepo:  deviceRepo,
		store:       store,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
	}
}

// Create uploads every file and inserts the record only if all uploads
// succeed. Objects already uploaded before a failure are left in storage.
func (s *ServiceRecordService) Create(
	ctx context.Context,
	ownerID string,
	req *servicerecord.Request,
	images, attachments []servicerecord.FileUpload,
) (*servicerecord.ServiceRecord, error) {
	r := &servicerecord.ServiceRecord{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
	}
	if err := s.applyRequest(ctx, ownerID, r, req); err != nil {
		return nil, err
	}
	if err := s.checkFiles(images, attachments); err != nil {
		return nil, err
	}

	uploaded, err := s.uploadAll(ctx, ownerID, r.ID, images, attachments)
	if err != nil {
		s.logger.Error("service record upload failed",
			zap.String("owner_id", ownerID),
			zap.String("record_id", r.ID),
			zap.Error(err),
		)
		return nil, err
	}
	r.Images = uploaded.imageURLs
	r.ImagePaths = uploaded.imagePaths
	r.Attachments = uploaded.attachments

	now := s.now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create service record: %w", err)
	}

	s.logger.Info("service record created",
		zap.String("record_id", r.ID),
		zap.String("owner_id", ownerID),
		zap.Int("images", len(r.Images)),
		zap.Int("attachments", len(r.Attachments)),
	)
	return r, nil
}

// Update replaces the record data and appends any new files, with the same
// all-or-nothing upload rule as Create.
func (s *ServiceRecordService) Update(
	ctx context.Context,
	ownerID, id string,
	req *servicerecord.Request,
	newImages, newAttachments []servicerecord.FileUpload,
) (*servicerecord.ServiceRecord, error) {
	r, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	updated := *r
	if err := s.applyRequest(ctx, ownerID, &updated, req); err != nil {
		return nil, err
	}
	if err := s.checkFiles(newImages, newAttachments); err != nil {
		return nil, err
	}

	uploaded, err := s.uploadAll(ctx, ownerID, r.ID, newImages, newAttachments)
	if err != nil {
		s.logger.Error("service record upload failed",
			zap.String("owner_id", ownerID),
			zap.String("record_id", r.ID),
			zap.Error(err),
		)
		return nil, err
	}

	updated.Images = append(append([]string{}, r.Images...), uploaded.imageURLs...)
	updated.ImagePaths = append(append([]string{}, r.ImagePaths...), uploaded.imagePaths...)
	updated.Attachments = append(append([]servicerecord.Attachment{}, r.Attachments...), uploaded.attachments...)
	updated.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update service record: %w", err)
	}
	return &updated, nil
}

// GetAll returns the owner's records, newest service date first.
func (s *ServiceRecordService) GetAll(ctx context.Context, ownerID string) ([]servicerecord.ServiceRecord, error) {
	records, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service records: %w", err)
	}
	if records == nil {
		records = []servicerecord.ServiceRecord{}
	}
	return records, nil
}

func (s *ServiceRecordService) Get(ctx context.Context, ownerID, id string) (*servicerecord.ServiceRecord, error) {
	return s.repo.FindByID(ctx, ownerID, id)
}

// Delete removes the row, then tries to remove its stored files. File
// removal failures are logged only.
func (s *ServiceRecordService) Delete(ctx context.Context, ownerID, id string) error {
	r, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	paths := append([]string{}, r.ImagePaths...)
	for _, a := range r.Attachments {
		paths = append(paths, a.Path)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.store.Delete(ctx, p); err != nil {
			s.logger.Warn("failed to delete stored object",
				zap.String("record_id", id),
				zap.String("path", p),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("service record deleted", zap.String("record_id", id), zap.String("owner_id", ownerID))
	return nil
}

func (s *ServiceRecordService) applyRequest(ctx context.Context, ownerID string, r *servicerecord.ServiceRecord, req *servicerecord.Request) error {
	if strings.TrimSpace(req.ServiceDate) == "" {
		return xerrors.Invalid("service_date is required")
	}
	serviceDate, err := dates.Normalize(&req.ServiceDate)
	if err != nil {
		return xerrors.Invalid("service_date: %v", err)
	}

	vehicleID := emptyToNil(req.VehicleID)
	if vehicleID != nil {
		if _, err := s.vehicleRepo.FindByID(ctx, ownerID, *vehicleID); err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return xerrors.Invalid("vehicle %s does not exist", *vehicleID)
			}
			return fmt.Errorf("failed to check vehicle: %w", err)
		}
	}
	deviceID := emptyToNil(req.DeviceID)
	if deviceID != nil {
		if _, err := s.deviceRepo.FindByID(ctx, ownerID, *deviceID); err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return xerrors.Invalid("device %s does not exist", *deviceID)
			}
			return fmt.Errorf("failed to check device: %w", err)
		}
	}

	r.VehicleID = vehicleID
	r.DeviceID = deviceID
	r.Title = strings.TrimSpace(req.Title)
	r.Description = emptyToNil(req.Description)
	r.ServiceDate = *serviceDate
	r.Cost = req.Cost
	r.MileageKm = req.MileageKm
	return nil
}

// checkFiles runs before any upload starts so a bad file never leaves
// partial objects behind.
func (s *ServiceRecordService) checkFiles(images, attachments []servicerecord.FileUpload) error {
	for _, f := range images {
		if !s.isImageType(f.ContentType) {
			return xerrors.Invalid("%s: unsupported image type %q", f.Name, f.ContentType)
		}
	}
	for _, group := range [][]servicerecord.FileUpload{images, attachments} {
		for _, f := range group {
			if f.Open == nil {
				return xerrors.Invalid("%s: no content", f.Name)
			}
			if s.policy.MaxBytes > 0 && f.Size > s.policy.MaxBytes {
				return xerrors.Invalid("%s exceeds the %d byte upload limit", f.Name, s.policy.MaxBytes)
			}
		}
	}
	return nil
}

func (s *ServiceRecordService) isImageType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, allowed := range s.policy.ImageTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
