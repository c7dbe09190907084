// internal/handlers/servicerecord/servicerecord.go
package servicerecord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"fleetcare-service/internal/domain/servicerecord"
	"fleetcare-service/internal/middleware"
	"fleetcare-service/internal/pkg/response"
	service "fleetcare-service/internal/service/servicerecord"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const (
	formData        = "data"
	formImages      = "images"
	formAttachments = "attachments"
)

// RecordService is implemented by servicerecord.ServiceRecordService.
type RecordService interface {
	Create(ctx context.Context, ownerID string, req *servicerecord.Request, images, attachments []servicerecord.FileUpload) (*servicerecord.ServiceRecord, error)
	Update(ctx context.Context, ownerID, id string, req *servicerecord.Request, newImages, newAttachments []servicerecord.FileUpload) (*servicerecord.ServiceRecord, error)
	GetAll(ctx context.Context, ownerID string) ([]servicerecord.ServiceRecord, error)
	Get(ctx context.Context, ownerID, id string) (*servicerecord.ServiceRecord, error)
	Delete(ctx context.Context, ownerID, id string) error
}

var _ RecordService = (*service.ServiceRecordService)(nil)

type ServiceRecordHandler struct {
	recordService RecordService
}

func NewServiceRecordHandler(recordService RecordService) *ServiceRecordHandler {
	return &ServiceRecordHandler{recordService: recordService}
}

// CreateRecord accepts either a JSON body or a multipart form whose "data"
// field holds the JSON record and whose "images" and "attachments" fields
// hold files.
func (h *ServiceRecordHandler) CreateRecord(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	req, images, attachments, err := bindRecord(c)
	if err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	record, err := h.recordService.Create(c.Request.Context(), ownerID, req, images, attachments)
	if err != nil {
		response.FromError(c, "failed to create service record", err)
		return
	}

	response.Success(c, http.StatusCreated, "service record created", record)
}

// UpdateRecord replaces the record data and appends any uploaded files.
func (h *ServiceRecordHandler) UpdateRecord(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	req, images, attachments, err := bindRecord(c)
	if err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	record, err := h.recordService.Update(c.Request.Context(), ownerID, c.Param("id"), req, images, attachments)
	if err != nil {
		response.FromError(c, "failed to update service record", err)
		return
	}

	response.Success(c, http.StatusOK, "service record updated", record)
}

func (h *ServiceRecordHandler) ListRecords(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	records, err := h.recordService.GetAll(c.Request.Context(), ownerID)
	if err != nil {
		response.FromError(c, "failed to list service records", err)
		return
	}

	response.Success(c, http.StatusOK, "service records retrieved", records)
}

func (h *ServiceRecordHandler) GetRecord(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	record, err := h.recordService.Get(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		response.FromError(c, "service record not found", err)
		return
	}

	response.Success(c, http.StatusOK, "service record retrieved", record)
}

func (h *ServiceRecordHandler) DeleteRecord(c *gin.Context) {
	ownerID := middleware.MustGetUserID(c)

	if err := h.recordService.Delete(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		response.FromError(c, "failed to delete service record", err)
		return
	}

	response.Success(c, http.StatusOK, "service record deleted", nil)
}

func bindRecord(c *gin.Context) (*servicerecord.Request, []servicerecord.FileUpload, []servicerecord.FileUpload, error) {
	var req servicerecord.Request

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, nil, nil, err
		}
		return &req, nil, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	values := form.Value[formData]
	if len(values) == 0 {
		return nil, nil, nil, fmt.Errorf("missing %q field", formData)
	}
	if err := json.Unmarshal([]byte(values[0]), &req); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid %q field: %w", formData, err)
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return nil, nil, nil, err
	}

	return &req, toUploads(form.File[formImages]), toUploads(form.File[formAttachments]), nil
}

func toUploads(headers []*multipart.FileHeader) []servicerecord.FileUpload {
	uploads := make([]servicerecord.FileUpload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, servicerecord.FileUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads
}
