package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-slot-api/internal/dto"
	"github.com/noah-isme/exam-slot-api/internal/models"
	"github.com/noah-isme/exam-slot-api/internal/service"
	appErrors "github.com/noah-isme/exam-slot-api/pkg/errors"
	"github.com/noah-isme/exam-slot-api/pkg/response"
)

type datasetService interface {
	Upload(ctx context.Context, input service.UploadDatasetInput) (*models.Dataset, error)
	List(ctx context.Context, query dto.ListDatasetsQuery) ([]models.Dataset, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Dataset, error)
	Delete(ctx context.Context, id string) error
}

// DatasetHandler exposes dataset upload and management endpoints.
type DatasetHandler struct {
	service datasetService
}

// NewDatasetHandler constructs the handler.
func NewDatasetHandler(service datasetService) *DatasetHandler {
	return &DatasetHandler{service: service}
}

// Upload godoc
// @Summary Upload an enrollment spreadsheet
// @Tags Datasets
// @Accept multipart/form-data
// @Produce json
// @Param name formData string false "Dataset name"
// @Param file formData file true "CSV spreadsheet with Rollno, Name, Course Name columns"
// @Success 201 {object} response.Envelope
// @Router /datasets [post]
func (h *DatasetHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	input := service.UploadDatasetInput{
		Name:        c.PostForm("name"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      src,
	}
	if claims := claimsFromContext(c); claims != nil {
		input.UploadedBy = claims.UserID
	}

	dataset, err := h.service.Upload(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dataset)
}

// List godoc
// @Summary List uploaded datasets
// @Tags Datasets
// @Produce json
// @Param search query string false "Name or filename filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "Sort column"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /datasets [get]
func (h *DatasetHandler) List(c *gin.Context) {
	query := dto.ListDatasetsQuery{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "page must be an integer"))
			return
		}
		query.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "page_size must be an integer"))
			return
		}
		query.PageSize = size
	}

	datasets, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, datasets, pagination)
}

// Get godoc
// @Summary Get dataset details
// @Tags Datasets
// @Produce json
// @Param id path string true "Dataset ID"
// @Success 200 {object} response.Envelope
// @Router /datasets/{id} [get]
func (h *DatasetHandler) Get(c *gin.Context) {
	dataset, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dataset, nil)
}

// Delete godoc
// @Summary Delete a dataset and its enrollment records
// @Tags Datasets
// @Produce json
// @Param id path string true "Dataset ID"
// @Success 204
// @Router /datasets/{id} [delete]
func (h *DatasetHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
