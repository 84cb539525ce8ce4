package handlers

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/batchinput"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/internal/service"
	"github.com/Ammly/AdbSms/pkg/response"
)

const maxJobPageSize = 50

type BulkHandler struct {
	service *service.MessageService
	config  environments.DispatchConfig
}

func NewBulkHandler(service *service.MessageService, cfg environments.DispatchConfig) *BulkHandler {
	return &BulkHandler{service: service, config: cfg}
}

type AcceptedBulkResponse struct {
	Status        string                  `json:"status"`
	JobID         int64                   `json:"job_id"`
	TaskID        string                  `json:"task_id"`
	TotalMessages int                     `json:"total_messages"`
	Rejected      int                     `json:"rejected"`
	Rows          []service.RowAcceptance `json:"rows"`
	URL           string                  `json:"url"`
}

// SendBulk godoc
// @Summary Queue a bulk SMS job
// @Description Accepts a CSV file with phone_number and message columns
// @Tags sms
// @Accept multipart/form-data
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param file formData file true "CSV file"
// @Param sim_id formData int false "SIM slot (default 3)"
// @Param delay formData number false "Seconds between messages, 0.1 to 10 (default 1.0)"
// @Success 202 {object} response.SuccessResponse{data=AcceptedBulkResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sms/bulk [post]
func (h *BulkHandler) SendBulk(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequestWithMessage(c, "file is required")
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		return response.BadRequestWithMessage(c, "file must be a .csv file")
	}

	simID := h.config.DefaultSimID
	if v := c.FormValue("sim_id"); v != "" {
		simID, err = strconv.Atoi(v)
		if err != nil {
			return response.BadRequestWithMessage(c, "sim_id must be an integer")
		}
	}

	delay := h.config.DefaultDelay
	if v := c.FormValue("delay"); v != "" {
		seconds, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return response.BadRequestWithMessage(c, "delay must be a number of seconds")
		}
		delay = time.Duration(seconds * float64(time.Second))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, fmt.Errorf("failed to open upload: %w", err))
	}
	defer file.Close()

	rows, err := batchinput.Parse(file, h.config.MaxBulkRows)
	if err != nil {
		return response.BadRequest(c, err)
	}

	sub, err := h.service.SubmitBulk(c.Request().Context(), filepath.Base(fileHeader.Filename), rows, simID, delay)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, "Bulk job queued", AcceptedBulkResponse{
		Status:        "accepted",
		JobID:         sub.Job.ID,
		TaskID:        sub.TaskID,
		TotalMessages: sub.Job.TotalMessages,
		Rejected:      sub.Job.FailedMessages,
		Rows:          sub.Rows,
		URL:           fmt.Sprintf("%s/bulk/%d", groupPrefix(c, "/sms"), sub.Job.ID),
	})
}

// GetBulkJob godoc
// @Summary Get a bulk job
// @Description Returns the job with its progress percentage
// @Tags bulk
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param id path int true "Job ID"
// @Success 200 {object} response.SuccessResponse{data=domain.BulkJob}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/bulk/{id} [get]
func (h *BulkHandler) GetBulkJob(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	job, err := h.service.GetBulkJob(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Ok(c, job)
}

// ListBulkJobs godoc
// @Summary List bulk jobs
// @Tags bulk
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param page query int false "Page number (default: 1)"
// @Param per_page query int false "Page size (default: 20, max: 50)"
// @Param status query string false "Filter by status (pending, processing, completed, failed)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/bulk [get]
func (h *BulkHandler) ListBulkJobs(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c, maxJobPageSize)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var status *domain.JobStatus
	if statusStr := c.QueryParam("status"); statusStr != "" {
		parsed := domain.JobStatus(statusStr)
		if !parsed.Valid() {
			return response.BadRequest(c, fmt.Errorf("status must be one of pending, processing, completed, failed"))
		}
		status = &parsed
	}

	jobs, totalCount, err := h.service.ListBulkJobs(c.Request().Context(), status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, jobs, page, pageSize, totalCount)
}

// groupPrefix strips everything from marker onwards in the matched route.
func groupPrefix(c echo.Context, marker string) string {
	path := c.Path()
	if i := strings.Index(path, marker); i >= 0 {
		return path[:i]
	}
	return ""
}
