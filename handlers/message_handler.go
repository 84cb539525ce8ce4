package handlers

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/internal/service"
	"github.com/Ammly/AdbSms/pkg/response"
	"github.com/Ammly/AdbSms/pkg/validator"
)

const maxMessagePageSize = 100

type MessageHandler struct {
	service *service.MessageService
}

func NewMessageHandler(service *service.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

type SendMessageRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Content     string `json:"content" validate:"required,max=1000"`
	SimID       *int   `json:"sim_id,omitempty" validate:"omitempty,gte=0"`
}

type AcceptedMessageResponse struct {
	Status    string `json:"status"`
	MessageID int64  `json:"message_id"`
	TaskID    string `json:"task_id"`
	URL       string `json:"url"`
}

// SendMessage godoc
// @Summary Queue a single SMS
// @Description Stores a pending message and queues it for the handset
// @Tags sms
// @Accept json
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param message body SendMessageRequest true "Message to send"
// @Success 202 {object} response.SuccessResponse{data=AcceptedMessageResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sms [post]
func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	sub, err := h.service.SubmitMessage(c.Request().Context(), req.PhoneNumber, req.Content, req.SimID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, "Message queued", AcceptedMessageResponse{
		Status:    "accepted",
		MessageID: sub.Message.ID,
		TaskID:    sub.TaskID,
		URL:       messageURL(c, sub.Message.ID),
	})
}

// GetMessage godoc
// @Summary Get a message
// @Tags sms
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param id path int true "Message ID"
// @Success 200 {object} response.SuccessResponse{data=domain.Message}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/sms/{id} [get]
func (h *MessageHandler) GetMessage(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	msg, err := h.service.GetMessage(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Ok(c, msg)
}

// GetAllMessages godoc
// @Summary List messages
// @Description Retrieves a paginated list of messages with optional status filter
// @Tags sms
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param page query int false "Page number (default: 1)"
// @Param per_page query int false "Page size (default: 20, max: 100)"
// @Param status query string false "Filter by status (pending, sent, failed)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sms [get]
func (h *MessageHandler) GetAllMessages(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c, maxMessagePageSize)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var status *domain.MessageStatus
	if statusStr := c.QueryParam("status"); statusStr != "" {
		parsed := domain.MessageStatus(statusStr)
		if !parsed.Valid() {
			return response.BadRequest(c, fmt.Errorf("status must be one of pending, sent, failed"))
		}
		status = &parsed
	}

	messages, totalCount, err := h.service.GetAllMessages(c.Request().Context(), status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, messages, page, pageSize, totalCount)
}

// ResendMessage godoc
// @Summary Resend a failed message
// @Description Queues a new message with the same recipient and content as a failed one
// @Tags sms
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param id path int true "Message ID"
// @Success 202 {object} response.SuccessResponse{data=AcceptedMessageResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/sms/{id}/resend [post]
func (h *MessageHandler) ResendMessage(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	sub, err := h.service.ResendMessage(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, "Message requeued", AcceptedMessageResponse{
		Status:    "accepted",
		MessageID: sub.Message.ID,
		TaskID:    sub.TaskID,
		URL:       messageURL(c, sub.Message.ID),
	})
}

// GetStats godoc
// @Summary Get statistics
// @Description Message counts by status, bulk job counts by status and the cached device status
// @Tags stats
// @Produce json
// @Param X-API-Key header string true "API key"
// @Success 200 {object} response.SuccessResponse{data=service.Stats}
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/stats [get]
func (h *MessageHandler) GetStats(c echo.Context) error {
	stats, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	stats.Messages.Total = stats.Messages.Pending + stats.Messages.Sent + stats.Messages.Failed
	stats.Jobs.Total = stats.Jobs.Pending + stats.Jobs.Processing + stats.Jobs.Completed + stats.Jobs.Failed

	return response.Ok(c, stats)
}

func messageURL(c echo.Context, id int64) string {
	return fmt.Sprintf("%s/sms/%d", groupPrefix(c, "/sms"), id)
}
