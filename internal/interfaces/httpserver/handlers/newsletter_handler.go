package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/domain/idempotency"
	"jan-server/services/newsletter-api/internal/domain/newsletter"
	"jan-server/services/newsletter-api/internal/infrastructure/auth"
	"jan-server/services/newsletter-api/internal/infrastructure/metrics"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/requests"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/responses"
	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

// IdempotentExecutor runs a command at most once per actor and key.
type IdempotentExecutor interface {
	Execute(ctx context.Context, actorID string, key idempotency.Key, cmd idempotency.Command) (idempotency.Response, bool, error)
}

// QueueInspector reports the delivery backlog.
type QueueInspector interface {
	Depth(ctx context.Context) (int64, error)
}

// NewsletterHandler exposes HTTP entrypoints for publishing issues.
type NewsletterHandler struct {
	gateway IdempotentExecutor
	service newsletter.Service
	queue   QueueInspector
	log     zerolog.Logger
}

// NewNewsletterHandler constructs the handler.
func NewNewsletterHandler(gateway IdempotentExecutor, service newsletter.Service, queue QueueInspector, log zerolog.Logger) *NewsletterHandler {
	return &NewsletterHandler{
		gateway: gateway,
		service: service,
		queue:   queue,
		log:     log.With().Str("handler", "newsletter").Logger(),
	}
}

// Publish handles POST /v1/newsletters
// @Summary Publish a newsletter issue
// @Description Stores the issue and queues one delivery per confirmed subscriber. Resubmitting with the same idempotency key replays the first response.
// @Tags Newsletters
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param request body requests.PublishNewsletterRequest true "Issue content and idempotency key"
// @Success 202 {object} responses.PublishResponse
// @Failure 400 {object} platformerrors.HTTPErrorResponse
// @Failure 401 {object} platformerrors.HTTPErrorResponse
// @Failure 409 {object} platformerrors.HTTPErrorResponse
// @Failure 500 {object} platformerrors.HTTPErrorResponse
// @Router /v1/newsletters [post]
func (h *NewsletterHandler) Publish(c *gin.Context) {
	var req requests.PublishNewsletterRequest
	if err := c.ShouldBind(&req); err != nil {
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeValidation, "title, text_content, html_content and idempotency_key are required", "newsletter-invalid-request")
		return
	}

	actorID := auth.ActorID(c)
	if actorID == "" {
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeUnauthorized, "authentication required", "newsletter-missing-actor")
		return
	}

	key, err := idempotency.ParseKey(req.IdempotencyKey)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	params := newsletter.PublishParams{
		Title:       req.Title,
		TextContent: req.TextContent,
		HTMLContent: req.HTMLContent,
	}

	var published *newsletter.PublishResult
	resp, replayed, err := h.gateway.Execute(c.Request.Context(), actorID, key, func(ctx context.Context) (idempotency.Response, error) {
		result, err := h.service.Publish(ctx, params)
		if err != nil {
			return idempotency.Response{}, err
		}
		published = result
		return publishResponse(result)
	})
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			metrics.RecordIdempotency("conflict")
		}
		responses.HandleError(c, h.log, err)
		return
	}

	if replayed {
		metrics.RecordIdempotency("replayed")
		h.log.Info().Str("actor_id", actorID).Str("idempotency_key", key.String()).Msg("replaying saved publish response")
	} else {
		metrics.RecordIdempotency("executed")
		if published != nil {
			metrics.RecordPublish(published.Enqueued)
			h.log.Info().
				Str("issue_id", published.Issue.ID).
				Int64("enqueued", published.Enqueued).
				Int("skipped", published.Skipped).
				Msg("newsletter issue published")
		}
	}

	writeSavedResponse(c, resp)
}

// GetIssue handles GET /v1/newsletters/:issue_id
// @Summary Get a newsletter issue
// @Description Returns the issue and the number of deliveries still queued for it
// @Tags Newsletters
// @Produce json
// @Param issue_id path string true "Issue ID"
// @Success 200 {object} responses.IssueResponse
// @Failure 404 {object} platformerrors.HTTPErrorResponse
// @Failure 500 {object} platformerrors.HTTPErrorResponse
// @Router /v1/newsletters/{issue_id} [get]
func (h *NewsletterHandler) GetIssue(c *gin.Context) {
	status, err := h.service.GetIssue(c.Request.Context(), c.Param("issue_id"))
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, responses.MapIssueStatusToResponse(status))
}

// QueueDepth handles GET /v1/deliveries/queue
// @Summary Delivery queue depth
// @Tags Deliveries
// @Produce json
// @Success 200 {object} responses.QueueDepthResponse
// @Failure 500 {object} platformerrors.HTTPErrorResponse
// @Router /v1/deliveries/queue [get]
func (h *NewsletterHandler) QueueDepth(c *gin.Context) {
	depth, err := h.queue.Depth(c.Request.Context())
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, responses.QueueDepthResponse{Depth: depth})
}

// publishResponse renders the response that gets cached for the key, so the
// exact bytes can be replayed later.
func publishResponse(result *newsletter.PublishResult) (idempotency.Response, error) {
	body, err := json.Marshal(responses.NewPublishResponse(result))
	if err != nil {
		return idempotency.Response{}, err
	}
	return idempotency.Response{
		StatusCode: http.StatusAccepted,
		Headers: []idempotency.HeaderPair{
			{Name: "Content-Type", Value: []byte("application/json; charset=utf-8")},
			{Name: "Location", Value: []byte("/v1/newsletters/" + result.Issue.ID)},
		},
		Body: body,
	}, nil
}

func writeSavedResponse(c *gin.Context, resp idempotency.Response) {
	header := c.Writer.Header()
	for _, pair := range resp.Headers {
		header.Add(pair.Name, string(pair.Value))
	}
	c.Status(resp.StatusCode)
	if _, err := c.Writer.Write(resp.Body); err != nil {
		_ = c.Error(err)
	}
}
