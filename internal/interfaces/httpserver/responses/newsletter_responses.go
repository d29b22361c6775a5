package responses

import (
	"time"

	"jan-server/services/newsletter-api/internal/domain/newsletter"
)

// PublishAcceptedMessage is returned once an issue has been stored and queued.
const PublishAcceptedMessage = "The newsletter issue has been accepted - emails will go out shortly."

// PublishResponse is the body cached and replayed for a publish submission.
type PublishResponse struct {
	IssueID  string `json:"issue_id" example:"5f0c6f5e-3f7a-4c55-9a43-4f0f1f3b9f10"`
	Title    string `json:"title" example:"Hello"`
	Enqueued int64  `json:"enqueued" example:"2"`
	Message  string `json:"message" example:"The newsletter issue has been accepted - emails will go out shortly."`
}

// IssueResponse describes a stored issue and its outstanding deliveries.
type IssueResponse struct {
	IssueID           string    `json:"issue_id"`
	Title             string    `json:"title"`
	TextContent       string    `json:"text_content"`
	HTMLContent       string    `json:"html_content"`
	PublishedAt       time.Time `json:"published_at"`
	PendingDeliveries int64     `json:"pending_deliveries"`
}

// QueueDepthResponse reports how many deliveries are waiting.
type QueueDepthResponse struct {
	Depth int64 `json:"depth" example:"42"`
}

// NewPublishResponse maps a publish result to its DTO.
func NewPublishResponse(result *newsletter.PublishResult) PublishResponse {
	return PublishResponse{
		IssueID:  result.Issue.ID,
		Title:    result.Issue.Title,
		Enqueued: result.Enqueued,
		Message:  PublishAcceptedMessage,
	}
}

// MapIssueStatusToResponse maps the domain view to its DTO.
func MapIssueStatusToResponse(s *newsletter.IssueStatus) IssueResponse {
	return IssueResponse{
		IssueID:           s.Issue.ID,
		Title:             s.Issue.Title,
		TextContent:       s.Issue.TextContent,
		HTMLContent:       s.Issue.HTMLContent,
		PublishedAt:       s.Issue.PublishedAt,
		PendingDeliveries: s.PendingDeliveries,
	}
}
