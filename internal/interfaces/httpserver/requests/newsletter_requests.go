package requests

// PublishNewsletterRequest is the operator's submission, accepted as JSON or
// as an HTML form post.
type PublishNewsletterRequest struct {
	Title          string `json:"title" form:"title" binding:"required"`
	TextContent    string `json:"text_content" form:"text_content" binding:"required"`
	HTMLContent    string `json:"html_content" form:"html_content" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" form:"idempotency_key" binding:"required"`
}
