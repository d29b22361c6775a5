package entities

import "time"

type NewsletterIssue struct {
	NewsletterIssueID string    `gorm:"primaryKey;type:uuid;column:newsletter_issue_id"`
	Title             string    `gorm:"type:text;column:title"`
	TextContent       string    `gorm:"type:text;column:text_content"`
	HTMLContent       string    `gorm:"type:text;column:html_content"`
	PublishedAt       time.Time `gorm:"column:published_at"`
}

func (NewsletterIssue) TableName() string {
	return "newsletter_issues"
}

// IssueDeliveryQueue is one pending send. The row is deleted once the send is settled.
type IssueDeliveryQueue struct {
	NewsletterIssueID string `gorm:"primaryKey;type:uuid;column:newsletter_issue_id"`
	SubscriberEmail   string `gorm:"primaryKey;column:subscriber_email"`
}

func (IssueDeliveryQueue) TableName() string {
	return "issue_delivery_queue"
}
