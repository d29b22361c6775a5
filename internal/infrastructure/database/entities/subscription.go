package entities

import "time"

const (
	SubscriptionStatusPending   = "pending_confirmation"
	SubscriptionStatusConfirmed = "confirmed"
)

type Subscription struct {
	ID           string    `gorm:"primaryKey;type:uuid"`
	Email        string    `gorm:"uniqueIndex"`
	Name         string
	SubscribedAt time.Time
	Status       string
}

func (Subscription) TableName() string {
	return "subscriptions"
}
