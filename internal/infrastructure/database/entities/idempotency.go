package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Idempotency is the persisted claim for an (actor, key) pair.
// Response columns stay NULL until the owning request saves its response.
type Idempotency struct {
	UserID             string         `gorm:"primaryKey;column:user_id"`
	IdempotencyKey     string         `gorm:"primaryKey;column:idempotency_key"`
	ResponseStatusCode *int16         `gorm:"column:response_status_code"`
	ResponseHeaders    datatypes.JSON `gorm:"type:jsonb;column:response_headers"`
	ResponseBody       []byte         `gorm:"type:bytea;column:response_body"`
	CreatedAt          time.Time      `gorm:"column:created_at"`
}

func (Idempotency) TableName() string {
	return "idempotency"
}

// HeaderPair is the JSON shape of one cached response header.
type HeaderPair struct {
	Name  string `json:"name"`
	Value []byte `json:"value"`
}
