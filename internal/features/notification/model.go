package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TenantID  primitive.ObjectID  `bson:"tenant_id" json:"tenant_id"`
	CompanyID *primitive.ObjectID `bson:"company_id,omitempty" json:"company_id,omitempty"`
	UserID    *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Type      string              `bson:"type" json:"type"`
	Priority  string              `bson:"priority" json:"priority"`
	Title     string              `bson:"title" json:"title"`
	Message   string              `bson:"message" json:"message"`
	Channels  []string            `bson:"channels,omitempty" json:"channels,omitempty"`
	ActionURL string              `bson:"action_url,omitempty" json:"action_url,omitempty"`
	IsRead    bool                `bson:"is_read" json:"is_read"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	ReadAt    *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
}
