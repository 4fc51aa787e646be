package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CallStatus is the lifecycle state of a screening call session.
type CallStatus string

const (
	CallInactive   CallStatus = "inactive"
	CallConnecting CallStatus = "connecting"
	CallActive     CallStatus = "active"
	CallEnded      CallStatus = "ended"
)

type ScreeningSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`

	ChildName string     `bson:"child_name" json:"child_name"`
	Language  string     `bson:"language" json:"language"`
	Status    CallStatus `bson:"status" json:"status"`

	// CallID is assigned by the voice platform once the call starts.
	// Set at most once per session.
	CallID string `bson:"call_id,omitempty" json:"call_id,omitempty"`

	Completed bool `bson:"completed" json:"completed"` // completion phrase was heard

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	DurationSeconds int64 `bson:"duration_seconds" json:"duration_seconds"`
}
