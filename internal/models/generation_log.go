package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerationLog records one idea generation attempt in the document store.
type GenerationLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AttemptID string             `bson:"attempt_id" json:"attempt_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`
	SkillID   int64              `bson:"skill_id" json:"skill_id"`

	Model   string `bson:"model" json:"model"`
	Prompt  string `bson:"prompt" json:"prompt"`
	RawText string `bson:"raw_text,omitempty" json:"raw_text,omitempty"`

	Status       string `bson:"status" json:"status"` // done|failed
	ErrorCode    string `bson:"error_code,omitempty" json:"error_code,omitempty"`
	ErrorMessage string `bson:"error_message,omitempty" json:"error_message,omitempty"`
	IdeaCount    int    `bson:"idea_count" json:"idea_count"`

	ProcessingTimeMS int64     `bson:"processing_time_ms" json:"processing_time_ms"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}

const (
	GenerationDone   = "done"
	GenerationFailed = "failed"
)
