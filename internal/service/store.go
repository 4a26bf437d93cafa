package service

import (
	"context"

	"performance-service/internal/models"
)

// RecordStore is the engine's view of durable performance-record storage.
// Fetch returns (nil, nil) when no record exists. Save bumps the record's
// version on success and returns a ConflictError when a concurrent writer
// has moved the version underneath the caller.
type RecordStore interface {
	FetchOrCreate(ctx context.Context, ownerID, studentID string) (*models.PerformanceRecord, error)
	Fetch(ctx context.Context, ownerID, studentID string) (*models.PerformanceRecord, error)
	Save(ctx context.Context, rec *models.PerformanceRecord) error
}

// QuizStore is the engine's view of quiz storage, keyed by topic.
type QuizStore interface {
	FindByTopic(ctx context.Context, topic string) (*models.Quiz, error)
	Create(ctx context.Context, quiz *models.Quiz) error
	Save(ctx context.Context, quiz *models.Quiz) error
}
