package repository

import (
	"context"
	"time"

	"performance-service/internal/apperrors"
	"performance-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PerformanceRepository struct {
	Col *mongo.Collection
}

func NewPerformanceRepository(db *mongo.Database) *PerformanceRepository {
	return &PerformanceRepository{Col: db.Collection("performances")}
}

// EnsureIndexes enforces one record per (owner, student) pair at the
// storage level, so concurrent FetchOrCreate calls cannot race a duplicate
// into existence.
func (r *PerformanceRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "student_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func recordKey(ownerID, studentID string) string {
	return ownerID + "/" + studentID
}

// FetchOrCreate returns the record for (ownerID, studentID), inserting an
// empty one atomically when none exists.
func (r *PerformanceRepository) FetchOrCreate(ctx context.Context, ownerID, studentID string) (*models.PerformanceRecord, error) {
	now := time.Now().UTC()
	filter := bson.M{"owner_id": ownerID, "student_id": studentID}
	defaults := bson.M{
		"owner_id":             ownerID,
		"student_id":           studentID,
		"summary":              models.PerformanceSummary{},
		"weekly_scores":        []models.WeeklyScore{},
		"subject_averages":     []models.SubjectAverage{},
		"assessment_breakdown": []models.AssessmentBreakdown{},
		"weak_topics":          []models.WeakTopic{},
		"study_logs":           []models.StudyLog{},
		"version":              int64(0),
		"created_at":           now,
		"updated_at":           now,
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var rec models.PerformanceRecord
	err := r.Col.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": defaults}, opts).Decode(&rec)
	if err != nil {
		return nil, apperrors.StoreUnavailable("FetchOrCreate", recordKey(ownerID, studentID), err)
	}
	return &rec, nil
}

func (r *PerformanceRepository) Fetch(ctx context.Context, ownerID, studentID string) (*models.PerformanceRecord, error) {
	var rec models.PerformanceRecord
	err := r.Col.FindOne(ctx, bson.M{"owner_id": ownerID, "student_id": studentID}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperrors.StoreUnavailable("Fetch", recordKey(ownerID, studentID), err)
	}
	return &rec, nil
}

// Save replaces the record guarded by its version. A zero match means a
// concurrent writer got there first and the caller must re-fetch.
func (r *PerformanceRepository) Save(ctx context.Context, rec *models.PerformanceRecord) error {
	key := recordKey(rec.OwnerID, rec.StudentID)
	prev := rec.Version
	rec.Version = prev + 1
	rec.UpdatedAt = time.Now().UTC()

	filter := bson.M{"owner_id": rec.OwnerID, "student_id": rec.StudentID, "version": prev}
	res, err := r.Col.ReplaceOne(ctx, filter, rec)
	if err != nil {
		rec.Version = prev
		return apperrors.StoreUnavailable("Save", key, err)
	}
	if res.MatchedCount == 0 {
		rec.Version = prev
		return &apperrors.ConflictError{Op: "Save", Key: key}
	}
	return nil
}
