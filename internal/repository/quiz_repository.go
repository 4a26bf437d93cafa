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

type QuizRepository struct {
	Col *mongo.Collection
}

func NewQuizRepository(db *mongo.Database) *QuizRepository {
	return &QuizRepository{Col: db.Collection("quizzes")}
}

func (r *QuizRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "topic", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *QuizRepository) FindByTopic(ctx context.Context, topic string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.Col.FindOne(ctx, bson.M{"topic": topic}).Decode(&quiz)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperrors.StoreUnavailable("FindByTopic", topic, err)
	}
	return &quiz, nil
}

func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	_, err := r.Col.InsertOne(ctx, quiz)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &apperrors.ConflictError{Op: "Create", Key: quiz.Topic}
		}
		return apperrors.StoreUnavailable("Create", quiz.Topic, err)
	}
	return nil
}

// Save replaces the quiz guarded by its version, mirroring the performance
// record store.
func (r *QuizRepository) Save(ctx context.Context, quiz *models.Quiz) error {
	prev := quiz.Version
	quiz.Version = prev + 1
	quiz.UpdatedAt = time.Now().UTC()

	filter := bson.M{"topic": quiz.Topic, "version": prev}
	res, err := r.Col.ReplaceOne(ctx, filter, quiz)
	if err != nil {
		quiz.Version = prev
		return apperrors.StoreUnavailable("Save", quiz.Topic, err)
	}
	if res.MatchedCount == 0 {
		quiz.Version = prev
		return &apperrors.ConflictError{Op: "Save", Key: quiz.Topic}
	}
	return nil
}
