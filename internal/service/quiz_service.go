package service

import (
	"context"
	"time"

	"performance-service/internal/apperrors"
	"performance-service/internal/grading"
	"performance-service/internal/models"
	"performance-service/internal/stats"

	"go.uber.org/zap"
)

// QuizService grades submissions against stored quiz definitions and keeps
// each quiz's attempt metadata current. Submissions for the same topic are
// serialized so the attempt counter moves by exactly one per submission.
type QuizService struct {
	Quizzes QuizStore

	logger *zap.Logger
	locks  *keyedLock
}

func NewQuizService(quizzes QuizStore, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		Quizzes: quizzes,
		logger:  logger,
		locks:   newKeyedLock(),
	}
}

type SubmitInput struct {
	Answers          []int `json:"answers"`
	TimeSpentSeconds int   `json:"time_spent_seconds"`
}

type SubmitResult struct {
	grading.Result
	TimeSpentSeconds int                 `json:"time_spent_seconds"`
	Metadata         models.QuizMetadata `json:"metadata"`
}

type CreateQuizInput struct {
	Topic        string                `json:"topic"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Questions    []models.QuizQuestion `json:"questions"`
	PassingScore float64               `json:"passing_score"`
}

// Submit grades the answers and folds the percentage into the quiz's
// running average.
func (s *QuizService) Submit(ctx context.Context, topic string, in SubmitInput) (*SubmitResult, error) {
	if topic == "" {
		return nil, apperrors.MissingField("topic")
	}
	if in.Answers == nil {
		return nil, apperrors.MissingField("answers")
	}

	mu := s.locks.lock(topic)
	defer mu.Unlock()

	quiz, err := s.Quizzes.FindByTopic(ctx, topic)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, apperrors.NotFound("quiz", topic)
	}

	result, err := grading.Grade(quiz, in.Answers)
	if err != nil {
		return nil, err
	}

	count, mean := stats.Update(quiz.Metadata.TotalAttempts, quiz.Metadata.AverageScore, result.Percentage)
	quiz.Metadata.TotalAttempts = count
	quiz.Metadata.AverageScore = stats.Round2(mean)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Quizzes.Save(ctx, quiz); err != nil {
		return nil, err
	}

	s.logger.Debug("quiz graded",
		zap.String("topic", topic),
		zap.Float64("percentage", result.Percentage),
		zap.Int("total_attempts", quiz.Metadata.TotalAttempts))

	return &SubmitResult{
		Result:           *result,
		TimeSpentSeconds: in.TimeSpentSeconds,
		Metadata:         quiz.Metadata,
	}, nil
}

// Create seeds a new quiz definition. The topic must be unique; a duplicate
// surfaces as a ConflictError from the store.
func (s *QuizService) Create(ctx context.Context, in CreateQuizInput) (*models.Quiz, error) {
	if in.Topic == "" {
		return nil, apperrors.MissingField("topic")
	}
	if len(in.Questions) == 0 {
		return nil, apperrors.MissingField("questions")
	}
	var total float64
	for _, q := range in.Questions {
		if q.Points < 0 {
			return nil, apperrors.Invalid("questions", "question points cannot be negative")
		}
		total += q.Points
	}
	if total <= 0 {
		return nil, apperrors.Invalid("questions", "quiz has no scorable questions")
	}
	if in.PassingScore < 0 || in.PassingScore > 100 {
		return nil, apperrors.Invalid("passing_score", "must be between 0 and 100")
	}

	now := time.Now().UTC()
	quiz := &models.Quiz{
		Topic:        in.Topic,
		Title:        in.Title,
		Description:  in.Description,
		Questions:    in.Questions,
		PassingScore: in.PassingScore,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// GetByTopic returns the quiz definition for grading-aware callers.
func (s *QuizService) GetByTopic(ctx context.Context, topic string) (*models.Quiz, error) {
	if topic == "" {
		return nil, apperrors.MissingField("topic")
	}
	quiz, err := s.Quizzes.FindByTopic(ctx, topic)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, apperrors.NotFound("quiz", topic)
	}
	return quiz, nil
}
