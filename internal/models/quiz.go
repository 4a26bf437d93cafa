package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type QuizQuestion struct {
	Prompt  string   `bson:"prompt" json:"prompt"`
	Options []string `bson:"options" json:"options"`
	Correct int      `bson:"correct" json:"correct"`
	Points  float64  `bson:"points" json:"points"`
}

// QuizMetadata is a running statistic over the percentage scores of every
// graded submission for the quiz.
type QuizMetadata struct {
	TotalAttempts int     `bson:"total_attempts" json:"total_attempts"`
	AverageScore  float64 `bson:"average_score" json:"average_score"`
}

// Quiz is keyed by Topic, which is unique across the collection. Grading
// reads Questions and PassingScore and mutates only Metadata.
type Quiz struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Topic        string             `bson:"topic" json:"topic"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	Questions    []QuizQuestion     `bson:"questions" json:"questions"`
	PassingScore float64            `bson:"passing_score" json:"passing_score"`
	Metadata     QuizMetadata       `bson:"metadata" json:"metadata"`
	Version      int64              `bson:"version" json:"version"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

type QuizQuestionView struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Points  float64  `json:"points"`
}

type QuizView struct {
	Topic        string             `json:"topic"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Questions    []QuizQuestionView `json:"questions"`
	PassingScore float64            `json:"passing_score"`
	Metadata     QuizMetadata       `json:"metadata"`
}

// View returns the client-facing shape of the quiz with correct answers
// stripped out.
func (q *Quiz) View() QuizView {
	questions := make([]QuizQuestionView, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, QuizQuestionView{
			Prompt:  question.Prompt,
			Options: question.Options,
			Points:  question.Points,
		})
	}
	return QuizView{
		Topic:        q.Topic,
		Title:        q.Title,
		Description:  q.Description,
		Questions:    questions,
		PassingScore: q.PassingScore,
		Metadata:     q.Metadata,
	}
}
