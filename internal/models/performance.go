package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Risk levels reported in the performance summary.
const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
)

// PerformanceSummary is replaced wholesale on every summary update; fields
// absent from the incoming payload reset to their zero value.
type PerformanceSummary struct {
	CurrentGPA           float64   `bson:"current_gpa" json:"current_gpa"`
	PredictedGPA         float64   `bson:"predicted_gpa" json:"predicted_gpa"`
	AttendancePercentage float64   `bson:"attendance_percentage" json:"attendance_percentage"`
	CurrentGrade         string    `bson:"current_grade" json:"current_grade"`
	RiskLevel            string    `bson:"risk_level" json:"risk_level"`
	AttendanceDrop       float64   `bson:"attendance_drop" json:"attendance_drop"`
	PassProbability      float64   `bson:"pass_probability" json:"pass_probability"`
	PredictionConfidence float64   `bson:"prediction_confidence" json:"prediction_confidence"`
	LastUpdated          time.Time `bson:"last_updated" json:"last_updated"`
}

type WeeklyScore struct {
	Week           int       `bson:"week" json:"week"`
	Subject        string    `bson:"subject" json:"subject"`
	Score          float64   `bson:"score" json:"score"`
	MaxScore       float64   `bson:"max_score" json:"max_score"`
	AssessmentType string    `bson:"assessment_type" json:"assessment_type"`
	Date           time.Time `bson:"date" json:"date"`
	Notes          string    `bson:"notes" json:"notes"`
}

// SubjectAverage keeps the latest score as the average; TotalTests still
// counts every submission. AssessmentBreakdown is the collection that keeps
// a true running mean.
type SubjectAverage struct {
	Subject       string    `bson:"subject" json:"subject"`
	AverageScore  float64   `bson:"average_score" json:"average_score"`
	TotalTests    int       `bson:"total_tests" json:"total_tests"`
	LastTestScore float64   `bson:"last_test_score" json:"last_test_score"`
	LastTestDate  time.Time `bson:"last_test_date" json:"last_test_date"`
}

type AssessmentBreakdown struct {
	AssessmentType string  `bson:"assessment_type" json:"assessment_type"`
	Count          int     `bson:"count" json:"count"`
	AverageScore   float64 `bson:"average_score" json:"average_score"`
	Weight         float64 `bson:"weight" json:"weight"`
}

type WeakTopic struct {
	Subject      string    `bson:"subject" json:"subject"`
	Topics       []string  `bson:"topics" json:"topics"`
	AverageScore float64   `bson:"average_score" json:"average_score"`
	LastStudied  time.Time `bson:"last_studied" json:"last_studied"`
}

type StudyLog struct {
	Hours  float64   `bson:"hours" json:"hours"`
	Score  float64   `bson:"score" json:"score"`
	Source string    `bson:"source" json:"source"`
	Date   time.Time `bson:"date" json:"date"`
}

// PerformanceRecord is the per-(owner, student) aggregate document. Exactly
// one exists per pair; it is created implicitly on the first write and
// guarded by an optimistic version for concurrent writers.
type PerformanceRecord struct {
	ID                  primitive.ObjectID    `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID             string                `bson:"owner_id" json:"owner_id"`
	StudentID           string                `bson:"student_id" json:"student_id"`
	Summary             PerformanceSummary    `bson:"summary" json:"summary"`
	WeeklyScores        []WeeklyScore         `bson:"weekly_scores" json:"weekly_scores"`
	SubjectAverages     []SubjectAverage      `bson:"subject_averages" json:"subject_averages"`
	AssessmentBreakdown []AssessmentBreakdown `bson:"assessment_breakdown" json:"assessment_breakdown"`
	WeakTopics          []WeakTopic           `bson:"weak_topics" json:"weak_topics"`
	StudyLogs           []StudyLog            `bson:"study_logs" json:"study_logs"`
	Version             int64                 `bson:"version" json:"version"`
	CreatedAt           time.Time             `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time             `bson:"updated_at" json:"updated_at"`
}
