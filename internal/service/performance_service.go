package service

import (
	"context"
	"time"

	"performance-service/internal/apperrors"
	"performance-service/internal/models"
	"performance-service/internal/stats"

	"go.uber.org/zap"
)

// PerformanceService maintains the derived statistics of a student's
// performance record. Every operation runs a fetch-or-create, mutate,
// persist cycle under a per-record lock; nothing is written when the
// caller's context is cancelled first.
type PerformanceService struct {
	Records RecordStore

	logger *zap.Logger
	locks  *keyedLock
}

func NewPerformanceService(records RecordStore, logger *zap.Logger) *PerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceService{
		Records: records,
		logger:  logger,
		locks:   newKeyedLock(),
	}
}

type SummaryInput struct {
	CurrentGPA           *float64 `json:"current_gpa"`
	PredictedGPA         *float64 `json:"predicted_gpa"`
	AttendancePercentage *float64 `json:"attendance_percentage"`
	CurrentGrade         string   `json:"current_grade"`
	RiskLevel            string   `json:"risk_level"`
	AttendanceDrop       *float64 `json:"attendance_drop"`
	PassProbability      *float64 `json:"pass_probability"`
	PredictionConfidence *float64 `json:"prediction_confidence"`
}

type WeeklyScoreInput struct {
	Week           *int     `json:"week"`
	Subject        string   `json:"subject"`
	Score          *float64 `json:"score"`
	MaxScore       *float64 `json:"max_score"`
	AssessmentType string   `json:"assessment_type"`
	Notes          string   `json:"notes"`
}

type SubjectAverageInput struct {
	Subject string   `json:"subject"`
	Score   *float64 `json:"score"`
}

type AssessmentInput struct {
	AssessmentType string   `json:"assessment_type"`
	Score          *float64 `json:"score"`
}

type WeakTopicInput struct {
	Subject      string   `json:"subject"`
	Topics       []string `json:"topics"`
	AverageScore *float64 `json:"average_score"`
}

type StudyLogInput struct {
	Hours  *float64 `json:"hours"`
	Score  *float64 `json:"score"`
	Source string   `json:"source"`
}

// withRecord runs mutate against the fetched-or-created record and persists
// the result, holding the per-record lock for the whole cycle. The context
// is checked before the save so a cancelled caller never lands a partial
// mutation.
func (s *PerformanceService) withRecord(ctx context.Context, ownerID, studentID string, mutate func(rec *models.PerformanceRecord)) error {
	if ownerID == "" {
		return apperrors.MissingField("owner_id")
	}
	if studentID == "" {
		return apperrors.MissingField("student_id")
	}

	key := ownerID + "/" + studentID
	mu := s.locks.lock(key)
	defer mu.Unlock()

	rec, err := s.Records.FetchOrCreate(ctx, ownerID, studentID)
	if err != nil {
		return err
	}
	mutate(rec)

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Records.Save(ctx, rec)
}

// UpsertSummary replaces the summary wholesale. Numeric fields left out of
// the input become 0, not the previous value.
func (s *PerformanceService) UpsertSummary(ctx context.Context, ownerID, studentID string, in SummaryInput) (*models.PerformanceSummary, error) {
	if in.CurrentGPA == nil {
		return nil, apperrors.MissingField("current_gpa")
	}
	if in.AttendancePercentage == nil {
		return nil, apperrors.MissingField("attendance_percentage")
	}

	summary := models.PerformanceSummary{
		CurrentGPA:           *in.CurrentGPA,
		PredictedGPA:         floatOrZero(in.PredictedGPA),
		AttendancePercentage: *in.AttendancePercentage,
		CurrentGrade:         in.CurrentGrade,
		RiskLevel:            normalizeRiskLevel(in.RiskLevel),
		AttendanceDrop:       floatOrZero(in.AttendanceDrop),
		PassProbability:      floatOrZero(in.PassProbability),
		PredictionConfidence: floatOrZero(in.PredictionConfidence),
	}

	var out models.PerformanceSummary
	err := s.withRecord(ctx, ownerID, studentID, func(rec *models.PerformanceRecord) {
		summary.LastUpdated = time.Now().UTC()
		rec.Summary = summary
		out = rec.Summary
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("summary replaced",
		zap.String("student_id", studentID),
		zap.String("risk_level", out.RiskLevel))
	return &out, nil
}

// AppendWeeklyScore always appends, even for a (week, subject) pair already
// present. The date is server-assigned.
func (s *PerformanceService) AppendWeeklyScore(ctx context.Context, ownerID, studentID string, in WeeklyScoreInput) (*models.WeeklyScore, int, error) {
	if in.Week == nil {
		return nil, 0, apperrors.MissingField("week")
	}
	if in.Subject == "" {
		return nil, 0, apperrors.MissingField("subject")
	}
	if in.Score == nil {
		return nil, 0, apperrors.MissingField("score")
	}
	if in.MaxScore == nil {
		return nil, 0, apperrors.MissingField("max_score")
	}

	var entry models.WeeklyScore
	var total int
	err := s.withRecord(ctx, ownerID, studentID, func(rec *models.PerformanceRecord) {
		entry = models.WeeklyScore{
			Week:           *in.Week,
			Subject:        in.Subject,
			Score:          *in.Score,
			MaxScore:       *in.MaxScore,
			AssessmentType: in.AssessmentType,
			Date:           time.Now().UTC(),
			Notes:          in.Notes,
		}
		rec.WeeklyScores = append(rec.WeeklyScores, entry)
		total = len(rec.WeeklyScores)
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.Debug("weekly score appended",
		zap.String("student_id", studentID),
		zap.Int("week", entry.Week),
		zap.String("subject", entry.Subject))
	return &entry, total, nil
}

// UpsertSubjectAverage records a test score per subject. The latest score
// overwrites the stored average while TotalTests keeps counting; the true
// running mean lives in the assessment breakdown instead.
func (s *PerformanceService) UpsertSubjectAverage(ctx context.Context, ownerID, studentID string, in SubjectAverageInput) (*models.SubjectAverage, error) {
	if in.Subject == "" {
		return nil, apperrors.MissingField("subject")
	}
	if in.Score == nil {
		return nil, apperrors.MissingField("score")
	}
	score := *in.Score

	var out models.SubjectAverage
	err := s.withRecord(ctx, ownerID, studentID, func(rec *models.PerformanceRecord) {
		now := time.Now().UTC()
		rec.SubjectAverages = stats.Upsert(rec.SubjectAverages,
			func(e *models.SubjectAverage) bool { return e.Subject == in.Subject },
			func(existing *models.SubjectAverage) models.SubjectAverage {
				if existing == nil {
					out = models.SubjectAverage{
						Subject:       in.Subject,
						AverageScore:  score,
						TotalTests:    1,
						LastTestScore: score,
						LastTestDate:  now,
					}
					return out
				}
				updated := *existing
				updated.AverageScore = score
				updated.TotalTests++
				updated.LastTestScore = score
				updated.LastTestDate = now
				out = updated
				return updated
			})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertAssessmentBreakdown folds the score into the per-type running mean,
// rounded to two decimals at the storage boundary.
func (s *PerformanceService) UpsertAssessmentBreakdown(ctx context.Context, ownerID, studentID string, in AssessmentInput) (*models.AssessmentBreakdown, error) {
	if in.AssessmentType == "" {
		return nil, apperrors.MissingField("assessment_type")
	}
	if in.Score == nil {
		return nil, apperrors.MissingField("score")
	}
	score := *in.Score

	var out models.AssessmentBreakdown
	err := s.withRecord(ctx, ownerID, studentID, func(rec *models.PerformanceRecord) {
		rec.AssessmentBreakdown = stats.Upsert(rec.AssessmentBreakdown,
			func(e *models.AssessmentBreakdown) bool { return e.AssessmentType == in.AssessmentType },
			func(existing *models.AssessmentBreakdown) models.AssessmentBreakdown {
				if existing == nil {
					out = models.AssessmentBreakdown{
						AssessmentType: in.AssessmentType,
						Count:          1,
						AverageScore:   stats.Round2(score),
						Weight:         1,
					}
					return out
				}
				updated := *existing
				count, mean := stats.Update(updated.Count, updated.AverageScore, score)
				updated.Count = count
				updated.AverageScore = stats.Round2(mean)
				out = updated
				return updated
			})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertWeakTopic unions the incoming topics into the subject's entry.
// The average is overwritten only when the caller supplies one.
func (s *PerformanceService) UpsertWeakTopic(ctx context.Context, ownerID, studentID string, in WeakTopicInput) (*models.WeakTopic, error) {
	if in.Subject == "" {
		return nil, apperrors.MissingField("subject")
	}

	var out models.WeakTopic
	err := s.withRecord(ctx, ownerID, studentID, func(rec *models.PerformanceRecord) {
		now := time.Now().UTC()
		rec.WeakTopics = stats.Upsert(rec.WeakTopics,
			func(e *models.WeakTopic) bool { return e.Subject == in.Subject },
			func(existing *models.WeakTopic) models.WeakTopic {
				if existing == nil {
					out = models.WeakTopic{
						Subject:      in.Subject,
						Topics:       dedupeTopics(nil, in.Topics),
						AverageScore: floatOrZero(in.AverageScore),
						LastStudied:  now,
					}
					return out
				}
				updated := *existing
				updated.Topics = dedupeTopics(updated.Topics, in.Topics)
				if in.AverageScore != nil {
					updated.AverageScore = *in.AverageScore
				}
				updated.LastStudied = now
				out = updated
				return updated
			})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendStudyLog is a pure audit append; identical calls produce distinct
// entries.
func (s *PerformanceService) AppendStudyLog(ctx context.Context, ownerID, studentID string, in StudyLogInput) (*models.StudyLog, int, error) {
	if in.Hours == nil {
		return nil, 0, apperrors.MissingField("hours")
	}
	if in.Score == nil {
		return nil, 0, apperrors.MissingField("score")
	}
	source := in.Source
	if source == "" {
		source = "Manual Log"
	}

	var entry models.StudyLog
	var total int
	err := s.withRecord(ctx, ownerID, studentID, func(rec *models.PerformanceRecord) {
		entry = models.StudyLog{
			Hours:  *in.Hours,
			Score:  *in.Score,
			Source: source,
			Date:   time.Now().UTC(),
		}
		rec.StudyLogs = append(rec.StudyLogs, entry)
		total = len(rec.StudyLogs)
	})
	if err != nil {
		return nil, 0, err
	}
	return &entry, total, nil
}

// GetRecord returns the full record, without creating one.
func (s *PerformanceService) GetRecord(ctx context.Context, ownerID, studentID string) (*models.PerformanceRecord, error) {
	if ownerID == "" {
		return nil, apperrors.MissingField("owner_id")
	}
	if studentID == "" {
		return nil, apperrors.MissingField("student_id")
	}
	rec, err := s.Records.Fetch(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperrors.NotFound("performance record", ownerID+"/"+studentID)
	}
	return rec, nil
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func normalizeRiskLevel(level string) string {
	switch level {
	case models.RiskLow, models.RiskModerate, models.RiskHigh:
		return level
	default:
		return models.RiskLow
	}
}

// dedupeTopics unions incoming into existing, preserving first-seen order.
func dedupeTopics(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, t := range existing {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	for _, t := range incoming {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	return merged
}
