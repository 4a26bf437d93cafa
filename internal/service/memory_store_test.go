package service

import (
	"context"
	"sync"
	"time"

	"performance-service/internal/apperrors"
	"performance-service/internal/models"
)

// memoryRecordStore mirrors the Mongo repository's semantics: atomic
// fetch-or-create and a version-guarded save.
type memoryRecordStore struct {
	mu   sync.Mutex
	recs map[string]*models.PerformanceRecord
}

func newMemoryRecordStore() *memoryRecordStore {
	return &memoryRecordStore{recs: make(map[string]*models.PerformanceRecord)}
}

func (m *memoryRecordStore) FetchOrCreate(_ context.Context, ownerID, studentID string) (*models.PerformanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ownerID + "/" + studentID
	rec, ok := m.recs[key]
	if !ok {
		now := time.Now().UTC()
		rec = &models.PerformanceRecord{
			OwnerID:   ownerID,
			StudentID: studentID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		m.recs[key] = rec
	}
	return copyRecord(rec), nil
}

func (m *memoryRecordStore) Fetch(_ context.Context, ownerID, studentID string) (*models.PerformanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[ownerID+"/"+studentID]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

func (m *memoryRecordStore) Save(_ context.Context, rec *models.PerformanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.OwnerID + "/" + rec.StudentID
	cur, ok := m.recs[key]
	if !ok || cur.Version != rec.Version {
		return &apperrors.ConflictError{Op: "Save", Key: key}
	}

	saved := copyRecord(rec)
	saved.Version++
	saved.UpdatedAt = time.Now().UTC()
	m.recs[key] = saved
	rec.Version = saved.Version
	return nil
}

func copyRecord(rec *models.PerformanceRecord) *models.PerformanceRecord {
	clone := *rec
	clone.WeeklyScores = append([]models.WeeklyScore(nil), rec.WeeklyScores...)
	clone.SubjectAverages = append([]models.SubjectAverage(nil), rec.SubjectAverages...)
	clone.AssessmentBreakdown = append([]models.AssessmentBreakdown(nil), rec.AssessmentBreakdown...)
	clone.StudyLogs = append([]models.StudyLog(nil), rec.StudyLogs...)
	clone.WeakTopics = make([]models.WeakTopic, len(rec.WeakTopics))
	for i, wt := range rec.WeakTopics {
		wt.Topics = append([]string(nil), wt.Topics...)
		clone.WeakTopics[i] = wt
	}
	return &clone
}

type memoryQuizStore struct {
	mu      sync.Mutex
	quizzes map[string]*models.Quiz
}

func newMemoryQuizStore() *memoryQuizStore {
	return &memoryQuizStore{quizzes: make(map[string]*models.Quiz)}
}

func (m *memoryQuizStore) FindByTopic(_ context.Context, topic string) (*models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	quiz, ok := m.quizzes[topic]
	if !ok {
		return nil, nil
	}
	return copyQuiz(quiz), nil
}

func (m *memoryQuizStore) Create(_ context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.quizzes[quiz.Topic]; ok {
		return &apperrors.ConflictError{Op: "Create", Key: quiz.Topic}
	}
	m.quizzes[quiz.Topic] = copyQuiz(quiz)
	return nil
}

func (m *memoryQuizStore) Save(_ context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.quizzes[quiz.Topic]
	if !ok || cur.Version != quiz.Version {
		return &apperrors.ConflictError{Op: "Save", Key: quiz.Topic}
	}

	saved := copyQuiz(quiz)
	saved.Version++
	saved.UpdatedAt = time.Now().UTC()
	m.quizzes[quiz.Topic] = saved
	quiz.Version = saved.Version
	return nil
}

func copyQuiz(quiz *models.Quiz) *models.Quiz {
	clone := *quiz
	clone.Questions = append([]models.QuizQuestion(nil), quiz.Questions...)
	return &clone
}
