package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"performance-service/internal/apperrors"
	"performance-service/internal/models"
)

func newTestService() (*PerformanceService, *memoryRecordStore) {
	store := newMemoryRecordStore()
	return NewPerformanceService(store, nil), store
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestUpsertSummaryRequiresFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	testCases := []struct {
		name  string
		in    SummaryInput
		field string
	}{
		{"missing gpa", SummaryInput{AttendancePercentage: floatPtr(90)}, "current_gpa"},
		{"missing attendance", SummaryInput{CurrentGPA: floatPtr(3.2)}, "attendance_percentage"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpsertSummary(ctx, "teacher-1", "student-1", tc.in)
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not name field %q", err.Error(), tc.field)
			}
		})
	}
}

func TestUpsertSummaryReplacesWholesale(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertSummary(ctx, "teacher-1", "student-1", SummaryInput{
		CurrentGPA:           floatPtr(3.4),
		AttendancePercentage: floatPtr(92),
		PredictedGPA:         floatPtr(3.6),
		CurrentGrade:         "B+",
		RiskLevel:            models.RiskHigh,
		PassProbability:      floatPtr(0.88),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Second update carries only the required fields; everything else must
	// reset rather than survive from the first write.
	summary, err := svc.UpsertSummary(ctx, "teacher-1", "student-1", SummaryInput{
		CurrentGPA:           floatPtr(3.5),
		AttendancePercentage: floatPtr(95),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if summary.PredictedGPA != 0 {
		t.Errorf("predicted GPA = %f, want 0 after replace", summary.PredictedGPA)
	}
	if summary.CurrentGrade != "" {
		t.Errorf("current grade = %q, want empty after replace", summary.CurrentGrade)
	}
	if summary.RiskLevel != models.RiskLow {
		t.Errorf("risk level = %q, want default %q", summary.RiskLevel, models.RiskLow)
	}
	if summary.LastUpdated.IsZero() {
		t.Error("last updated not assigned")
	}

	rec, _ := store.Fetch(ctx, "teacher-1", "student-1")
	if rec.Summary.CurrentGPA != 3.5 {
		t.Errorf("stored GPA = %f, want 3.5", rec.Summary.CurrentGPA)
	}
}

func TestUpsertSummaryNormalizesRiskLevel(t *testing.T) {
	svc, _ := newTestService()

	summary, err := svc.UpsertSummary(context.Background(), "t", "s", SummaryInput{
		CurrentGPA:           floatPtr(3.0),
		AttendancePercentage: floatPtr(80),
		RiskLevel:            "critical",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.RiskLevel != models.RiskLow {
		t.Errorf("risk level = %q, want %q", summary.RiskLevel, models.RiskLow)
	}
}

func TestAppendWeeklyScoreValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	base := WeeklyScoreInput{
		Week:     intPtr(3),
		Subject:  "Math",
		Score:    floatPtr(18),
		MaxScore: floatPtr(20),
	}

	testCases := []struct {
		name   string
		mutate func(in *WeeklyScoreInput)
		field  string
	}{
		{"missing week", func(in *WeeklyScoreInput) { in.Week = nil }, "week"},
		{"missing subject", func(in *WeeklyScoreInput) { in.Subject = "" }, "subject"},
		{"missing score", func(in *WeeklyScoreInput) { in.Score = nil }, "score"},
		{"missing max score", func(in *WeeklyScoreInput) { in.MaxScore = nil }, "max_score"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, _, err := svc.AppendWeeklyScore(ctx, "t", "s", in)
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not name field %q", err.Error(), tc.field)
			}
		})
	}

	// A zero score is present, not missing.
	if _, _, err := svc.AppendWeeklyScore(ctx, "t", "s", WeeklyScoreInput{
		Week: intPtr(1), Subject: "Math", Score: floatPtr(0), MaxScore: floatPtr(20),
	}); err != nil {
		t.Errorf("zero score rejected: %v", err)
	}
}

func TestAppendWeeklyScoreAlwaysAppends(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	in := WeeklyScoreInput{
		Week:           intPtr(5),
		Subject:        "Science",
		Score:          floatPtr(14),
		MaxScore:       floatPtr(20),
		AssessmentType: "quiz",
	}

	_, total, err := svc.AppendWeeklyScore(ctx, "t", "s", in)
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}

	// The same (week, subject) pair appends again; there is no dedup key.
	_, total, err = svc.AppendWeeklyScore(ctx, "t", "s", in)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}

	rec, _ := store.Fetch(ctx, "t", "s")
	if len(rec.WeeklyScores) != 2 {
		t.Errorf("stored entries = %d, want 2", len(rec.WeeklyScores))
	}
}

func TestUpsertSubjectAverageOverwrites(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	avg, err := svc.UpsertSubjectAverage(ctx, "t", "s", SubjectAverageInput{Subject: "Math", Score: floatPtr(80)})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if avg.AverageScore != 80 || avg.TotalTests != 1 {
		t.Errorf("got %+v, want average 80 with 1 test", avg)
	}

	// The second score replaces the average outright; only the counter
	// remembers the earlier test.
	avg, err = svc.UpsertSubjectAverage(ctx, "t", "s", SubjectAverageInput{Subject: "Math", Score: floatPtr(60)})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if avg.AverageScore != 60 {
		t.Errorf("average = %f, want 60 (overwrite, not blend)", avg.AverageScore)
	}
	if avg.TotalTests != 2 {
		t.Errorf("total tests = %d, want 2", avg.TotalTests)
	}
	if avg.LastTestScore != 60 {
		t.Errorf("last test score = %f, want 60", avg.LastTestScore)
	}

	if _, err := svc.UpsertSubjectAverage(ctx, "t", "s", SubjectAverageInput{Subject: "History", Score: floatPtr(70)}); err != nil {
		t.Fatalf("other subject: %v", err)
	}

	rec, _ := store.Fetch(ctx, "t", "s")
	if len(rec.SubjectAverages) != 2 {
		t.Fatalf("subjects = %d, want 2", len(rec.SubjectAverages))
	}
	if rec.SubjectAverages[0].Subject != "Math" {
		t.Errorf("first subject = %q, want Math (position preserved)", rec.SubjectAverages[0].Subject)
	}
}

func TestUpsertAssessmentBreakdownRunningMean(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, score := range []float64{70, 70} {
		if _, err := svc.UpsertAssessmentBreakdown(ctx, "t", "s", AssessmentInput{AssessmentType: "quiz", Score: floatPtr(score)}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	breakdown, err := svc.UpsertAssessmentBreakdown(ctx, "t", "s", AssessmentInput{AssessmentType: "quiz", Score: floatPtr(100)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// (70*2 + 100) / 3
	if breakdown.Count != 3 {
		t.Errorf("count = %d, want 3", breakdown.Count)
	}
	if breakdown.AverageScore != 80.0 {
		t.Errorf("average = %f, want 80.0", breakdown.AverageScore)
	}
}

func TestUpsertAssessmentBreakdownRoundsToTwoDecimals(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var breakdown *models.AssessmentBreakdown
	var err error
	for _, score := range []float64{70, 80, 95} {
		breakdown, err = svc.UpsertAssessmentBreakdown(ctx, "t", "s", AssessmentInput{AssessmentType: "exam", Score: floatPtr(score)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if breakdown.AverageScore != 81.67 {
		t.Errorf("average = %f, want 81.67", breakdown.AverageScore)
	}
	if breakdown.Weight != 1 {
		t.Errorf("weight = %f, want 1", breakdown.Weight)
	}
}

func TestUpsertWeakTopicUnion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpsertWeakTopic(ctx, "t", "s", WeakTopicInput{
		Subject:      "Math",
		Topics:       []string{"algebra"},
		AverageScore: floatPtr(55),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	topic, err := svc.UpsertWeakTopic(ctx, "t", "s", WeakTopicInput{
		Subject: "Math",
		Topics:  []string{"algebra", "calculus"},
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if len(topic.Topics) != 2 {
		t.Fatalf("topics = %v, want exactly algebra and calculus", topic.Topics)
	}
	seen := map[string]bool{}
	for _, tp := range topic.Topics {
		seen[tp] = true
	}
	if !seen["algebra"] || !seen["calculus"] {
		t.Errorf("topics = %v, want algebra and calculus", topic.Topics)
	}

	// No average supplied on the second call, so the first one survives.
	if topic.AverageScore != 55 {
		t.Errorf("average = %f, want 55 preserved", topic.AverageScore)
	}

	topic, err = svc.UpsertWeakTopic(ctx, "t", "s", WeakTopicInput{
		Subject:      "Math",
		Topics:       []string{"geometry"},
		AverageScore: floatPtr(61),
	})
	if err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	if topic.AverageScore != 61 {
		t.Errorf("average = %f, want 61 overwritten", topic.AverageScore)
	}
	if len(topic.Topics) != 3 {
		t.Errorf("topics = %v, want 3 entries", topic.Topics)
	}
}

func TestAppendStudyLogNotIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	in := StudyLogInput{Hours: floatPtr(2.5), Score: floatPtr(88)}

	entry, total, err := svc.AppendStudyLog(ctx, "t", "s", in)
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if entry.Source != "Manual Log" {
		t.Errorf("source = %q, want default Manual Log", entry.Source)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}

	// An identical call is a new audit entry, not an update.
	_, total, err = svc.AppendStudyLog(ctx, "t", "s", in)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}

	rec, _ := store.Fetch(ctx, "t", "s")
	if len(rec.StudyLogs) != 2 {
		t.Errorf("stored logs = %d, want 2", len(rec.StudyLogs))
	}
}

func TestAppendStudyLogValidation(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.AppendStudyLog(context.Background(), "t", "s", StudyLogInput{Score: floatPtr(10)})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "hours") {
		t.Errorf("error %q does not name hours", err.Error())
	}
}

func TestGetRecordMissing(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetRecord(context.Background(), "t", "nobody")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentAssessmentUpdates(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(score float64) {
			defer wg.Done()
			_, err := svc.UpsertAssessmentBreakdown(ctx, "t", "s", AssessmentInput{
				AssessmentType: "quiz",
				Score:          floatPtr(score),
			})
			if err != nil {
				errs <- err
			}
		}(float64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent update failed: %v", err)
	}

	rec, _ := store.Fetch(ctx, "t", "s")
	if len(rec.AssessmentBreakdown) != 1 {
		t.Fatalf("breakdown entries = %d, want 1", len(rec.AssessmentBreakdown))
	}

	entry := rec.AssessmentBreakdown[0]
	if entry.Count != n {
		t.Errorf("count = %d, want %d (lost update)", entry.Count, n)
	}
	// mean of 1..n
	want := float64(n+1) / 2
	if math.Abs(entry.AverageScore-want) > 0.01 {
		t.Errorf("average = %f, want %f", entry.AverageScore, want)
	}
}

func TestConcurrentDistinctStudents(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	students := []string{"a", "b", "c", "d"}
	var wg sync.WaitGroup
	for _, id := range students {
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(studentID string) {
				defer wg.Done()
				_, _, _ = svc.AppendStudyLog(ctx, "t", studentID, StudyLogInput{
					Hours: floatPtr(1), Score: floatPtr(50),
				})
			}(id)
		}
	}
	wg.Wait()

	for _, id := range students {
		rec, _ := store.Fetch(ctx, "t", id)
		if len(rec.StudyLogs) != 8 {
			t.Errorf("student %s logs = %d, want 8", id, len(rec.StudyLogs))
		}
	}
}

func TestCancelledContextWritesNothing(t *testing.T) {
	svc, store := newTestService()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.AppendStudyLog(ctx, "t", "s", StudyLogInput{Hours: floatPtr(1), Score: floatPtr(80)})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}

	rec, _ := store.Fetch(context.Background(), "t", "s")
	if rec != nil && len(rec.StudyLogs) != 0 {
		t.Errorf("mutation persisted despite cancellation: %+v", rec.StudyLogs)
	}
}
