package handlers

import (
	"net/http"

	"performance-service/internal/monitoring"
	"performance-service/internal/service"

	"github.com/gin-gonic/gin"
)

type PerformanceHandler struct {
	Service *service.PerformanceService
}

func NewPerformanceHandler(s *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{Service: s}
}

// ownerID is resolved by the gateway from the authenticated principal and
// forwarded in a header; this service never sees credentials.
func ownerID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

func (h *PerformanceHandler) GetRecord(c *gin.Context) {
	rec, err := h.Service.GetRecord(c.Request.Context(), ownerID(c), c.Param("studentId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *PerformanceHandler) UpsertSummary(c *gin.Context) {
	var in service.SummaryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := h.Service.UpsertSummary(c.Request.Context(), ownerID(c), c.Param("studentId"), in)
	monitoring.RecordOperation("upsert_summary", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *PerformanceHandler) AppendWeeklyScore(c *gin.Context) {
	var in service.WeeklyScoreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, total, err := h.Service.AppendWeeklyScore(c.Request.Context(), ownerID(c), c.Param("studentId"), in)
	monitoring.RecordOperation("append_weekly_score", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"weekly_score": entry, "total": total})
}

func (h *PerformanceHandler) UpsertSubjectAverage(c *gin.Context) {
	var in service.SubjectAverageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	avg, err := h.Service.UpsertSubjectAverage(c.Request.Context(), ownerID(c), c.Param("studentId"), in)
	monitoring.RecordOperation("upsert_subject_average", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject_average": avg})
}

func (h *PerformanceHandler) UpsertAssessmentBreakdown(c *gin.Context) {
	var in service.AssessmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	breakdown, err := h.Service.UpsertAssessmentBreakdown(c.Request.Context(), ownerID(c), c.Param("studentId"), in)
	monitoring.RecordOperation("upsert_assessment_breakdown", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment_breakdown": breakdown})
}

func (h *PerformanceHandler) UpsertWeakTopic(c *gin.Context) {
	var in service.WeakTopicInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	topic, err := h.Service.UpsertWeakTopic(c.Request.Context(), ownerID(c), c.Param("studentId"), in)
	monitoring.RecordOperation("upsert_weak_topic", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weak_topic": topic})
}

func (h *PerformanceHandler) AppendStudyLog(c *gin.Context) {
	var in service.StudyLogInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, total, err := h.Service.AppendStudyLog(c.Request.Context(), ownerID(c), c.Param("studentId"), in)
	monitoring.RecordOperation("append_study_log", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"study_log": entry, "total": total})
}
