package handlers

import (
	"net/http"

	"performance-service/internal/monitoring"
	"performance-service/internal/service"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	Service *service.QuizService
}

func NewQuizHandler(s *service.QuizService) *QuizHandler {
	return &QuizHandler{Service: s}
}

// GetQuiz returns the public view of a quiz, with correct answers stripped.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quiz, err := h.Service.GetByTopic(c.Request.Context(), c.Param("topic"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz.View())
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var in service.CreateQuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quiz, err := h.Service.Create(c.Request.Context(), in)
	monitoring.RecordOperation("create_quiz", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	var in service.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Service.Submit(c.Request.Context(), c.Param("topic"), in)
	monitoring.RecordOperation("submit_quiz", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
