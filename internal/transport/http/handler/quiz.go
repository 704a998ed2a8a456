package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"copium-tutor/internal/app"
	"copium-tutor/internal/transport/http/response"
)

type QuizHandler struct {
	quizService *app.QuizService
}

type CreateQuizRequest struct {
	Topic        string   `json:"topic" binding:"required"`
	QuizType     string   `json:"quiz_type" binding:"required"`
	NumQuestions int      `json:"num_questions" binding:"required"`
	DocumentIDs  []string `json:"document_ids"`
}

type SubmitAttemptRequest struct {
	Answers map[string]any `json:"answers"`
}

func NewQuizHandler(quizService *app.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// Create stores a pending quiz and queues its generation. Poll Get for the
// outcome.
func (h *QuizHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), app.CreateQuizInput{
		ProjectID:    c.Param("id"),
		UserID:       userID,
		Topic:        req.Topic,
		QuizType:     req.QuizType,
		NumQuestions: req.NumQuestions,
		DocumentIDs:  req.DocumentIDs,
	})
	if err != nil {
		writeError(c, err, "create quiz failed")
		return
	}
	response.Accepted(c, quiz)
}

func (h *QuizHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quizzes, err := h.quizService.ListQuizzes(userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "list quizzes failed")
		return
	}
	response.OK(c, quizzes)
}

func (h *QuizHandler) ListAll(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quizzes, err := h.quizService.ListAllQuizzes(userID)
	if err != nil {
		writeError(c, err, "list quizzes failed")
		return
	}
	response.OK(c, quizzes)
}

func (h *QuizHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quizID := c.Param("id")
	if err := h.quizService.DeleteQuiz(userID, quizID); err != nil {
		writeError(c, err, "delete quiz failed")
		return
	}
	response.OK(c, gin.H{"deleted_quiz_id": quizID})
}

func (h *QuizHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quiz, err := h.quizService.GetQuiz(userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "get quiz failed")
		return
	}
	response.OK(c, quiz)
}

func (h *QuizHandler) Regenerate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quiz, err := h.quizService.RegenerateQuiz(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "regenerate quiz failed")
		return
	}
	response.Accepted(c, quiz)
}

func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	attempt, err := h.quizService.SubmitAttempt(userID, c.Param("id"), req.Answers)
	if err != nil {
		writeError(c, err, "submit attempt failed")
		return
	}
	response.OK(c, attempt)
}

func (h *QuizHandler) ListAttempts(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attempts, err := h.quizService.ListAttempts(userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "list attempts failed")
		return
	}
	response.OK(c, attempts)
}
