package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teachbridge/backend/internal/requestdata"
	"github.com/teachbridge/backend/internal/services"
)

type QuizHandler struct {
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

func (qh *QuizHandler) Generate(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no identity on request"))
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req struct {
		NumQuestions int `json:"num_questions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.NumQuestions == 0 {
		req.NumQuestions = services.DefaultQuizQuestions
	}
	quiz, err := qh.quizService.GenerateQuiz(c.Request.Context(), rd.UserID, fileID, req.NumQuestions)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, quiz)
}

func (qh *QuizHandler) GetActive(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no identity on request"))
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	quiz, err := qh.quizService.GetActiveQuiz(c.Request.Context(), rd.UserID, fileID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, quiz)
}

func (qh *QuizHandler) Submit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no identity on request"))
		return
	}
	generationID, err := uuid.Parse(c.Param("generationId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req struct {
		Answers map[string]int `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	answers := make(map[uuid.UUID]int, len(req.Answers))
	for qid, sel := range req.Answers {
		id, err := uuid.Parse(qid)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
			return
		}
		answers[id] = sel
	}
	result, err := qh.quizService.SubmitQuiz(c.Request.Context(), rd.UserID, generationID, answers)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (qh *QuizHandler) Regenerate(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no identity on request"))
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req struct {
		NumQuestions int `json:"num_questions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.NumQuestions == 0 {
		req.NumQuestions = services.DefaultQuizQuestions
	}
	quiz, err := qh.quizService.RegenerateQuiz(c.Request.Context(), rd.UserID, fileID, req.NumQuestions)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, quiz)
}

func (qh *QuizHandler) History(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no identity on request"))
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	history, err := qh.quizService.GetQuizHistory(c.Request.Context(), rd.UserID, fileID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"history": history})
}

// Checkpoint returns the week's running checkpoint quiz, built up from
// every deck uploaded to the week.
func (qh *QuizHandler) Checkpoint(c *gin.Context) {
	weekID, err := uuid.Parse(c.Param("weekId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	checkpoint, err := qh.quizService.WeekCheckpoint(c.Request.Context(), weekID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, checkpoint)
}

// Warm pre-generates a quiz for a file so the first teacher request is
// instant. Authoring roles only.
func (qh *QuizHandler) Warm(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := qh.quizService.WarmFile(c.Request.Context(), fileID); err != nil {
		RespondError(c, http.StatusBadGateway, "generation_failure", err)
		return
	}
	RespondOK(c, gin.H{"warmed": fileID})
}
