package handler

import (
	"errors"
	"net/http"

	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/session"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SessionHandler handles the exam session lifecycle endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// denialCode maps a governor denial reason to its API error code.
func denialCode(reason service.DenialReason) response.ErrCode {
	switch reason {
	case service.DenialAlreadyPassed:
		return response.ErrAlreadyPassed
	case service.DenialAttemptsExhausted:
		return response.ErrAttemptsExhausted
	case service.DenialPracticeQuota:
		return response.ErrPracticeQuotaExceeded
	default:
		return response.ErrInternal
	}
}

// examFromRequest builds the exam descriptor the engine works with. The
// catalog lives with the caller, so the descriptor arrives in the body.
func examFromRequest(examID string, req *model.StartSessionRequest) model.ExamDefinition {
	return model.ExamDefinition{
		ID:              examID,
		Name:            req.Name,
		Practice:        req.Practice,
		QuestionCount:   req.QuestionCount,
		DurationMinutes: req.DurationMinutes,
		PassScore:       req.PassScore,
		SourceURL:       req.SourceURL,
	}
}

// sessionState is the common state payload for start/resume and state reads.
func sessionState(engine *session.Engine, fromFallback bool) gin.H {
	return gin.H{
		"questions":         engine.Questions(),
		"answers":           engine.Answers(),
		"current_index":     engine.CurrentIndex(),
		"seconds_remaining": engine.SecondsRemaining(),
		"submitted":         engine.Submitted(),
		"from_fallback":     fromFallback,
	}
}

// CheckEligibility godoc
// POST /api/v1/exams/:exam_id/eligibility
// Runs the attempt governor without consuming anything.
func (h *SessionHandler) CheckEligibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam := examFromRequest(c.Param("exam_id"), &req)
	decision, err := h.sessions.CheckEligibility(c.Request.Context(), middleware.GetToken(c), exam, claims.User())
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", exam.ID).Msg("Eligibility check failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"decision": decision})
}

// StartSession godoc
// POST /api/v1/exams/:exam_id/session
// Gates, loads questions and starts (or resumes) the session clock.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam := examFromRequest(c.Param("exam_id"), &req)
	engine, fromFallback, err := h.sessions.StartSession(c.Request.Context(), middleware.GetToken(c), exam, claims.User())
	if err != nil {
		var denied *service.DeniedError
		if errors.As(err, &denied) {
			response.Fail(c, http.StatusForbidden, denialCode(denied.Reason))
			return
		}
		h.log.Error().Err(err).Str("exam_id", exam.ID).Msg("Session start failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, sessionState(engine, fromFallback))
}

// GetSession godoc
// GET /api/v1/exams/:exam_id/session
// Returns the live state of the active session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, sessionState(engine, false))
}

// DetachSession godoc
// DELETE /api/v1/exams/:exam_id/session
// Stops the tick but keeps the persisted deadline, so the session resumes
// with its original deadline on the next start.
func (h *SessionHandler) DetachSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	h.sessions.Detach(c.Param("exam_id"), claims.UserID)
	response.Success(c, http.StatusOK, gin.H{"message": "session detached"})
}

// SelectAnswer godoc
// POST /api/v1/exams/:exam_id/session/answers
// Records one option choice, optionally advancing to the next question.
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	var (
		index int
		err   error
	)
	if req.Advance {
		index, err = engine.SelectAndAdvance(req.QuestionID, *req.OptionIndex)
	} else {
		err = engine.SelectAnswer(req.QuestionID, *req.OptionIndex)
		index = engine.CurrentIndex()
	}
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadySubmitted), errors.Is(err, session.ErrLedgerFrozen):
			response.Fail(c, http.StatusConflict, response.ErrSessionSubmitted)
		case errors.Is(err, session.ErrUnknownQuestion):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidQuestion)
		case errors.Is(err, session.ErrOptionOutOfRange):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidOption)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"answers":       engine.Answers(),
		"current_index": index,
	})
}

// Navigate godoc
// POST /api/v1/exams/:exam_id/session/position
// Moves the current question pointer. Next/previous clamp at the edges;
// jump rejects out-of-range indices.
func (h *SessionHandler) Navigate(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	var index int
	switch req.Action {
	case "next":
		index = engine.Next()
	case "previous":
		index = engine.Previous()
	case "jump":
		if err := engine.JumpTo(req.Index); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPosition)
			return
		}
		index = req.Index
	}

	response.Success(c, http.StatusOK, gin.H{"current_index": index})
}

// SubmitSession godoc
// POST /api/v1/exams/:exam_id/session/submit
// Finalizes the session. An incomplete manual submit needs
// confirm_incomplete; a declined confirmation changes nothing.
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := engine.Submit(c.Request.Context(), false, req.ConfirmIncomplete)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrSessionSubmitted)
		case errors.Is(err, session.ErrConfirmationRequired):
			response.Fail(c, http.StatusConflict, response.ErrConfirmationRequired)
		default:
			h.log.Error().Err(err).Msg("Submission failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrResultPersistence)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// engine resolves the caller's active engine or fails the request.
func (h *SessionHandler) engine(c *gin.Context) (*session.Engine, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	engine, ok := h.sessions.Get(c.Param("exam_id"), claims.UserID)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil, false
	}
	return engine, true
}
