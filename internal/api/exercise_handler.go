package api

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/service"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// --- DTOs for API ---

// CreateExerciseRequest defines the expected JSON for creating an exercise.
type CreateExerciseRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// SessionResponse is the live timer of an exercise. Durations are whole seconds.
type SessionResponse struct {
	State              domain.SessionState `json:"state"`
	AccumulatedSeconds int64               `json:"accumulatedSeconds"`
	StartedAt          *time.Time          `json:"startedAt,omitempty"`
}

// ExerciseResponse is the DTO for returning exercise details.
type ExerciseResponse struct {
	ID        string                `json:"id"`
	MemberID  string                `json:"memberId"`
	Name      string                `json:"name"`
	Status    domain.ExerciseStatus `json:"status"`
	Session   *SessionResponse      `json:"session,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type TotalsResponse struct {
	WeeklySeconds  int64 `json:"weeklySeconds"`
	MonthlySeconds int64 `json:"monthlySeconds"`
}

func seconds(d time.Duration) int64 { return int64(d / time.Second) } // Truncates

// MapSessionToResponse converts a session to its DTO.
func MapSessionToResponse(s *domain.ExerciseSession) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		State:              s.State(),
		AccumulatedSeconds: seconds(s.Accumulated),
		StartedAt:          s.StartedAt,
	}
}

// MapExerciseToResponse converts a domain.Exercise to ExerciseResponse DTO.
func MapExerciseToResponse(ex *domain.Exercise, session *domain.ExerciseSession) ExerciseResponse {
	if ex == nil {
		return ExerciseResponse{}
	}
	return ExerciseResponse{
		ID:        ex.ID.Hex(),
		MemberID:  ex.MemberID.Hex(),
		Name:      ex.Name,
		Status:    ex.Status,
		Session:   MapSessionToResponse(session),
		CreatedAt: ex.CreatedAt,
		UpdatedAt: ex.UpdatedAt,
	}
}

// --- Handler Methods ---

// CreateExercise godoc
// @Summary Create an exercise with an idle timer
// @Tags Exercises
// @Security BearerAuth
// @Param exercise body CreateExerciseRequest true "Exercise details"
// @Success 201 {object} ExerciseResponse
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	member, ok := mustMember(c)
	if !ok {
		return
	}

	var req CreateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), member.ID, req.Name)
	if err != nil {
		handleExerciseError(c, err)
		return
	}
	// A new exercise always starts with an idle, empty timer
	c.JSON(http.StatusCreated, MapExerciseToResponse(exercise, domain.NewExerciseSession(exercise.ID, member.ID)))
}

// ListExercises godoc
// @Summary List the caller's exercises with their timers
// @Tags Exercises
// @Security BearerAuth
// @Success 200 {array} ExerciseResponse
// @Router /exercises [get]
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	member, ok := mustMember(c)
	if !ok {
		return
	}

	views, err := h.exerciseService.ListExercises(c.Request.Context(), member.ID)
	if err != nil {
		handleExerciseError(c, err)
		return
	}
	responses := make([]ExerciseResponse, len(views))
	for i := range views {
		responses[i] = MapExerciseToResponse(&views[i].Exercise, views[i].Session)
	}
	c.JSON(http.StatusOK, responses)
}

// RetireExercise godoc
// @Summary Retire an exercise, archiving today's time
// @Tags Exercises
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 204
// @Router /exercises/{id} [delete]
func (h *ExerciseHandler) RetireExercise(c *gin.Context) {
	member, exerciseID, ok := h.memberAndExercise(c)
	if !ok {
		return
	}
	if err := h.exerciseService.RetireExercise(c.Request.Context(), member.ID, exerciseID); err != nil {
		handleExerciseError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartExercise godoc
// @Summary Start the exercise timer
// @Tags Exercises
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 200 {object} SessionResponse
// @Router /exercises/{id}/start [post]
func (h *ExerciseHandler) StartExercise(c *gin.Context) {
	member, exerciseID, ok := h.memberAndExercise(c)
	if !ok {
		return
	}
	session, err := h.exerciseService.StartExercise(c.Request.Context(), member.ID, exerciseID)
	if err != nil {
		handleExerciseError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// StopExercise godoc
// @Summary Stop the exercise timer
// @Tags Exercises
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 200 {object} SessionResponse
// @Failure 422 {object} gin.H "Stop would break a time limit; the timer keeps running"
// @Router /exercises/{id}/stop [post]
func (h *ExerciseHandler) StopExercise(c *gin.Context) {
	member, exerciseID, ok := h.memberAndExercise(c)
	if !ok {
		return
	}
	session, err := h.exerciseService.StopExercise(c.Request.Context(), member.ID, exerciseID)
	if err != nil {
		handleExerciseError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// GetTotals godoc
// @Summary Weekly and monthly exercise time of the caller
// @Tags Exercises
// @Security BearerAuth
// @Success 200 {object} TotalsResponse
// @Router /exercises/totals [get]
func (h *ExerciseHandler) GetTotals(c *gin.Context) {
	member, ok := mustMember(c)
	if !ok {
		return
	}
	totals, err := h.exerciseService.GetTotals(c.Request.Context(), member.ID)
	if err != nil {
		handleExerciseError(c, err)
		return
	}
	c.JSON(http.StatusOK, TotalsResponse{
		WeeklySeconds:  seconds(totals.Weekly),
		MonthlySeconds: seconds(totals.Monthly),
	})
}

func (h *ExerciseHandler) memberAndExercise(c *gin.Context) (domain.MemberContext, primitive.ObjectID, bool) {
	member, ok := mustMember(c)
	if !ok {
		return domain.MemberContext{}, primitive.NilObjectID, false
	}
	exerciseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise ID format")
		return domain.MemberContext{}, primitive.NilObjectID, false
	}
	return member, exerciseID, true
}

// handleExerciseError maps service errors to status codes.
func handleExerciseError(c *gin.Context, err error) {
	switch {
	case domain.IsLimitError(err):
		// The client needs to know which limit was hit; the timer is still running
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"limit": domain.LimitKind(err),
		})
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrExerciseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrExerciseRetired):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		// Keep the real error for the request logger, send a generic message
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
