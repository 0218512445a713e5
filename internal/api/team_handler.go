package api

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/service"
	"alcyxob/exercise-tracker/internal/timewindow"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default leaderboard page size
const defaultPageSize = 20

// TeamHandler serves team membership and leaderboards.
type TeamHandler struct {
	teamService service.TeamService
	calc        timewindow.Calculator
}

// NewTeamHandler creates a new TeamHandler. calc supplies the zone dates are parsed in.
func NewTeamHandler(teamService service.TeamService, calc timewindow.Calculator) *TeamHandler {
	return &TeamHandler{teamService: teamService, calc: calc}
}

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type TeamResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LeaderID  string    `json:"leaderId"`
	MemberIDs []string  `json:"memberIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// RankingQuery binds the leaderboard query string. Date is a logical date, YYYY-MM-DD.
type RankingQuery struct {
	Page int    `form:"page" binding:"min=0"`
	Size int    `form:"size" binding:"omitempty,min=1,max=100"`
	Date string `form:"date"`
}

type RankingEntryResponse struct {
	Name         string `json:"name"`
	Rank         int    `json:"rank"`
	TotalSeconds int64  `json:"totalSeconds"`
}

type RankingResponse struct {
	MyRank         int                    `json:"myRank"`
	MyName         string                 `json:"myName"`
	MyTotalSeconds int64                  `json:"myTotalSeconds"`
	Entries        []RankingEntryResponse `json:"entries"`
	Page           int                    `json:"page"`
	Size           int                    `json:"size"`
	HasNext        bool                   `json:"hasNext"`
}

func MapTeamToResponse(team *domain.Team) TeamResponse {
	ids := make([]string, len(team.MemberIDs))
	for i, id := range team.MemberIDs {
		ids[i] = id.Hex()
	}
	return TeamResponse{
		ID:        team.ID.Hex(),
		Name:      team.Name,
		LeaderID:  team.LeaderID.Hex(),
		MemberIDs: ids,
		CreatedAt: team.CreatedAt,
	}
}

func MapRankingToResponse(page *domain.RankingPage) RankingResponse {
	entries := make([]RankingEntryResponse, len(page.Entries))
	for i, e := range page.Entries {
		entries[i] = RankingEntryResponse{Name: e.Name, Rank: e.Rank, TotalSeconds: seconds(e.Total)}
	}
	return RankingResponse{
		MyRank:         page.MyRank,
		MyName:         page.MyName,
		MyTotalSeconds: seconds(page.MyTotal),
		Entries:        entries,
		Page:           page.Page,
		Size:           page.Size,
		HasNext:        page.HasNext,
	}
}

// CreateTeam godoc
// @Summary Create a team led by the caller
// @Tags Teams
// @Security BearerAuth
// @Success 201 {object} TeamResponse
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	member, ok := mustMember(c)
	if !ok {
		return
	}
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	team, err := h.teamService.CreateTeam(c.Request.Context(), member, req.Name)
	if err != nil {
		handleTeamError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapTeamToResponse(team))
}

// JoinTeam godoc
// @Summary Join a team
// @Tags Teams
// @Security BearerAuth
// @Param id path string true "Team ID"
// @Success 200 {object} TeamResponse
// @Router /teams/{id}/join [post]
func (h *TeamHandler) JoinTeam(c *gin.Context) {
	member, ok := mustMember(c)
	if !ok {
		return
	}
	teamID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid team ID format")
		return
	}
	team, err := h.teamService.JoinTeam(c.Request.Context(), member, teamID)
	if err != nil {
		handleTeamError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapTeamToResponse(team))
}

// GetRanking godoc
// @Summary Team leaderboard for a logical day
// @Tags Teams
// @Security BearerAuth
// @Param id path string true "Team ID"
// @Param page query int false "0-based page"
// @Param size query int false "Page size"
// @Param date query string false "Logical date YYYY-MM-DD, defaults to today"
// @Success 200 {object} RankingResponse
// @Router /teams/{id}/ranking [get]
func (h *TeamHandler) GetRanking(c *gin.Context) {
	member, ok := mustMember(c)
	if !ok {
		return
	}
	teamID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid team ID format")
		return
	}
	var q RankingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if q.Size == 0 {
		q.Size = defaultPageSize
	}
	// Zero date means the current logical day; the service resolves it
	var date time.Time
	if q.Date != "" {
		// Dates are read in the configured zone, not UTC
		date, err = time.ParseInLocation(domain.DateLayout, q.Date, h.calc.Location())
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
	}

	page, err := h.teamService.GetRanking(c.Request.Context(), member, teamID, q.Page, q.Size, date)
	if err != nil {
		handleTeamError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRankingToResponse(page))
}

func handleTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidTeam), errors.Is(err, service.ErrInvalidPage):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTeamNotFound), errors.Is(err, service.ErrMemberNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	default:
		// ErrRankNotFound lands here: the caller's own entry must exist
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
