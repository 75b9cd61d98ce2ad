package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"property-governance-backend/models"
	"property-governance-backend/service"
)

// ProposalController handles the proposal API.
type ProposalController struct {
	proposals service.ProposalService
	log       logrus.FieldLogger
}

func NewProposalController(proposals service.ProposalService, log logrus.FieldLogger) *ProposalController {
	return &ProposalController{proposals: proposals, log: log}
}

// CreateProposalRequest is the body of POST /api/proposals.
type CreateProposalRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	BuildingID    *uint64  `json:"building_id"`
	StartTime     string   `json:"start_time" binding:"required"`
	EndTime       string   `json:"end_time" binding:"required"`
	VotingMethod  string   `json:"voting_method" binding:"required"`
	EligibleRoles []string `json:"eligible_roles" binding:"required"`
}

// CastVoteRequest is the body of POST /api/proposals/:id/vote.
type CastVoteRequest struct {
	Choice string `json:"choice" binding:"required"`
}

// CastVoteResponse confirms a recorded vote.
type CastVoteResponse struct {
	Success bool         `json:"success"`
	Choice  string       `json:"choice"`
	Vote    *models.Vote `json:"vote"`
}

// RegisterRoutes mounts the proposal endpoints on group. Callers are
// expected to have installed authentication on the group.
func (pc *ProposalController) RegisterRoutes(group *gin.RouterGroup) {
	proposals := group.Group("/proposals")
	{
		proposals.GET("", pc.ListProposals)
		proposals.POST("", pc.CreateProposal)
		proposals.GET("/:id", pc.GetProposal)
		proposals.POST("/:id/vote", pc.CastVote)
		proposals.POST("/:id/tally", pc.Tally)
	}
}

// CreateProposal creates a proposal
// @Summary Create a proposal (Admin or Manager)
// @Tags proposals
// @Accept json
// @Produce json
// @Param proposal body CreateProposalRequest true "proposal"
// @Success 201 {object} models.Proposal
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/proposals [post]
func (pc *ProposalController) CreateProposal(c *gin.Context) {
	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	start, err := parseTime(req.StartTime)
	if err != nil {
		badRequest(c, "start_time: "+err.Error())
		return
	}
	end, err := parseTime(req.EndTime)
	if err != nil {
		badRequest(c, "end_time: "+err.Error())
		return
	}

	p, err := pc.proposals.CreateProposal(c.Request.Context(), CurrentUser(c), service.CreateProposalInput{
		Title:         req.Title,
		Description:   req.Description,
		BuildingID:    req.BuildingID,
		StartTime:     start,
		EndTime:       end,
		VotingMethod:  models.VotingMethod(req.VotingMethod),
		EligibleRoles: req.EligibleRoles,
	})
	if err != nil {
		abortWithError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListProposals lists the proposals visible to the caller
// @Summary List visible proposals, newest first
// @Tags proposals
// @Produce json
// @Success 200 {array} models.Proposal
// @Router /api/proposals [get]
func (pc *ProposalController) ListProposals(c *gin.Context) {
	list, err := pc.proposals.ListProposals(c.Request.Context(), CurrentUser(c))
	if err != nil {
		abortWithError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetProposal returns one proposal with counts
// @Summary Proposal detail with live counts, the caller's vote and the result
// @Tags proposals
// @Produce json
// @Param id path int true "proposal id"
// @Success 200 {object} models.ProposalDetail
// @Failure 404 {object} ErrorResponse
// @Router /api/proposals/{id} [get]
func (pc *ProposalController) GetProposal(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	detail, err := pc.proposals.GetProposal(c.Request.Context(), id, CurrentUser(c))
	if err != nil {
		abortWithError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CastVote records the caller's vote
// @Summary Cast or change a vote
// @Tags proposals
// @Accept json
// @Produce json
// @Param id path int true "proposal id"
// @Param vote body CastVoteRequest true "choice: Yes, No or Abstain"
// @Success 200 {object} CastVoteResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/proposals/{id}/vote [post]
func (pc *ProposalController) CastVote(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	v, err := pc.proposals.CastVote(c.Request.Context(), id, CurrentUser(c), models.VoteChoice(req.Choice))
	if err != nil {
		abortWithError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, CastVoteResponse{Success: true, Choice: string(v.Choice), Vote: v})
}

// Tally finalizes a closed proposal
// @Summary Tally a closed proposal (Admin or Manager)
// @Tags proposals
// @Produce json
// @Param id path int true "proposal id"
// @Success 200 {object} models.ProposalResult
// @Failure 409 {object} ErrorResponse
// @Router /api/proposals/{id}/tally [post]
func (pc *ProposalController) Tally(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	res, err := pc.proposals.Tally(c.Request.Context(), id, CurrentUser(c))
	if err != nil {
		abortWithError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func proposalID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid proposal id")
		return 0, false
	}
	return id, true
}
