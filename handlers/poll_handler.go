package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voting-api/models"
)

// PollService is the poll functionality the poll routes need
type PollService interface {
	CreatePoll(ctx context.Context, question string, options []string, creatorID string) (*models.Poll, error)
	ListPolls(ctx context.Context) ([]models.Poll, error)
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	Vote(ctx context.Context, pollID, optionID string) (*models.Poll, error)
}

// CreatePollInput defines the expected input structure for creating a poll
type CreatePollInput struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// VoteInput defines the expected input structure for casting a vote
type VoteInput struct {
	OptionID string `json:"optionId"`
}

// PollHandler 处理投票相关请求
type PollHandler struct {
	polls PollService
	l     *zap.Logger
}

func NewPollHandler(polls PollService, l *zap.Logger) *PollHandler {
	return &PollHandler{polls: polls, l: l}
}

// CreatePoll handles the creation of a new poll
func (h *PollHandler) CreatePoll(c *gin.Context) {
	var input CreatePollInput
	if err := bindJSON(c, &input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: msgPollInputRequired})
		return
	}

	poll, err := h.polls.CreatePoll(c.Request.Context(), input.Question, input.Options, CurrentUserID(c))
	if err != nil {
		respondError(c, h.l, err, msgPollInputRequired)
		return
	}
	c.JSON(http.StatusCreated, poll)
}

// ListPolls 返回全部投票，没有投票时返回空数组
func (h *PollHandler) ListPolls(c *gin.Context) {
	polls, err := h.polls.ListPolls(c.Request.Context())
	if err != nil {
		respondError(c, h.l, err, msgInvalidBody)
		return
	}
	if polls == nil {
		polls = []models.Poll{}
	}
	c.JSON(http.StatusOK, polls)
}

// GetPoll retrieves a single poll by its ID
func (h *PollHandler) GetPoll(c *gin.Context) {
	poll, err := h.polls.GetPoll(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.l, err, msgInvalidBody)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// Vote 为指定选项投一票，同一用户可以多次投票
func (h *PollHandler) Vote(c *gin.Context) {
	var input VoteInput
	if err := bindJSON(c, &input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: msgInvalidBody})
		return
	}

	poll, err := h.polls.Vote(c.Request.Context(), c.Param("id"), input.OptionID)
	if err != nil {
		respondError(c, h.l, err, msgInvalidBody)
		return
	}
	c.JSON(http.StatusOK, poll)
}
