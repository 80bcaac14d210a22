package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bekzodm/taskhub/internal/services"
	appErrors "github.com/bekzodm/taskhub/pkg/errors"
	"github.com/bekzodm/taskhub/pkg/response"
)

// InvitationHandler serves the invitation lifecycle endpoints. Sending and
// listing require authentication; validation and acceptance are public since
// the invitee does not have an account yet.
type InvitationHandler struct {
	invitations *services.InvitationService
}

// NewInvitationHandler constructs an InvitationHandler.
func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

type sendInvitationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type acceptInvitationRequest struct {
	Token    string  `json:"token" validate:"required"`
	Name     string  `json:"name" validate:"omitempty,min=2,max=128"`
	Password string  `json:"password" validate:"required,min=6"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=512"`
}

// POST /api/invitations
func (h *InvitationHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req sendInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invitation, err := h.invitations.Send(requestContext(c), userID, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Invitation sent", invitation)
}

// GET /api/invitations
func (h *InvitationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	invitations, err := h.invitations.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"invitations": invitations})
}

// GET /api/invitations/:token
func (h *InvitationHandler) Validate(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.Error(c, appErrors.NewBadRequest("token is required"))
		return
	}

	email, err := h.invitations.Validate(requestContext(c), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"email": email})
}

// POST /api/invitations/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req acceptInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID, err := h.invitations.Accept(requestContext(c), req.Token, services.AcceptInput{
		Name:     req.Name,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Invitation accepted", gin.H{"user_id": userID})
}
