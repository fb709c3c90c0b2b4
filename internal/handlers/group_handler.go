package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ekinaydin/intrachat/internal/models"
	"github.com/ekinaydin/intrachat/internal/services"
	"github.com/ekinaydin/intrachat/pkg/utils"
)

type groupApplicationService interface {
	Create(ctx context.Context, creatorID int64, name string, memberIDs []int64) (*models.Group, error)
	ListForCaller(ctx context.Context, userID int64) (members []models.Group, admins []models.Group, err error)
	AddMember(ctx context.Context, actorID, groupID, userID int64) error
	RemoveMember(ctx context.Context, actorID, groupID, userID int64) error
	Promote(ctx context.Context, actorID, groupID, userID int64) error
	Demote(ctx context.Context, actorID, groupID, userID int64) error
}

type GroupHandler struct {
	service  groupApplicationService
	sessions sessionResolver
}

func NewGroupHandler(service groupApplicationService, sessions sessionResolver) *GroupHandler {
	return &GroupHandler{service: service, sessions: sessions}
}

type cookieRequest struct {
	Cookie string `json:"cookie"`
}

// Groups lists the caller's groups split by role under the `members` and
// `admin` keys. Both are always present, each an empty array when the
// caller holds no such groups.
func (h *GroupHandler) Groups(c *fiber.Ctx) error {
	var req cookieRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	userID, err := h.resolve(c.Context(), req.Cookie)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	members, admins, err := h.service.ListForCaller(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load groups"})
	}

	return c.JSON(fiber.Map{
		"members": members,
		"admin":   admins,
	})
}

type createGroupRequest struct {
	Cookie string  `json:"cookie"`
	Name   string  `json:"name"`
	Users  []int64 `json:"users"`
}

func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	creatorID, err := h.resolve(c.Context(), req.Cookie)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Invalid token"})
	}

	group, err := h.service.Create(c.Context(), creatorID, req.Name, req.Users)
	if err != nil {
		return mapGroupError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "group": group})
}

type membershipRequest struct {
	Cookie  string `json:"cookie"`
	GroupID int64  `json:"group_id"`
	UserID  int64  `json:"user_id"`
}

func (h *GroupHandler) AddMember(c *fiber.Ctx) error {
	return h.membership(c, h.service.AddMember)
}

func (h *GroupHandler) RemoveMember(c *fiber.Ctx) error {
	return h.membership(c, h.service.RemoveMember)
}

func (h *GroupHandler) SetMemberAdmin(c *fiber.Ctx) error {
	return h.membership(c, h.service.Promote)
}

func (h *GroupHandler) RemoveMemberAdmin(c *fiber.Ctx) error {
	return h.membership(c, h.service.Demote)
}

// membership is the shared body of the four admin-gated group mutations.
// Each takes the same request shape and answers {"success": true} or a
// mapped error.
func (h *GroupHandler) membership(
	c *fiber.Ctx,
	op func(ctx context.Context, actorID, groupID, userID int64) error,
) error {
	var req membershipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if req.GroupID <= 0 || req.UserID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Group and user ids are required"})
	}

	actorID, err := h.resolve(c.Context(), req.Cookie)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Invalid token"})
	}

	if err := op(c.Context(), actorID, req.GroupID, req.UserID); err != nil {
		return mapGroupError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func mapGroupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": "Admin privileges required"})
	case errors.Is(err, services.ErrGroupNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "Group not found"})
	case errors.Is(err, services.ErrAlreadyMember):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": "User is already a member"})
	case errors.Is(err, services.ErrAlreadyAdmin):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": "User is already an admin"})
	case errors.Is(err, services.ErrMustDemoteFirst):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": "Demote the admin before removing them"})
	case errors.Is(err, services.ErrLastAdmin):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": "A group needs at least one admin"})
	case errors.Is(err, services.ErrCannotRemoveSelf):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": "Admins cannot remove themselves"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Group operation failed"})
	}
}

func (h *GroupHandler) resolve(ctx context.Context, cookieHeader string) (int64, error) {
	token := utils.TokenFromCookie(cookieHeader, TokenCookieName)
	if token == "" {
		return 0, services.ErrInvalidToken
	}
	userID, err := h.sessions.Resolve(ctx, token)
	if err != nil {
		return 0, services.ErrInvalidToken
	}
	return userID, nil
}
