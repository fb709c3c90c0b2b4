package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/ekinaydin/intrachat/internal/models"
	"github.com/ekinaydin/intrachat/pkg/utils"
)

type announcementStore interface {
	Create(ctx context.Context, userID int64, title, content string) (int64, error)
	List(ctx context.Context) ([]models.Announcement, error)
	Update(ctx context.Context, id int64, title, content string) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type AnnouncementHandler struct {
	announcements announcementStore
	sessions      sessionResolver
}

func NewAnnouncementHandler(announcements announcementStore, sessions sessionResolver) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements, sessions: sessions}
}

// List is public; the board renders without a session.
func (h *AnnouncementHandler) List(c *fiber.Ctx) error {
	announcements, err := h.announcements.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load announcements"})
	}
	return c.JSON(announcements)
}

type announcementRequest struct {
	Cookie  string `json:"cookie"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *AnnouncementHandler) Create(c *fiber.Ctx) error {
	var req announcementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title and content are required"})
	}

	userID, err := h.resolve(c.Context(), req.Cookie)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	id, err := h.announcements.Create(c.Context(), userID, strings.TrimSpace(req.Title), strings.TrimSpace(req.Content))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create announcement"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "id": id})
}

func (h *AnnouncementHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid announcement id"})
	}

	var req announcementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title and content are required"})
	}

	if _, err := h.resolve(c.Context(), req.Cookie); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	matched, err := h.announcements.Update(c.Context(), id, strings.TrimSpace(req.Title), strings.TrimSpace(req.Content))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update announcement"})
	}
	if !matched {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Announcement not found"})
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *AnnouncementHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid announcement id"})
	}

	var req cookieRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if _, err := h.resolve(c.Context(), req.Cookie); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.announcements.Delete(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete announcement"})
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *AnnouncementHandler) resolve(ctx context.Context, cookieHeader string) (int64, error) {
	token := utils.TokenFromCookie(cookieHeader, TokenCookieName)
	if token == "" {
		return 0, pgx.ErrNoRows
	}
	return h.sessions.Resolve(ctx, token)
}
