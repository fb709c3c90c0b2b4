package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/ekinaydin/intrachat/internal/models"
	"github.com/ekinaydin/intrachat/pkg/utils"
)

// TokenCookieName is the cookie carrying the session token. Chat endpoints
// receive the raw Cookie header in the request body and extract it themselves.
const TokenCookieName = "token"

type sessionStore interface {
	Issue(ctx context.Context, userID int64, token string, maxSessions int) error
	Resolve(ctx context.Context, token string) (int64, error)
}

type userDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type AuthHandler struct {
	sessionRepo sessionStore
	userRepo    userDirectory
	maxSessions int
}

func NewAuthHandler(sessionRepo sessionStore, userRepo userDirectory, maxSessions int) *AuthHandler {
	return &AuthHandler{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		maxSessions: maxSessions,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a fresh session token. Under the
// default single-session policy this invalidates the user's previous token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username and password are required"})
	}

	user, err := h.userRepo.GetByUsername(c.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
	}

	token, err := utils.GenerateSessionToken()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}
	if err := h.sessionRepo.Issue(c.Context(), user.ID, token, h.maxSessions); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	c.Cookie(&fiber.Cookie{
		Name:  TokenCookieName,
		Value: token,
		Path:  "/",
	})

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

type meRequest struct {
	Cookie string `json:"cookie"`
}

// Me resolves the raw cookie header in the body to the calling user.
// 400 without a token, 401 for an unknown token, 404 when the session's
// user row has since been deleted.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	var req meRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	token := utils.TokenFromCookie(req.Cookie, TokenCookieName)
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing token"})
	}

	userID, err := h.sessionRepo.Resolve(c.Context(), token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve session"})
	}

	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user"})
	}

	return c.JSON(user)
}

// UserByID is the public profile lookup.
func (h *AuthHandler) UserByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	user, err := h.userRepo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user"})
	}

	return c.JSON(user)
}
