package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekinaydin/intrachat/internal/models"
	"github.com/ekinaydin/intrachat/internal/repository"
	"github.com/ekinaydin/intrachat/pkg/utils"
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id int64, input repository.UpdateUserInput) error
	Delete(ctx context.Context, id int64) error
}

type UserHandler struct {
	userRepo userStore
	sessions sessionResolver
	users    userDirectory
}

func NewUserHandler(userRepo userStore, sessions sessionResolver, users userDirectory) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		sessions: sessions,
		users:    users,
	}
}

// List is the public roster; every user appears, password hashes never
// serialize.
func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.userRepo.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load users"})
	}
	return c.JSON(users)
}

type createUserRequest struct {
	Cookie   string `json:"cookie"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username and password are required"})
	}

	if err := h.requireAdmin(c.Context(), req.Cookie); err != nil {
		return respondAuthError(c, err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user"})
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
	}
	if err := h.userRepo.Create(c.Context(), user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username is taken"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user"})
	}

	user.ProfileImage = models.DefaultProfileImage
	return c.Status(fiber.StatusCreated).JSON(user)
}

type updateUserRequest struct {
	Cookie       string `json:"cookie"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfileImage string `json:"profile_image"`
	Password     string `json:"password"`
	IsAdmin      bool   `json:"is_admin"`
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Username) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username is required"})
	}

	if err := h.requireAdmin(c.Context(), req.Cookie); err != nil {
		return respondAuthError(c, err)
	}

	if _, err := h.userRepo.GetByID(c.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user"})
	}

	input := repository.UpdateUserInput{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		ProfileImage: req.ProfileImage,
		IsAdmin:      req.IsAdmin,
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user"})
		}
		input.PasswordHash = hash
	}

	if err := h.userRepo.Update(c.Context(), id, input); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user"})
	}

	user, err := h.userRepo.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user"})
	}
	return c.JSON(user)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	var req cookieRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.requireAdmin(c.Context(), req.Cookie); err != nil {
		return respondAuthError(c, err)
	}

	if err := h.userRepo.Delete(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete user"})
	}

	return c.JSON(fiber.Map{"success": true})
}

var errNotAdmin = errors.New("handlers: caller is not an admin")

func (h *UserHandler) requireAdmin(ctx context.Context, cookieHeader string) error {
	token := utils.TokenFromCookie(cookieHeader, TokenCookieName)
	if token == "" {
		return pgx.ErrNoRows
	}
	userID, err := h.sessions.Resolve(ctx, token)
	if err != nil {
		return err
	}
	caller, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin {
		return errNotAdmin
	}
	return nil
}

func respondAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errNotAdmin):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin privileges required"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve session"})
	}
}
