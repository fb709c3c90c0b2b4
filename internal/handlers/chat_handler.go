package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/valyala/fasthttp"

	"github.com/ekinaydin/intrachat/internal/models"
	"github.com/ekinaydin/intrachat/internal/registry"
	"github.com/ekinaydin/intrachat/internal/services"
	"github.com/ekinaydin/intrachat/pkg/utils"
)

// heartbeatInterval paces SSE comment frames so a dead client is noticed
// even when no chat traffic flows through its handle.
const heartbeatInterval = 25 * time.Second

type chatApplicationService interface {
	Send(ctx context.Context, senderID, receiverID int64, text string, isGroup bool) (*models.ChatMessage, error)
	History(ctx context.Context, currentUserID, otherID int64, isGroup bool) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, readerID, senderID int64) error
}

type sessionResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

type ChatHandler struct {
	service  chatApplicationService
	sessions sessionResolver
	registry registry.Registry
}

func NewChatHandler(service chatApplicationService, sessions sessionResolver, reg registry.Registry) *ChatHandler {
	return &ChatHandler{
		service:  service,
		sessions: sessions,
		registry: reg,
	}
}

type historyRequest struct {
	Cookie  string `json:"cookie"`
	OtherID int64  `json:"other_id"`
	IsGroup bool   `json:"is_group"`
}

// Messages returns the full history of one conversation, ascending. The
// endpoint is deliberately lenient: a missing token or other id yields an
// empty list rather than an error, matching what the widget expects.
func (h *ChatHandler) Messages(c *fiber.Ctx) error {
	var req historyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.JSON([]models.ChatMessage{})
	}

	userID, err := h.resolve(c.Context(), req.Cookie)
	if err != nil || req.OtherID <= 0 {
		return c.JSON([]models.ChatMessage{})
	}

	messages, err := h.service.History(c.Context(), userID, req.OtherID, req.IsGroup)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load messages"})
	}

	return c.JSON(messages)
}

type sendMessageRequest struct {
	Cookie     string `json:"cookie"`
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
	IsGroup    bool   `json:"is_group"`
}

// SendMessage persists and fans the message out. The response body is the
// canonical stored record; the sender's client uses it as the only echo of
// its own message.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ReceiverID <= 0 || strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Receiver and message are required"})
	}

	senderID, err := h.resolve(c.Context(), req.Cookie)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	message, err := h.service.Send(c.Context(), senderID, req.ReceiverID, req.Message, req.IsGroup)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Receiver and message are required"})
		case errors.Is(err, services.ErrGroupNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send message"})
		}
	}

	return c.JSON(message)
}

type readMessageRequest struct {
	Cookie   string `json:"cookie"`
	SenderID int64  `json:"sender_id"`
}

// ReadMessage marks every unread one-to-one message from the sender as
// read. Idempotent; repeating it changes nothing.
func (h *ChatHandler) ReadMessage(c *fiber.Ctx) error {
	var req readMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if req.SenderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Sender id is required"})
	}

	readerID, err := h.resolve(c.Context(), req.Cookie)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Invalid token"})
	}

	if err := h.service.MarkRead(c.Context(), readerID, req.SenderID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to mark messages read"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// Stream opens the long-lived push connection. The registry slot for the
// user is replaced if one already exists; the replaced stream keeps running
// until its next write fails, which the heartbeat bounds.
func (h *ChatHandler) Stream(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}

	userID, err := h.sessions.Resolve(c.Context(), token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve session"})
	}

	handle := registry.NewHandle(userID)
	h.registry.Register(userID, handle)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	reg := h.registry
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			handle.Close()
			reg.Unregister(handle)
		}()

		if err := writeSSEFrame(w, []byte(`{"message":"connected"}`)); err != nil {
			return
		}

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case frame := <-handle.Frames():
				if err := writeSSEFrame(w, frame); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-handle.Done():
				return
			}
		}
	}))

	return nil
}

func writeSSEFrame(w *bufio.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func (h *ChatHandler) resolve(ctx context.Context, cookieHeader string) (int64, error) {
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
