package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekinaydin/intrachat/internal/config"
	"github.com/ekinaydin/intrachat/internal/handlers"
	"github.com/ekinaydin/intrachat/internal/registry"
	"github.com/ekinaydin/intrachat/internal/repository"
	"github.com/ekinaydin/intrachat/internal/services"
)

// RegisterRoutes wires repositories, services and handlers onto the app.
// The connection registry is local by default; setting REDIS_URL swaps in
// the pub/sub variant so pushes reach clients on other processes.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)

	var reg registry.Registry = registry.NewMemoryRegistry()
	if cfg.RedisURL != "" {
		redisRegistry, err := registry.NewRedisRegistry(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		reg = redisRegistry
	}

	chatService := services.NewChatService(messageRepo, groupRepo, reg)
	groupService := services.NewGroupService(groupRepo)

	authHandler := handlers.NewAuthHandler(sessionRepo, userRepo, cfg.MaxSessionsPerUser)
	chatHandler := handlers.NewChatHandler(chatService, sessionRepo, reg)
	groupHandler := handlers.NewGroupHandler(groupService, sessionRepo)
	userHandler := handlers.NewUserHandler(userRepo, sessionRepo, userRepo)
	announcementHandler := handlers.NewAnnouncementHandler(announcementRepo, sessionRepo)

	app.Post("/login", authHandler.Login)
	app.Post("/me", authHandler.Me)
	app.Get("/me/:id", authHandler.UserByID)

	app.Get("/socket", chatHandler.Stream)
	app.Post("/messages", chatHandler.Messages)
	app.Post("/send_message", chatHandler.SendMessage)
	app.Post("/read_message", chatHandler.ReadMessage)

	app.Post("/groups", groupHandler.Groups)
	app.Post("/create_groups", groupHandler.CreateGroup)
	app.Post("/add_member", groupHandler.AddMember)
	app.Post("/remove_member", groupHandler.RemoveMember)
	app.Post("/set_member_admin", groupHandler.SetMemberAdmin)
	app.Post("/remove_member_admin", groupHandler.RemoveMemberAdmin)

	app.Get("/users", userHandler.List)
	app.Post("/users", userHandler.Create)
	app.Put("/users/:id", userHandler.Update)
	app.Delete("/users/:id", userHandler.Delete)

	app.Get("/announcements", announcementHandler.List)
	app.Post("/announcements", announcementHandler.Create)
	app.Put("/announcements/:id", announcementHandler.Update)
	app.Delete("/announcements/:id", announcementHandler.Delete)
}
