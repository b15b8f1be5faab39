package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"teamchat-backend/internal/chaterr"
	"teamchat-backend/internal/logger"
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/services"
)

// httpError maps a taxonomy error onto the matching HTTP status. These
// endpoints enforce the same authorization rules as the socket operations, so
// the mapping mirrors reportError on the socket side.
func httpError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chaterr.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, chaterr.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, chaterr.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, chaterr.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.L().Error().Err(err).Str("path", c.Path()).Msg("internal failure")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

// CreateGroupChatHandler handles POST /api/chats/group.
func CreateGroupChatHandler(chats *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uuid.UUID)

		var req models.CreateGroupChatRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}

		chat, err := chats.CreateGroup(c.Context(), userID, req.Name, req.Participants)
		if err != nil {
			return httpError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(chat)
	}
}

// CreateDirectChatHandler handles POST /api/chats/direct. Get-or-create:
// requesting the same pair again returns the existing chat.
func CreateDirectChatHandler(chats *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uuid.UUID)

		var req models.CreateDirectChatRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.RecipientID == uuid.Nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "recipient_id required"})
		}

		chat, created, err := chats.GetOrCreateDirect(c.Context(), userID, req.RecipientID)
		if err != nil {
			return httpError(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(chat)
	}
}

// DeleteChatHandler handles DELETE /api/chats/:id with the same
// creator-or-elevated-role check as the socket rename.
func DeleteChatHandler(chats *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uuid.UUID)

		chatID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid chat id"})
		}

		if err := chats.Delete(c.Context(), userID, chatID); err != nil {
			return httpError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListChatsHandler handles GET /api/chats: every chat the caller participates
// in, most recently active first.
func ListChatsHandler(chats *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uuid.UUID)

		items, err := chats.ListForUser(c.Context(), userID)
		if err != nil {
			return httpError(c, err)
		}
		if items == nil {
			items = []models.ChatListItem{}
		}
		return c.JSON(items)
	}
}

// ChatMessagesHandler handles GET /api/chats/:id/messages, the HTTP twin of
// the join-time history replay, with the same membership check.
func ChatMessagesHandler(messages *services.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uuid.UUID)

		chatID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid chat id"})
		}

		history, err := messages.History(c.Context(), userID, chatID)
		if err != nil {
			return httpError(c, err)
		}
		if history == nil {
			history = []models.Message{}
		}
		return c.JSON(history)
	}
}

// ListUsersHandler handles GET /api/users: the directory used to start direct
// chats. The caller is excluded from the listing.
func ListUsersHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uuid.UUID)

		all, err := users.ListUsers(c.Context())
		if err != nil {
			return httpError(c, err)
		}

		refs := make([]models.UserRef, 0, len(all))
		for _, u := range all {
			if u.ID == userID {
				continue
			}
			refs = append(refs, models.UserRef{ID: u.ID, Name: u.Name, Role: u.Role})
		}
		return c.JSON(refs)
	}
}
