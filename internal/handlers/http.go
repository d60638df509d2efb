package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"messenger-backend/internal/models"
	"messenger-backend/internal/services"
)

// statusFor maps the shared error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

// SendMessageHandler handles POST /api/messages.
func SendMessageHandler(chat *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.SendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.ConversationID == uuid.Nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "conversationId required"})
		}

		msg, err := chat.SendMessage(c.Context(), req.ConversationID, authedUser(c), req.Text)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(msg)
	}
}

// ListMessagesHandler handles GET /api/messages/:conversationId.
func ListMessagesHandler(chat *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		conversationID, err := uuid.Parse(c.Params("conversationId"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
		}

		messages, err := chat.ListMessages(c.Context(), conversationID, authedUser(c))
		if err != nil {
			return respondError(c, err)
		}
		if messages == nil {
			messages = []models.Message{}
		}
		return c.JSON(messages)
	}
}

// CreateConversationHandler handles POST /api/conversations. Returns 201 on
// first contact, 200 when the conversation already existed.
func CreateConversationHandler(chat *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateConversationRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.RecipientID == uuid.Nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "recipientId required"})
		}

		conv, created, err := chat.GetOrCreateConversation(c.Context(), authedUser(c), req.RecipientID)
		if err != nil {
			return respondError(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(fiber.Map{
			"id":           conv.ID,
			"participants": conv.Participants(),
			"createdAt":    conv.CreatedAt,
			"updatedAt":    conv.LastActivityAt,
		})
	}
}

// ListConversationsHandler handles GET /api/conversations.
func ListConversationsHandler(chat *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		views, err := chat.ListConversations(c.Context(), authedUser(c))
		if err != nil {
			return respondError(c, err)
		}
		if views == nil {
			views = []models.ConversationView{}
		}
		return c.JSON(views)
	}
}

// ListContactsHandler handles GET /api/users/contacts.
func ListContactsHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		contacts, err := users.ListContacts(c.Context(), authedUser(c))
		if err != nil {
			return respondError(c, err)
		}
		if contacts == nil {
			contacts = []models.User{}
		}
		return c.JSON(contacts)
	}
}

// AddContactHandler handles POST /api/users/contacts.
func AddContactHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.AddContactRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.ContactID == uuid.Nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "contactId required"})
		}

		if err := users.AddContact(c.Context(), authedUser(c), req.ContactID); err != nil {
			if errors.Is(err, services.ErrAlreadyContact) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Contact added successfully"})
	}
}

// SearchUsersHandler handles GET /api/users/search?query=.
func SearchUsersHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		found, err := users.SearchUsers(c.Context(), c.Query("query"), authedUser(c))
		if err != nil {
			return respondError(c, err)
		}
		if found == nil {
			found = []models.User{}
		}
		return c.JSON(found)
	}
}
