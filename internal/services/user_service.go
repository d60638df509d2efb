package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"messenger-backend/internal/models"
	"messenger-backend/internal/store"
)

// ErrAlreadyContact is returned when adding a contact twice.
var ErrAlreadyContact = errors.New("user is already a contact")

// UserService covers the user directory: contacts and username search.
type UserService struct {
	store store.ConversationStore
}

func NewUserService(st store.ConversationStore) *UserService {
	return &UserService{store: st}
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// ListContacts returns the user's contact list.
func (s *UserService) ListContacts(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	return s.store.ListContacts(ctx, userID)
}

// AddContact adds contactID to userID's contacts. Adding yourself or a
// missing user is rejected before any mutation.
func (s *UserService) AddContact(ctx context.Context, userID, contactID uuid.UUID) error {
	if userID == contactID {
		return fmt.Errorf("cannot add yourself as a contact: %w", models.ErrInvalidInput)
	}
	if _, err := s.store.GetUserByID(ctx, contactID); err != nil {
		return fmt.Errorf("contact: %w", err)
	}

	// The store decides duplicates atomically, so two racing adds cannot
	// both succeed.
	inserted, err := s.store.AddContact(ctx, userID, contactID)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrAlreadyContact
	}
	return nil
}

// SearchUsers finds users whose username contains query, excluding the
// caller.
func (s *UserService) SearchUsers(ctx context.Context, query string, me uuid.UUID) ([]models.User, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", models.ErrInvalidInput)
	}
	return s.store.SearchUsers(ctx, query, me)
}
