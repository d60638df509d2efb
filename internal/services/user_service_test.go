package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-backend/internal/models"
)

func TestAddContact(t *testing.T) {
	st := newFakeStore()
	svc := NewUserService(st)
	ctx := context.Background()

	alice := st.addUser("alice")
	bob := st.addUser("bob")

	require.NoError(t, svc.AddContact(ctx, alice, bob))

	contacts, err := svc.ListContacts(ctx, alice)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "bob", contacts[0].Username)

	// Duplicate add is rejected.
	err = svc.AddContact(ctx, alice, bob)
	assert.True(t, errors.Is(err, ErrAlreadyContact))

	// Self-add is rejected before any mutation.
	err = svc.AddContact(ctx, alice, alice)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	// Unknown contact is rejected.
	err = svc.AddContact(ctx, alice, uuid.New())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestAddContactConcurrentDuplicate(t *testing.T) {
	st := newFakeStore()
	svc := NewUserService(st)
	ctx := context.Background()

	alice := st.addUser("alice")
	bob := st.addUser("bob")

	// Two racing adds of the same contact: exactly one wins, the other gets
	// the duplicate error, never a store failure.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.AddContact(ctx, alice, bob)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyContact):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)

	contacts, err := svc.ListContacts(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestSearchUsersRequiresQuery(t *testing.T) {
	svc := NewUserService(newFakeStore())

	_, err := svc.SearchUsers(context.Background(), "", uuid.New())
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}
