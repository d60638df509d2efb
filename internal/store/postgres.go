package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"messenger-backend/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	username   TEXT NOT NULL UNIQUE,
	avatar     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	user_id    UUID NOT NULL REFERENCES users(id),
	contact_id UUID NOT NULL REFERENCES users(id),
	PRIMARY KEY (user_id, contact_id)
);

CREATE TABLE IF NOT EXISTS conversations (
	id               UUID PRIMARY KEY,
	user_a           UUID NOT NULL REFERENCES users(id),
	user_b           UUID NOT NULL REFERENCES users(id),
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_activity_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_a, user_b),
	CHECK (user_a < user_b)
);

CREATE TABLE IF NOT EXISTS messages (
	id              UUID PRIMARY KEY,
	conversation_id UUID NOT NULL REFERENCES conversations(id),
	sender_id       UUID NOT NULL REFERENCES users(id),
	body            TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages (conversation_id, created_at);

CREATE TABLE IF NOT EXISTS message_reads (
	message_id UUID NOT NULL REFERENCES messages(id),
	user_id    UUID NOT NULL REFERENCES users(id),
	PRIMARY KEY (message_id, user_id)
);
`

// PostgresStore implements ConversationStore on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// storeError maps driver errors onto the shared taxonomy: a missing row is
// NotFound, everything else means the backend is unusable for this operation.
func storeError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %v: %w", op, err, models.ErrStoreUnavailable)
}

func (s *PostgresStore) CreateConversation(ctx context.Context, userA, userB uuid.UUID) (*models.Conversation, error) {
	userA, userB = NormalizePair(userA, userB)

	// Insert-or-reselect in one statement so two racing creators of the
	// same pair both land on the single surviving row.
	query := `
		WITH ins AS (
			INSERT INTO conversations (id, user_a, user_b)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_a, user_b) DO NOTHING
			RETURNING id, user_a, user_b, created_at, last_activity_at
		)
		SELECT id, user_a, user_b, created_at, last_activity_at FROM ins
		UNION ALL
		SELECT id, user_a, user_b, created_at, last_activity_at
		FROM conversations WHERE user_a = $2 AND user_b = $3
		LIMIT 1
	`
	var c models.Conversation
	err := s.pool.QueryRow(ctx, query, uuid.New(), userA, userB).
		Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt, &c.LastActivityAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// A concurrent insert of the same pair committed after this
		// statement's snapshot was taken: ON CONFLICT skipped the insert and
		// the re-select could not see the winner yet. A fresh statement can.
		return s.FindConversationByPair(ctx, userA, userB)
	}
	if err != nil {
		return nil, storeError("create conversation", err)
	}
	return &c, nil
}

func (s *PostgresStore) FindConversationByPair(ctx context.Context, userA, userB uuid.UUID) (*models.Conversation, error) {
	userA, userB = NormalizePair(userA, userB)

	query := `SELECT id, user_a, user_b, created_at, last_activity_at
		FROM conversations WHERE user_a = $1 AND user_b = $2`
	var c models.Conversation
	err := s.pool.QueryRow(ctx, query, userA, userB).
		Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt, &c.LastActivityAt)
	if err != nil {
		return nil, storeError("find conversation by pair", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `SELECT id, user_a, user_b, created_at, last_activity_at
		FROM conversations WHERE id = $1`
	var c models.Conversation
	err := s.pool.QueryRow(ctx, query, id).
		Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt, &c.LastActivityAt)
	if err != nil {
		return nil, storeError("get conversation", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationView, error) {
	// Participants are expanded here, on the read side, so callers never
	// see bare foreign keys.
	query := `
		SELECT c.id, c.created_at, c.last_activity_at,
			ua.id, ua.username, ua.avatar,
			ub.id, ub.username, ub.avatar
		FROM conversations c
		JOIN users ua ON ua.id = c.user_a
		JOIN users ub ON ub.id = c.user_b
		WHERE c.user_a = $1 OR c.user_b = $1
		ORDER BY c.last_activity_at DESC
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, storeError("list conversations", err)
	}
	defer rows.Close()

	var views []models.ConversationView
	for rows.Next() {
		var v models.ConversationView
		var pa, pb models.Participant
		if err := rows.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt,
			&pa.ID, &pa.Username, &pa.Avatar,
			&pb.ID, &pb.Username, &pb.Avatar); err != nil {
			return nil, storeError("list conversations", err)
		}
		v.Participants = []models.Participant{pa, pb}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list conversations", err)
	}
	return views, nil
}

func (s *PostgresStore) TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE conversations SET last_activity_at = $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, at)
	if err != nil {
		return storeError("touch conversation", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("touch conversation: %w", models.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, conversationID, senderID uuid.UUID, text string) (*models.Message, error) {
	query := `INSERT INTO messages (id, conversation_id, sender_id, body)
		VALUES ($1, $2, $3, $4) RETURNING created_at`
	m := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		ReadBy:         []uuid.UUID{},
	}
	if err := s.pool.QueryRow(ctx, query, m.ID, conversationID, senderID, text).Scan(&m.CreatedAt); err != nil {
		return nil, storeError("create message", err)
	}
	return m, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.body, m.created_at,
			COALESCE(array_agg(r.user_id) FILTER (WHERE r.user_id IS NOT NULL), '{}')
		FROM messages m
		LEFT JOIN message_reads r ON r.message_id = m.id
		WHERE m.conversation_id = $1
		GROUP BY m.id
		ORDER BY m.created_at ASC
	`
	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, storeError("list messages", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.CreatedAt, &m.ReadBy); err != nil {
			return nil, storeError("list messages", err)
		}
		if m.ReadBy == nil {
			m.ReadBy = []uuid.UUID{}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list messages", err)
	}
	return messages, nil
}

func (s *PostgresStore) AppendReadReceipt(ctx context.Context, messageID, userID uuid.UUID) error {
	// Idempotent: re-acknowledging is a no-op.
	query := `INSERT INTO message_reads (message_id, user_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, messageID, userID); err != nil {
		return storeError("append read receipt", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, username, avatar, created_at FROM users WHERE id = $1`
	var u models.User
	if err := s.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.Avatar, &u.CreatedAt); err != nil {
		return nil, storeError("get user", err)
	}
	return &u, nil
}

func (s *PostgresStore) SearchUsers(ctx context.Context, query string, exclude uuid.UUID) ([]models.User, error) {
	sql := `SELECT id, username, avatar, created_at FROM users
		WHERE username ILIKE '%' || $1 || '%' AND id <> $2
		ORDER BY username LIMIT 50`
	rows, err := s.pool.Query(ctx, sql, query, exclude)
	if err != nil {
		return nil, storeError("search users", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (s *PostgresStore) ListContacts(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	query := `SELECT u.id, u.username, u.avatar, u.created_at
		FROM contacts c JOIN users u ON u.id = c.contact_id
		WHERE c.user_id = $1 ORDER BY u.username`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, storeError("list contacts", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (s *PostgresStore) AddContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error) {
	// Idempotent: the primary key decides duplicates, not the caller.
	query := `INSERT INTO contacts (user_id, contact_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`
	tag, err := s.pool.Exec(ctx, query, userID, contactID)
	if err != nil {
		return false, storeError("add contact", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUsers(rows pgx.Rows) ([]models.User, error) {
	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Avatar, &u.CreatedAt); err != nil {
			return nil, storeError("scan users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("scan users", err)
	}
	return users, nil
}
