package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KirkDiggler/applebot/internal/common/uuid"
	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	sessionKeyPrefix = "gateway_session:"
	sessionIndexKey  = "gateway_sessions"
	activeSessionKey = "gateway_session_active"

	defaultListLimit = 20
)

// ErrSessionNotFound is returned when a session is not found
var ErrSessionNotFound = errors.New("gateway session not found")

// Config holds configuration for the Redis session repository
type Config struct {
	// Redis client
	RedisClient *redis.Client

	// UUID generates session IDs; defaults to random UUIDs
	UUID uuid.UUID
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
	uuid   uuid.UUID
}

// NewRedis creates a new Redis-backed session repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ids := cfg.UUID
	if ids == nil {
		ids = uuid.New()
	}

	return &redisRepository{
		client: cfg.RedisClient,
		uuid:   ids,
	}, nil
}

// RecordSession stores a new active session and ends the previous one
func (r *redisRepository) RecordSession(ctx context.Context, input *RecordSessionInput) (*RecordSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	if input.Generation <= 0 {
		return nil, errors.New("generation must be positive")
	}

	startedAt := input.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	// End whichever session was live before this one
	previousID, err := r.client.Get(ctx, activeSessionKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	if previousID != "" {
		err := r.EndSession(ctx, &EndSessionInput{SessionID: previousID, EndedAt: startedAt})
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}

	session := &models.GatewaySession{
		ID:         r.uuid.NewUUID(),
		Generation: input.Generation,
		GatewayURL: input.GatewayURL,
		UserID:     input.UserID,
		GuildCount: input.GuildCount,
		StartedAt:  startedAt,
		Active:     true,
	}

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, sessionJSON, 0)
	// generations restart with every process, start times do not
	pipe.ZAdd(ctx, sessionIndexKey, redis.Z{
		Score:  float64(session.StartedAt.UnixMilli()),
		Member: session.ID,
	})
	pipe.Set(ctx, activeSessionKey, session.ID, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return &RecordSessionOutput{Session: session}, nil
}

// EndSession marks a session as no longer active
func (r *redisRepository) EndSession(ctx context.Context, input *EndSessionInput) error {
	if input == nil || input.SessionID == "" {
		return errors.New("input and session ID cannot be empty")
	}

	session, err := r.GetSession(ctx, &GetSessionInput{SessionID: input.SessionID})
	if err != nil {
		return err
	}

	if !session.Active {
		return nil
	}

	session.Active = false
	session.EndedAt = input.EndedAt
	if session.EndedAt.IsZero() {
		session.EndedAt = time.Now()
	}

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, sessionJSON, 0)

	// Only clear the active pointer if it still points at this session
	active, err := r.client.Get(ctx, activeSessionKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to get active session: %w", err)
	}
	if active == session.ID {
		pipe.Del(ctx, activeSessionKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID
func (r *redisRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.GatewaySession, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	sessionJSON, err := r.client.Get(ctx, sessionKeyPrefix+input.SessionID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.GatewaySession
	if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// GetActiveSession retrieves the live session, if any
func (r *redisRepository) GetActiveSession(ctx context.Context) (*models.GatewaySession, error) {
	sessionID, err := r.client.Get(ctx, activeSessionKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return r.GetSession(ctx, &GetSessionInput{SessionID: sessionID})
}

// ListSessions retrieves the most recent sessions, newest first
func (r *redisRepository) ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	limit := defaultListLimit
	if input != nil && input.Limit > 0 {
		limit = input.Limit
	}

	sessionIDs, err := r.client.ZRevRange(ctx, sessionIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list session IDs: %w", err)
	}

	if len(sessionIDs) == 0 {
		return &ListSessionsOutput{
			Sessions: []*models.GatewaySession{},
		}, nil
	}

	// Fetch all session records in one round trip
	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		cmds = append(cmds, pipe.Get(ctx, sessionKeyPrefix+id))
	}

	// redis.Nil for a vanished record is handled per command below
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}

	sessions := make([]*models.GatewaySession, 0, len(cmds))
	for i, cmd := range cmds {
		sessionJSON, err := cmd.Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to get session %s: %w", sessionIDs[i], err)
		}

		var session models.GatewaySession
		if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionIDs[i], err)
		}
		sessions = append(sessions, &session)
	}

	return &ListSessionsOutput{
		Sessions: sessions,
	}, nil
}
