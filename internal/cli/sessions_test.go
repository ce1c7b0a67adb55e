package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/KirkDiggler/applebot/internal/repositories/session"
	sessionMocks "github.com/KirkDiggler/applebot/internal/repositories/session/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testStart = time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)

func TestPrintSessions(t *testing.T) {
	older := &models.GatewaySession{
		ID:         "session-1",
		Generation: 1,
		UserID:     "42",
		GuildCount: 2,
		StartedAt:  testStart,
		EndedAt:    testStart.Add(time.Hour),
	}
	live := &models.GatewaySession{
		ID:         "session-2",
		Generation: 2,
		UserID:     "42",
		GuildCount: 3,
		StartedAt:  testStart.Add(time.Hour),
		Active:     true,
	}

	tests := []struct {
		name     string
		opts     SessionsOptions
		setup    func(repo *sessionMocks.MockRepository)
		contains []string
		wantErr  bool
	}{
		{
			name: "lists newest first",
			opts: SessionsOptions{Limit: 5},
			setup: func(repo *sessionMocks.MockRepository) {
				repo.EXPECT().
					ListSessions(gomock.Any(), &session.ListSessionsInput{Limit: 5}).
					Return(&session.ListSessionsOutput{Sessions: []*models.GatewaySession{live, older}}, nil)
			},
			contains: []string{"GENERATION", "session-2", "active", "session-1", "2025-04-05T11:00:00Z"},
		},
		{
			name: "empty history",
			opts: SessionsOptions{Limit: 20},
			setup: func(repo *sessionMocks.MockRepository) {
				repo.EXPECT().
					ListSessions(gomock.Any(), gomock.Any()).
					Return(&session.ListSessionsOutput{}, nil)
			},
			contains: []string{"No sessions recorded"},
		},
		{
			name: "active only",
			opts: SessionsOptions{Active: true},
			setup: func(repo *sessionMocks.MockRepository) {
				repo.EXPECT().GetActiveSession(gomock.Any()).Return(live, nil)
			},
			contains: []string{"session-2", "active"},
		},
		{
			name: "no active session",
			opts: SessionsOptions{Active: true},
			setup: func(repo *sessionMocks.MockRepository) {
				repo.EXPECT().GetActiveSession(gomock.Any()).Return(nil, session.ErrSessionNotFound)
			},
			contains: []string{"No active session"},
		},
		{
			name: "store failure",
			opts: SessionsOptions{Limit: 20},
			setup: func(repo *sessionMocks.MockRepository) {
				repo.EXPECT().
					ListSessions(gomock.Any(), gomock.Any()).
					Return(nil, errors.New("connection refused"))
			},
			wantErr: true,
		},
		{
			name:    "non-positive limit",
			opts:    SessionsOptions{Limit: 0},
			setup:   func(repo *sessionMocks.MockRepository) {},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := sessionMocks.NewMockRepository(ctrl)
			tc.setup(repo)

			var out bytes.Buffer
			err := printSessions(context.Background(), repo, &tc.opts, &out)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			for _, want := range tc.contains {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestSessionsCommandReadsRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo, err := session.NewRedis(&session.Config{RedisClient: client})
	require.NoError(t, err)

	ctx := context.Background()
	for gen := int64(1); gen <= 2; gen++ {
		_, err := repo.RecordSession(ctx, &session.RecordSessionInput{
			Generation: gen,
			GatewayURL: "wss://gateway.example",
			UserID:     "42",
			GuildCount: int(gen),
			StartedAt:  testStart.Add(time.Duration(gen) * time.Minute),
		})
		require.NoError(t, err)
	}

	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_DB", "")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sessions", "--env-file", t.TempDir() + "/missing.env"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "2025-04-05T10:02:00Z")
	assert.Contains(t, out.String(), "2025-04-05T10:01:00Z")
	assert.Contains(t, out.String(), "active")
}

func TestSessionsCommandRequiresRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_DB", "")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"sessions", "--env-file", t.TempDir() + "/missing.env"})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, ErrRedisNotConfigured)
}

func TestRunCommandRequiresCredentials(t *testing.T) {
	t.Setenv("DISCORD_EMAIL", "")
	t.Setenv("DISCORD_PASSWORD", "")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--env-file", t.TempDir() + "/missing.env"})

	err := cmd.ExecuteContext(context.Background())
	assert.Error(t, err)
}
