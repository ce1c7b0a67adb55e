package discord

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/KirkDiggler/applebot/internal/clients/discordapi"
	apiMocks "github.com/KirkDiggler/applebot/internal/clients/discordapi/mocks"
	clockMocks "github.com/KirkDiggler/applebot/internal/common/clock/mocks"
	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/KirkDiggler/applebot/internal/repositories/guild"
	"github.com/KirkDiggler/applebot/internal/repositories/session"
	sessionMocks "github.com/KirkDiggler/applebot/internal/repositories/session/mocks"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ConnectTestSuite struct {
	suite.Suite
	mockCtrl     *gomock.Controller
	mockAPI      *apiMocks.MockAPI
	mockClock    *clockMocks.MockClock
	mockSessions *sessionMocks.MockRepository
	bot          *Bot
	ctx          context.Context

	testTime   time.Time
	loginInput *discordapi.LoginInput
}

func (s *ConnectTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockAPI = apiMocks.NewMockAPI(s.mockCtrl)
	s.mockClock = clockMocks.NewMockClock(s.mockCtrl)
	s.mockSessions = sessionMocks.NewMockRepository(s.mockCtrl)
	s.ctx = context.Background()

	s.testTime = time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	s.loginInput = &discordapi.LoginInput{Email: "bot@example.com", Password: "hunter2"}

	s.mockClock.EXPECT().Now().Return(s.testTime).AnyTimes()

	bot, err := New(&Config{
		Email:    "bot@example.com",
		Password: "hunter2",
		API:      s.mockAPI,
		Clock:    s.mockClock,
		Sessions: s.mockSessions,
	})
	s.Require().NoError(err)
	s.bot = bot
}

func (s *ConnectTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestConnectTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectTestSuite))
}

func fired(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// throttled is what the REST client returns for a 429
func throttled() error {
	return fmt.Errorf("POST https://discordapp.com/api/auth/login: %w", &discordgo.RateLimitError{
		RateLimit: &discordgo.RateLimit{
			TooManyRequests: &discordgo.TooManyRequests{Message: "You are being rate limited."},
			URL:             "https://discordapp.com/api/auth/login",
		},
	})
}

func (s *ConnectTestSuite) TestLoginPausesLongerWhenThrottled() {
	gomock.InOrder(
		s.mockAPI.EXPECT().Login(s.ctx, s.loginInput).Return(nil, throttled()),
		s.mockClock.EXPECT().After(30*time.Second).DoAndReturn(fired),
		s.mockAPI.EXPECT().Login(s.ctx, s.loginInput).Return(nil, errors.New("connection refused")),
		s.mockClock.EXPECT().After(time.Second).DoAndReturn(fired),
		s.mockAPI.EXPECT().Login(s.ctx, s.loginInput).Return(&discordapi.LoginOutput{}, nil),
		s.mockClock.EXPECT().After(time.Second).DoAndReturn(fired),
		s.mockAPI.EXPECT().Login(s.ctx, s.loginInput).Return(&discordapi.LoginOutput{Token: "token-1"}, nil),
	)

	token, err := s.bot.login(s.ctx)
	s.NoError(err)
	s.Equal("token-1", token)
}

func (s *ConnectTestSuite) TestLoginStopsWhenCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)

	s.mockAPI.EXPECT().Login(ctx, s.loginInput).DoAndReturn(
		func(context.Context, *discordapi.LoginInput) (*discordapi.LoginOutput, error) {
			cancel()
			return nil, errors.New("context canceled")
		})
	s.mockClock.EXPECT().After(time.Second).Return(make(chan time.Time))

	_, err := s.bot.login(ctx)
	s.ErrorIs(err, context.Canceled)
}

func (s *ConnectTestSuite) TestReconnectClearsCacheBeforeLogin() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	err := s.bot.guilds.ReplaceGuilds(s.ctx, &guild.ReplaceGuildsInput{
		Guilds: []*models.Guild{{ID: "G1", OwnerID: "U1"}},
	})
	s.Require().NoError(err)

	s.bot.mu.Lock()
	s.bot.runCtx = ctx
	s.bot.mu.Unlock()

	s.mockAPI.EXPECT().Login(gomock.Any(), s.loginInput).DoAndReturn(
		func(context.Context, *discordapi.LoginInput) (*discordapi.LoginOutput, error) {
			guilds, err := s.bot.Guilds(s.ctx)
			s.NoError(err)
			s.Empty(guilds)

			cancel()
			return nil, errors.New("offline")
		})
	s.mockClock.EXPECT().After(time.Second).Return(make(chan time.Time))

	err = s.bot.Reconnect(s.ctx)
	s.Error(err)
	s.Equal(models.PlatformStateConnecting, s.bot.State())
	s.Equal(int64(1), s.bot.generation.Load())
}

func (s *ConnectTestSuite) TestStaleReconnectIsCoalesced() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.bot.mu.Lock()
	s.bot.runCtx = ctx
	s.bot.mu.Unlock()
	s.bot.generation.Store(5)

	// no login is expected: generation 4 has already been replaced
	s.NoError(s.bot.reconnect(s.ctx, 4))
	s.Equal(int64(5), s.bot.generation.Load())
}

func (s *ConnectTestSuite) TestReplaceSessionOfReplacedGenerationKeepsCurrent() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.bot.mu.Lock()
	s.bot.runCtx = ctx
	s.bot.token = "token-4"
	s.bot.tokenGen = 4
	s.bot.mu.Unlock()
	s.bot.generation.Store(4)

	// a send that used the token of session 3 failed after session 4 was
	// already up; no login is expected
	s.NoError(s.bot.ReplaceSession(s.ctx, 3))

	token, generation := s.bot.Credentials()
	s.Equal("token-4", token)
	s.Equal(int64(4), generation)
	s.Equal(int64(4), s.bot.generation.Load())
}

func (s *ConnectTestSuite) TestSessionHistory() {
	c := &connection{generation: 3, url: "wss://gateway.example"}

	s.bot.mu.Lock()
	s.bot.selfID = "SELF"
	s.bot.mu.Unlock()

	err := s.bot.guilds.ReplaceGuilds(s.ctx, &guild.ReplaceGuildsInput{
		Guilds: []*models.Guild{{ID: "G1"}, {ID: "G2"}},
	})
	s.Require().NoError(err)

	s.mockSessions.EXPECT().RecordSession(s.ctx, &session.RecordSessionInput{
		Generation: 3,
		GatewayURL: "wss://gateway.example",
		UserID:     "SELF",
		GuildCount: 2,
		StartedAt:  s.testTime,
	}).Return(&session.RecordSessionOutput{Session: &models.GatewaySession{ID: "session-1"}}, nil)
	s.bot.recordSession(s.ctx, c)

	s.mockSessions.EXPECT().EndSession(gomock.Any(), &session.EndSessionInput{
		SessionID: "session-1",
		EndedAt:   s.testTime,
	}).Return(nil)
	s.bot.endSession(s.ctx)

	// nothing recorded, nothing to end
	s.bot.endSession(s.ctx)
}

func (s *ConnectTestSuite) TestSessionHistoryFailureIsNotFatal() {
	c := &connection{generation: 1, url: "wss://gateway.example"}

	s.mockSessions.EXPECT().RecordSession(s.ctx, gomock.Any()).Return(nil, errors.New("redis down"))
	s.bot.recordSession(s.ctx, c)

	s.bot.mu.RLock()
	defer s.bot.mu.RUnlock()
	s.Empty(s.bot.sessionID)
}
