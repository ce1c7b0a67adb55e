package session

import (
	"context"
	"testing"
	"time"

	uuidMocks "github.com/KirkDiggler/applebot/internal/common/uuid/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr       *miniredis.Miniredis
	client   *redis.Client
	mockCtrl *gomock.Controller
	mockUUID *uuidMocks.MockUUID
	repo     Repository
	ctx      context.Context
	testNow  time.Time
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	s.mockCtrl = gomock.NewController(s.T())
	s.mockUUID = uuidMocks.NewMockUUID(s.mockCtrl)

	repo, err := NewRedis(&Config{
		RedisClient: s.client,
		UUID:        s.mockUUID,
	})
	s.Require().NoError(err)
	s.repo = repo

	s.ctx = context.Background()
	s.testNow = time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
	s.client.Close()
	s.mr.Close()
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) record(id string, generation int64, at time.Time) {
	s.mockUUID.EXPECT().NewUUID().Return(id)
	_, err := s.repo.RecordSession(s.ctx, &RecordSessionInput{
		Generation: generation,
		GatewayURL: "wss://gateway.example",
		UserID:     "bot-user",
		GuildCount: 2,
		StartedAt:  at,
	})
	s.Require().NoError(err)
}

func (s *RedisRepositoryTestSuite) TestRecordAndGetSession() {
	s.record("session-1", 1, s.testNow)

	session, err := s.repo.GetSession(s.ctx, &GetSessionInput{SessionID: "session-1"})
	s.Require().NoError(err)
	s.Equal(int64(1), session.Generation)
	s.Equal("wss://gateway.example", session.GatewayURL)
	s.Equal("bot-user", session.UserID)
	s.Equal(2, session.GuildCount)
	s.True(session.Active)
	s.Equal(s.testNow.Unix(), session.StartedAt.Unix())

	active, err := s.repo.GetActiveSession(s.ctx)
	s.Require().NoError(err)
	s.Equal("session-1", active.ID)
}

func (s *RedisRepositoryTestSuite) TestRecordEndsPreviousSession() {
	s.record("session-1", 1, s.testNow)
	s.record("session-2", 2, s.testNow.Add(time.Minute))

	previous, err := s.repo.GetSession(s.ctx, &GetSessionInput{SessionID: "session-1"})
	s.Require().NoError(err)
	s.False(previous.Active)
	s.Equal(s.testNow.Add(time.Minute).Unix(), previous.EndedAt.Unix())

	active, err := s.repo.GetActiveSession(s.ctx)
	s.Require().NoError(err)
	s.Equal("session-2", active.ID)
}

func (s *RedisRepositoryTestSuite) TestEndSessionClearsActive() {
	s.record("session-1", 1, s.testNow)

	err := s.repo.EndSession(s.ctx, &EndSessionInput{SessionID: "session-1", EndedAt: s.testNow.Add(time.Hour)})
	s.Require().NoError(err)

	_, err = s.repo.GetActiveSession(s.ctx)
	s.ErrorIs(err, ErrSessionNotFound)

	// Ending twice is harmless
	s.NoError(s.repo.EndSession(s.ctx, &EndSessionInput{SessionID: "session-1"}))
}

func (s *RedisRepositoryTestSuite) TestListSessionsNewestFirst() {
	s.record("session-1", 1, s.testNow)
	s.record("session-2", 2, s.testNow.Add(time.Minute))
	s.record("session-3", 3, s.testNow.Add(2*time.Minute))

	output, err := s.repo.ListSessions(s.ctx, &ListSessionsInput{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(output.Sessions, 2)
	s.Equal("session-3", output.Sessions[0].ID)
	s.Equal("session-2", output.Sessions[1].ID)
}

func (s *RedisRepositoryTestSuite) TestListSessionsAcrossRestart() {
	// the previous process got as far as generation 7
	s.record("before-restart", 7, s.testNow)

	// the new process counts from 1 again
	s.record("after-restart", 1, s.testNow.Add(time.Hour))

	output, err := s.repo.ListSessions(s.ctx, &ListSessionsInput{Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(output.Sessions, 1)
	s.Equal("after-restart", output.Sessions[0].ID)
	s.Equal(int64(1), output.Sessions[0].Generation)
	s.True(output.Sessions[0].Active)

	output, err = s.repo.ListSessions(s.ctx, nil)
	s.Require().NoError(err)
	s.Require().Len(output.Sessions, 2)
	s.Equal("before-restart", output.Sessions[1].ID)
	s.False(output.Sessions[1].Active)
}

func (s *RedisRepositoryTestSuite) TestListSessionsEmpty() {
	output, err := s.repo.ListSessions(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(output.Sessions)
}

func (s *RedisRepositoryTestSuite) TestGetSessionNotFound() {
	_, err := s.repo.GetSession(s.ctx, &GetSessionInput{SessionID: "missing"})
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *RedisRepositoryTestSuite) TestRecordSessionValidation() {
	_, err := s.repo.RecordSession(s.ctx, nil)
	s.Error(err)

	_, err = s.repo.RecordSession(s.ctx, &RecordSessionInput{Generation: 0})
	s.Error(err)
}

func TestNewRedisValidation(t *testing.T) {
	_, err := NewRedis(nil)
	if err == nil {
		t.Fatal("expected error for nil config")
	}

	_, err = NewRedis(&Config{})
	if err == nil {
		t.Fatal("expected error for nil redis client")
	}
}
