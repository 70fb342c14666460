package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
	"github.com/STKYFNGRS/trivia-box-api/internal/service/gamesession"
)

// MockRateLimiter реализует gamesession.RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, identity, activity string) error {
	args := m.Called(ctx, identity, activity)
	return args.Error(0)
}

// MockResponseRepo реализует repository.ResponseRepository
type MockResponseRepo struct {
	mock.Mock
}

func (m *MockResponseRepo) Save(ctx context.Context, response *entity.PlayerResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockResponseRepo) GetBySessionQuestion(ctx context.Context, sessionID, questionID, playerAddress string) (*entity.PlayerResponse, error) {
	args := m.Called(ctx, sessionID, questionID, playerAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PlayerResponse), args.Error(1)
}

func (m *MockResponseRepo) GetBySession(ctx context.Context, sessionID string) ([]entity.PlayerResponse, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PlayerResponse), args.Error(1)
}

// MockPlayerRepo реализует repository.PlayerRepository
type MockPlayerRepo struct {
	mock.Mock
}

func (m *MockPlayerRepo) Upsert(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockPlayerRepo) GetByAddress(ctx context.Context, address string) (*entity.Player, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Player), args.Error(1)
}

func (m *MockPlayerRepo) AddPoints(ctx context.Context, address string, points int) error {
	args := m.Called(ctx, address, points)
	return args.Error(0)
}

func (m *MockPlayerRepo) UpdateBestStreak(ctx context.Context, address string, streak int) error {
	args := m.Called(ctx, address, streak)
	return args.Error(0)
}

func (m *MockPlayerRepo) IncrementGamesPlayed(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockPlayerRepo) GetLeaderboard(ctx context.Context, limit, offset int) ([]entity.Player, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.Player), args.Get(1).(int64), args.Error(2)
}

// MockFinalizer реализует SessionFinalizer
type MockFinalizer struct {
	mock.Mock
}

func (m *MockFinalizer) EndSession(ctx context.Context, sessionID, playerAddress string, stats gamesession.FinalStats) error {
	args := m.Called(ctx, sessionID, playerAddress, stats)
	return args.Error(0)
}

type scoreServiceFixture struct {
	service      *ScoreService
	sessionRepo  *MockSessionRepo
	questionRepo *MockQuestionRepo
	responseRepo *MockResponseRepo
	playerRepo   *MockPlayerRepo
	finalizer    *MockFinalizer
}

func newScoreService(limiter gamesession.RateLimiter) *scoreServiceFixture {
	cfg := gamesession.DefaultConfig()
	f := &scoreServiceFixture{
		sessionRepo:  new(MockSessionRepo),
		questionRepo: new(MockQuestionRepo),
		responseRepo: new(MockResponseRepo),
		playerRepo:   new(MockPlayerRepo),
		finalizer:    new(MockFinalizer),
	}
	f.service = NewScoreService(
		cfg,
		gamesession.NewTimingValidator(cfg.RoundDuration, cfg.Tolerance),
		gamesession.NewScoreCalculator(cfg, limiter),
		f.sessionRepo,
		f.questionRepo,
		f.responseRepo,
		f.playerRepo,
		f.finalizer,
	)
	return f
}

func activeSession() *entity.GameSession {
	return &entity.GameSession{
		ID:            "sess-1",
		PlayerAddress: "0xabc",
		Status:        entity.SessionStatusActive,
		QuestionIDs:   entity.StringArray{"q-1", "q-2"},
		QuestionCount: 2,
		CurrentIndex:  0,
		CurrentStreak: 2,
		BestStreak:    2,
	}
}

func storedQuestion() *entity.Question {
	return &entity.Question{
		ID:               "q-1",
		Content:          "вопрос",
		CorrectAnswer:    "Париж",
		IncorrectAnswers: entity.StringArray{"Лондон", "Берлин"},
	}
}

func submitRequest(answer *string) SubmitRequest {
	now := time.Now().UnixMilli()
	return SubmitRequest{
		SessionID:     "sess-1",
		QuestionID:    "q-1",
		PlayerAddress: "0xabc",
		Answer:        answer,
		StartTime:     now - 5000, // 5s на ответ: remaining = 10.5
		EndTime:       now,
	}
}

func strPtr(s string) *string { return &s }

func TestProcessSubmission_CorrectAnswer(t *testing.T) {
	f := newScoreService(nil)

	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(activeSession(), nil)
	f.questionRepo.On("GetByID", mock.Anything, "q-1").Return(storedQuestion(), nil)
	f.playerRepo.On("Upsert", mock.Anything, "0xabc").Return(nil)
	f.responseRepo.On("Save", mock.Anything, mock.AnythingOfType("*entity.PlayerResponse")).Return(nil)
	// remaining=10.5, стрик до ответа 2: round(10.5 * 1.2) = 13
	f.sessionRepo.On("UpdateProgress", mock.Anything, "sess-1", 13, 3, 1).Return(nil)
	f.playerRepo.On("AddPoints", mock.Anything, "0xabc", 13).Return(nil)
	f.playerRepo.On("UpdateBestStreak", mock.Anything, "0xabc", 3).Return(nil)

	result, err := f.service.ProcessSubmission(context.Background(), submitRequest(strPtr("Париж")))

	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 13, result.Points)
	assert.Equal(t, 15, result.PotentialPoints)
	assert.Equal(t, 3, result.CurrentStreak)
	assert.Equal(t, 3, result.BestStreak)
	assert.Equal(t, "Париж", result.CorrectAnswer)
	assert.False(t, result.Duplicate)

	f.sessionRepo.AssertExpectations(t)
	f.playerRepo.AssertExpectations(t)
	f.responseRepo.AssertExpectations(t)
}

func TestProcessSubmission_WrongAnswerResetsStreak(t *testing.T) {
	f := newScoreService(nil)

	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(activeSession(), nil)
	f.questionRepo.On("GetByID", mock.Anything, "q-1").Return(storedQuestion(), nil)
	f.playerRepo.On("Upsert", mock.Anything, "0xabc").Return(nil)
	f.responseRepo.On("Save", mock.Anything, mock.MatchedBy(func(r *entity.PlayerResponse) bool {
		return !r.IsCorrect && r.PointsEarned == 0 && r.StreakCount == 0
	})).Return(nil)
	f.sessionRepo.On("UpdateProgress", mock.Anything, "sess-1", 0, 0, 1).Return(nil)

	result, err := f.service.ProcessSubmission(context.Background(), submitRequest(strPtr("Лондон")))

	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0, result.Points)
	assert.Equal(t, 0, result.CurrentStreak)
	assert.Equal(t, 2, result.BestStreak, "лучший стрик сессии не сбрасывается")
	f.playerRepo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessSubmission_TimeoutScoredAsWrong(t *testing.T) {
	f := newScoreService(nil)

	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(activeSession(), nil)
	f.questionRepo.On("GetByID", mock.Anything, "q-1").Return(storedQuestion(), nil)
	f.playerRepo.On("Upsert", mock.Anything, "0xabc").Return(nil)
	f.responseRepo.On("Save", mock.Anything, mock.MatchedBy(func(r *entity.PlayerResponse) bool {
		return r.Answer == nil && !r.IsCorrect
	})).Return(nil)
	f.sessionRepo.On("UpdateProgress", mock.Anything, "sess-1", 0, 0, 1).Return(nil)

	result, err := f.service.ProcessSubmission(context.Background(), submitRequest(nil))

	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0, result.Points)
	assert.Equal(t, 0, result.CurrentStreak)
}

func TestProcessSubmission_TimingOutsideBoundScoredAsWrong(t *testing.T) {
	f := newScoreService(nil)

	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(activeSession(), nil)
	f.questionRepo.On("GetByID", mock.Anything, "q-1").Return(storedQuestion(), nil)
	f.playerRepo.On("Upsert", mock.Anything, "0xabc").Return(nil)
	f.responseRepo.On("Save", mock.Anything, mock.MatchedBy(func(r *entity.PlayerResponse) bool {
		return !r.IsCorrect && r.TimeRemaining == 0
	})).Return(nil)
	f.sessionRepo.On("UpdateProgress", mock.Anything, "sess-1", 0, 0, 1).Return(nil)

	// 16s > 15.5s: правильный ответ вне окна все равно не дает очков
	req := submitRequest(strPtr("Париж"))
	req.StartTime = req.EndTime - 16000

	result, err := f.service.ProcessSubmission(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0, result.Points)
	f.playerRepo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessSubmission_DuplicateReturnsFirstOutcome(t *testing.T) {
	f := newScoreService(nil)

	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(activeSession(), nil)
	f.questionRepo.On("GetByID", mock.Anything, "q-1").Return(storedQuestion(), nil)
	f.playerRepo.On("Upsert", mock.Anything, "0xabc").Return(nil)
	f.responseRepo.On("Save", mock.Anything, mock.Anything).Return(apperrors.ErrDuplicateSubmission)
	f.responseRepo.On("GetBySessionQuestion", mock.Anything, "sess-1", "q-1", "0xabc").
		Return(&entity.PlayerResponse{
			IsCorrect: true, PointsEarned: 13, PotentialPoints: 15, StreakCount: 3,
		}, nil)

	result, err := f.service.ProcessSubmission(context.Background(), submitRequest(strPtr("Париж")))

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, 13, result.Points, "возвращен первый записанный исход")
	// Очки не начисляются второй раз
	f.sessionRepo.AssertNotCalled(t, "UpdateProgress",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.playerRepo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessSubmission_RateLimited(t *testing.T) {
	limiter := new(MockRateLimiter)
	limiter.On("Allow", mock.Anything, "0xabc", mock.Anything).Return(apperrors.ErrRateLimitExceeded)
	f := newScoreService(limiter)

	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(activeSession(), nil)
	f.questionRepo.On("GetByID", mock.Anything, "q-1").Return(storedQuestion(), nil)

	_, err := f.service.ProcessSubmission(context.Background(), submitRequest(strPtr("Париж")))

	assert.ErrorIs(t, err, apperrors.ErrRateLimitExceeded)
	f.responseRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProcessSubmission_ValidationErrors(t *testing.T) {
	f := newScoreService(nil)

	cases := []struct {
		name   string
		mutate func(req *SubmitRequest)
	}{
		{"без session_id", func(r *SubmitRequest) { r.SessionID = "" }},
		{"без question_id", func(r *SubmitRequest) { r.QuestionID = "" }},
		{"без identity", func(r *SubmitRequest) { r.PlayerAddress = "" }},
		{"без окна ответа", func(r *SubmitRequest) { r.StartTime = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := submitRequest(strPtr("Париж"))
			tc.mutate(&req)

			_, err := f.service.ProcessSubmission(context.Background(), req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestProcessSubmission_ForeignSessionRejected(t *testing.T) {
	f := newScoreService(nil)

	session := activeSession()
	session.PlayerAddress = "0xother"
	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(session, nil)

	_, err := f.service.ProcessSubmission(context.Background(), submitRequest(strPtr("Париж")))

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProcessSubmission_QuestionNotInSession(t *testing.T) {
	f := newScoreService(nil)

	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(activeSession(), nil)

	req := submitRequest(strPtr("Париж"))
	req.QuestionID = "q-foreign"

	_, err := f.service.ProcessSubmission(context.Background(), req)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProcessSubmission_LastQuestionFinalizes(t *testing.T) {
	f := newScoreService(nil)

	session := activeSession()
	session.CurrentIndex = 1 // последний вопрос из двух
	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(session, nil)
	question := storedQuestion()
	question.ID = "q-2"
	f.questionRepo.On("GetByID", mock.Anything, "q-2").Return(question, nil)
	f.playerRepo.On("Upsert", mock.Anything, "0xabc").Return(nil)
	f.responseRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.sessionRepo.On("UpdateProgress", mock.Anything, "sess-1", 13, 3, 2).Return(nil)
	f.playerRepo.On("AddPoints", mock.Anything, "0xabc", 13).Return(nil)
	f.playerRepo.On("UpdateBestStreak", mock.Anything, "0xabc", 3).Return(nil)
	f.responseRepo.On("GetBySession", mock.Anything, "sess-1").Return([]entity.PlayerResponse{
		{IsCorrect: true, PointsEarned: 10},
		{IsCorrect: true, PointsEarned: 13},
	}, nil)
	f.finalizer.On("EndSession", mock.Anything, "sess-1", "0xabc",
		gamesession.FinalStats{FinalScore: 23, CorrectCount: 2, BestStreak: 2, TotalQuestions: 2}).Return(nil)
	f.playerRepo.On("IncrementGamesPlayed", mock.Anything, "0xabc").Return(nil)

	req := submitRequest(strPtr("Париж"))
	req.QuestionID = "q-2"
	// Клиентский флаг намеренно не выставлен: последний вопрос сервер
	// выводит из прогресса сессии сам
	req.IsLastQuestion = false

	result, err := f.service.ProcessSubmission(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.True(t, result.LastQuestion, "последний вопрос выведен сервером")

	f.sessionRepo.AssertExpectations(t)
	f.playerRepo.AssertExpectations(t)
	f.finalizer.AssertExpectations(t)
}

func TestProcessSubmission_ForgedLastFlagDoesNotFinalize(t *testing.T) {
	f := newScoreService(nil)

	// Вопрос 1 из 2: сессия не может завершиться, что бы ни заявил клиент
	f.sessionRepo.On("GetByID", mock.Anything, "sess-1").Return(activeSession(), nil)
	f.questionRepo.On("GetByID", mock.Anything, "q-1").Return(storedQuestion(), nil)
	f.playerRepo.On("Upsert", mock.Anything, "0xabc").Return(nil)
	f.responseRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.sessionRepo.On("UpdateProgress", mock.Anything, "sess-1", 13, 3, 1).Return(nil)
	f.playerRepo.On("AddPoints", mock.Anything, "0xabc", 13).Return(nil)
	f.playerRepo.On("UpdateBestStreak", mock.Anything, "0xabc", 3).Return(nil)

	req := submitRequest(strPtr("Париж"))
	req.IsLastQuestion = true // подделанный флаг

	result, err := f.service.ProcessSubmission(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, result.LastQuestion)
	f.finalizer.AssertNotCalled(t, "EndSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.playerRepo.AssertNotCalled(t, "IncrementGamesPlayed", mock.Anything, mock.Anything)
	f.responseRepo.AssertNotCalled(t, "GetBySession", mock.Anything, mock.Anything)
}
