package gamesession

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
)

// MockRateLimiter реализует RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, identity, activity string) error {
	args := m.Called(ctx, identity, activity)
	return args.Error(0)
}

func newCalculator(limiter RateLimiter) *ScoreCalculator {
	return NewScoreCalculator(DefaultConfig(), limiter)
}

func TestScoreCalculator_NoStreakEqualsRoundedRemaining(t *testing.T) {
	calc := newCalculator(nil)
	ctx := context.Background()

	// Без стрика очки равны округленному остатку времени, maxPoints = 15
	for remaining := 0.0; remaining <= 15.0; remaining += 0.5 {
		result, err := calc.Calculate(ctx, "0xabc", remaining, true, 0)
		require.NoError(t, err)
		assert.Equal(t, int(math.Round(remaining)), result.Points, "remaining=%v", remaining)
		assert.Equal(t, 15, result.MaxPoints)
		assert.Equal(t, 1, result.ResultingStreak)
	}
}

func TestScoreCalculator_StreakBonusTable(t *testing.T) {
	calc := newCalculator(nil)
	ctx := context.Background()

	// bonus = min(streak*0.1, 0.5); points = round(10 * (1 + bonus))
	for streak := 0; streak <= 10; streak++ {
		bonus := math.Min(float64(streak)*0.1, 0.5)
		expected := int(math.Round(10 * (1 + bonus)))

		result, err := calc.Calculate(ctx, "0xabc", 10, true, streak)
		require.NoError(t, err)
		assert.Equal(t, expected, result.Points, "streak=%d", streak)
		assert.Equal(t, streak+1, result.ResultingStreak)
	}
}

func TestScoreCalculator_BonusCappedAtFifty(t *testing.T) {
	calc := newCalculator(nil)

	// Стрик 5 и стрик 100 дают одинаковый множитель
	atCap, err := calc.Calculate(context.Background(), "0xabc", 10, true, 5)
	require.NoError(t, err)
	aboveCap, err := calc.Calculate(context.Background(), "0xabc", 10, true, 100)
	require.NoError(t, err)

	assert.Equal(t, atCap.Points, aboveCap.Points)
	assert.Equal(t, 15, atCap.Points)
}

func TestScoreCalculator_IncorrectResetsStreak(t *testing.T) {
	calc := newCalculator(nil)

	result, err := calc.Calculate(context.Background(), "0xabc", 14.9, false, 7)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Points, "Неправильный ответ — ноль очков независимо от времени и стрика")
	assert.Equal(t, 0, result.ResultingStreak)
	assert.Equal(t, 15, result.MaxPoints)
}

func TestScoreCalculator_RemainingClampedToMax(t *testing.T) {
	calc := newCalculator(nil)

	// Аномально большой остаток не дает больше maxPoints
	result, err := calc.Calculate(context.Background(), "0xabc", 500, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 15, result.Points)

	// Отрицательный остаток не уводит в минус
	result, err = calc.Calculate(context.Background(), "0xabc", -3, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Points)
	assert.Equal(t, 1, result.ResultingStreak)
}

func TestScoreCalculator_RoundingAppliedOnce(t *testing.T) {
	calc := newCalculator(nil)

	// remaining=10.4, streak=3: round(10.4 * 1.3) = round(13.52) = 14.
	// При округлении промежуточного значения было бы round(10)*1.3 = 13.
	result, err := calc.Calculate(context.Background(), "0xabc", 10.4, true, 3)
	require.NoError(t, err)
	assert.Equal(t, 14, result.Points)
}

func TestScoreCalculator_RateLimitExceeded(t *testing.T) {
	limiter := new(MockRateLimiter)
	limiter.On("Allow", mock.Anything, "0xabc", "score_submission").Return(apperrors.ErrRateLimitExceeded)

	calc := newCalculator(limiter)
	_, err := calc.Calculate(context.Background(), "0xabc", 10, true, 0)

	assert.ErrorIs(t, err, apperrors.ErrRateLimitExceeded)
	limiter.AssertExpectations(t)
}

func TestScoreCalculator_ReferentiallyTransparent(t *testing.T) {
	calc := newCalculator(nil)
	ctx := context.Background()

	first, err := calc.Calculate(ctx, "0xabc", 7.3, true, 4)
	require.NoError(t, err)
	second, err := calc.Calculate(ctx, "0xabc", 7.3, true, 4)
	require.NoError(t, err)

	assert.Equal(t, first, second, "Одинаковые входы всегда дают одинаковый результат")
}
