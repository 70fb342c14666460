package gamesession

import (
	"context"
	"math"
)

// RateLimiter - коллаборатор допуска к начислению очков.
// Проверка по ключу identity+activity выполняется непосредственно перед
// расчетом: это admission check, а не резервирование.
type RateLimiter interface {
	// Allow возвращает apperrors.ErrRateLimitExceeded при превышении лимита
	Allow(ctx context.Context, identity, activity string) error
}

// ScoreCalculator вычисляет очки за один вопрос.
// Сам расчет референциально прозрачен: одинаковые (remainingTime, isCorrect,
// streakBefore) всегда дают одинаковый результат. Протягивание возвращенного
// стрика в следующий вызов — обязанность вызывающего.
type ScoreCalculator struct {
	config  *Config
	limiter RateLimiter
}

// NewScoreCalculator создает калькулятор очков
func NewScoreCalculator(config *Config, limiter RateLimiter) *ScoreCalculator {
	return &ScoreCalculator{config: config, limiter: limiter}
}

const (
	streakBonusStep = 0.10 // Прибавка к множителю за каждый шаг стрика
	streakBonusCap  = 0.50 // Потолок бонуса
	scoringActivity = "score_submission"
)

// Calculate начисляет очки за ответ.
// Сначала проверяется лимитер; при отказе ничего не вычисляется.
// Неправильный ответ обнуляет стрик и дает 0 очков. Правильный:
// base = clamp(remaining, 0, maxPoints), bonus = min(streak*0.1, 0.5),
// points = round(base * (1 + bonus)). Округление применяется один раз,
// к итогу с бонусом — промежуточные значения не округляются, чтобы
// ошибка округления не накапливалась.
func (c *ScoreCalculator) Calculate(ctx context.Context, identity string, remainingTime float64, isCorrect bool, streakBefore int) (ScoreResult, error) {
	maxPoints := c.config.MaxPoints()

	if c.limiter != nil {
		if err := c.limiter.Allow(ctx, identity, scoringActivity); err != nil {
			return ScoreResult{}, err
		}
	}

	if !isCorrect {
		return ScoreResult{Points: 0, MaxPoints: maxPoints, ResultingStreak: 0}, nil
	}

	base := remainingTime
	if base < 0 {
		base = 0
	}
	if base > float64(maxPoints) {
		base = float64(maxPoints)
	}

	bonus := float64(streakBefore) * streakBonusStep
	if bonus > streakBonusCap {
		bonus = streakBonusCap
	}

	return ScoreResult{
		Points:          int(math.Round(base * (1 + bonus))),
		MaxPoints:       maxPoints,
		ResultingStreak: streakBefore + 1,
	}, nil
}
