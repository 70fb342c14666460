package gamesession

import (
	"time"
)

// TimingResult - результат проверки заявленного окна ответа
type TimingResult struct {
	IsValid       bool
	RemainingTime float64 // Оставшиеся секунды раунда после вычета допуска
}

// TimingValidator проверяет заявленное клиентом окно ответа против фиксированной
// длительности раунда. Допуск поглощает расхождение часов и сетевую задержку,
// но не позволяет заявить неправдоподобно длинное elapsed: такая отправка
// отклоняется целиком, а не молча обрезается — наивная манипуляция временем
// не дает очков вместо максимума.
type TimingValidator struct {
	duration  time.Duration
	tolerance time.Duration
}

// NewTimingValidator создает валидатор с заданной длительностью раунда и допуском
func NewTimingValidator(duration, tolerance time.Duration) *TimingValidator {
	return &TimingValidator{duration: duration, tolerance: tolerance}
}

// Validate проверяет окно [startMs, endMs] (Unix ms).
//
//	elapsed         = endMs - startMs
//	adjustedElapsed = max(0, elapsed - tolerance)
//	remainingTime   = max(0, duration - adjustedElapsed)
//	isValid         = 0 <= elapsed <= duration + tolerance
func (v *TimingValidator) Validate(startMs, endMs int64) TimingResult {
	elapsed := time.Duration(endMs-startMs) * time.Millisecond

	adjusted := elapsed - v.tolerance
	if adjusted < 0 {
		adjusted = 0
	}

	remaining := v.duration - adjusted
	if remaining < 0 {
		remaining = 0
	}

	return TimingResult{
		IsValid:       elapsed >= 0 && elapsed <= v.duration+v.tolerance,
		RemainingTime: remaining.Seconds(),
	}
}
