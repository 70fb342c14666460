package retry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Policy описывает параметры повторных попыток.
// Перед первой попыткой задержки нет; перед попыткой n ожидание равно
// InitialDelay * Multiplier^(n-2), но не больше MaxDelay. При Multiplier <= 1
// задержка фиксированная (InitialDelay).
type Policy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	AttemptTimeout time.Duration // 0 — без пер-попыточного таймаута
}

// FixedDelay возвращает политику с фиксированной задержкой между попытками.
func FixedDelay(maxAttempts int, delay time.Duration) Policy {
	return Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: delay,
		Multiplier:   1,
	}
}

// Backoff возвращает политику с экспоненциальным ростом задержки, ограниченным maxDelay.
func Backoff(maxAttempts int, initialDelay, maxDelay time.Duration) Policy {
	return Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		Multiplier:   2,
		MaxDelay:     maxDelay,
	}
}

// permanentError помечает ошибку как неповторяемую
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку операции как окончательную: Do прекращает
// попытки и возвращает исходную ошибку как есть.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do выполняет op до первого успеха, но не более p.MaxAttempts раз.
// Отмена ctx прерывает и ожидание между попытками, и саму попытку
// (через производный контекст с AttemptTimeout, если он задан).
// Возвращается последняя ошибка op либо ошибка контекста.
func Do(ctx context.Context, name string, p Policy, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	delay := p.InitialDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			log.Printf("[Retry] %s: попытка %d/%d через %v (предыдущая ошибка: %v)",
				name, attempt, p.MaxAttempts, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s: отменено во время ожидания: %w", name, ctx.Err())
			}
			// Следующая задержка растет, но не выше MaxDelay
			if p.Multiplier > 1 {
				delay = time.Duration(float64(delay) * p.Multiplier)
				if p.MaxDelay > 0 && delay > p.MaxDelay {
					delay = p.MaxDelay
				}
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		lastErr = op(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: отменено: %w", name, ctx.Err())
		}
	}

	return lastErr
}
