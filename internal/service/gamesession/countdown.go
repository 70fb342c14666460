package gamesession

import (
	"context"
	"sync"
	"time"
)

// Countdown ведет обратный отсчет одного раунда. Каждый тик публикует
// оставшееся время через onTick; по достижении нуля ровно один раз
// вызывается onExpire, независимо от того, сколько тиков произошло
// после истечения и был ли отсчет остановлен одновременно с истечением.
type Countdown struct {
	duration time.Duration
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	expired bool
	done    chan struct{}
}

// NewCountdown создает отсчет с длительностью раунда и шагом тика
func NewCountdown(duration, interval time.Duration) *Countdown {
	return &Countdown{duration: duration, interval: interval}
}

// Start запускает отсчет в отдельной горутине. Повторный запуск
// останавливает предыдущий отсчет.
func (c *Countdown) Start(ctx context.Context, onTick func(remaining float64), onExpire func()) {
	c.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.expired = false
	c.done = done
	c.mu.Unlock()

	go c.run(runCtx, done, onTick, onExpire)
}

// Stop останавливает текущий отсчет и дожидается завершения его горутины.
// Остановка после истечения безвредна.
func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (c *Countdown) run(ctx context.Context, done chan struct{}, onTick func(remaining float64), onExpire func()) {
	reachedZero := false
	// Коллбек истечения вызывается уже после закрытия done: он может
	// синхронно обращаться к Stop, не дожидаясь собственного завершения
	defer func() {
		close(done)
		if reachedZero {
			c.fireExpiry(onExpire)
		}
	}()

	deadline := time.Now().Add(c.duration)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			remaining := deadline.Sub(now)
			if remaining <= 0 {
				if onTick != nil {
					onTick(0)
				}
				reachedZero = true
				return
			}
			if onTick != nil {
				onTick(remaining.Seconds())
			}
		}
	}
}

// fireExpiry гарантирует однократность срабатывания таймаута
func (c *Countdown) fireExpiry(onExpire func()) {
	c.mu.Lock()
	already := c.expired
	c.expired = true
	c.mu.Unlock()

	if !already && onExpire != nil {
		onExpire()
	}
}
