package gamesession

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/STKYFNGRS/trivia-box-api/internal/pkg/retry"
)

// SubmissionRequest - заявка на учет ответа, отправляемая серверу
type SubmissionRequest struct {
	QuestionID     string      `json:"question_id"`
	SessionID      string      `json:"session_id"`
	Answer         *string     `json:"answer"` // nil означает таймаут
	StartTime      int64       `json:"start_time"`
	EndTime        int64       `json:"end_time"`
	Identity       string      `json:"identity"`
	IsLastQuestion bool        `json:"is_last_question"`
	FinalStats     *FinalStats `json:"final_stats,omitempty"` // Клиентская оценка, сервер ей не доверяет
}

// SubmissionScore - авторитетные очки, возвращенные сервером
type SubmissionScore struct {
	Points        int `json:"points"`
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`
}

// SubmissionResponse - ответ сервера на заявку
type SubmissionResponse struct {
	Success       bool            `json:"success"`
	IsCorrect     bool            `json:"is_correct"`
	CorrectAnswer string          `json:"correct_answer,omitempty"`
	Score         SubmissionScore `json:"score"`
	Error         string          `json:"error,omitempty"`
	Terminal      bool            `json:"terminal,omitempty"` // Отклонение окончательное, повтор той же заявки бессмыслен
}

// SubmissionSender доставляет заявку серверу. Транспортная ошибка или
// плохой статус возвращаются как error и ретраятся координатором;
// окончательное отклонение (валидация, лимитер) помечается Terminal
// и не ретраится.
type SubmissionSender interface {
	Send(ctx context.Context, req *SubmissionRequest) (*SubmissionResponse, error)
}

// QuestionOutcome - локально зафиксированный исход одного вопроса
type QuestionOutcome struct {
	Index       int
	IsCorrect   bool
	TimedOut    bool
	Points      int
	StreakAfter int
}

// AnswerSubmissionCoordinator ведет машину состояний отправки ответов:
// один вопрос за раз, строго по возрастанию индекса. Повторная отправка
// по тому же индексу (двойной клик, гонка с таймаутом) — тихий no-op,
// возвращающий первый зафиксированный исход. Локальная оценка очков
// нужна только для отзывчивости интерфейса: после ответа сервера его
// значения принимаются как истина.
type AnswerSubmissionCoordinator struct {
	config    *Config
	sender    SubmissionSender
	store     *GameStateStore
	countdown *Countdown

	// sleep подменяется в тестах
	sleep func(ctx context.Context, d time.Duration)

	mu            sync.Mutex
	inFlight      bool
	questionStart time.Time
	outcomes      map[int]QuestionOutcome
	onFinalize    func(stats FinalStats)
}

// NewAnswerSubmissionCoordinator создает координатор для одной сессии
func NewAnswerSubmissionCoordinator(config *Config, sender SubmissionSender, store *GameStateStore) *AnswerSubmissionCoordinator {
	return &AnswerSubmissionCoordinator{
		config:    config,
		sender:    sender,
		store:     store,
		countdown: NewCountdown(config.RoundDuration, config.TickInterval),
		sleep:     sleepCtx,
		outcomes:  make(map[int]QuestionOutcome),
	}
}

// OnFinalize регистрирует коллбек завершения сессии. Вызывается один раз,
// после фиксации последнего ответа; его ошибки не влияют на завершение.
func (c *AnswerSubmissionCoordinator) OnFinalize(fn func(stats FinalStats)) {
	c.mu.Lock()
	c.onFinalize = fn
	c.mu.Unlock()
}

// StartQuestion запускает раунд текущего вопроса: фиксирует момент старта
// и включает обратный отсчет. Истечение отсчета отправляет таймаут-ответ.
func (c *AnswerSubmissionCoordinator) StartQuestion(ctx context.Context) {
	c.mu.Lock()
	c.questionStart = time.Now()
	c.mu.Unlock()

	c.countdown.Start(ctx,
		func(remaining float64) {
			c.store.Update(func(s *GameState) { s.TimeRemaining = remaining })
		},
		func() {
			if _, err := c.SubmitAnswer(ctx, nil); err != nil {
				log.Printf("[Submission] WARNING: отправка таймаут-ответа не удалась: %v", err)
			}
		},
	)
}

// SubmitAnswer отправляет ответ на текущий вопрос (nil = таймаут).
// Если по этому индексу уже идет отправка или исход уже зафиксирован,
// вызов молча возвращает зафиксированный исход без повторного учета.
func (c *AnswerSubmissionCoordinator) SubmitAnswer(ctx context.Context, answer *string) (*QuestionOutcome, error) {
	state := c.store.Get()
	if state == nil || state.Status != GameStatusActive {
		return nil, nil
	}
	index := state.CurrentIndex

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, nil
	}
	if recorded, ok := c.outcomes[index]; ok {
		c.mu.Unlock()
		return &recorded, nil
	}
	c.inFlight = true
	startedAt := c.questionStart
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	c.countdown.Stop()

	req := c.buildRequest(state, index, answer, startedAt)

	sendStarted := time.Now()
	var resp *SubmissionResponse
	err := retry.Do(ctx, "answer_submission",
		retry.Policy{
			MaxAttempts:    c.config.SubmitMaxAttempts,
			InitialDelay:   c.config.SubmitRetryDelay,
			Multiplier:     1,
			AttemptTimeout: c.config.SubmitTimeout,
		},
		func(ctx context.Context) error {
			r, sendErr := c.sender.Send(ctx, req)
			if sendErr != nil {
				return sendErr
			}
			if !r.Success {
				rejection := fmt.Errorf("сервер отклонил заявку: %s", r.Error)
				if r.Terminal {
					return retry.Permanent(rejection)
				}
				return rejection
			}
			resp = r
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("отправка ответа на вопрос %d: %w", index, err)
	}
	networkElapsed := time.Since(sendStarted)

	outcome := QuestionOutcome{
		Index:       index,
		IsCorrect:   resp.IsCorrect,
		TimedOut:    answer == nil,
		Points:      resp.Score.Points,
		StreakAfter: resp.Score.CurrentStreak,
	}

	c.mu.Lock()
	c.outcomes[index] = outcome
	c.mu.Unlock()

	// Серверные очки и стрик принимаются как истина
	c.store.Update(func(s *GameState) {
		s.Score += resp.Score.Points
		s.Streak = resp.Score.CurrentStreak
		s.TimeRemaining = 0
	})

	c.revealPause(ctx, networkElapsed)
	c.advance(ctx, state, index)

	return &outcome, nil
}

// buildRequest формирует заявку с нормализацией заявленного окна:
// неправдоподобно быстрый ответ растягивается минимум до секунды,
// таймаут заявляет ровно полную длительность раунда. Нормализация
// выравнивает форму запроса и не обходит серверную проверку тайминга.
func (c *AnswerSubmissionCoordinator) buildRequest(state *GameState, index int, answer *string, startedAt time.Time) *SubmissionRequest {
	endMs := time.Now().UnixMilli()
	startMs := startedAt.UnixMilli()

	if answer == nil {
		startMs = endMs - c.config.RoundDuration.Milliseconds()
	} else if endMs-startMs < 1000 {
		startMs = endMs - 1000
	}

	req := &SubmissionRequest{
		SessionID:      state.SessionID,
		Answer:         answer,
		StartTime:      startMs,
		EndTime:        endMs,
		Identity:       state.PlayerAddress,
		IsLastQuestion: index == len(state.Questions)-1,
	}
	if q := state.CurrentQuestion(); q != nil {
		req.QuestionID = q.ID
	}
	if req.IsLastQuestion {
		stats := c.estimateFinalStats()
		req.FinalStats = &stats
	}
	return req
}

// estimateFinalStats - клиентская оценка итогов до учета последнего ответа.
// Сервер пересчитывает итоги сам; оценка нужна только для формы запроса.
func (c *AnswerSubmissionCoordinator) estimateFinalStats() FinalStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return aggregateOutcomes(c.outcomes)
}

// revealPause выдерживает паузу показа правильного ответа: номинальная
// задержка минус уже потраченное на сеть время, но не меньше нижней границы
func (c *AnswerSubmissionCoordinator) revealPause(ctx context.Context, networkElapsed time.Duration) {
	wait := c.config.RevealDelay - networkElapsed
	if wait < c.config.MinRevealWait {
		wait = c.config.MinRevealWait
	}
	c.sleep(ctx, wait)
}

// advance переводит сессию к следующему вопросу либо завершает ее
func (c *AnswerSubmissionCoordinator) advance(ctx context.Context, state *GameState, index int) {
	if index < len(state.Questions)-1 {
		c.store.Update(func(s *GameState) {
			s.CurrentIndex = index + 1
			s.TimeRemaining = c.config.RoundDuration.Seconds()
		})
		c.StartQuestion(ctx)
		return
	}

	c.mu.Lock()
	stats := aggregateOutcomes(c.outcomes)
	finalize := c.onFinalize
	c.mu.Unlock()

	c.store.Update(func(s *GameState) {
		s.Status = GameStatusCompleted
	})

	if finalize != nil {
		finalize(stats)
	}
}

// Outcomes возвращает зафиксированные исходы в порядке индексов вопросов
func (c *AnswerSubmissionCoordinator) Outcomes() []QuestionOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]QuestionOutcome, 0, len(c.outcomes))
	for i := 0; ; i++ {
		outcome, ok := c.outcomes[i]
		if !ok {
			break
		}
		result = append(result, outcome)
	}
	return result
}

// aggregateOutcomes сводит исходы в итоговые агрегаты: сумма очков,
// число правильных и самый длинный непрерывный ряд правильных ответов
func aggregateOutcomes(outcomes map[int]QuestionOutcome) FinalStats {
	stats := FinalStats{TotalQuestions: len(outcomes)}

	run := 0
	for i := 0; ; i++ {
		outcome, ok := outcomes[i]
		if !ok {
			break
		}
		stats.FinalScore += outcome.Points
		if outcome.IsCorrect {
			stats.CorrectCount++
			run++
			if run > stats.BestStreak {
				stats.BestStreak = run
			}
		} else {
			run = 0
		}
	}
	return stats
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
