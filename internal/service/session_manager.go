package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
	"github.com/STKYFNGRS/trivia-box-api/internal/domain/repository"
	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
	"github.com/STKYFNGRS/trivia-box-api/internal/pkg/retry"
	"github.com/STKYFNGRS/trivia-box-api/internal/service/gamesession"
)

const (
	creationLockKeyPrefix = "session:creating:"
	creationLockTTL       = 2 * time.Minute
)

// AchievementNotifier принимает итоги завершенной сессии для обработки
// достижений. Вызывается fire-and-forget после фиксации результатов.
type AchievementNotifier interface {
	ProcessSessionStats(ctx context.Context, playerAddress string, stats gamesession.FinalStats)
}

// StartSessionParams - параметры запуска новой сессии
type StartSessionParams struct {
	PlayerAddress string
	Category      string
	Difficulty    string
}

// SessionLifecycleManager управляет жизненным циклом игровых сессий:
// создание с ретраями против провайдера вопросов, сброс с best-effort
// очисткой и завершение с запуском обработки достижений. Состояния живых
// сессий публикуются в реестре, по одному хранилищу на сессию: игрок
// видит только собственную сессию. Создание защищено эксклюзивным флагом
// на игрока: второй одновременный вызов либо получает уже готовое
// состояние, либо ErrSessionBusy — вторая загрузка вопросов не начинается
// никогда.
type SessionLifecycleManager struct {
	config       *gamesession.Config
	provider     repository.QuestionProvider
	sessionRepo  repository.SessionRepository
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository
	registry     *gamesession.SessionRegistry
	achievements AchievementNotifier

	mu        sync.Mutex
	lastReset map[string]time.Time // адрес игрока -> момент последнего сброса
}

// NewSessionLifecycleManager создает менеджер жизненного цикла сессий
func NewSessionLifecycleManager(
	config *gamesession.Config,
	provider repository.QuestionProvider,
	sessionRepo repository.SessionRepository,
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
	registry *gamesession.SessionRegistry,
	achievements AchievementNotifier,
) *SessionLifecycleManager {
	return &SessionLifecycleManager{
		config:       config,
		provider:     provider,
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
		registry:     registry,
		achievements: achievements,
		lastReset:    make(map[string]time.Time),
	}
}

// StartSession создает новую сессию: берет эксклюзивный флаг создания,
// запрашивает вопросы с ретраями и публикует начальное состояние в реестре.
// Если у игрока уже есть активная сессия, возвращается она — не ошибка.
// Чужие сессии невидимы и не затрагиваются.
func (m *SessionLifecycleManager) StartSession(ctx context.Context, params StartSessionParams) (*gamesession.GameState, error) {
	if current := m.registry.StateByPlayer(params.PlayerAddress); current != nil && current.Status == gamesession.GameStatusActive {
		return current, nil
	}

	lockKey := creationLockKeyPrefix + params.PlayerAddress
	acquired, err := m.cacheRepo.SetNX(lockKey, "1", creationLockTTL)
	if err != nil {
		// Кеш недоступен — создание важнее взаимного исключения
		log.Printf("[SessionManager] WARNING: не удалось взять флаг создания: %v", err)
	} else if !acquired {
		return nil, apperrors.ErrSessionBusy
	}
	// Флаг снимается всегда, даже при провале создания: свежая попытка
	// должна быть возможна сразу
	defer func() {
		if delErr := m.cacheRepo.Delete(lockKey); delErr != nil {
			log.Printf("[SessionManager] WARNING: не удалось снять флаг создания: %v", delErr)
		}
	}()

	questions, err := m.fetchQuestions(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSessionCreationFailed, err)
	}

	// Вопросы сохраняются до сессии: без них сервер не сможет проверить ответы
	if err := m.questionRepo.SaveBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("%w: сохранение вопросов: %v", apperrors.ErrSessionCreationFailed, err)
	}

	session := &entity.GameSession{
		ID:            uuid.New().String(),
		PlayerAddress: params.PlayerAddress,
		Status:        entity.SessionStatusActive,
		QuestionIDs:   questionIDs(questions),
		QuestionCount: len(questions),
		CurrentIndex:  0,
		PlayerCount:   1,
		StartedAt:     time.Now(),
	}
	if err := m.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: сохранение сессии: %v", apperrors.ErrSessionCreationFailed, err)
	}

	state := &gamesession.GameState{
		SessionID:     session.ID,
		PlayerAddress: params.PlayerAddress,
		Questions:     questions,
		CurrentIndex:  0,
		TimeRemaining: m.config.RoundDuration.Seconds(),
		Status:        gamesession.GameStatusActive,
		StartTime:     session.StartedAt,
	}
	m.registry.Register(state)

	log.Printf("[SessionManager] Сессия %s создана для %s (%d вопросов)",
		session.ID, params.PlayerAddress, len(questions))
	return state, nil
}

// fetchQuestions запрашивает ровно config.QuestionCount вопросов с ретраями:
// до CreateMaxAttempts попыток, экспоненциальный рост задержки с потолком,
// пер-попыточный таймаут через производный контекст. Фатальный отказ
// провайдера (ошибка валидации запроса) попытки не повторяет.
func (m *SessionLifecycleManager) fetchQuestions(ctx context.Context, params StartSessionParams) ([]entity.Question, error) {
	var questions []entity.Question
	err := retry.Do(ctx, "session_creation",
		retry.Policy{
			MaxAttempts:    m.config.CreateMaxAttempts,
			InitialDelay:   m.config.CreateInitialBackoff,
			Multiplier:     2,
			MaxDelay:       m.config.CreateMaxBackoff,
			AttemptTimeout: m.config.CreateAttemptTimeout,
		},
		func(ctx context.Context) error {
			fetched, fetchErr := m.provider.FetchQuestions(ctx, repository.QuestionRequest{
				Category:   params.Category,
				Difficulty: params.Difficulty,
				Count:      m.config.QuestionCount,
			})
			if fetchErr != nil {
				if errors.Is(fetchErr, apperrors.ErrValidation) {
					return retry.Permanent(fetchErr)
				}
				return fetchErr
			}
			questions = fetched
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// CurrentState возвращает текущий снапшот сессии игрока (nil, если сессии
// нет). Используется для ресинка клиента после переподключения.
func (m *SessionLifecycleManager) CurrentState(playerAddress string) *gamesession.GameState {
	return m.registry.StateByPlayer(playerAddress)
}

// RecordAnswerOutcome применяет авторитетный результат учета ответа к
// опубликованному состоянию сессии: серверные очки и стрик принимаются как
// истина, индекс продвигается либо сессия помечается завершенной.
// Подписчики (websocket, ресинк) видят новый снапшот сразу.
func (m *SessionLifecycleManager) RecordAnswerOutcome(sessionID string, points, streak int, isLast bool) {
	store := m.registry.Store(sessionID)
	if store == nil {
		log.Printf("[SessionManager] Исход для неопубликованной сессии %s пропущен", sessionID)
		return
	}
	store.Update(func(s *gamesession.GameState) {
		s.Score += points
		s.Streak = streak
		if isLast {
			s.Status = gamesession.GameStatusCompleted
			s.TimeRemaining = 0
		} else {
			s.CurrentIndex++
			s.TimeRemaining = m.config.RoundDuration.Seconds()
		}
	})
}

// Reset сбрасывает текущую сессию игрока. Защищен кулдауном на игрока от
// дублирующих одновременных сбросов; повторный вызов внутри кулдауна —
// тихий no-op. Удаление в хранилище best-effort: публикация в реестре
// снимается всегда. Чужие сессии не затрагиваются.
func (m *SessionLifecycleManager) Reset(ctx context.Context, playerAddress string) {
	m.mu.Lock()
	if time.Since(m.lastReset[playerAddress]) < m.config.ResetCooldown {
		m.mu.Unlock()
		log.Printf("[SessionManager] Сброс для %s пропущен: кулдаун не истек", playerAddress)
		return
	}
	m.lastReset[playerAddress] = time.Now()
	m.mu.Unlock()

	state := m.registry.StateByPlayer(playerAddress)
	if state == nil {
		return
	}

	if err := m.sessionRepo.Delete(ctx, state.SessionID); err != nil {
		log.Printf("[SessionManager] WARNING: best-effort удаление сессии %s не удалось: %v",
			state.SessionID, err)
	}
	if err := m.cacheRepo.Delete(creationLockKeyPrefix + playerAddress); err != nil {
		log.Printf("[SessionManager] WARNING: снятие флага создания при сбросе: %v", err)
	}

	m.registry.Remove(state.SessionID)
}

// EndSession завершает сессию: переводит статус в completed и после
// фиксации запускает обработку достижений fire-and-forget — ее провал
// не откатывает и не блокирует завершение. Вызывается сервисом начисления
// очков после учета последнего ответа.
func (m *SessionLifecycleManager) EndSession(ctx context.Context, sessionID, playerAddress string, stats gamesession.FinalStats) error {
	if err := m.sessionRepo.TransitionStatus(ctx, sessionID, entity.SessionStatusActive, entity.SessionStatusCompleted); err != nil {
		return fmt.Errorf("завершение сессии %s: %w", sessionID, err)
	}

	if m.achievements != nil {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[SessionManager] CRITICAL: паника в обработке достижений: %v", r)
				}
			}()
			achCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			m.achievements.ProcessSessionStats(achCtx, playerAddress, stats)
		}()
	}

	log.Printf("[SessionManager] Сессия %s завершена: очки=%d, правильных=%d, лучший стрик=%d",
		sessionID, stats.FinalScore, stats.CorrectCount, stats.BestStreak)
	return nil
}

func questionIDs(questions []entity.Question) entity.StringArray {
	ids := make(entity.StringArray, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}
