package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
	"github.com/STKYFNGRS/trivia-box-api/internal/domain/repository"
	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
	"github.com/STKYFNGRS/trivia-box-api/internal/service/gamesession"
)

// SubmitRequest - заявка на учет ответа, уже прошедшая аутентификацию:
// PlayerAddress берется из токена, не из тела запроса
type SubmitRequest struct {
	SessionID     string
	QuestionID    string
	PlayerAddress string
	Answer        *string // nil = таймаут
	StartTime     int64   // Unix ms, заявлено клиентом
	EndTime       int64
	// Клиентский флаг последнего вопроса. Справочный: сервер выводит
	// последний вопрос из прогресса сессии и клиенту не доверяет.
	IsLastQuestion bool
}

// SubmitResult - авторитетный результат учета ответа
type SubmitResult struct {
	IsCorrect       bool
	CorrectAnswer   string
	Points          int
	PotentialPoints int
	CurrentStreak   int
	BestStreak      int
	LastQuestion    bool // Вопрос был последним в сессии, выведено сервером
	Duplicate       bool // Ответ уже был записан; возвращен первый исход
}

// SessionFinalizer завершает сессию после учета последнего ответа
type SessionFinalizer interface {
	EndSession(ctx context.Context, sessionID, playerAddress string, stats gamesession.FinalStats) error
}

// ScoreService - серверный авторитетный путь начисления очков. Клиентская
// оценка игнорируется полностью: тайминг проверяется валидатором, очки
// пересчитываются калькулятором, результат фиксируется одной логической
// единицей персистентности. Повторная заявка по тому же (сессия, вопрос,
// игрок) не начисляет очки второй раз — возвращается первый записанный исход.
type ScoreService struct {
	config       *gamesession.Config
	validator    *gamesession.TimingValidator
	calculator   *gamesession.ScoreCalculator
	sessionRepo  repository.SessionRepository
	questionRepo repository.QuestionRepository
	responseRepo repository.ResponseRepository
	playerRepo   repository.PlayerRepository
	finalizer    SessionFinalizer
}

// NewScoreService создает сервис начисления очков
func NewScoreService(
	config *gamesession.Config,
	validator *gamesession.TimingValidator,
	calculator *gamesession.ScoreCalculator,
	sessionRepo repository.SessionRepository,
	questionRepo repository.QuestionRepository,
	responseRepo repository.ResponseRepository,
	playerRepo repository.PlayerRepository,
	finalizer SessionFinalizer,
) *ScoreService {
	return &ScoreService{
		config:       config,
		validator:    validator,
		calculator:   calculator,
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		responseRepo: responseRepo,
		playerRepo:   playerRepo,
		finalizer:    finalizer,
	}
}

// ProcessSubmission проверяет и учитывает один ответ.
// Порядок: валидация полей -> проверка тайминга -> расчет очков (с допуском
// лимитера) -> единица персистентности (upsert игрока, запись ответа,
// атомарные инкременты агрегатов). Учет последнего вопроса сессии (выведен
// сервером из прогресса, не из клиентского флага) передает завершение
// менеджеру жизненного цикла.
func (s *ScoreService) ProcessSubmission(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := validateSubmitRequest(req); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("загрузка сессии %s: %w", req.SessionID, err)
	}
	if session.PlayerAddress != req.PlayerAddress {
		return nil, fmt.Errorf("%w: сессия принадлежит другому игроку", apperrors.ErrValidation)
	}
	if session.Status != entity.SessionStatusActive {
		return nil, fmt.Errorf("%w: сессия %s не активна (статус %s)",
			apperrors.ErrValidation, session.ID, session.Status)
	}
	if !containsID(session.QuestionIDs, req.QuestionID) {
		return nil, fmt.Errorf("%w: вопрос не входит в сессию", apperrors.ErrValidation)
	}

	// Последний ли это вопрос, сервер выводит из собственного прогресса
	// сессии: подделанный клиентский флаг не завершает сессию досрочно и
	// не оставляет ее висеть после настоящего последнего вопроса
	isLast := session.IsLastQuestion(session.CurrentIndex)
	if req.IsLastQuestion != isLast {
		log.Printf("[ScoreService] WARNING: клиентский флаг последнего вопроса расходится с сессией (session=%s index=%d count=%d)",
			session.ID, session.CurrentIndex, session.QuestionCount)
	}

	question, err := s.questionRepo.GetByID(ctx, req.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("загрузка вопроса %s: %w", req.QuestionID, err)
	}

	// Заявленное окно вне допуска отклоняется и учитывается как неправильный
	// ответ с нулевым остатком: наивная манипуляция временем обнуляет стрик
	timing := s.validator.Validate(req.StartTime, req.EndTime)
	isCorrect := timing.IsValid && req.Answer != nil && question.IsCorrect(*req.Answer)
	remaining := timing.RemainingTime
	if !timing.IsValid {
		log.Printf("[ScoreService] WARNING: %v (session=%s question=%s elapsed=%dms)",
			apperrors.ErrTimingInvalid, req.SessionID, req.QuestionID, req.EndTime-req.StartTime)
		remaining = 0
	}

	score, err := s.calculator.Calculate(ctx, req.PlayerAddress, remaining, isCorrect, session.CurrentStreak)
	if err != nil {
		return nil, err
	}

	result, err := s.persistOutcome(ctx, req, session, question, score, remaining, isCorrect)
	if err != nil {
		return nil, err
	}
	result.LastQuestion = isLast

	if isLast && !result.Duplicate {
		s.finalizeSession(ctx, session)
	}
	return result, nil
}

// persistOutcome выполняет единицу персистентности. Запись ответа идет
// первой: ее уникальный индекс — точка идемпотентности, инкременты агрегатов
// происходят только после успешной вставки.
func (s *ScoreService) persistOutcome(ctx context.Context, req SubmitRequest, session *entity.GameSession, question *entity.Question, score gamesession.ScoreResult, remaining float64, isCorrect bool) (*SubmitResult, error) {
	if err := s.playerRepo.Upsert(ctx, req.PlayerAddress); err != nil {
		return nil, fmt.Errorf("upsert игрока %s: %w", req.PlayerAddress, err)
	}

	response := &entity.PlayerResponse{
		SessionID:       req.SessionID,
		QuestionID:      req.QuestionID,
		PlayerAddress:   req.PlayerAddress,
		Answer:          req.Answer,
		IsCorrect:       isCorrect,
		PointsEarned:    score.Points,
		PotentialPoints: score.MaxPoints,
		StreakCount:     score.ResultingStreak,
		TimeRemaining:   remaining,
		ResponseTimeMs:  req.EndTime - req.StartTime,
		AnsweredAt:      time.Now(),
	}

	err := s.responseRepo.Save(ctx, response)
	if errors.Is(err, apperrors.ErrDuplicateSubmission) {
		return s.recordedOutcome(ctx, req, question, session)
	}
	if err != nil {
		return nil, fmt.Errorf("запись ответа: %w", err)
	}

	newIndex := session.CurrentIndex + 1
	if err := s.sessionRepo.UpdateProgress(ctx, session.ID, score.Points, score.ResultingStreak, newIndex); err != nil {
		return nil, fmt.Errorf("обновление сессии %s: %w", session.ID, err)
	}

	if score.Points > 0 {
		if err := s.playerRepo.AddPoints(ctx, req.PlayerAddress, score.Points); err != nil {
			return nil, fmt.Errorf("начисление очков игроку %s: %w", req.PlayerAddress, err)
		}
	}
	if score.ResultingStreak > session.BestStreak {
		if err := s.playerRepo.UpdateBestStreak(ctx, req.PlayerAddress, score.ResultingStreak); err != nil {
			return nil, fmt.Errorf("обновление лучшего стрика: %w", err)
		}
	}

	bestStreak := session.BestStreak
	if score.ResultingStreak > bestStreak {
		bestStreak = score.ResultingStreak
	}

	return &SubmitResult{
		IsCorrect:       response.IsCorrect,
		CorrectAnswer:   question.CorrectAnswer,
		Points:          score.Points,
		PotentialPoints: score.MaxPoints,
		CurrentStreak:   score.ResultingStreak,
		BestStreak:      bestStreak,
	}, nil
}

// recordedOutcome возвращает первый записанный исход для дубликата заявки
func (s *ScoreService) recordedOutcome(ctx context.Context, req SubmitRequest, question *entity.Question, session *entity.GameSession) (*SubmitResult, error) {
	recorded, err := s.responseRepo.GetBySessionQuestion(ctx, req.SessionID, req.QuestionID, req.PlayerAddress)
	if err != nil {
		return nil, fmt.Errorf("чтение записанного ответа: %w", err)
	}

	log.Printf("[ScoreService] Дубликат заявки (session=%s question=%s), возвращен первый исход",
		req.SessionID, req.QuestionID)
	return &SubmitResult{
		IsCorrect:       recorded.IsCorrect,
		CorrectAnswer:   question.CorrectAnswer,
		Points:          recorded.PointsEarned,
		PotentialPoints: recorded.PotentialPoints,
		CurrentStreak:   recorded.StreakCount,
		BestStreak:      session.BestStreak,
		Duplicate:       true,
	}, nil
}

// finalizeSession сводит итоги сессии из записанных ответов и передает
// завершение менеджеру жизненного цикла. Провал завершения логируется, но
// не откатывает уже записанный ответ.
func (s *ScoreService) finalizeSession(ctx context.Context, session *entity.GameSession) {
	stats := gamesession.FinalStats{}
	responses, err := s.responseRepo.GetBySession(ctx, session.ID)
	if err != nil {
		log.Printf("[ScoreService] WARNING: чтение ответов сессии %s для итогов: %v", session.ID, err)
	} else {
		stats = aggregateResponses(responses)
	}

	if s.finalizer != nil {
		if err := s.finalizer.EndSession(ctx, session.ID, session.PlayerAddress, stats); err != nil {
			log.Printf("[ScoreService] WARNING: завершение сессии %s не удалось: %v", session.ID, err)
			return
		}
	}
	if err := s.playerRepo.IncrementGamesPlayed(ctx, session.PlayerAddress); err != nil {
		log.Printf("[ScoreService] WARNING: инкремент games_played для %s: %v", session.PlayerAddress, err)
	}
}

func validateSubmitRequest(req SubmitRequest) error {
	switch {
	case req.SessionID == "":
		return fmt.Errorf("%w: session_id обязателен", apperrors.ErrValidation)
	case req.QuestionID == "":
		return fmt.Errorf("%w: question_id обязателен", apperrors.ErrValidation)
	case req.PlayerAddress == "":
		return fmt.Errorf("%w: identity обязателен", apperrors.ErrValidation)
	case req.EndTime == 0 || req.StartTime == 0:
		return fmt.Errorf("%w: заявленное окно ответа обязательно", apperrors.ErrValidation)
	}
	return nil
}

func containsID(ids entity.StringArray, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// aggregateResponses сводит записанные ответы сессии в итоговые агрегаты
func aggregateResponses(responses []entity.PlayerResponse) gamesession.FinalStats {
	stats := gamesession.FinalStats{TotalQuestions: len(responses)}
	run := 0
	for _, r := range responses {
		stats.FinalScore += r.PointsEarned
		if r.IsCorrect {
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
