package gamesession

import (
	"time"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
)

// Constants for default values
const (
	DefaultQuestionCount = 10
	DefaultRoundSeconds  = 15
)

// Config содержит настройки движка игровых сессий
type Config struct {
	// Параметры раунда
	RoundDuration time.Duration // Длительность одного вопроса
	Tolerance     time.Duration // Допуск на расхождение часов/сети при проверке тайминга
	QuestionCount int           // Количество вопросов в сессии по умолчанию

	// Параметры отправки ответа
	SubmitTimeout     time.Duration // Таймаут одного запроса отправки
	SubmitMaxAttempts int           // Всего попыток отправки (включая первую)
	SubmitRetryDelay  time.Duration // Фиксированная пауза между попытками

	// Параметры создания сессии
	CreateMaxAttempts    int           // Всего попыток запроса вопросов
	CreateInitialBackoff time.Duration // Стартовая задержка перед второй попыткой
	CreateMaxBackoff     time.Duration // Потолок экспоненциального роста
	CreateAttemptTimeout time.Duration // Таймаут одной попытки

	// Прочее
	ResetCooldown time.Duration // Минимальный интервал между сбросами сессии
	RevealDelay   time.Duration // Номинальная пауза показа правильного ответа
	MinRevealWait time.Duration // Нижняя граница паузы показа
	TickInterval  time.Duration // Шаг тика обратного отсчета
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		RoundDuration:        DefaultRoundSeconds * time.Second,
		Tolerance:            500 * time.Millisecond,
		QuestionCount:        DefaultQuestionCount,
		SubmitTimeout:        8 * time.Second,
		SubmitMaxAttempts:    3,
		SubmitRetryDelay:     1 * time.Second,
		CreateMaxAttempts:    3,
		CreateInitialBackoff: 500 * time.Millisecond,
		CreateMaxBackoff:     4 * time.Second,
		CreateAttemptTimeout: 30 * time.Second,
		ResetCooldown:        3 * time.Second,
		RevealDelay:          2 * time.Second,
		MinRevealWait:        1 * time.Second,
		TickInterval:         100 * time.Millisecond,
	}
}

// MaxPoints возвращает потолок очков за один вопрос:
// одно очко за каждую сэкономленную секунду раунда.
func (c *Config) MaxPoints() int {
	return int(c.RoundDuration / time.Second)
}

// GameStatus представляет статус рабочего состояния сессии
type GameStatus string

const (
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
	GameStatusCancelled GameStatus = "cancelled"
)

// GameState - рабочее состояние одной сессии. Снапшот неизменяем после
// публикации: каждая мутация создает новый снапшот целиком.
type GameState struct {
	SessionID     string            `json:"session_id"`
	PlayerAddress string            `json:"player_address"`
	Questions     []entity.Question `json:"questions"`
	CurrentIndex  int               `json:"current_index"`
	TimeRemaining float64           `json:"time_remaining"`
	Score         int               `json:"score"`
	Streak        int               `json:"streak"`
	Status        GameStatus        `json:"status"`
	StartTime     time.Time         `json:"start_time"`
}

// CurrentQuestion возвращает текущий вопрос или nil, если сессия за границей набора
func (s *GameState) CurrentQuestion() *entity.Question {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentIndex]
}

// IsLastQuestion сообщает, является ли текущий вопрос последним
func (s *GameState) IsLastQuestion() bool {
	return s.CurrentIndex == len(s.Questions)-1
}

// Clone возвращает копию состояния для безопасной мутации перед публикацией
func (s *GameState) Clone() *GameState {
	dup := *s
	dup.Questions = make([]entity.Question, len(s.Questions))
	copy(dup.Questions, s.Questions)
	return &dup
}

// ScoreResult - результат расчета очков за один вопрос
type ScoreResult struct {
	Points          int `json:"points"`
	MaxPoints       int `json:"max_points"`
	ResultingStreak int `json:"resulting_streak"`
}

// FinalStats - итоговые агрегаты завершенной сессии
type FinalStats struct {
	FinalScore     int `json:"final_score"`
	CorrectCount   int `json:"correct_count"`
	BestStreak     int `json:"best_streak"`
	TotalQuestions int `json:"total_questions"`
}
