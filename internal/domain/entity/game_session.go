package entity

import (
	"time"
)

// SessionStatus представляет статус игровой сессии
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// GameSession представляет один сыгранный раунд из N последовательных вопросов,
// привязанный к игроку и фиксированному набору вопросов
type GameSession struct {
	ID            string        `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerAddress string        `gorm:"size:64;not null;index" json:"player_address"`
	Status        SessionStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	QuestionIDs   StringArray   `gorm:"type:jsonb;not null" json:"question_ids"`
	QuestionCount int           `gorm:"not null" json:"question_count"`
	CurrentIndex  int           `gorm:"not null;default:0" json:"current_index"`
	Score         int           `gorm:"not null;default:0" json:"score"`
	CurrentStreak int           `gorm:"not null;default:0" json:"current_streak"`
	BestStreak    int           `gorm:"not null;default:0" json:"best_streak"`
	PlayerCount   int           `gorm:"not null;default:1" json:"player_count"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (GameSession) TableName() string {
	return "game_sessions"
}

// IsTerminal сообщает, находится ли сессия в конечном статусе
func (s *GameSession) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода статуса.
// Переходы только вперед: pending -> active -> {completed|cancelled}.
func (s *GameSession) CanTransitionTo(next SessionStatus) bool {
	switch s.Status {
	case SessionStatusPending:
		return next == SessionStatusActive || next == SessionStatusCancelled
	case SessionStatusActive:
		return next == SessionStatusCompleted || next == SessionStatusCancelled
	default:
		return false
	}
}

// IsLastQuestion проверяет, указывает ли индекс на последний вопрос сессии
func (s *GameSession) IsLastQuestion(index int) bool {
	return index == s.QuestionCount-1
}
