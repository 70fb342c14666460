package entity

import (
	"time"
)

// PlayerResponse представляет ответ игрока на один вопрос сессии.
// Инвариант: не больше одной записи на (session_id, question_id, player_address) —
// обеспечивается уникальным индексом в БД.
type PlayerResponse struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionID       string    `gorm:"type:uuid;not null;index:idx_session_question_player,unique" json:"session_id"`
	QuestionID      string    `gorm:"type:uuid;not null;index:idx_session_question_player,unique" json:"question_id"`
	PlayerAddress   string    `gorm:"size:64;not null;index:idx_session_question_player,unique" json:"player_address"`
	Answer          *string   `gorm:"size:255" json:"answer"` // NULL = таймаут
	IsCorrect       bool      `gorm:"not null" json:"is_correct"`
	PointsEarned    int       `gorm:"not null;default:0" json:"points_earned"`
	PotentialPoints int       `gorm:"not null;default:0" json:"potential_points"`
	StreakCount     int       `gorm:"not null;default:0" json:"streak_count"`
	TimeRemaining   float64   `gorm:"not null;default:0" json:"time_remaining"`
	ResponseTimeMs  int64     `gorm:"not null" json:"response_time_ms"`
	AnsweredAt      time.Time `json:"answered_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (PlayerResponse) TableName() string {
	return "player_responses"
}

// IsTimeout сообщает, был ли ответ таймаутом (игрок не ответил)
func (r *PlayerResponse) IsTimeout() bool {
	return r.Answer == nil
}
