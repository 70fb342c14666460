package dto

// StartSessionRequest представляет запрос на создание сессии
type StartSessionRequest struct {
	Category   string `json:"category" binding:"omitempty,max=64"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

// FinalStatsPayload - клиентская оценка итогов, передается только на
// последнем вопросе; сервер пересчитывает итоги сам и оценке не доверяет
type FinalStatsPayload struct {
	FinalScore     int `json:"final_score"`
	CorrectCount   int `json:"correct_count"`
	BestStreak     int `json:"best_streak"`
	TotalQuestions int `json:"total_questions"`
}

// SubmitAnswerRequest представляет заявку на учет ответа.
// Идентичность игрока берется из токена, не из тела.
type SubmitAnswerRequest struct {
	SessionID      string             `json:"session_id" binding:"required,uuid"`
	QuestionID     string             `json:"question_id" binding:"required,uuid"`
	Answer         *string            `json:"answer"` // null = таймаут
	StartTime      int64              `json:"start_time" binding:"required"`
	EndTime        int64              `json:"end_time" binding:"required"`
	IsLastQuestion bool               `json:"is_last_question"`
	FinalStats     *FinalStatsPayload `json:"final_stats,omitempty"`
}

// ScorePayload - авторитетные очки в ответе сервера
type ScorePayload struct {
	Points        int `json:"points"`
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`
}

// SubmitAnswerResponse представляет ответ сервера на заявку
type SubmitAnswerResponse struct {
	Success         bool         `json:"success"`
	IsCorrect       bool         `json:"is_correct"`
	CorrectAnswer   string       `json:"correct_answer"`
	Score           ScorePayload `json:"score"`
	PotentialPoints int          `json:"potential_points"`
	Duplicate       bool         `json:"duplicate,omitempty"`
}
