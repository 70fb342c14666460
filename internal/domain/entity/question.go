package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет один вопрос раунда
type Question struct {
	ID               string      `gorm:"primaryKey;type:uuid" json:"id"`
	Content          string      `gorm:"size:500;not null" json:"content"`
	CorrectAnswer    string      `gorm:"size:255;not null" json:"-"` // Скрыто от клиента
	IncorrectAnswers StringArray `gorm:"type:jsonb;not null" json:"incorrect_answers"`
	Difficulty       string      `gorm:"size:16;not null;default:'medium'" json:"difficulty"`
	Category         string      `gorm:"size:64;not null;index" json:"category"`
	CreatedAt        time.Time   `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsCorrect проверяет, совпадает ли ответ с правильным
func (q *Question) IsCorrect(answer string) bool {
	return answer == q.CorrectAnswer
}

// AllAnswers возвращает полный набор вариантов (правильный + неправильные)
func (q *Question) AllAnswers() []string {
	answers := make([]string, 0, len(q.IncorrectAnswers)+1)
	answers = append(answers, q.CorrectAnswer)
	answers = append(answers, q.IncorrectAnswers...)
	return answers
}

// IsValidAnswer проверяет, что ответ входит в набор вариантов вопроса
func (q *Question) IsValidAnswer(answer string) bool {
	if answer == q.CorrectAnswer {
		return true
	}
	for _, a := range q.IncorrectAnswers {
		if a == answer {
			return true
		}
	}
	return false
}
