package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
	"github.com/STKYFNGRS/trivia-box-api/internal/domain/repository"
	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
)

// HTTPQuestionProvider реализует repository.QuestionProvider поверх внешнего
// сервиса генерации вопросов. Генерация/валидация (LLM) — его внутреннее дело,
// ядро видит только контракт "ровно count одобренных вопросов или ошибка".
type HTTPQuestionProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPQuestionProvider создает клиент провайдера вопросов
func NewHTTPQuestionProvider(baseURL, apiKey string, timeout time.Duration) *HTTPQuestionProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPQuestionProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// questionPayload - формат одного вопроса в ответе провайдера
type questionPayload struct {
	ID               string   `json:"id"`
	Content          string   `json:"content"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
}

// FetchQuestions запрашивает ровно req.Count вопросов заданной категории и сложности.
// Несовпадение количества — ошибка: ядро ретраит весь запрос целиком.
func (p *HTTPQuestionProvider) FetchQuestions(ctx context.Context, req repository.QuestionRequest) ([]entity.Question, error) {
	q := url.Values{}
	q.Set("category", req.Category)
	q.Set("difficulty", req.Difficulty)
	q.Set("count", strconv.Itoa(req.Count))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/questions?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build question request: %w", err)
	}
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		// Таймаут/обрыв — транзиентная ошибка, решение о ретрае за вызывающим
		return nil, fmt.Errorf("question provider request failed: %w: %v", apperrors.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[QuestionProvider] Провайдер вернул статус %d для category=%s count=%d",
			resp.StatusCode, req.Category, req.Count)
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("question provider returned %d: %w", resp.StatusCode, apperrors.ErrTransientNetwork)
		}
		return nil, fmt.Errorf("question provider returned %d: %w", resp.StatusCode, apperrors.ErrValidation)
	}

	var payload struct {
		Questions []questionPayload `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}

	if len(payload.Questions) != req.Count {
		// Контракт "ровно count" нарушен — пусть вызывающий ретраит
		return nil, fmt.Errorf("provider returned %d questions, requested %d: %w",
			len(payload.Questions), req.Count, apperrors.ErrTransientNetwork)
	}

	questions := make([]entity.Question, 0, len(payload.Questions))
	for _, qp := range payload.Questions {
		if qp.Content == "" || qp.CorrectAnswer == "" || len(qp.IncorrectAnswers) < 1 {
			return nil, fmt.Errorf("provider returned malformed question %q: %w", qp.ID, apperrors.ErrValidation)
		}
		questions = append(questions, entity.Question{
			ID:               qp.ID,
			Content:          qp.Content,
			CorrectAnswer:    qp.CorrectAnswer,
			IncorrectAnswers: qp.IncorrectAnswers,
			Difficulty:       qp.Difficulty,
			Category:         qp.Category,
		})
	}

	return questions, nil
}
