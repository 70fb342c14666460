package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/repository"
	"github.com/STKYFNGRS/trivia-box-api/internal/service/gamesession"
)

// AchievementService обрабатывает итоги завершенных сессий. Содержательные
// правила достижений живут снаружи; здесь только граница вызова: фиксация
// факта разблокировки по ключу игрок+достижение. Вызывается fire-and-forget,
// любой сбой логируется и не влияет на завершение сессии.
type AchievementService struct {
	playerRepo repository.PlayerRepository
	cacheRepo  repository.CacheRepository
}

// NewAchievementService создает сервис обработки достижений
func NewAchievementService(playerRepo repository.PlayerRepository, cacheRepo repository.CacheRepository) *AchievementService {
	return &AchievementService{playerRepo: playerRepo, cacheRepo: cacheRepo}
}

// ProcessSessionStats реализует AchievementNotifier
func (s *AchievementService) ProcessSessionStats(ctx context.Context, playerAddress string, stats gamesession.FinalStats) {
	if playerAddress == "" {
		return
	}

	for _, name := range unlockedBy(stats) {
		key := fmt.Sprintf("achievement:%s:%s", playerAddress, name)
		// SetNX: достижение разблокируется один раз, повтор — no-op
		fresh, err := s.cacheRepo.SetNX(key, time.Now().Unix(), 0)
		if err != nil {
			log.Printf("[AchievementService] WARNING: фиксация достижения %s для %s: %v", name, playerAddress, err)
			continue
		}
		if fresh {
			log.Printf("[AchievementService] Игрок %s разблокировал %s", playerAddress, name)
		}
	}
}

// unlockedBy возвращает имена достижений, которые дают итоги сессии
func unlockedBy(stats gamesession.FinalStats) []string {
	var unlocked []string
	if stats.TotalQuestions > 0 && stats.CorrectCount == stats.TotalQuestions {
		unlocked = append(unlocked, "perfect_game")
	}
	if stats.BestStreak >= 5 {
		unlocked = append(unlocked, "streak_5")
	}
	if stats.BestStreak >= 10 {
		unlocked = append(unlocked, "streak_10")
	}
	return unlocked
}
