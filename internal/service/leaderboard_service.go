package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/repository"
)

const (
	leaderboardCacheKey = "leaderboard:top"
	leaderboardCacheTTL = 30 * time.Second
)

// LeaderboardEntry - строка таблицы лидеров
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	PlayerAddress string `json:"player_address"`
	TotalPoints   int64  `json:"total_points"`
	BestStreak    int    `json:"best_streak"`
	GamesPlayed   int    `json:"games_played"`
}

// LeaderboardPage - страница таблицы лидеров с общим количеством игроков
type LeaderboardPage struct {
	Entries []LeaderboardEntry `json:"entries"`
	Total   int64              `json:"total"`
}

// LeaderboardService отдает таблицу лидеров по суммарным очкам.
// Правила отображения остаются снаружи; здесь запрос и короткий кеш:
// таблица дергается часто, а отставание в полминуты для нее безвредно.
type LeaderboardService struct {
	playerRepo repository.PlayerRepository
	cacheRepo  repository.CacheRepository
}

// NewLeaderboardService создает сервис таблицы лидеров
func NewLeaderboardService(playerRepo repository.PlayerRepository, cacheRepo repository.CacheRepository) *LeaderboardService {
	return &LeaderboardService{playerRepo: playerRepo, cacheRepo: cacheRepo}
}

// GetLeaderboard возвращает страницу таблицы. Первая страница кешируется;
// недоступный кеш не мешает ответу из базы.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, limit, offset int) (*LeaderboardPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	useCache := offset == 0 && limit == 10
	if useCache {
		if cached, err := s.cacheRepo.Get(leaderboardCacheKey); err == nil {
			var page LeaderboardPage
			if jsonErr := json.Unmarshal([]byte(cached), &page); jsonErr == nil {
				return &page, nil
			}
		}
	}

	players, total, err := s.playerRepo.GetLeaderboard(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("запрос таблицы лидеров: %w", err)
	}

	page := &LeaderboardPage{
		Entries: make([]LeaderboardEntry, len(players)),
		Total:   total,
	}
	for i, p := range players {
		page.Entries[i] = LeaderboardEntry{
			Rank:          offset + i + 1,
			PlayerAddress: p.Address,
			TotalPoints:   p.TotalPoints,
			BestStreak:    p.BestStreak,
			GamesPlayed:   p.GamesPlayed,
		}
	}

	if useCache {
		if data, jsonErr := json.Marshal(page); jsonErr == nil {
			if cacheErr := s.cacheRepo.Set(leaderboardCacheKey, string(data), leaderboardCacheTTL); cacheErr != nil {
				log.Printf("[LeaderboardService] WARNING: кеширование таблицы: %v", cacheErr)
			}
		}
	}
	return page, nil
}
