package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/STKYFNGRS/trivia-box-api/internal/service"
)

// LeaderboardHandler обрабатывает запросы таблицы лидеров
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

// NewLeaderboardHandler создает новый обработчик таблицы лидеров
func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// GetLeaderboard возвращает страницу таблицы лидеров
// GET /api/leaderboard?limit=10&offset=0
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.leaderboard.GetLeaderboard(c.Request.Context(), limit, offset)
	if err != nil {
		log.Printf("[LeaderboardHandler] Запрос таблицы провален: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load leaderboard"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// ExportLeaderboard экспортирует таблицу лидеров в Excel
// GET /api/leaderboard/export
func (h *LeaderboardHandler) ExportLeaderboard(c *gin.Context) {
	// Верхняя граница выгрузки; пагинация в файле не нужна
	page, err := h.leaderboard.GetLeaderboard(c.Request.Context(), 100, 0)
	if err != nil {
		log.Printf("[LeaderboardHandler] Экспорт таблицы провален: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export leaderboard"})
		return
	}

	filename := fmt.Sprintf("leaderboard_%s", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Лидеры"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[LeaderboardHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"Место", "Игрок", "Очки", "Лучший стрик", "Сыграно игр"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи заголовков: %v", err)
	}

	for i, entry := range page.Entries {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{
			entry.Rank,
			sanitizeForExcel(entry.PlayerAddress),
			entry.TotalPoints,
			entry.BestStreak,
			entry.GamesPlayed,
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[LeaderboardHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка при Flush: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
