package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/STKYFNGRS/trivia-box-api/internal/service/gamesession"
)

const (
	// Время, которое разрешено писать сообщение клиенту
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS для WS решается на уровне реверс-прокси
		return true
	},
}

// Hub транслирует снапшоты состояния сессии подключенным клиентам.
// Соединение подписывается на хранилище сессии своего игрока: чужие
// сессии клиенту не видны. Текущий снапшот приходит сразу при
// подключении, дальше — каждая мутация.
type Hub struct {
	registry *gamesession.SessionRegistry
}

// NewHub создает новый hub поверх реестра сессий
func NewHub(registry *gamesession.SessionRegistry) *Hub {
	return &Hub{registry: registry}
}

// ServeWS апгрейдит соединение и стримит снапшоты сессии игрока до
// отключения клиента. Без активной сессии подключаться не к чему.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, playerAddress string) {
	store := h.registry.StoreByPlayer(playerAddress)
	if store == nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WSHub] Ошибка апгрейда соединения: %v", err)
		return
	}

	updates := store.Subscribe()
	defer func() {
		store.Unsubscribe(updates)
		conn.Close()
	}()

	// Читающая горутина: только pong и обнаружение обрыва
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				// Хранилище сброшено: сессия закончилась
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			payload, err := json.Marshal(state)
			if err != nil {
				log.Printf("[WSHub] Ошибка сериализации снапшота: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
