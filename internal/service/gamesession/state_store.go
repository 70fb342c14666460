package gamesession

import (
	"log"
	"sync"
)

// GameStateStore хранит текущий снапшот рабочего состояния сессии и
// рассылает обновления подписчикам. Читатели всегда видят целостный
// снапшот: частичных обновлений не бывает, каждая мутация публикует
// новую копию состояния целиком.
type GameStateStore struct {
	mu          sync.RWMutex
	state       *GameState
	subscribers map[chan *GameState]struct{}
}

// NewGameStateStore создает пустое хранилище состояния
func NewGameStateStore() *GameStateStore {
	return &GameStateStore{
		subscribers: make(map[chan *GameState]struct{}),
	}
}

// Get возвращает текущий снапшот или nil, если сессия не инициализирована.
// Возвращаемое значение нельзя мутировать — для изменений используется Update.
func (s *GameStateStore) Get() *GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set заменяет состояние целиком и рассылает его подписчикам
func (s *GameStateStore) Set(state *GameState) {
	s.mu.Lock()
	s.state = state
	s.notifyLocked(state)
	s.mu.Unlock()
}

// Update применяет мутацию к копии текущего состояния и публикует результат.
// Если состояния еще нет, вызов игнорируется.
func (s *GameStateStore) Update(mutate func(state *GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return
	}

	next := s.state.Clone()
	mutate(next)
	s.state = next
	s.notifyLocked(next)
}

// Subscribe регистрирует подписчика и возвращает канал обновлений.
// Поздний подписчик сразу получает текущий снапшот, если он есть, —
// присоединившийся к идущей игре клиент не ждет следующей мутации.
func (s *GameStateStore) Subscribe() chan *GameState {
	ch := make(chan *GameState, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	if s.state != nil {
		ch <- s.state
	}
	s.mu.Unlock()

	return ch
}

// Unsubscribe снимает подписку и закрывает канал
func (s *GameStateStore) Unsubscribe(ch chan *GameState) {
	s.mu.Lock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// Reset очищает состояние и отключает всех подписчиков
func (s *GameStateStore) Reset() {
	s.mu.Lock()
	s.state = nil
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// notifyLocked рассылает снапшот без блокировки отправителя: медленный
// подписчик с переполненным буфером пропускает обновление, следующий
// доставленный снапшот все равно будет целостным.
func (s *GameStateStore) notifyLocked(state *GameState) {
	for ch := range s.subscribers {
		select {
		case ch <- state:
		default:
			log.Printf("[GameStateStore] WARNING: буфер подписчика переполнен, снапшот пропущен (session=%s)", state.SessionID)
		}
	}
}
