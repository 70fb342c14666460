package gamesession

import (
	"sync"
)

// SessionRegistry держит по одному GameStateStore на живую сессию и
// индексирует их по идентификатору сессии и по адресу игрока. Снапшоты
// разных игроков полностью изолированы: подписчик видит только мутации
// своей сессии, чужие создания и сбросы его не касаются.
type SessionRegistry struct {
	mu       sync.RWMutex
	stores   map[string]*GameStateStore // sessionID -> хранилище
	byPlayer map[string]string          // адрес игрока -> sessionID
}

// NewSessionRegistry создает пустой реестр сессий
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		stores:   make(map[string]*GameStateStore),
		byPlayer: make(map[string]string),
	}
}

// Register публикует начальное состояние новой сессии и возвращает ее
// хранилище. Предыдущая сессия того же игрока (завершенная или брошенная)
// снимается с учета, ее подписчики отключаются.
func (r *SessionRegistry) Register(state *GameState) *GameStateStore {
	store := NewGameStateStore()

	r.mu.Lock()
	if prevID, ok := r.byPlayer[state.PlayerAddress]; ok {
		if prev, exists := r.stores[prevID]; exists {
			delete(r.stores, prevID)
			defer prev.Reset()
		}
	}
	r.stores[state.SessionID] = store
	r.byPlayer[state.PlayerAddress] = state.SessionID
	r.mu.Unlock()

	store.Set(state)
	return store
}

// Store возвращает хранилище сессии или nil, если сессия не опубликована
func (r *SessionRegistry) Store(sessionID string) *GameStateStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stores[sessionID]
}

// StoreByPlayer возвращает хранилище текущей сессии игрока или nil
func (r *SessionRegistry) StoreByPlayer(address string) *GameStateStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessionID, ok := r.byPlayer[address]
	if !ok {
		return nil
	}
	return r.stores[sessionID]
}

// StateByPlayer возвращает снапшот текущей сессии игрока или nil
func (r *SessionRegistry) StateByPlayer(address string) *GameState {
	store := r.StoreByPlayer(address)
	if store == nil {
		return nil
	}
	return store.Get()
}

// Remove снимает сессию с учета и отключает ее подписчиков
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	store, ok := r.stores[sessionID]
	if ok {
		delete(r.stores, sessionID)
		for addr, id := range r.byPlayer {
			if id == sessionID {
				delete(r.byPlayer, addr)
				break
			}
		}
	}
	r.mu.Unlock()

	if ok {
		store.Reset()
	}
}
