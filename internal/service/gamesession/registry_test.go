package gamesession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryState(sessionID, address string) *GameState {
	return &GameState{
		SessionID:     sessionID,
		PlayerAddress: address,
		Status:        GameStatusActive,
	}
}

func TestRegistry_IsolatesPlayers(t *testing.T) {
	registry := NewSessionRegistry()

	storeA := registry.Register(registryState("sess-a", "0xAAA"))
	storeB := registry.Register(registryState("sess-b", "0xBBB"))

	require.NotSame(t, storeA, storeB)
	assert.Equal(t, "0xAAA", registry.StateByPlayer("0xAAA").PlayerAddress)
	assert.Equal(t, "0xBBB", registry.StateByPlayer("0xBBB").PlayerAddress)
	assert.Same(t, storeA, registry.Store("sess-a"))
	assert.Same(t, storeB, registry.Store("sess-b"))

	// Мутация одной сессии не видна подписчикам другой
	updatesA := storeA.Subscribe()
	<-updatesA // начальный снапшот
	storeB.Update(func(s *GameState) { s.Score = 99 })

	select {
	case state := <-updatesA:
		t.Fatalf("подписчик sess-a получил чужой снапшот: %+v", state)
	default:
	}
	assert.Equal(t, 0, registry.StateByPlayer("0xAAA").Score)
}

func TestRegistry_RegisterReplacesPreviousSessionOfPlayer(t *testing.T) {
	registry := NewSessionRegistry()

	old := registry.Register(registryState("sess-old", "0xAAA"))
	updates := old.Subscribe()
	<-updates

	registry.Register(registryState("sess-new", "0xAAA"))

	_, ok := <-updates
	assert.False(t, ok, "подписчики прежней сессии отключены")
	assert.Nil(t, registry.Store("sess-old"))
	assert.Equal(t, "sess-new", registry.StateByPlayer("0xAAA").SessionID)
}

func TestRegistry_RemoveClosesSubscribers(t *testing.T) {
	registry := NewSessionRegistry()

	store := registry.Register(registryState("sess-a", "0xAAA"))
	updates := store.Subscribe()
	<-updates

	registry.Remove("sess-a")

	_, ok := <-updates
	assert.False(t, ok)
	assert.Nil(t, registry.Store("sess-a"))
	assert.Nil(t, registry.StateByPlayer("0xAAA"))
}

func TestRegistry_UnknownLookupsReturnNil(t *testing.T) {
	registry := NewSessionRegistry()

	assert.Nil(t, registry.Store("missing"))
	assert.Nil(t, registry.StoreByPlayer("0xnobody"))
	assert.Nil(t, registry.StateByPlayer("0xnobody"))
	registry.Remove("missing") // no-op
}
