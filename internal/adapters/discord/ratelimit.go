package discord

import (
	"sync"
	"time"
)

// userLimiter: una búsqueda por usuario por ventana, para que el historial
// no se use de spam. Las entradas vencidas se barren en cada chequeo, así
// el mapa no crece con usuarios que buscaron una sola vez.
type userLimiter struct {
	mu   sync.Mutex
	next map[string]time.Time
	win  time.Duration
}

func newUserLimiter(window time.Duration) *userLimiter {
	return &userLimiter{next: map[string]time.Time{}, win: window}
}

func (l *userLimiter) Allow(userID string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, until := range l.next {
		if now.After(until) {
			delete(l.next, id)
		}
	}
	if until, ok := l.next[userID]; ok && now.Before(until) {
		return false
	}
	l.next[userID] = now.Add(l.win)
	return true
}
