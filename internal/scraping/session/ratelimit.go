// internal/scraping/session/ratelimit.go
package session

import (
	"context"
	"sync"
	"time"
)

// windowLimiter bloqueia o chamador para garantir no máximo `limit` chamadas
// dentro de qualquer janela deslizante de `window`. Chamadas nunca são
// descartadas, apenas atrasadas.
type windowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
}

func newWindowLimiter(limit int, window time.Duration) *windowLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &windowLimiter{limit: limit, window: window}
}

// Wait bloqueia até haver vaga na janela corrente ou o contexto ser cancelado.
func (l *windowLimiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()

		// Descarta carimbos fora da janela.
		cut := 0
		for cut < len(l.stamps) && now.Sub(l.stamps[cut]) >= l.window {
			cut++
		}
		l.stamps = l.stamps[cut:]

		if len(l.stamps) < l.limit {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.window - now.Sub(l.stamps[0])
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
