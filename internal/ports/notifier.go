package ports

import (
	"context"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// Notifier presenta cada decisión del engine al usuario.
type Notifier interface {
	NotifyDecision(ctx context.Context, d *domain.Decision) error
}
