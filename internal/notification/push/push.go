// Package push fans stored notifications out to live listeners. Push
// delivery is best-effort: a failed or missed push changes nothing, because
// the stored copy is the source of truth and clients reconcile from it.
package push

import (
	"context"

	"civreg/internal/notification/models"
	"civreg/pkg/domain"
)

// Broker delivers notifications to connected subscribers of a user.
type Broker interface {
	// Publish sends the notification to current subscribers. No subscriber is
	// not an error.
	Publish(ctx context.Context, n *models.Notification) error

	// Subscribe returns a channel of notifications addressed to the user and
	// a cancel function that releases the subscription. The channel is closed
	// on cancel. Slow consumers may miss messages rather than block the
	// publisher.
	Subscribe(ctx context.Context, userID domain.UserID) (<-chan *models.Notification, func(), error)

	Close() error
}
