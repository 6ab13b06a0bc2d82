// Package dedup tracks recently processed provider message ids so the
// webhook can drop redelivered events before any side effects run.
package dedup

import "context"

// Cache remembers message ids for long enough to cover the provider's
// retry window.
type Cache interface {
	// CheckAndMark records the id and reports whether it was already
	// present. The check and the mark are a single operation so two
	// concurrent deliveries of the same id cannot both pass.
	CheckAndMark(ctx context.Context, messageID string) (seen bool, err error)
}
