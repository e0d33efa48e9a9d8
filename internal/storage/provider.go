// Package storage persists blocked-page snapshots so operators can inspect
// what the site served when it refused a request.
package storage

import "context"

// Provider writes one named snapshot. Implementations are best-effort
// diagnostics and must be safe for concurrent use.
type Provider interface {
	Save(ctx context.Context, name string, data []byte) error
}
