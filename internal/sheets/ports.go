// Package sheets defines the cloud sync ports. Records travel as opaque
// JSON documents keyed by household and record key; every push replaces the
// whole document.
package sheets

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("sync backend not configured")

// Ports for outbound adapters.
type (
	// Pusher writes the full document for one household record.
	Pusher interface {
		Push(ctx context.Context, household, key string, payload []byte) error
	}

	// Puller reads the last pushed document; ok is false when none exists.
	Puller interface {
		Pull(ctx context.Context, household, key string) (payload []byte, ok bool, err error)
	}

	Syncer interface {
		Pusher
		Puller
	}
)
