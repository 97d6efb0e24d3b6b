// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package joblog

import "context"

// Store is the durable append target for records. Insert performs exactly
// one append and returns the identifier assigned to it, scoped to this
// insertion rather than read back from shared connection state. Failures
// must surface to the caller; implementations do not retry or buffer.
type Store interface {
	Insert(ctx context.Context, rec *Record) (int64, error)
}
