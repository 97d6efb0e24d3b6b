// Copyright (c) 2026 Anvil Works
// SPDX-License-Identifier: GPL-3.0-or-later

package joblog

import (
	"os"
	"os/user"
	"sync"
)

// IdentityProvider supplies the executing principal stored as a record's
// actor. The default implementation derives it from the process owner;
// services that act on behalf of logical principals inject their own.
type IdentityProvider interface {
	Actor() string
}

var (
	systemActorOnce sync.Once
	systemActor     string
)

type systemIdentity struct{}

// SystemIdentity identifies the actor as "user@host" from the process
// owner and hostname, computed once per process.
func SystemIdentity() IdentityProvider {
	return systemIdentity{}
}

func (systemIdentity) Actor() string {
	systemActorOnce.Do(func() {
		name := "unknown"
		if u, err := user.Current(); err == nil && u.Username != "" {
			name = u.Username
		} else if env := os.Getenv("USER"); env != "" {
			name = env
		}
		host := "localhost"
		if h, err := os.Hostname(); err == nil && h != "" {
			host = h
		}
		systemActor = name + "@" + host
	})
	return systemActor
}
