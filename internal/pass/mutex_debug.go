//go:build debug

package pass

import "github.com/sasha-s/go-deadlock"

// statsMutex is swapped for a deadlock-detecting mutex under -tags debug, so
// a misbehaving concurrent driver invocation panics with a held-lock stack
// trace instead of hanging silently.
type statsMutex = deadlock.Mutex
