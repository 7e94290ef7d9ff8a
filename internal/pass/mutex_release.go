//go:build !debug

package pass

import "sync"

// statsMutex is a plain mutex in release builds. See mutex_debug.go for the
// deadlock-detecting variant used under -tags debug.
type statsMutex = sync.Mutex
