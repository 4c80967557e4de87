//go:build !unix

package catalog

import (
	"errors"
	"os"
)

// Advisory locking is unix-only; elsewhere a single writer is assumed.
var errWouldBlock = errors.New("would block")

func tryLock(*os.File) error { return nil }

func unlock(*os.File) error { return nil }
