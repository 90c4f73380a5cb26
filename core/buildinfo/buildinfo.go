package buildinfo

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/gallerybot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/gallerybot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/gallerybot/core/buildinfo.Date=2025-08-30T12:00:00Z'
//
// Default values are useful for local dev.
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders the build identity for version output.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}

// Instance identifies this process in logs. It is stable for the process lifetime.
var Instance = sync.OnceValue(func() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString())
})
