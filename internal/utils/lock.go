package utils

import "os"

// IsDocker reports whether the process runs inside the official container image,
// where the scheduler handles mutual exclusion and no lock file is needed
func IsDocker() bool {
	return os.Getenv("IN_DOCKER") != ""
}

// LockExists reports whether another run holds the lock file
func LockExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AcquireLock writes the lock file marking a run in progress
func AcquireLock(path string) error {
	return os.WriteFile(path, []byte("locked"), 0644)
}

// ReleaseLock removes the lock file if present
func ReleaseLock(path string) {
	if LockExists(path) {
		os.Remove(path)
	}
}
