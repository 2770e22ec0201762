package controllers

import (
	"sync"
	"time"

	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/services/slskd"
)

// GrabItem is one accepted peer directory queued for download, carrying
// everything the monitor and finalize stages need
type GrabItem struct {
	CreatorName string
	Release     *models.Release
	AlbumTitle  string
	// Dir is the local folder name under the slskd download directory
	Dir string
	// DiscNumber is set for single-track grabs so retagging can fix the medium
	DiscNumber int
	Username   string
	Directory  *slskd.Directory
}

// Stats summarizes one sweep for the status endpoint
type Stats struct {
	LastRun        time.Time `json:"last_run"`
	Running        bool      `json:"running"`
	WantedRecords  int       `json:"wanted_records"`
	Grabs          int       `json:"grabs"`
	FailedSearches int       `json:"failed_searches"`
	FailedImports  int       `json:"failed_imports"`
}

// RunStats tracks the most recent sweep, safe for concurrent reads from the
// status endpoint while a sweep runs
type RunStats struct {
	mu      sync.Mutex
	current Stats
}

// Start marks a sweep as in progress
func (s *RunStats) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Stats{
		LastRun: time.Now(),
		Running: true,
	}
}

// Finish marks a sweep as done with its counters
func (s *RunStats) Finish(wanted, grabs, failedSearches, failedImports int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Running = false
	s.current.WantedRecords = wanted
	s.current.Grabs = grabs
	s.current.FailedSearches = failedSearches
	s.current.FailedImports = failedImports
}

// Snapshot returns a copy safe to serialize
func (s *RunStats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
