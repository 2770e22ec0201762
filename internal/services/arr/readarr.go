package arr

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/releases"
)

// Readarr targets wanted books
type Readarr struct {
	client   *client
	cfg      config.ArrConfig
	selector *releases.Selector
	logger   *logrus.Logger
}

// NewReadarr creates a Readarr flavor
func NewReadarr(cfg config.ArrConfig, selector *releases.Selector, logger *logrus.Logger) *Readarr {
	return &Readarr{
		client:   newClient(cfg.HostURL, cfg.APIKey, logger),
		cfg:      cfg,
		selector: selector,
		logger:   logger,
	}
}

func (r *Readarr) Name() string {
	return "readarr"
}

func (r *Readarr) DownloadDir() string {
	return r.cfg.DownloadDir
}

func (r *Readarr) SyncDisabled() bool {
	return r.cfg.DisableSync
}

// GetWanted retrieves one page of wanted books
func (r *Readarr) GetWanted(page, pageSize int, source string) (*models.WantedPage, error) {
	path, err := wantedPath(source)
	if err != nil {
		return nil, err
	}

	var wanted models.WantedPage
	if err := r.client.doGet(path, wantedQuery(page, pageSize, "title"), &wanted); err != nil {
		return nil, fmt.Errorf("failed to get wanted books: %w", err)
	}
	return &wanted, nil
}

// GetRecord retrieves a single book with its editions
func (r *Readarr) GetRecord(id int64) (*models.Record, error) {
	var record models.Record
	if err := r.client.doGet(idPath("/book", id), nil, &record); err != nil {
		return nil, fmt.Errorf("failed to get book %d: %w", id, err)
	}
	return &record, nil
}

// GetTracks returns a single pseudo-track for the book title, since books are
// matched as one file rather than a track list
func (r *Readarr) GetTracks(record *models.Record, releaseID int64) ([]models.Track, error) {
	return []models.Track{
		{
			ID:           record.ID,
			Title:        record.Title,
			MediumNumber: 1,
		},
	}, nil
}

// UpdateRecord writes back a modified book, used to drop monitoring
func (r *Readarr) UpdateRecord(record *models.Record) error {
	if err := r.client.doPut(idPath("/book", record.ID), record, nil); err != nil {
		return fmt.Errorf("failed to update book %d: %w", record.ID, err)
	}
	return nil
}

// ChooseRelease picks the book edition to search for
func (r *Readarr) ChooseRelease(record *models.Record) *models.Release {
	return r.selector.Choose(record.AllReleases())
}

// PostCommand queues a downloaded-books scan of the given path
func (r *Readarr) PostCommand(path string) (*models.Command, error) {
	body := map[string]string{
		"name": "DownloadedBooksScan",
		"path": path,
	}

	var command models.Command
	if err := r.client.doPost("/command", body, &command); err != nil {
		return nil, fmt.Errorf("failed to post import command: %w", err)
	}
	return &command, nil
}

// GetCommand retrieves the state of a queued command
func (r *Readarr) GetCommand(id int64) (*models.Command, error) {
	var command models.Command
	if err := r.client.doGet(idPath("/command", id), nil, &command); err != nil {
		return nil, fmt.Errorf("failed to get command %d: %w", id, err)
	}
	return &command, nil
}

// RetagFile is a no-op for books, which carry no embedded disc metadata worth
// rewriting
func (r *Readarr) RetagFile(path, artist, album string, disc int) error {
	return nil
}

// SystemStatus checks connectivity with the Readarr instance
func (r *Readarr) SystemStatus() error {
	var status map[string]interface{}
	if err := r.client.doGet("/system/status", nil, &status); err != nil {
		return fmt.Errorf("failed to reach readarr: %w", err)
	}
	return nil
}
