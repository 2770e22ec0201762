package arr

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/models"
)

// Flavor abstracts the differences between Lidarr and Readarr so the search
// pipeline can treat albums and books uniformly
type Flavor interface {
	// Name identifies the flavor in logs and state keys ("lidarr" or "readarr")
	Name() string
	// DownloadDir is the slskd download directory as seen by the media manager
	DownloadDir() string
	// SyncDisabled reports whether the import scan should be skipped
	SyncDisabled() bool

	GetWanted(page, pageSize int, source string) (*models.WantedPage, error)
	GetRecord(id int64) (*models.Record, error)
	GetTracks(record *models.Record, releaseID int64) ([]models.Track, error)
	UpdateRecord(record *models.Record) error
	ChooseRelease(record *models.Record) *models.Release

	// PostCommand queues an import scan of the given path
	PostCommand(path string) (*models.Command, error)
	GetCommand(id int64) (*models.Command, error)

	// RetagFile rewrites the file's metadata tags before import
	RetagFile(path, artist, album string, disc int) error

	SystemStatus() error
}

// BuildQuery builds the search text for a title. Single-character titles always
// get the creator prepended since they are useless on their own.
func BuildQuery(creator, title string, prepend bool) string {
	if len(title) == 1 || prepend {
		return creator + " " + title
	}
	return title
}

func wantedPath(source string) (string, error) {
	switch source {
	case config.SourceMissing:
		return "/wanted/missing", nil
	case config.SourceCutoffUnmet:
		return "/wanted/cutoff", nil
	default:
		return "", fmt.Errorf("unknown wanted source %q", source)
	}
}

func wantedQuery(page, pageSize int, sortKey string) url.Values {
	return url.Values{
		"page":          []string{strconv.Itoa(page)},
		"pageSize":      []string{strconv.Itoa(pageSize)},
		"sortKey":       []string{sortKey},
		"sortDirection": []string{"ascending"},
	}
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

func fileExtension(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(path[idx+1:])
}
