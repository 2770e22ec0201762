package arr

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/bogem/id3v2/v2"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/releases"
)

// Lidarr targets wanted albums
type Lidarr struct {
	client   *client
	cfg      config.ArrConfig
	selector *releases.Selector
	logger   *logrus.Logger
}

// NewLidarr creates a Lidarr flavor
func NewLidarr(cfg config.ArrConfig, selector *releases.Selector, logger *logrus.Logger) *Lidarr {
	return &Lidarr{
		client:   newClient(cfg.HostURL, cfg.APIKey, logger),
		cfg:      cfg,
		selector: selector,
		logger:   logger,
	}
}

func (l *Lidarr) Name() string {
	return "lidarr"
}

func (l *Lidarr) DownloadDir() string {
	return l.cfg.DownloadDir
}

func (l *Lidarr) SyncDisabled() bool {
	return l.cfg.DisableSync
}

// GetWanted retrieves one page of wanted albums
func (l *Lidarr) GetWanted(page, pageSize int, source string) (*models.WantedPage, error) {
	path, err := wantedPath(source)
	if err != nil {
		return nil, err
	}

	var wanted models.WantedPage
	if err := l.client.doGet(path, wantedQuery(page, pageSize, "albums.title"), &wanted); err != nil {
		return nil, fmt.Errorf("failed to get wanted albums: %w", err)
	}
	return &wanted, nil
}

// GetRecord retrieves a single album with its releases
func (l *Lidarr) GetRecord(id int64) (*models.Record, error) {
	var record models.Record
	if err := l.client.doGet(idPath("/album", id), nil, &record); err != nil {
		return nil, fmt.Errorf("failed to get album %d: %w", id, err)
	}
	return &record, nil
}

// GetTracks retrieves the track list of one album release
func (l *Lidarr) GetTracks(record *models.Record, releaseID int64) ([]models.Track, error) {
	query := url.Values{
		"albumId":        []string{strconv.FormatInt(record.ID, 10)},
		"albumReleaseId": []string{strconv.FormatInt(releaseID, 10)},
	}

	var tracks []models.Track
	if err := l.client.doGet("/track", query, &tracks); err != nil {
		return nil, fmt.Errorf("failed to get tracks for album %d: %w", record.ID, err)
	}
	return tracks, nil
}

// UpdateRecord writes back a modified album, used to drop monitoring
func (l *Lidarr) UpdateRecord(record *models.Record) error {
	if err := l.client.doPut(idPath("/album", record.ID), record, nil); err != nil {
		return fmt.Errorf("failed to update album %d: %w", record.ID, err)
	}
	return nil
}

// ChooseRelease picks the release edition to search for
func (l *Lidarr) ChooseRelease(record *models.Record) *models.Release {
	return l.selector.Choose(record.AllReleases())
}

// PostCommand queues a downloaded-albums scan of the given path
func (l *Lidarr) PostCommand(path string) (*models.Command, error) {
	body := map[string]string{
		"name": "DownloadedAlbumsScan",
		"path": path,
	}

	var command models.Command
	if err := l.client.doPost("/command", body, &command); err != nil {
		return nil, fmt.Errorf("failed to post import command: %w", err)
	}
	return &command, nil
}

// GetCommand retrieves the state of a queued command
func (l *Lidarr) GetCommand(id int64) (*models.Command, error) {
	var command models.Command
	if err := l.client.doGet(idPath("/command", id), nil, &command); err != nil {
		return nil, fmt.Errorf("failed to get command %d: %w", id, err)
	}
	return &command, nil
}

// RetagFile rewrites the ID3 artist, album and disc number of an mp3 so
// multi-disc grabs import into the right medium. Other formats are left as
// the peer shared them.
func (l *Lidarr) RetagFile(path, artist, album string, disc int) error {
	if fileExtension(path) != "mp3" {
		l.logger.WithField("file", path).Debug("Skipping retag of non-mp3 file")
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open tags of %s: %w", path, err)
	}
	defer tag.Close()

	tag.SetArtist(artist)
	tag.SetAlbum(album)
	tag.AddTextFrame(tag.CommonID("Part of a set"), tag.DefaultEncoding(), strconv.Itoa(disc))

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags of %s: %w", path, err)
	}
	return nil
}

// SystemStatus checks connectivity with the Lidarr instance
func (l *Lidarr) SystemStatus() error {
	var status map[string]interface{}
	if err := l.client.doGet("/system/status", nil, &status); err != nil {
		return fmt.Errorf("failed to reach lidarr: %w", err)
	}
	return nil
}
