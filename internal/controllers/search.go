package controllers

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/matcher"
	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/services/slskd"
)

// SearchController runs one slskd search and turns an acceptable peer
// directory into a queued download
type SearchController struct {
	slskdClient *slskd.Client
	matcher     *matcher.Matcher
	search      config.SearchSettings
	slskdCfg    config.SlskdConfig
	logger      *logrus.Logger

	// Poll timings, overridable in tests
	initialDelay time.Duration
	pollInterval time.Duration
}

// NewSearchController creates a new search controller
func NewSearchController(slskdClient *slskd.Client, m *matcher.Matcher, search config.SearchSettings, slskdCfg config.SlskdConfig, logger *logrus.Logger) *SearchController {
	return &SearchController{
		slskdClient:  slskdClient,
		matcher:      m,
		search:       search,
		slskdCfg:     slskdCfg,
		logger:       logger,
		initialDelay: 5 * time.Second,
		pollInterval: 1 * time.Second,
	}
}

// userDirs holds one peer's candidate directories per allowed filetype, in
// the order they first appeared in the search responses
type userDirs struct {
	username string
	byType   map[string][]string
}

// SearchAndDownload searches for the query, walks the responses in filetype
// priority order and enqueues the first directory that matches every expected
// track. The representative track supplies the disc number for single-track
// grabs. Peers that fail to enqueue are added to ignoredUsers for the rest of
// the sweep.
func (c *SearchController) SearchAndDownload(query string, tracks []models.Track, track models.Track, creatorName, albumTitle string, release *models.Release, ignoredUsers map[string]bool) (bool, *GrabItem) {
	search, err := c.slskdClient.SearchText(query, c.search.Timeout, c.search.MaximumPeerQueue, c.search.MinimumPeerUploadSpeed)
	if err != nil {
		c.logger.WithError(err).WithField("query", query).Warn("Failed to start search")
		return false, nil
	}

	c.logger.WithField("query", query).Info("Searching")

	time.Sleep(c.initialDelay)
	c.waitForSearch(search.ID)

	responses, err := c.slskdClient.SearchResponses(search.ID)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to fetch search responses")
		return false, nil
	}

	users := c.collectDirectories(responses)

	for _, filetype := range c.search.AllowedFiletypes {
		for _, user := range users {
			for _, dir := range user.byType[filetype] {
				item := c.tryDirectory(user.username, dir, filetype, tracks, track, creatorName, albumTitle, release, ignoredUsers)
				if item != nil {
					c.cleanupSearch(search.ID)
					return true, item
				}
			}
		}
	}

	c.cleanupSearch(search.ID)
	return false, nil
}

// waitForSearch polls until the search leaves the InProgress state. A zero
// wait timeout polls until the daemon finishes the search on its own.
func (c *SearchController) waitForSearch(id string) {
	var deadline time.Time
	if c.search.WaitTimeout > 0 {
		deadline = time.Now().Add(time.Duration(c.search.WaitTimeout) * time.Second)
	}

	for {
		state, err := c.slskdClient.SearchState(id)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to poll search state")
			return
		}
		if state != "InProgress" {
			return
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			c.logger.WithField("search_id", id).Warn("Search wait timeout reached, using responses so far")
			return
		}
		time.Sleep(c.pollInterval)
	}
}

// collectDirectories builds the ordered candidate directory sets, keeping only
// files that satisfy an allowed filetype
func (c *SearchController) collectDirectories(responses []slskd.SearchResponse) []*userDirs {
	var users []*userDirs
	index := make(map[string]*userDirs)

	for _, response := range responses {
		for _, file := range response.Files {
			for _, filetype := range c.search.AllowedFiletypes {
				if !c.matcher.VerifyFiletype(file, filetype) {
					continue
				}

				user := index[response.Username]
				if user == nil {
					user = &userDirs{
						username: response.Username,
						byType:   make(map[string][]string),
					}
					index[response.Username] = user
					users = append(users, user)
				}

				dir := slskd.ParentDir(file.Filename)
				if !containsString(user.byType[filetype], dir) {
					user.byType[filetype] = append(user.byType[filetype], dir)
				}
			}
		}
	}

	return users
}

// tryDirectory lists one peer directory, verifies it holds exactly the wanted
// tracks and enqueues it. Returns nil when the directory does not match or the
// enqueue fails.
func (c *SearchController) tryDirectory(username, dir, filetype string, tracks []models.Track, track models.Track, creatorName, albumTitle string, release *models.Release, ignoredUsers map[string]bool) *GrabItem {
	directory, err := c.slskdClient.UserDirectory(username, dir)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"username":  username,
			"directory": dir,
		}).Info("Failed to list peer directory")
		return nil
	}

	count, uniform := matcher.DirectoryTrackCounts(directory.Files, c.search.AllowedFiletypes)
	if count != len(tracks) || uniform == "" {
		return nil
	}
	if !c.matcher.AlbumMatch(tracks, albumTitle, directory.Files, username, filetype, ignoredUsers) {
		return nil
	}

	// Directory listings carry bare filenames; the transfer API wants full
	// remote paths.
	for i := range directory.Files {
		directory.Files[i].Filename = slskd.Join(dir, directory.Files[i].Filename)
	}

	if err := c.slskdClient.Enqueue(username, directory.Files); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"username":  username,
			"directory": dir,
		}).Warn("Failed to enqueue downloads, ignoring user for this sweep")
		ignoredUsers[username] = true
		c.cancelPartialEnqueue(username, directory.Name, slskd.BaseName(dir))
		return nil
	}

	return &GrabItem{
		CreatorName: creatorName,
		Release:     release,
		AlbumTitle:  albumTitle,
		Dir:         slskd.BaseName(dir),
		DiscNumber:  track.MediumNumber,
		Username:    username,
		Directory:   directory,
	}
}

// cancelPartialEnqueue cleans up any transfers that made it into the queue
// before the enqueue call failed
func (c *SearchController) cancelPartialEnqueue(username, remoteDir, localDir string) {
	downloads, err := c.slskdClient.Downloads(username)
	if err != nil {
		c.logger.WithError(err).WithField("username", username).Warn("Failed to fetch downloads for cleanup")
		return
	}

	for _, directory := range downloads.Directories {
		if directory.Directory == remoteDir {
			cancelAndDelete(c.slskdClient, c.slskdCfg.DownloadDir, localDir, username, directory.Files, c.logger)
		}
	}
}

func (c *SearchController) cleanupSearch(id string) {
	if !c.slskdCfg.DeleteSearches {
		return
	}
	if err := c.slskdClient.DeleteSearch(id); err != nil {
		c.logger.WithError(err).Debug("Failed to delete search")
	}
}

// cancelAndDelete cancels the given transfers and removes the partial local
// download directory
func cancelAndDelete(client *slskd.Client, downloadDir, localDir, username string, files []slskd.DownloadFile, logger *logrus.Logger) {
	for _, file := range files {
		if err := client.CancelDownload(username, file.ID); err != nil {
			logger.WithError(err).WithField("file", file.Filename).Warn("Failed to cancel download")
		}
	}

	path := filepath.Join(downloadDir, localDir)
	if _, err := os.Stat(path); err == nil {
		if err := os.RemoveAll(path); err != nil {
			logger.WithError(err).WithField("path", path).Warn("Failed to remove partial download")
		}
	}
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
