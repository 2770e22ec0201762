package controllers

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/services/arr"
	"github.com/amaumene/gosoularr/internal/utils"
)

// GrabController walks the wanted list and drives searches for each record
type GrabController struct {
	db          *models.Database
	searchCtl   *SearchController
	blacklist   *utils.Blacklist
	search      config.SearchSettings
	failureFile string
	logger      *logrus.Logger
}

// NewGrabController creates a new grab controller
func NewGrabController(db *models.Database, searchCtl *SearchController, blacklist *utils.Blacklist, search config.SearchSettings, failureFile string, logger *logrus.Logger) *GrabController {
	return &GrabController{
		db:          db,
		searchCtl:   searchCtl,
		blacklist:   blacklist,
		search:      search,
		failureFile: failureFile,
		logger:      logger,
	}
}

// GetWantedRecords fetches the wanted records for every configured source,
// honoring the configured paging strategy
func (c *GrabController) GetWantedRecords(flavor arr.Flavor) ([]models.Record, error) {
	var records []models.Record

	for _, source := range c.search.Sources {
		sourceRecords, err := c.getWantedForSource(flavor, source)
		if err != nil {
			return nil, err
		}
		records = append(records, sourceRecords...)
	}

	return records, nil
}

func (c *GrabController) getWantedForSource(flavor arr.Flavor, source string) ([]models.Record, error) {
	pageSize := c.search.PageSize

	switch c.search.SearchType {
	case config.SearchTypeFirstPage:
		wanted, err := flavor.GetWanted(1, pageSize, source)
		if err != nil {
			return nil, err
		}
		return wanted.Records, nil

	case config.SearchTypeIncrementingPage:
		cursorKey := flavor.Name() + ":" + source
		page, err := c.db.GetCurrentPage(cursorKey)
		if err != nil {
			return nil, err
		}

		wanted, err := flavor.GetWanted(page, pageSize, source)
		if err != nil {
			return nil, err
		}

		totalPages := int(math.Ceil(float64(wanted.TotalRecords) / float64(pageSize)))
		next := page + 1
		if page >= totalPages {
			next = 1
		}
		if err := c.db.SetCurrentPage(cursorKey, next); err != nil {
			c.logger.WithError(err).Warn("Failed to store wanted page cursor")
		}
		return wanted.Records, nil

	case config.SearchTypeAll:
		var records []models.Record
		page := 1
		for {
			wanted, err := flavor.GetWanted(page, pageSize, source)
			if err != nil {
				return nil, err
			}
			records = append(records, wanted.Records...)
			if len(records) >= wanted.TotalRecords || len(wanted.Records) == 0 {
				return records, nil
			}
			page++
		}

	default:
		return nil, fmt.Errorf("unknown search type %q", c.search.SearchType)
	}
}

// ProcessWanted runs the search pipeline for each wanted record and returns
// the accepted grabs plus the number of records that found nothing
func (c *GrabController) ProcessWanted(flavor arr.Flavor, records []models.Record) ([]GrabItem, int) {
	var grabList []GrabItem
	failedSearches := 0

	ignoredUsers := make(map[string]bool)
	for _, username := range c.search.IgnoredUsers {
		ignoredUsers[username] = true
	}

	for i := range records {
		skipped, ok := c.processRecord(flavor, records[i].ID, ignoredUsers, &grabList)
		if skipped {
			continue
		}
		if !ok {
			failedSearches++
		}
	}

	return grabList, failedSearches
}

// processRecord handles one wanted record. The first return value reports a
// skip (denylisted or blacklisted), the second a successful grab.
func (c *GrabController) processRecord(flavor arr.Flavor, recordID int64, ignoredUsers map[string]bool, grabList *[]GrabItem) (skipped, success bool) {
	if c.search.EnableDenylist {
		denylisted, err := c.db.IsDenylisted(recordID, c.search.MaxSearchFailures)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to check denylist")
		} else if denylisted {
			c.logger.WithField("record_id", recordID).Info("Skipping denylisted record")
			return true, false
		}
	}

	record, err := flavor.GetRecord(recordID)
	if err != nil {
		c.logger.WithError(err).WithField("record_id", recordID).Warn("Failed to fetch record")
		return true, false
	}

	creator := record.CreatorName()

	release := flavor.ChooseRelease(record)
	if release == nil {
		c.logger.WithFields(logrus.Fields{
			"title":   record.Title,
			"creator": creator,
		}).Warn("No suitable release found")
		c.recordFailure(flavor, record)
		return false, false
	}

	tracks, err := flavor.GetTracks(record, release.ID)
	if err != nil || len(tracks) == 0 {
		c.logger.WithError(err).WithField("title", record.Title).Warn("Failed to fetch track list")
		c.recordFailure(flavor, record)
		return false, false
	}

	success = false

	// Whole-album search only applies to single-medium releases. Multi-disc
	// releases go straight to per-track searches.
	if len(release.Media) == 1 {
		if blacklisted, term := c.blacklist.IsBlacklisted(record.Title); blacklisted {
			c.logger.WithFields(logrus.Fields{
				"title": record.Title,
				"term":  term,
			}).Info("Skipping blacklisted title")
			return true, false
		}

		query := arr.BuildQuery(creator, record.Title, c.search.AlbumPrependArtist)
		var item *GrabItem
		success, item = c.searchCtl.SearchAndDownload(query, tracks, tracks[0], creator, record.Title, release, ignoredUsers)
		if item != nil {
			*grabList = append(*grabList, *item)
		}
	}

	if !success && c.search.SearchForTracks {
		success = c.searchTracks(flavor, record, release, tracks, creator, ignoredUsers, grabList) || success
	}

	if c.search.EnableDenylist {
		if success {
			if err := c.db.ClearSearchFailures(record.ID); err != nil {
				c.logger.WithError(err).Warn("Failed to clear search failures")
			}
		} else {
			c.recordFailure(flavor, record)
			return false, false
		}
	} else if !success {
		c.recordFailure(flavor, record)
		return false, false
	}

	return false, true
}

// searchTracks falls back to searching for individual tracks, medium by
// medium. Within a medium the first hit wins unless every track is wanted;
// each medium of a multi-disc release gets its own grab.
func (c *GrabController) searchTracks(flavor arr.Flavor, record *models.Record, release *models.Release, tracks []models.Track, creator string, ignoredUsers map[string]bool, grabList *[]GrabItem) bool {
	success := false

	for _, medium := range release.Media {
		var mediumTracks []models.Track
		for _, track := range tracks {
			if track.MediumNumber == medium.MediumNumber {
				mediumTracks = append(mediumTracks, track)
			}
		}

		for _, track := range mediumTracks {
			if blacklisted, term := c.blacklist.IsBlacklisted(track.Title); blacklisted {
				c.logger.WithFields(logrus.Fields{
					"title": track.Title,
					"term":  term,
				}).Info("Skipping blacklisted track")
				continue
			}

			// The query names one track but the expected set stays the
			// whole medium: a peer directory only matches when it holds
			// every track of the disc.
			query := arr.BuildQuery(creator, track.Title, c.search.TrackPrependArtist)
			ok, item := c.searchCtl.SearchAndDownload(query, mediumTracks, track, creator, record.Title, release, ignoredUsers)
			if item != nil {
				*grabList = append(*grabList, *item)
			}
			if ok {
				success = true
				if !c.search.SearchAllTracks {
					break
				}
			}
		}
	}

	return success
}

// recordFailure applies the configured failure policy to a record that found
// nothing
func (c *GrabController) recordFailure(flavor arr.Flavor, record *models.Record) {
	if c.search.EnableDenylist {
		if err := c.db.RecordSearchFailure(record.ID, record.Title); err != nil {
			c.logger.WithError(err).Warn("Failed to record search failure")
		}
	}

	if !c.search.RemoveWantedOnFailure {
		return
	}

	record.Monitored = false
	if err := flavor.UpdateRecord(record); err != nil {
		c.logger.WithError(err).WithField("title", record.Title).Warn("Failed to unmonitor record")
		return
	}

	line := fmt.Sprintf("%s - %s, %s, %d\n",
		time.Now().Format("2006-01-02 15:04:05"), record.CreatorName(), record.Title, record.ID)
	if err := appendToFile(c.failureFile, line); err != nil {
		c.logger.WithError(err).Warn("Failed to write failure list")
	}

	c.logger.WithFields(logrus.Fields{
		"title":   record.Title,
		"creator": record.CreatorName(),
	}).Info("Removed record from wanted list after failed search")
}

func appendToFile(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(line)
	return err
}
