package controllers

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/services/slskd"
)

// Transfer states that mean the daemon gave up on a file
var erroredStates = map[string]bool{
	"Completed, Cancelled": true,
	"Completed, TimedOut":  true,
	"Completed, Errored":   true,
	"Completed, Rejected":  true,
}

type itemState int

const (
	itemDone itemState = iota
	itemPending
	itemErrored
)

// MonitorController watches queued downloads until they finish, pruning
// failed and stalled grabs
type MonitorController struct {
	slskdClient *slskd.Client
	slskdCfg    config.SlskdConfig
	logger      *logrus.Logger

	// Poll timings, overridable in tests
	pollInterval time.Duration
	settleDelay  time.Duration
}

// NewMonitorController creates a new monitor controller
func NewMonitorController(slskdClient *slskd.Client, slskdCfg config.SlskdConfig, logger *logrus.Logger) *MonitorController {
	return &MonitorController{
		slskdClient:  slskdClient,
		slskdCfg:     slskdCfg,
		logger:       logger,
		pollInterval: 10 * time.Second,
		settleDelay:  5 * time.Second,
	}
}

// Monitor blocks until every grab finishes, fails or the stall timeout
// elapses, and returns the grabs whose downloads completed
func (c *MonitorController) Monitor(grabList []GrabItem) []GrabItem {
	if len(grabList) == 0 {
		return nil
	}

	if downloads, err := c.slskdClient.AllDownloads(); err == nil {
		queued := 0
		for _, user := range downloads {
			queued += len(user.Directories)
		}
		c.logger.WithField("directories", queued).Info("Downloads added, monitoring transfers")
	}

	stallTimeout := time.Duration(c.slskdCfg.StalledTimeout) * time.Second
	elapsed := time.Duration(0)

	for {
		var done, pending []GrabItem
		pendingFiles := make(map[string][]slskd.DownloadFile)

		for _, item := range grabList {
			state, files := c.classify(item)
			switch state {
			case itemErrored:
				c.logger.WithFields(logrus.Fields{
					"album":    item.AlbumTitle,
					"username": item.Username,
				}).Error("Download failed, removing grab")
				cancelAndDelete(c.slskdClient, c.slskdCfg.DownloadDir, item.Dir, item.Username, files, c.logger)
			case itemPending:
				pending = append(pending, item)
				pendingFiles[item.Dir] = files
			default:
				done = append(done, item)
			}
		}

		if len(pending) == 0 {
			c.logger.Info("All downloads finished")
			time.Sleep(c.settleDelay)
			return done
		}

		elapsed += c.pollInterval
		if elapsed > stallTimeout {
			c.logger.WithField("stalled", len(pending)).Warn("Download stall timeout reached, cancelling remaining transfers")
			for _, item := range pending {
				cancelAndDelete(c.slskdClient, c.slskdCfg.DownloadDir, item.Dir, item.Username, pendingFiles[item.Dir], c.logger)
			}
			return done
		}

		grabList = append(done, pending...)
		time.Sleep(c.pollInterval)
	}
}

// classify inspects the transfer state of one grab's remote directory. A
// transfer-list fetch error counts the item as done so one flaky peer cannot
// block the whole batch forever.
func (c *MonitorController) classify(item GrabItem) (itemState, []slskd.DownloadFile) {
	downloads, err := c.slskdClient.Downloads(item.Username)
	if err != nil {
		c.logger.WithError(err).WithField("username", item.Username).Warn("Failed to fetch downloads")
		return itemDone, nil
	}

	for _, directory := range downloads.Directories {
		if directory.Directory != item.Directory.Name {
			continue
		}

		pending := 0
		for _, file := range directory.Files {
			if erroredStates[file.State] {
				return itemErrored, directory.Files
			}
			if !strings.Contains(file.State, "Completed") {
				pending++
			}
		}

		if pending > 0 {
			return itemPending, directory.Files
		}
		return itemDone, directory.Files
	}

	return itemDone, nil
}
