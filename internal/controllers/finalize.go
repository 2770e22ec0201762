package controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/services/arr"
	"github.com/amaumene/gosoularr/internal/utils"
)

const failedImportsDir = "failed_imports"

// FinalizeController organizes completed downloads into creator folders and
// hands them to the media manager for import
type FinalizeController struct {
	search   config.SearchSettings
	slskdCfg config.SlskdConfig
	logger   *logrus.Logger

	// Import command poll interval, overridable in tests
	pollInterval time.Duration
}

// NewFinalizeController creates a new finalize controller
func NewFinalizeController(search config.SearchSettings, slskdCfg config.SlskdConfig, logger *logrus.Logger) *FinalizeController {
	return &FinalizeController{
		search:       search,
		slskdCfg:     slskdCfg,
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

// Finalize retags and moves each completed grab under a sanitized
// creator/album folder structure ready for import
func (c *FinalizeController) Finalize(flavor arr.Flavor, grabList []GrabItem) {
	sort.SliceStable(grabList, func(i, j int) bool {
		return grabList[i].CreatorName < grabList[j].CreatorName
	})

	for _, item := range grabList {
		if err := c.finalizeItem(flavor, item); err != nil {
			c.logger.WithError(err).WithField("album", item.AlbumTitle).Warn("Failed to finalize download")
		}
	}
}

func (c *FinalizeController) finalizeItem(flavor arr.Flavor, item GrabItem) error {
	sourceDir := filepath.Join(c.slskdCfg.DownloadDir, item.Dir)
	creatorDir := filepath.Join(c.slskdCfg.DownloadDir, utils.SanitizeFolderName(item.CreatorName))

	// Multi-disc grabs arrive one disc folder at a time, so their files are
	// retagged with the disc number and merged into a single album folder.
	if item.Release != nil && item.Release.MediumCount > 1 {
		albumDir := filepath.Join(creatorDir, utils.SanitizeFolderName(item.AlbumTitle))
		if err := os.MkdirAll(albumDir, 0755); err != nil {
			return fmt.Errorf("failed to create album folder: %w", err)
		}

		entries, err := os.ReadDir(sourceDir)
		if err != nil {
			return fmt.Errorf("failed to read download folder: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !c.isAllowedExtension(entry.Name()) {
				continue
			}

			path := filepath.Join(sourceDir, entry.Name())
			if err := flavor.RetagFile(path, item.CreatorName, item.AlbumTitle, item.DiscNumber); err != nil {
				c.logger.WithError(err).WithField("file", entry.Name()).Warn("Failed to retag file")
			}
			if err := os.Rename(path, filepath.Join(albumDir, entry.Name())); err != nil {
				return fmt.Errorf("failed to move %s: %w", entry.Name(), err)
			}
		}

		return os.RemoveAll(sourceDir)
	}

	if err := os.MkdirAll(creatorDir, 0755); err != nil {
		return fmt.Errorf("failed to create creator folder: %w", err)
	}
	return os.Rename(sourceDir, filepath.Join(creatorDir, item.Dir))
}

func (c *FinalizeController) isAllowedExtension(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	ext := name[idx+1:]

	for _, filetype := range c.search.AllowedFiletypes {
		if strings.SplitN(filetype, " ", 2)[0] == ext {
			return true
		}
	}
	return false
}

// Import queues an import scan for every organized folder, waits for the
// commands to settle and quarantines folders the media manager rejected.
// Returns the number of failed imports.
func (c *FinalizeController) Import(flavor arr.Flavor) int {
	if flavor.SyncDisabled() {
		c.logger.WithField("flavor", flavor.Name()).Info("Import sync disabled, leaving downloads in place")
		return 0
	}

	folders, err := c.importFolders()
	if err != nil {
		c.logger.WithError(err).Warn("Failed to list download directory")
		return 0
	}

	var commands []int64
	for _, folder := range folders {
		command, err := flavor.PostCommand(filepath.Join(flavor.DownloadDir(), folder))
		if err != nil {
			c.logger.WithError(err).WithField("folder", folder).Warn("Failed to queue import scan")
			continue
		}
		c.logger.WithFields(logrus.Fields{
			"folder":     folder,
			"command_id": command.ID,
		}).Info("Queued import scan")
		commands = append(commands, command.ID)
	}

	c.waitForCommands(flavor, commands)
	return c.collectImportResults(flavor, commands)
}

// importFolders lists the organized download folders, excluding the
// quarantine directory
func (c *FinalizeController) importFolders() ([]string, error) {
	entries, err := os.ReadDir(c.slskdCfg.DownloadDir)
	if err != nil {
		return nil, err
	}

	var folders []string
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != failedImportsDir {
			folders = append(folders, entry.Name())
		}
	}
	return folders, nil
}

func (c *FinalizeController) waitForCommands(flavor arr.Flavor, commands []int64) {
	for {
		settled := true
		for _, id := range commands {
			command, err := flavor.GetCommand(id)
			if err != nil {
				c.logger.WithError(err).Warn("Failed to poll import command")
				continue
			}
			if command.Status != "completed" && command.Status != "failed" {
				settled = false
			}
		}
		if settled {
			return
		}
		time.Sleep(c.pollInterval)
	}
}

func (c *FinalizeController) collectImportResults(flavor arr.Flavor, commands []int64) int {
	failed := 0

	for _, id := range commands {
		command, err := flavor.GetCommand(id)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to fetch import command result")
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"command": command.CommandName,
			"message": command.Message,
			"path":    command.Body.Path,
		}).Info("Import scan finished")

		if strings.Contains(command.Message, "Failed") {
			c.moveFailedImport(filepath.Base(command.Body.Path))
			failed++
		}
	}

	return failed
}

// moveFailedImport quarantines a rejected folder so the next sweep does not
// retry it forever, suffixing on name collisions
func (c *FinalizeController) moveFailedImport(folder string) {
	quarantine := filepath.Join(c.slskdCfg.DownloadDir, failedImportsDir)
	if err := os.MkdirAll(quarantine, 0755); err != nil {
		c.logger.WithError(err).Warn("Failed to create quarantine folder")
		return
	}

	target := filepath.Join(quarantine, folder)
	for n := 1; ; n++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(quarantine, fmt.Sprintf("%s_%d", folder, n))
	}

	source := filepath.Join(c.slskdCfg.DownloadDir, folder)
	if err := os.Rename(source, target); err != nil {
		c.logger.WithError(err).WithField("folder", folder).Warn("Failed to quarantine import")
		return
	}

	c.logger.WithFields(logrus.Fields{
		"folder": folder,
		"target": target,
	}).Warn("Import failed, moved to quarantine")
}
