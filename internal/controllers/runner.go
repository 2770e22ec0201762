package controllers

import (
	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/services/arr"
	"github.com/amaumene/gosoularr/internal/services/slskd"
)

// Runner drives one full sweep across every configured media manager
type Runner struct {
	grabCtl     *GrabController
	monitorCtl  *MonitorController
	finalizeCtl *FinalizeController
	slskdClient *slskd.Client
	flavors     []arr.Flavor
	stats       *RunStats
	logger      *logrus.Logger
}

// NewRunner creates a new sweep runner
func NewRunner(grabCtl *GrabController, monitorCtl *MonitorController, finalizeCtl *FinalizeController, slskdClient *slskd.Client, flavors []arr.Flavor, stats *RunStats, logger *logrus.Logger) *Runner {
	return &Runner{
		grabCtl:     grabCtl,
		monitorCtl:  monitorCtl,
		finalizeCtl: finalizeCtl,
		slskdClient: slskdClient,
		flavors:     flavors,
		stats:       stats,
		logger:      logger,
	}
}

// Run performs one sweep: fetch wanted records, search and grab, monitor
// transfers, organize and import
func (r *Runner) Run() {
	r.stats.Start()

	wanted := 0
	grabs := 0
	failedSearches := 0
	failedImports := 0

	for _, flavor := range r.flavors {
		records, err := r.grabCtl.GetWantedRecords(flavor)
		if err != nil {
			r.logger.WithError(err).WithField("flavor", flavor.Name()).Error("Failed to fetch wanted records")
			continue
		}

		wanted += len(records)
		if len(records) == 0 {
			r.logger.WithField("flavor", flavor.Name()).Info("No wanted records")
			continue
		}

		r.logger.WithFields(logrus.Fields{
			"flavor": flavor.Name(),
			"count":  len(records),
		}).Info("Processing wanted records")

		grabList, failed := r.grabCtl.ProcessWanted(flavor, records)
		failedSearches += failed

		finished := r.monitorCtl.Monitor(grabList)
		grabs += len(finished)

		if len(finished) > 0 {
			r.finalizeCtl.Finalize(flavor, finished)
			failedImports += r.finalizeCtl.Import(flavor)
		}
	}

	if err := r.slskdClient.RemoveCompletedDownloads(); err != nil {
		r.logger.WithError(err).Warn("Failed to clear completed downloads")
	}

	summary := r.logger.WithFields(logrus.Fields{
		"wanted":          wanted,
		"grabs":           grabs,
		"failed_searches": failedSearches,
		"failed_imports":  failedImports,
	})
	if failedSearches > 0 {
		summary = summary.WithField("failure_list", r.grabCtl.failureFile)
	}
	summary.Info("Sweep finished")

	r.stats.Finish(wanted, grabs, failedSearches, failedImports)
}
