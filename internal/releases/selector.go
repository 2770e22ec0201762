package releases

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/models"
)

// Selector picks the release of an album to search for, filtering on country,
// format and official status
type Selector struct {
	settings config.ReleaseSettings
	logger   *logrus.Logger
}

// NewSelector creates a selector with the configured release filters
func NewSelector(settings config.ReleaseSettings, logger *logrus.Logger) *Selector {
	return &Selector{
		settings: settings,
		logger:   logger,
	}
}

// TrackCountMode returns the most common track count among the releases. Ties
// keep the earlier count in release order.
func TrackCountMode(releases []models.Release) int {
	var order []int
	counts := make(map[int]int)

	for _, release := range releases {
		if _, seen := counts[release.TrackCount]; !seen {
			order = append(order, release.TrackCount)
		}
		counts[release.TrackCount]++
	}

	mode := 0
	best := 0
	for _, trackCount := range order {
		if counts[trackCount] > best {
			best = counts[trackCount]
			mode = trackCount
		}
	}

	return mode
}

// Choose returns the preferred release, or nil when no release passes the
// filters and no fallback applies
func (s *Selector) Choose(releases []models.Release) *models.Release {
	if len(releases) == 0 {
		return nil
	}

	mode := 0
	if s.settings.UseMostCommonTrackNum {
		mode = TrackCountMode(releases)
	}

	for i := range releases {
		release := &releases[i]

		format := release.Format
		if s.settings.AllowMultiDisc && len(format) > 1 && format[1] == 'x' {
			format = strings.TrimSpace(strings.SplitN(format, "x", 2)[1])
		}

		country := ""
		if len(release.Country) > 0 {
			country = release.Country[0]
		}

		if !s.settings.SkipRegionCheck && !contains(s.settings.AcceptedCountries, country) {
			continue
		}
		if !contains(s.settings.AcceptedFormats, format) {
			continue
		}
		if release.Status != "Official" {
			continue
		}
		if s.settings.UseMostCommonTrackNum && release.TrackCount != mode {
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"release_id":  release.ID,
			"country":     country,
			"format":      format,
			"track_count": release.TrackCount,
		}).Debug("Selected release")
		return release
	}

	// No release passed the filters. Fall back to the last release with the
	// modal track count, or failing that the first release overall.
	fallback := &releases[0]
	if s.settings.UseMostCommonTrackNum {
		for i := range releases {
			if releases[i].TrackCount == mode {
				fallback = &releases[i]
			}
		}
	}

	s.logger.WithField("release_id", fallback.ID).Debug("No release passed filters, using fallback")
	return fallback
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
