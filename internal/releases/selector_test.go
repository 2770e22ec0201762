package releases

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/models"
)

func newTestSelector(settings config.ReleaseSettings) *Selector {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSelector(settings, logger)
}

func TestTrackCountModeTieKeepsFirstSeen(t *testing.T) {
	releases := []models.Release{
		{TrackCount: 10},
		{TrackCount: 10},
		{TrackCount: 12},
		{TrackCount: 12},
	}

	assert.Equal(t, 10, TrackCountMode(releases))
}

func TestTrackCountModeMajority(t *testing.T) {
	releases := []models.Release{
		{TrackCount: 8},
		{TrackCount: 10},
		{TrackCount: 10},
	}

	assert.Equal(t, 10, TrackCountMode(releases))
}

func TestChooseEmpty(t *testing.T) {
	s := newTestSelector(config.ReleaseSettings{})
	assert.Nil(t, s.Choose(nil))
}

func TestChooseFiltersOnCountryFormatAndStatus(t *testing.T) {
	s := newTestSelector(config.ReleaseSettings{
		AcceptedCountries: []string{"Europe", "United Kingdom"},
		AcceptedFormats:   []string{"CD", "Digital Media"},
	})

	releases := []models.Release{
		{ID: 1, Country: []string{"Japan"}, Format: "CD", Status: "Official"},
		{ID: 2, Country: []string{"Europe"}, Format: "Vinyl", Status: "Official"},
		{ID: 3, Country: []string{"Europe"}, Format: "CD", Status: "Bootleg"},
		{ID: 4, Country: []string{"Europe"}, Format: "CD", Status: "Official"},
	}

	chosen := s.Choose(releases)
	require.NotNil(t, chosen)
	assert.Equal(t, int64(4), chosen.ID)
}

func TestChooseSkipRegionCheck(t *testing.T) {
	s := newTestSelector(config.ReleaseSettings{
		SkipRegionCheck: true,
		AcceptedFormats: []string{"CD"},
	})

	releases := []models.Release{
		{ID: 1, Country: []string{"Japan"}, Format: "CD", Status: "Official"},
	}

	chosen := s.Choose(releases)
	require.NotNil(t, chosen)
	assert.Equal(t, int64(1), chosen.ID)
}

func TestChooseMultiDiscFormat(t *testing.T) {
	s := newTestSelector(config.ReleaseSettings{
		SkipRegionCheck: true,
		AllowMultiDisc:  true,
		AcceptedFormats: []string{"CD"},
	})

	releases := []models.Release{
		{ID: 1, Format: "2xCD", Status: "Official"},
	}

	chosen := s.Choose(releases)
	require.NotNil(t, chosen)
	assert.Equal(t, int64(1), chosen.ID)
}

func TestChooseMultiDiscDisallowed(t *testing.T) {
	s := newTestSelector(config.ReleaseSettings{
		SkipRegionCheck: true,
		AllowMultiDisc:  false,
		AcceptedFormats: []string{"CD"},
	})

	releases := []models.Release{
		{ID: 1, Format: "2xCD", Status: "Official"},
		{ID: 2, Format: "CD", Status: "Official"},
	}

	chosen := s.Choose(releases)
	require.NotNil(t, chosen)
	assert.Equal(t, int64(2), chosen.ID)
}

func TestChooseModalTrackCount(t *testing.T) {
	s := newTestSelector(config.ReleaseSettings{
		SkipRegionCheck:       true,
		UseMostCommonTrackNum: true,
		AcceptedFormats:       []string{"CD"},
	})

	releases := []models.Release{
		{ID: 1, Format: "CD", Status: "Official", TrackCount: 14},
		{ID: 2, Format: "CD", Status: "Official", TrackCount: 10},
		{ID: 3, Format: "CD", Status: "Official", TrackCount: 10},
	}

	chosen := s.Choose(releases)
	require.NotNil(t, chosen)
	assert.Equal(t, int64(2), chosen.ID)
}

func TestChooseFallbackLastModalRelease(t *testing.T) {
	s := newTestSelector(config.ReleaseSettings{
		UseMostCommonTrackNum: true,
		AcceptedCountries:     []string{"Europe"},
		AcceptedFormats:       []string{"CD"},
	})

	// Nothing passes the filters, so the last release with the modal track
	// count wins.
	releases := []models.Release{
		{ID: 1, Country: []string{"Japan"}, Format: "CD", Status: "Official", TrackCount: 10},
		{ID: 2, Country: []string{"Japan"}, Format: "CD", Status: "Official", TrackCount: 10},
		{ID: 3, Country: []string{"Japan"}, Format: "CD", Status: "Official", TrackCount: 12},
	}

	chosen := s.Choose(releases)
	require.NotNil(t, chosen)
	assert.Equal(t, int64(2), chosen.ID)
}

func TestChooseFallbackFirstRelease(t *testing.T) {
	s := newTestSelector(config.ReleaseSettings{
		AcceptedCountries: []string{"Europe"},
		AcceptedFormats:   []string{"CD"},
	})

	releases := []models.Release{
		{ID: 1, Country: []string{"Japan"}, Format: "Vinyl", Status: "Official"},
		{ID: 2, Country: []string{"Japan"}, Format: "Vinyl", Status: "Official"},
	}

	chosen := s.Choose(releases)
	require.NotNil(t, chosen)
	assert.Equal(t, int64(1), chosen.ID)
}
