package matcher

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/services/slskd"
)

func newTestMatcher(minRatio float64) *Matcher {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewMatcher(minRatio, logger)
}

func TestRatioIdentical(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("Paranoid.flac", "Paranoid.flac"))
}

func TestRatioIsCaseSensitive(t *testing.T) {
	exact := Ratio("Paranoid.flac", "Paranoid.flac")
	lowered := Ratio("Paranoid.flac", "paranoid.flac")
	assert.Less(t, lowered, exact)
}

func TestTrackSimilarityTruncatesNumberedFilenames(t *testing.T) {
	m := newTestMatcher(0.5)

	// A leading track number drags the plain ratio down. The space
	// truncation retry strips it.
	ratio := m.TrackSimilarity("War Pigs.flac", "Paranoid", "01 War Pigs.flac")
	assert.Greater(t, ratio, 0.5)
}

func TestTrackSimilarityUnderscoreSeparated(t *testing.T) {
	m := newTestMatcher(0.5)

	ratio := m.TrackSimilarity("War Pigs.flac", "Paranoid", "01_War_Pigs.flac")
	assert.Greater(t, ratio, 0.5)
}

func TestTrackSimilarityAlbumPrefixedFilenames(t *testing.T) {
	m := newTestMatcher(0.8)

	ratio := m.TrackSimilarity("Paranoid.flac", "Paranoid", "Paranoid Paranoid.flac")
	assert.Greater(t, ratio, 0.8)
}

func TestTrackSimilaritySkipsRetriesAboveThreshold(t *testing.T) {
	m := newTestMatcher(0.5)

	// The plain ratio already clears the threshold, so later retries must
	// not replace it with a worse truncated comparison.
	plain := Ratio("War Pigs.flac", "War Pigs.flac")
	assert.Equal(t, plain, m.TrackSimilarity("War Pigs.flac", "Paranoid", "War Pigs.flac"))
}

func TestAlbumMatchAllTracks(t *testing.T) {
	m := newTestMatcher(0.5)

	tracks := []models.Track{
		{Title: "War Pigs"},
		{Title: "Paranoid"},
		{Title: "Planet Caravan"},
	}
	files := []slskd.File{
		{Filename: "01 War Pigs.flac"},
		{Filename: "02 Paranoid.flac"},
		{Filename: "03 Planet Caravan.flac"},
	}

	assert.True(t, m.AlbumMatch(tracks, "Paranoid", files, "peer", "flac", nil))
}

func TestAlbumMatchRejectsPartialDirectory(t *testing.T) {
	m := newTestMatcher(0.5)

	tracks := []models.Track{
		{Title: "War Pigs"},
		{Title: "Paranoid"},
		{Title: "Planet Caravan"},
	}
	files := []slskd.File{
		{Filename: "01 War Pigs.flac"},
		{Filename: "02 Paranoid.flac"},
	}

	assert.False(t, m.AlbumMatch(tracks, "Paranoid", files, "peer", "flac", nil))
}

func TestAlbumMatchRejectsIgnoredUser(t *testing.T) {
	m := newTestMatcher(0.5)

	tracks := []models.Track{{Title: "Paranoid"}}
	files := []slskd.File{{Filename: "Paranoid.flac"}}
	ignored := map[string]bool{"peer": true}

	assert.False(t, m.AlbumMatch(tracks, "Paranoid", files, "peer", "flac", ignored))
}

func TestDirectoryTrackCountsUniformExtension(t *testing.T) {
	files := []slskd.File{
		{Filename: "01 War Pigs.flac"},
		{Filename: "02 Paranoid.flac"},
		{Filename: "cover.jpg"},
	}

	count, filetype := DirectoryTrackCounts(files, []string{"flac", "mp3"})
	assert.Equal(t, 2, count)
	assert.Equal(t, "flac", filetype)
}

func TestDirectoryTrackCountsMixedExtensions(t *testing.T) {
	files := []slskd.File{
		{Filename: "01 War Pigs.flac"},
		{Filename: "02 Paranoid.mp3"},
	}

	count, filetype := DirectoryTrackCounts(files, []string{"flac", "mp3"})
	assert.Equal(t, 1, count)
	assert.Empty(t, filetype)
}

func TestDirectoryTrackCountsStripsAttributes(t *testing.T) {
	files := []slskd.File{
		{Filename: "01 War Pigs.flac"},
	}

	count, filetype := DirectoryTrackCounts(files, []string{"flac 24/192"})
	require.Equal(t, 1, count)
	assert.Equal(t, "flac", filetype)
}

func TestVerifyFiletypeExtensionOnly(t *testing.T) {
	m := newTestMatcher(0.5)

	assert.True(t, m.VerifyFiletype(slskd.File{Filename: "a.flac"}, "flac"))
	assert.False(t, m.VerifyFiletype(slskd.File{Filename: "a.mp3"}, "flac"))
}

func TestVerifyFiletypeBitrate(t *testing.T) {
	m := newTestMatcher(0.5)

	file := slskd.File{Filename: "a.mp3", BitRate: 320}
	assert.True(t, m.VerifyFiletype(file, "mp3 320"))
	assert.False(t, m.VerifyFiletype(file, "mp3 256"))
	assert.False(t, m.VerifyFiletype(slskd.File{Filename: "a.mp3"}, "mp3 320"))
}

func TestVerifyFiletypeBitDepthAndSampleRate(t *testing.T) {
	m := newTestMatcher(0.5)

	file := slskd.File{Filename: "a.flac", BitDepth: 24, SampleRate: 192000}
	assert.True(t, m.VerifyFiletype(file, "flac 24/192"))
	assert.False(t, m.VerifyFiletype(file, "flac 16/192"))
	assert.False(t, m.VerifyFiletype(file, "flac 24/44.1"))

	missing := slskd.File{Filename: "a.flac"}
	assert.False(t, m.VerifyFiletype(missing, "flac 24/192"))
}

func TestVerifyFiletypeFractionalSampleRate(t *testing.T) {
	m := newTestMatcher(0.5)

	file := slskd.File{Filename: "a.flac", BitDepth: 16, SampleRate: 44100}
	assert.True(t, m.VerifyFiletype(file, "flac 16/44.1"))
}

func TestVerifyFiletypeInvalidSampleRate(t *testing.T) {
	m := newTestMatcher(0.5)

	file := slskd.File{Filename: "a.flac", BitDepth: 16, SampleRate: 44100}
	assert.False(t, m.VerifyFiletype(file, "flac 16/abc"))
}
