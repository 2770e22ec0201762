package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/matcher"
	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/services/slskd"
)

const remoteDir = `@@abcdef\Music\Black Sabbath - Paranoid (1970)`

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func paranoidTracks() []models.Track {
	return []models.Track{
		{ID: 1, Title: "War Pigs", MediumNumber: 1},
		{ID: 2, Title: "Paranoid", MediumNumber: 1},
		{ID: 3, Title: "Planet Caravan", MediumNumber: 1},
	}
}

// fakeSlskd serves just enough of the slskd API for a search session.
// responsesFn and directoriesByName override the default single-directory
// behavior for tests that need query-dependent results.
type fakeSlskd struct {
	mux *http.ServeMux

	directoryFiles    []slskd.File
	directoriesByName map[string][]slskd.File
	responsesFn       func(query string) []slskd.SearchResponse
	enqueueStatus     int
	enqueued          [][]slskd.File
	cancelled         []string
	searchDeleted     bool
	lastQuery         string
	searchCount       int
}

func newFakeSlskd(t *testing.T) (*fakeSlskd, *slskd.Client) {
	t.Helper()

	f := &fakeSlskd{
		mux:           http.NewServeMux(),
		enqueueStatus: http.StatusCreated,
	}

	f.mux.HandleFunc("/api/v0/searches", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SearchText string `json:"searchText"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.lastQuery = body.SearchText
		f.searchCount++
		json.NewEncoder(w).Encode(slskd.Search{ID: "s1", State: "InProgress"})
	})
	f.mux.HandleFunc("/api/v0/searches/s1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			f.searchDeleted = true
			return
		}
		json.NewEncoder(w).Encode(slskd.Search{ID: "s1", State: "Completed"})
	})
	f.mux.HandleFunc("/api/v0/searches/s1/responses", func(w http.ResponseWriter, r *http.Request) {
		if f.responsesFn != nil {
			json.NewEncoder(w).Encode(f.responsesFn(f.lastQuery))
			return
		}
		json.NewEncoder(w).Encode([]slskd.SearchResponse{
			{
				Username: "peer",
				Files: []slskd.File{
					{Filename: remoteDir + `\01 War Pigs.flac`, Size: 100},
				},
			},
		})
	})
	f.mux.HandleFunc("/api/v0/users/peer/directory", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		name := body["directoryName"]

		files := f.directoryFiles
		if f.directoriesByName != nil {
			files = f.directoriesByName[name]
		}
		json.NewEncoder(w).Encode(slskd.Directory{
			Name:      name,
			FileCount: len(files),
			Files:     files,
		})
	})
	f.mux.HandleFunc("/api/v0/transfers/downloads", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]slskd.UserDownloads{})
	})
	f.mux.HandleFunc("/api/v0/transfers/downloads/all/completed", func(w http.ResponseWriter, r *http.Request) {
	})
	f.mux.HandleFunc("/api/v0/transfers/downloads/peer", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var files []slskd.File
			json.NewDecoder(r.Body).Decode(&files)
			if f.enqueueStatus >= 400 {
				w.WriteHeader(f.enqueueStatus)
				return
			}
			f.enqueued = append(f.enqueued, files)
			w.WriteHeader(f.enqueueStatus)
		case http.MethodGet:
			json.NewEncoder(w).Encode(slskd.UserDownloads{Username: "peer"})
		}
	})
	f.mux.HandleFunc("/api/v0/transfers/downloads/peer/", func(w http.ResponseWriter, r *http.Request) {
		f.cancelled = append(f.cancelled, r.URL.Path)
	})

	server := httptest.NewServer(f.mux)
	t.Cleanup(server.Close)

	client, err := slskd.NewClient(server.URL, "test-key", "/", testLogger())
	require.NoError(t, err)

	return f, client
}

func newTestSearchController(client *slskd.Client, downloadDir string) *SearchController {
	search := config.SearchSettings{
		Timeout:           5000,
		WaitTimeout:       5,
		AllowedFiletypes:  []string{"flac"},
		MinimumMatchRatio: 0.5,
	}
	slskdCfg := config.SlskdConfig{
		DownloadDir:    downloadDir,
		DeleteSearches: true,
	}

	m := matcher.NewMatcher(search.MinimumMatchRatio, testLogger())
	ctl := NewSearchController(client, m, search, slskdCfg, testLogger())
	ctl.initialDelay = 0
	ctl.pollInterval = time.Millisecond
	return ctl
}

func TestSearchAndDownloadMatchingDirectory(t *testing.T) {
	fake, client := newFakeSlskd(t)
	fake.directoryFiles = []slskd.File{
		{Filename: "01 War Pigs.flac", Size: 100},
		{Filename: "02 Paranoid.flac", Size: 100},
		{Filename: "03 Planet Caravan.flac", Size: 100},
	}

	ctl := newTestSearchController(client, t.TempDir())
	tracks := paranoidTracks()
	release := &models.Release{ID: 42, MediumCount: 1}

	success, item := ctl.SearchAndDownload("Paranoid", tracks, tracks[0], "Black Sabbath", "Paranoid", release, map[string]bool{})
	require.True(t, success)
	require.NotNil(t, item)

	assert.Equal(t, "Black Sabbath - Paranoid (1970)", item.Dir)
	assert.Equal(t, "peer", item.Username)
	assert.Equal(t, remoteDir, item.Directory.Name)

	// The enqueue request must carry full remote paths.
	require.Len(t, fake.enqueued, 1)
	assert.Equal(t, remoteDir+`\01 War Pigs.flac`, fake.enqueued[0][0].Filename)
	assert.True(t, fake.searchDeleted)
}

func TestSearchAndDownloadIncompleteDirectory(t *testing.T) {
	fake, client := newFakeSlskd(t)
	fake.directoryFiles = []slskd.File{
		{Filename: "01 War Pigs.flac", Size: 100},
		{Filename: "02 Paranoid.flac", Size: 100},
	}

	ctl := newTestSearchController(client, t.TempDir())
	tracks := paranoidTracks()
	release := &models.Release{ID: 42}

	success, item := ctl.SearchAndDownload("Paranoid", tracks, tracks[0], "Black Sabbath", "Paranoid", release, map[string]bool{})
	assert.False(t, success)
	assert.Nil(t, item)
	assert.Empty(t, fake.enqueued)
}

func TestSearchAndDownloadEnqueueFailureIgnoresUser(t *testing.T) {
	fake, client := newFakeSlskd(t)
	fake.directoryFiles = []slskd.File{
		{Filename: "01 War Pigs.flac", Size: 100},
		{Filename: "02 Paranoid.flac", Size: 100},
		{Filename: "03 Planet Caravan.flac", Size: 100},
	}
	fake.enqueueStatus = http.StatusInternalServerError

	ctl := newTestSearchController(client, t.TempDir())
	tracks := paranoidTracks()
	release := &models.Release{ID: 42}

	ignoredUsers := map[string]bool{}
	success, item := ctl.SearchAndDownload("Paranoid", tracks, tracks[0], "Black Sabbath", "Paranoid", release, ignoredUsers)
	assert.False(t, success)
	assert.Nil(t, item)
	assert.True(t, ignoredUsers["peer"])
}
