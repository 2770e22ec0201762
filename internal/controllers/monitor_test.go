package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/services/slskd"
)

// fakeTransfers serves the transfer endpoints with a scripted sequence of
// per-poll file states
type fakeTransfers struct {
	mux       *http.ServeMux
	states    [][]string
	poll      int
	cancelled []string
}

func newFakeTransfers(t *testing.T, states [][]string) (*fakeTransfers, *slskd.Client) {
	t.Helper()

	f := &fakeTransfers{
		mux:    http.NewServeMux(),
		states: states,
	}

	f.mux.HandleFunc("/api/v0/transfers/downloads", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]slskd.UserDownloads{})
	})
	f.mux.HandleFunc("/api/v0/transfers/downloads/peer", func(w http.ResponseWriter, r *http.Request) {
		current := f.states[f.poll]
		if f.poll < len(f.states)-1 {
			f.poll++
		}

		files := make([]slskd.DownloadFile, len(current))
		for i, state := range current {
			files[i] = slskd.DownloadFile{
				ID:       "file-" + string(rune('a'+i)),
				Username: "peer",
				State:    state,
			}
		}

		json.NewEncoder(w).Encode(slskd.UserDownloads{
			Username: "peer",
			Directories: []slskd.DownloadDirectory{
				{Directory: remoteDir, FileCount: len(files), Files: files},
			},
		})
	})
	f.mux.HandleFunc("/api/v0/transfers/downloads/peer/", func(w http.ResponseWriter, r *http.Request) {
		f.cancelled = append(f.cancelled, filepath.Base(r.URL.Path))
	})

	server := httptest.NewServer(f.mux)
	t.Cleanup(server.Close)

	client, err := slskd.NewClient(server.URL, "test-key", "/", testLogger())
	require.NoError(t, err)

	return f, client
}

func newTestMonitor(client *slskd.Client, downloadDir string, stalledTimeout int) *MonitorController {
	ctl := NewMonitorController(client, config.SlskdConfig{
		DownloadDir:    downloadDir,
		StalledTimeout: stalledTimeout,
	}, testLogger())
	ctl.pollInterval = time.Millisecond
	ctl.settleDelay = 0
	return ctl
}

func testGrabItem() GrabItem {
	return GrabItem{
		CreatorName: "Black Sabbath",
		AlbumTitle:  "Paranoid",
		Dir:         "Black Sabbath - Paranoid (1970)",
		Username:    "peer",
		Directory:   &slskd.Directory{Name: remoteDir},
	}
}

func TestMonitorWaitsForCompletion(t *testing.T) {
	_, client := newFakeTransfers(t, [][]string{
		{"Queued, Remotely", "InProgress"},
		{"Completed, Succeeded", "InProgress"},
		{"Completed, Succeeded", "Completed, Succeeded"},
	})

	ctl := newTestMonitor(client, t.TempDir(), 3600)
	done := ctl.Monitor([]GrabItem{testGrabItem()})

	require.Len(t, done, 1)
	assert.Equal(t, "Paranoid", done[0].AlbumTitle)
}

func TestMonitorDropsErroredDownload(t *testing.T) {
	fake, client := newFakeTransfers(t, [][]string{
		{"Completed, Succeeded", "Completed, Errored"},
	})

	downloadDir := t.TempDir()
	item := testGrabItem()
	partial := filepath.Join(downloadDir, item.Dir)
	require.NoError(t, os.MkdirAll(partial, 0755))

	ctl := newTestMonitor(client, downloadDir, 3600)
	done := ctl.Monitor([]GrabItem{item})

	assert.Empty(t, done)
	assert.NotEmpty(t, fake.cancelled)
	_, err := os.Stat(partial)
	assert.True(t, os.IsNotExist(err))
}

func TestMonitorStallTimeoutCancelsPending(t *testing.T) {
	fake, client := newFakeTransfers(t, [][]string{
		{"InProgress"},
	})

	downloadDir := t.TempDir()
	item := testGrabItem()
	partial := filepath.Join(downloadDir, item.Dir)
	require.NoError(t, os.MkdirAll(partial, 0755))

	ctl := newTestMonitor(client, downloadDir, 0)
	done := ctl.Monitor([]GrabItem{item})

	assert.Empty(t, done)
	assert.NotEmpty(t, fake.cancelled)
	_, err := os.Stat(partial)
	assert.True(t, os.IsNotExist(err))
}
