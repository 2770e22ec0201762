package matcher

import (
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/services/slskd"
)

// Matcher decides whether a peer directory satisfies an expected track list,
// using fuzzy filename similarity. Matching is case- and whitespace-sensitive.
type Matcher struct {
	minRatio float64
	logger   *logrus.Logger
}

// NewMatcher creates a matcher with the configured minimum match ratio
func NewMatcher(minRatio float64, logger *logrus.Logger) *Matcher {
	return &Matcher{
		minRatio: minRatio,
		logger:   logger,
	}
}

// Ratio computes the sequence-alignment similarity of two strings in [0,1],
// defined as 2*M/T over matching characters
func Ratio(a, b string) float64 {
	sm := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return sm.Ratio()
}

// retryRatio recomputes the ratio with the candidate right-truncated to the
// expected word count when the current ratio is below the threshold. Peer
// filenames are often prefixed with track numbers or release-group tags that
// a plain comparison penalizes.
func (m *Matcher) retryRatio(separator string, ratio float64, expected, candidate string) float64 {
	if ratio >= m.minRatio {
		return ratio
	}
	if separator == "" {
		return Ratio(expected, candidate)
	}
	return Ratio(expected, truncateToWordCount(expected, candidate, separator))
}

func truncateToWordCount(expected, candidate, separator string) string {
	words := len(strings.Fields(expected))
	parts := strings.Split(candidate, separator)
	if words > len(parts) {
		words = len(parts)
	}
	return strings.Join(parts[len(parts)-words:], " ")
}

// TrackSimilarity computes the best similarity between an expected filename
// and a candidate peer filename across the truncation retries, including
// variants with the album title prepended for peers that repeat the album
// name in every track filename.
func (m *Matcher) TrackSimilarity(expected, albumTitle, candidate string) float64 {
	ratio := Ratio(expected, candidate)
	ratio = m.retryRatio(" ", ratio, expected, candidate)
	ratio = m.retryRatio("_", ratio, expected, candidate)

	withAlbum := albumTitle + " " + expected
	ratio = m.retryRatio("", ratio, withAlbum, candidate)
	ratio = m.retryRatio(" ", ratio, withAlbum, candidate)
	ratio = m.retryRatio("_", ratio, withAlbum, candidate)

	return ratio
}

// ExpectedFilename builds the normalized filename for a track target from its
// title and the allowed-filetype entry, stripping any attribute suffix such
// as " 320" or " 24/48"
func ExpectedFilename(title, filetype string) string {
	return title + "." + strings.SplitN(filetype, " ", 2)[0]
}

// AlbumMatch reports whether every expected track is matched by some candidate
// file above the minimum ratio. Partial matches are rejected outright, and
// peers in the ignore set never match.
func (m *Matcher) AlbumMatch(tracks []models.Track, albumTitle string, files []slskd.File, username, filetype string, ignoredUsers map[string]bool) bool {
	counted := 0
	totalMatch := 0.0

	for _, track := range tracks {
		expected := ExpectedFilename(track.Title, filetype)
		best := 0.0

		for _, file := range files {
			if ratio := m.TrackSimilarity(expected, albumTitle, file.Filename); ratio > best {
				best = ratio
			}
		}

		if best > m.minRatio {
			counted++
			totalMatch += best
		}
	}

	if counted == len(tracks) && !ignoredUsers[username] {
		m.logger.WithFields(logrus.Fields{
			"username":   username,
			"tracks":     counted,
			"attributes": filetype,
			"avg_ratio":  totalMatch / float64(counted),
		}).Info("Successful match")
		return true
	}

	return false
}

// DirectoryTrackCounts counts the candidate files matching the allowed
// filetypes and reports the uniform extension, or "" when the directory mixes
// extensions of different priorities
func DirectoryTrackCounts(files []slskd.File, allowedFiletypes []string) (int, string) {
	extensions := make([]string, len(allowedFiletypes))
	for i, filetype := range allowedFiletypes {
		extensions[i] = strings.SplitN(filetype, " ", 2)[0]
	}

	count := 0
	index := -1
	filetype := ""

	for _, file := range files {
		ext := fileExtension(file.Filename)
		newIndex := indexOf(extensions, ext)
		if newIndex < 0 {
			continue
		}

		if index == -1 {
			index = newIndex
			filetype = extensions[index]
		} else if newIndex != index {
			filetype = ""
			break
		}

		count++
	}

	return count, filetype
}

// VerifyFiletype reports whether a file satisfies an allowed-filetype entry.
// The entry is an extension optionally followed by a bitrate ("mp3 320") or a
// bitdepth/samplerate pair ("flac 24/48", samplerate in kHz).
func (m *Matcher) VerifyFiletype(file slskd.File, allowed string) bool {
	parts := strings.SplitN(allowed, " ", 2)
	if fileExtension(file.Filename) != parts[0] {
		return false
	}
	if len(parts) == 1 {
		return true
	}

	attributes := parts[1]
	if strings.Contains(attributes, "/") {
		pair := strings.SplitN(attributes, "/", 2)
		sampleRate, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			m.logger.WithField("attributes", attributes).Warn("Invalid samplerate in allowed filetype")
			return false
		}
		if file.BitDepth == 0 || file.SampleRate == 0 {
			return false
		}
		return strconv.Itoa(file.BitDepth) == pair[0] && file.SampleRate == int(sampleRate*1000)
	}

	if file.BitRate == 0 {
		return false
	}
	return strconv.Itoa(file.BitRate) == attributes
}

func fileExtension(filename string) string {
	return filename[strings.LastIndex(filename, ".")+1:]
}

func indexOf(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}
	return -1
}
