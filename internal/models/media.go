package models

// Artist is the creator of a wanted album in Lidarr
type Artist struct {
	ID         int64  `json:"id"`
	ArtistName string `json:"artistName"`
}

// Author is the creator of a wanted book in Readarr
type Author struct {
	ID         int64  `json:"id"`
	AuthorName string `json:"authorName"`
}

// Medium is one disc or volume within a release
type Medium struct {
	MediumNumber int    `json:"mediumNumber"`
	MediumName   string `json:"mediumName"`
	MediumFormat string `json:"mediumFormat"`
}

// Release is one catalog edition of a wanted record. The format string may
// carry a multi-disc prefix such as "2x CD".
type Release struct {
	ID          int64    `json:"id"`
	AlbumID     int64    `json:"albumId"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	TrackCount  int      `json:"trackCount"`
	Media       []Medium `json:"media"`
	MediumCount int      `json:"mediumCount"`
	Country     []string `json:"country"`
	Format      string   `json:"format"`
	Monitored   bool     `json:"monitored"`
}

// Track is one expected file to match against peer content
type Track struct {
	ID                  int64  `json:"id"`
	AlbumID             int64  `json:"albumId"`
	ArtistID            int64  `json:"artistId"`
	Title               string `json:"title"`
	TrackNumber         string `json:"trackNumber"`
	AbsoluteTrackNumber int    `json:"absoluteTrackNumber"`
	MediumNumber        int    `json:"mediumNumber"`
	HasFile             bool   `json:"hasFile"`
}

// Record is one wanted album or book as returned by the wanted endpoints.
// Lidarr populates Artist and Releases, Readarr populates Author and Editions.
type Record struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Monitored bool      `json:"monitored"`
	ArtistID  int64     `json:"artistId,omitempty"`
	AuthorID  int64     `json:"authorId,omitempty"`
	Artist    *Artist   `json:"artist,omitempty"`
	Author    *Author   `json:"author,omitempty"`
	Releases  []Release `json:"releases,omitempty"`
	Editions  []Release `json:"editions,omitempty"`
}

// CreatorName returns the owning artist or author name
func (r *Record) CreatorName() string {
	if r.Artist != nil {
		return r.Artist.ArtistName
	}
	if r.Author != nil {
		return r.Author.AuthorName
	}
	return ""
}

// CreatorID returns the owning artist or author id
func (r *Record) CreatorID() int64 {
	if r.ArtistID != 0 {
		return r.ArtistID
	}
	return r.AuthorID
}

// AllReleases returns the record's editions regardless of flavor
func (r *Record) AllReleases() []Release {
	if len(r.Releases) > 0 {
		return r.Releases
	}
	return r.Editions
}

// WantedPage is one page of the wanted list
type WantedPage struct {
	Page         int      `json:"page"`
	PageSize     int      `json:"pageSize"`
	TotalRecords int      `json:"totalRecords"`
	Records      []Record `json:"records"`
}

// CommandBody carries the path a command operated on
type CommandBody struct {
	Path string `json:"path"`
}

// Command is a queued server-side task such as a downloaded-albums scan
type Command struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	CommandName string      `json:"commandName"`
	Status      string      `json:"status"`
	Message     string      `json:"message"`
	Body        CommandBody `json:"body"`
}
