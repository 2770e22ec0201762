package slskd

// File is one shared file within a search response or directory listing.
// Filenames use backslash as the directory separator regardless of host OS.
type File struct {
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	Extension  string `json:"extension,omitempty"`
	BitRate    int    `json:"bitRate,omitempty"`
	BitDepth   int    `json:"bitDepth,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
}

// Search is a slskd text search record
type Search struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	SearchText    string `json:"searchText"`
	ResponseCount int    `json:"responseCount"`
	FileCount     int    `json:"fileCount"`
	IsComplete    bool   `json:"isComplete"`
}

// SearchResponse is one peer's answer to a text search, with a flat file list
type SearchResponse struct {
	Username  string `json:"username"`
	FileCount int    `json:"fileCount"`
	Files     []File `json:"files"`
}

// Directory is one peer directory listing
type Directory struct {
	Name      string `json:"name"`
	FileCount int    `json:"fileCount"`
	Files     []File `json:"files"`
}

// DownloadFile is one transfer within a download directory
type DownloadFile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	State    string `json:"state"`
}

// DownloadDirectory groups a peer's transfers by remote directory
type DownloadDirectory struct {
	Directory string         `json:"directory"`
	FileCount int            `json:"fileCount"`
	Files     []DownloadFile `json:"files"`
}

// UserDownloads is the full transfer state for one peer
type UserDownloads struct {
	Username    string              `json:"username"`
	Directories []DownloadDirectory `json:"directories"`
}
