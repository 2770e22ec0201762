package models

import "time"

// DenylistEntry tracks repeated search failures for one wanted record.
// The entry is removed on the first successful grab.
type DenylistEntry struct {
	RecordID    int64
	RecordTitle string
	Failures    int
	LastAttempt time.Time
}

// PageCursor remembers the next wanted-list page to fetch per source type
// under the incrementing_page search strategy
type PageCursor struct {
	Source string
	Page   int
}
