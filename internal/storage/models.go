package storage

import "time"

// PageRecord is a crawled page as recorded by the visited set
type PageRecord struct {
	URL   string
	Title string
}

// UploadResult counts the outcome of uploading records to the pages table
type UploadResult struct {
	Added     int
	Redundant int
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	PagesRecorded     int       `json:"pages_recorded"`
	PagesRedundant    int       `json:"pages_redundant"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	PagesSkipped      int       `json:"pages_skipped"`
	RetriesAttempted  int       `json:"retries_attempted"`
	LinksDiscovered   int       `json:"links_discovered"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
