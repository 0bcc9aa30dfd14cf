package storage

import "time"

// Run is one crawl invocation recorded in the visit log
type Run struct {
	RunID      string
	SeedURL    string
	Strategy   string
	StartedAt  time.Time
	FinishedAt *time.Time
	Fetched    int
	Failures   int
	Reason     string
}

// VisitRecord is one fetch attempt of a run. Status is 0 for connection failures.
type VisitRecord struct {
	VisitID   int
	RunID     string
	Seq       int
	URL       string
	Referrer  string
	Status    int
	Severity  string
	ElapsedMs int64
	Error     string
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	SeedURL            string         `json:"seed_url"`
	Strategy           string         `json:"strategy"`
	PagesFetched       int            `json:"pages_fetched"`
	ConnectionFailures int            `json:"connection_failures"`
	InfoCount          int            `json:"info_count"`
	WarningCount       int            `json:"warning_count"`
	ErrorCount         int            `json:"error_count"`
	TotalFetchTimeMs   int64          `json:"total_fetch_time_ms"`
	AvgFetchTimeMs     int64          `json:"avg_fetch_time_ms"`
	Slowest            []SlowURL      `json:"slowest,omitempty"`
	Patterns           map[string]int `json:"patterns,omitempty"`
	TerminationReason  string         `json:"termination_reason"`
}

// SlowURL is an exported entry of the slowest-URL table
type SlowURL struct {
	URL       string `json:"url"`
	ElapsedMs int64  `json:"elapsed_ms"`
}
