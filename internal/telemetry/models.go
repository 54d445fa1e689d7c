package telemetry

import (
	"time"
)

// Record is a single weather-station sample. Timestamp is the natural key;
// every sensor field is independently optional and nil means the station
// reported nothing usable for that column.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	Temp       *float64  `json:"temp"`
	Humid      *float64  `json:"humid"`
	Radn       *float64  `json:"radn"`
	WindDegree *float64  `json:"wind_degree"`
	Wind       *float64  `json:"wind"`
	Rainfall   *float64  `json:"rainfall"`
	Battery    *float64  `json:"battery"`
}

// Stats is an on-demand aggregate over a window of records. Averages and
// sums skip NULL sensor values; DataCount counts every record in the window
// regardless of which fields it carries.
type Stats struct {
	AvgTemp       *float64 `json:"avg_temp"`
	MaxTemp       *float64 `json:"max_temp"`
	MinTemp       *float64 `json:"min_temp"`
	AvgHumid      *float64 `json:"avg_humid"`
	TotalRainfall *float64 `json:"total_rainfall"`
	AvgRadn       *float64 `json:"avg_radn"`
	DataCount     int      `json:"data_count"`
}

// IngestSummary reports one fetch-parse-store cycle.
type IngestSummary struct {
	RunID    string `json:"run_id"`
	Day      string `json:"day"`
	Received int    `json:"records_received"`
	Written  int    `json:"records_written"`
	Skipped  int    `json:"lines_skipped"`
}
