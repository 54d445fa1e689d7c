package telemetry

import (
	"strconv"
	"strings"
	"time"
)

// The dspnet feed is not self-describing: every row is a fixed-order CSV line
// and fields are addressed purely by position. This block is the single place
// that knowledge lives. If the upstream ever reorders columns, fix it here.
const (
	colTimestamp  = 0
	colTemp       = 1
	colHumid      = 2
	colRadn       = 6
	colWindDegree = 7
	colWind       = 13
	colRainfall   = 14
	colBattery    = 16

	// minFeedColumns is the lowest column count that still contains every
	// field we read.
	minFeedColumns = 17
)

// Timestamps arrive in station-local time, usually without seconds.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseFeed converts one day's raw feed text into records, in source order.
// A line that is too short or whose timestamp does not parse is skipped and
// counted, never fatal; an unparseable sensor field only nils that field.
// Duplicate timestamps within the feed pass through untouched, dedup is the
// store's job. The second return value is the number of skipped lines.
func ParseFeed(raw string) ([]Record, int) {
	var records []Record
	skipped := 0

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < minFeedColumns {
			skipped++
			continue
		}

		ts, ok := parseTimestamp(fields[colTimestamp])
		if !ok {
			skipped++
			continue
		}

		records = append(records, Record{
			Timestamp:  ts,
			Temp:       parseOptionalFloat(fields[colTemp]),
			Humid:      parseOptionalFloat(fields[colHumid]),
			Radn:       parseOptionalFloat(fields[colRadn]),
			WindDegree: parseOptionalFloat(fields[colWindDegree]),
			Wind:       parseOptionalFloat(fields[colWind]),
			Rainfall:   parseOptionalFloat(fields[colRainfall]),
			Battery:    parseOptionalFloat(fields[colBattery]),
		})
	}

	return records, skipped
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseOptionalFloat maps empty or garbled fields to nil, never to zero.
func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
