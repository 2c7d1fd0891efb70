// Package scan discovers capture video files in a folder and infers the
// wall-clock window each one covers, producing the raw segment input a
// schedule is built from.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/timestone/timestone/internal/logger"
	"github.com/timestone/timestone/internal/schedule"
)

// Start-time inference source values.
const (
	SourceFilename = "filename"
	SourceMtime    = "mtime"
)

var videoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".mov":  true,
	".webm": true,
}

// OBS names recordings like "2025-03-14 09-26-53.mkv"; underscores appear in
// older capture tooling.
var nameTimestampRe = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[ _](\d{2})-(\d{2})-(\d{2})`)

// Result is one folder scan.
type Result struct {
	Videos        []schedule.VideoSegment `json:"videos"`
	TotalCount    int                     `json:"total_count"`
	FilteredCount int                     `json:"filtered_count"`
}

// Folder scans a capture folder, ordered by inferred start time. startMs and
// endMs, when non-nil, bound the result by each file's start time; files
// outside the bounds count toward TotalCount but not FilteredCount.
func Folder(dir string, startMs, endMs *int64) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan folder %s: %w", dir, err)
	}

	var all []schedule.VideoSegment
	for _, entry := range entries {
		if entry.IsDir() || !videoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		seg := schedule.VideoSegment{
			ID:       entry.Name(),
			FilePath: path,
			Name:     entry.Name(),
		}
		if start, ok := parseNameTimestamp(entry.Name()); ok {
			ms := start.UnixMilli()
			seg.StartWallMs = &ms
			seg.StartSource = SourceFilename
		} else if info, err := entry.Info(); err == nil {
			ms := info.ModTime().UnixMilli()
			seg.StartWallMs = &ms
			seg.StartSource = SourceMtime
		}
		all = append(all, seg)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].StartWallMs == nil {
			return false
		}
		if all[j].StartWallMs == nil {
			return true
		}
		return *all[i].StartWallMs < *all[j].StartWallMs
	})

	filtered := make([]schedule.VideoSegment, 0, len(all))
	for _, seg := range all {
		if seg.StartWallMs != nil {
			if startMs != nil && *seg.StartWallMs < *startMs {
				continue
			}
			if endMs != nil && *seg.StartWallMs > *endMs {
				continue
			}
		}
		filtered = append(filtered, seg)
	}

	logger.Debug().
		Str("dir", dir).
		Int("total", len(all)).
		Int("filtered", len(filtered)).
		Msg("Scanned capture folder")

	return &Result{
		Videos:        filtered,
		TotalCount:    len(all),
		FilteredCount: len(filtered),
	}, nil
}

// parseNameTimestamp extracts the local wall-clock start time embedded in a
// capture filename.
func parseNameTimestamp(name string) (time.Time, bool) {
	m := nameTimestampRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	normalized := fmt.Sprintf("%s-%s-%s %s-%s-%s", m[1], m[2], m[3], m[4], m[5], m[6])
	ts, err := time.ParseInLocation("2006-01-02 15-04-05", normalized, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
