package bi

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var csvHeader = []string{"channel", "messages", "num_members", "is_archived", "is_private", "period", "collected_at"}

// WriteCSV replaces the CSV cache with the given rows. The parent
// directory is created if needed.
func WriteCSV(path string, rows []ChannelActivity, period string, collectedAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv cache: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	ts := collectedAt.Format(time.RFC3339)
	for _, r := range rows {
		record := []string{
			r.Channel,
			strconv.Itoa(r.Messages),
			strconv.Itoa(r.NumMembers),
			strconv.FormatBool(r.IsArchived),
			strconv.FormatBool(r.IsPrivate),
			period,
			ts,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// CacheStats summarizes the CSV cache for the stats endpoint.
type CacheStats struct {
	TotalRecords   int    `json:"total_records"`
	UniqueChannels int    `json:"unique_channels"`
	CacheFile      string `json:"cache_file"`
	LastModified   string `json:"last_modified"`
}

// ReadCacheStats parses the CSV cache into summary stats.
func ReadCacheStats(path string) (*CacheStats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("no cached data available: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("corrupt csv cache: %w", err)
	}

	stats := &CacheStats{
		CacheFile:    path,
		LastModified: info.ModTime().Format(time.RFC3339),
	}
	channels := make(map[string]bool)
	for i, rec := range records {
		if i == 0 || len(rec) == 0 {
			continue
		}
		stats.TotalRecords++
		channels[rec[0]] = true
	}
	stats.UniqueChannels = len(channels)
	return stats, nil
}
