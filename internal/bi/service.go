package bi

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Report is the slack_insights response shape.
type Report struct {
	Labels        []string          `json:"_labels"`
	Period        string            `json:"period"`
	TotalChannels int               `json:"total_channels"`
	TopChannels   []ChannelActivity `json:"top_channels"`
	NeonSink      bool              `json:"neon_sink"`
	CSVCache      string            `json:"csv_cache,omitempty"`
	Error         string            `json:"error,omitempty"`
}

const topChannelCount = 10

// Service runs one collection cycle and fans the rows out to the sinks.
type Service struct {
	collector *Collector
	csvPath   string
	sink      *PostgresSink
	log       zerolog.Logger
	now       func() time.Time
}

// NewService wires the collector to the CSV cache and the optional
// Postgres sink. sink may be nil when NEON_DATABASE_URL is unset.
func NewService(collector *Collector, csvPath string, sink *PostgresSink, log zerolog.Logger) *Service {
	return &Service{collector: collector, csvPath: csvPath, sink: sink, log: log, now: time.Now}
}

// Run collects channel activity for the period, caches it to CSV, writes
// to Postgres when configured, and returns the report. Sink failures
// degrade the report rather than fail it; only collection errors are
// returned.
func (s *Service) Run(ctx context.Context, period string) (*Report, error) {
	rows, err := s.collector.Collect(ctx, period)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Labels:        []string{"internal"},
		Period:        period,
		TotalChannels: len(rows),
	}
	if len(rows) == 0 {
		report.Error = "No channel data available"
		return report, nil
	}

	if err := WriteCSV(s.csvPath, rows, period, s.now()); err != nil {
		s.log.Warn().Err(err).Str("path", s.csvPath).Msg("csv cache write failed")
	} else {
		report.CSVCache = s.csvPath
	}

	if s.sink != nil {
		if err := s.sink.Write(ctx, rows, period); err != nil {
			s.log.Warn().Err(err).Msg("postgres sink write failed")
		} else {
			report.NeonSink = true
		}
	}

	top := rows
	if len(top) > topChannelCount {
		top = top[:topChannelCount]
	}
	report.TopChannels = top
	return report, nil
}

// Stats summarizes the CSV cache.
func (s *Service) Stats() (*CacheStats, error) {
	return ReadCacheStats(s.csvPath)
}
