// Package bi collects read-only Slack channel activity and lands it in a
// CSV cache and, when configured, a Postgres sink.
package bi

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// ChannelActivity is one channel's message volume over the period.
type ChannelActivity struct {
	Channel    string `json:"channel"`
	Messages   int    `json:"messages"`
	NumMembers int    `json:"num_members"`
	IsArchived bool   `json:"is_archived"`
	IsPrivate  bool   `json:"is_private"`
}

// slackAPI is the slice of the Slack client the collector needs.
// *slack.Client satisfies it.
type slackAPI interface {
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
}

const (
	listLimit    = 200
	historyLimit = 1000
)

// Collector polls Slack for channel activity. Read-only: it only lists
// conversations and reads history.
type Collector struct {
	api        slackAPI
	channelCap int
	log        zerolog.Logger
	now        func() time.Time
}

// NewCollector builds a collector from a bot token.
func NewCollector(token string, channelCap int, log zerolog.Logger) (*Collector, error) {
	if token == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN not set")
	}
	return newCollector(slack.New(token), channelCap, log), nil
}

func newCollector(api slackAPI, channelCap int, log zerolog.Logger) *Collector {
	if channelCap <= 0 {
		channelCap = 50
	}
	return &Collector{api: api, channelCap: channelCap, log: log, now: time.Now}
}

// parsePeriod turns "7d", "24h", or "2w" into a duration. Bad input falls
// back to 7 days.
func parsePeriod(period string) time.Duration {
	period = strings.TrimSpace(strings.ToLower(period))
	if len(period) < 2 {
		return 7 * 24 * time.Hour
	}
	n, err := strconv.Atoi(period[:len(period)-1])
	if err != nil || n <= 0 {
		return 7 * 24 * time.Hour
	}
	switch period[len(period)-1] {
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Collect lists channels, counts messages since the start of the period,
// and returns activity rows sorted by message volume. Archived channels
// are skipped and the channel count is capped. Per-channel history errors
// drop that channel rather than failing the whole collection.
func (c *Collector) Collect(ctx context.Context, period string) ([]ChannelActivity, error) {
	channels, _, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
		Limit:           listLimit,
		ExcludeArchived: true,
	})
	if err != nil {
		return nil, fmt.Errorf("slack conversations.list: %w", err)
	}

	oldest := strconv.FormatFloat(float64(c.now().Add(-parsePeriod(period)).Unix()), 'f', 6, 64)

	var rows []ChannelActivity
	for _, ch := range channels {
		if ch.IsArchived {
			continue
		}
		if len(rows) >= c.channelCap {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		history, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: ch.ID,
			Limit:     historyLimit,
			Oldest:    oldest,
		})
		if err != nil {
			c.log.Warn().Err(err).Str("channel", ch.Name).Msg("channel history unavailable, skipping")
			continue
		}

		name := ch.Name
		if name == "" {
			name = ch.ID
		}
		rows = append(rows, ChannelActivity{
			Channel:    name,
			Messages:   len(history.Messages),
			NumMembers: ch.NumMembers,
			IsArchived: ch.IsArchived,
			IsPrivate:  ch.IsPrivate,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Messages > rows[j].Messages })
	return rows, nil
}
