package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const ledgerRetention = 90 * 24 * time.Hour

// Ledger keeps per user, per day token counters in Redis hashes.
// Each hash field is "<feature>:<counter>" plus "total:<counter>".
type Ledger struct {
	rdb redis.Cmdable
}

// NewLedger returns a ledger. A nil client yields a ledger that records nothing.
func NewLedger(rdb redis.Cmdable) *Ledger {
	return &Ledger{rdb: rdb}
}

// DailyKey is the hash key for one user and day (UTC).
func DailyKey(userID string, day time.Time) string {
	return fmt.Sprintf("usage:%s:%s", userID, day.UTC().Format("2006-01-02"))
}

func counterFields(prefix string, t Totals) map[string]int64 {
	return map[string]int64{
		prefix + ":cachedContentTokenCount": t.CachedContentTokenCount,
		prefix + ":promptTokenCount":        t.PromptTokenCount,
		prefix + ":toolUsePromptTokenCount": t.ToolUsePromptTokenCount,
		prefix + ":thoughtsTokenCount":      t.ThoughtsTokenCount,
		prefix + ":candidatesTokenCount":    t.CandidatesTokenCount,
		prefix + ":inputTokenCount":         t.InputTokenCount,
		prefix + ":outputTokenCount":        t.OutputTokenCount,
		prefix + ":totalTokenCount":         t.TotalTokenCount,
	}
}

// Record adds a turn report to the user's daily hash in one transaction.
func (l *Ledger) Record(ctx context.Context, userID string, at time.Time, report Report) error {
	if l == nil || l.rdb == nil || report.Empty() {
		return nil
	}
	key := DailyKey(userID, at)

	pipe := l.rdb.TxPipeline()
	for feature, t := range report.ByFeature {
		for field, v := range counterFields(feature, t) {
			if v != 0 {
				pipe.HIncrBy(ctx, key, field, v)
			}
		}
	}
	for field, v := range counterFields("total", report.Totals) {
		if v != 0 {
			pipe.HIncrBy(ctx, key, field, v)
		}
	}
	pipe.Expire(ctx, key, ledgerRetention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record daily usage: %w", err)
	}
	return nil
}

// Daily reads back a user's report for one day.
func (l *Ledger) Daily(ctx context.Context, userID string, day time.Time) (Report, error) {
	if l == nil || l.rdb == nil {
		return FromTotals(nil), nil
	}
	values, err := l.rdb.HGetAll(ctx, DailyKey(userID, day)).Result()
	if err != nil {
		return Report{}, fmt.Errorf("read daily usage: %w", err)
	}
	return parseDailyHash(values), nil
}

func parseDailyHash(values map[string]string) Report {
	byFeature := make(map[string]Totals)
	for field, raw := range values {
		feature, counter, ok := splitField(field)
		if !ok || feature == "total" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		t := byFeature[feature]
		switch counter {
		case "cachedContentTokenCount":
			t.CachedContentTokenCount = v
		case "promptTokenCount":
			t.PromptTokenCount = v
		case "toolUsePromptTokenCount":
			t.ToolUsePromptTokenCount = v
		case "thoughtsTokenCount":
			t.ThoughtsTokenCount = v
		case "candidatesTokenCount":
			t.CandidatesTokenCount = v
		default:
			continue
		}
		byFeature[feature] = t
	}
	for feature, t := range byFeature {
		byFeature[feature] = t.derive()
	}
	return FromTotals(byFeature)
}

func splitField(field string) (string, string, bool) {
	for i := len(field) - 1; i >= 0; i-- {
		if field[i] == ':' {
			return field[:i], field[i+1:], true
		}
	}
	return "", "", false
}
