package store

import (
	"fmt"
	"strings"
	"time"
)

// Key namespaces. These are part of the persisted-data contract and must
// stay stable so reimplementations can read existing records.
const (
	promptKeyPrefix      = "prompt_evolution:"
	aggregationKeyPrefix = "feedback_aggregation:"
	profileKeyPrefix     = "user_preferences:"
	proposalKeyPrefix    = "mutation_proposal:"
	eventKeyPrefix       = "feedback_event:"
)

// Retention for records without a period-derived TTL.
const (
	proposalTTL = 30 * 24 * time.Hour
	eventTTL    = 30 * 24 * time.Hour
)

// keyTimeLayout is RFC 3339 in UTC. Lexicographic order of formatted
// times matches chronological order, which prefix listings rely on.
const keyTimeLayout = "2006-01-02T15:04:05Z"

func promptKey(promptID string) string {
	return promptKeyPrefix + promptID
}

func aggregationKey(promptID, period string, start time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", aggregationKeyPrefix, promptID, period, start.UTC().Format(keyTimeLayout))
}

func aggregationScanPrefix(promptID, period string) string {
	return fmt.Sprintf("%s%s:%s:", aggregationKeyPrefix, promptID, period)
}

func profileKey(userID string) string {
	return profileKeyPrefix + userID
}

func proposalKey(promptID string, newVersion int) string {
	return fmt.Sprintf("%s%s:v%d", proposalKeyPrefix, promptID, newVersion)
}

// eventKey zero-pads the millisecond timestamp so event keys sort
// chronologically within a prompt's namespace.
func eventKey(promptID string, ts time.Time, eventID string) string {
	return fmt.Sprintf("%s%s:%013d:%s", eventKeyPrefix, promptID, ts.UnixMilli(), eventID)
}

func eventScanPrefix(promptID string) string {
	return eventKeyPrefix + promptID + ":"
}

// eventKeyMillis extracts the timestamp segment from an event key.
// Returns false for keys that do not match the expected shape.
func eventKeyMillis(key, promptID string) (int64, bool) {
	rest := strings.TrimPrefix(key, eventScanPrefix(promptID))
	if rest == key {
		return 0, false
	}
	sep := strings.IndexByte(rest, ':')
	if sep < 0 {
		return 0, false
	}
	var millis int64
	if _, err := fmt.Sscanf(rest[:sep], "%d", &millis); err != nil {
		return 0, false
	}
	return millis, true
}
