package cache

import (
	"fmt"
	"strings"
	"time"
)

type EntityType string

const (
	EntityDispute EntityType = "dispute"
	EntityStats   EntityType = "stats"
)

type KeyType string

const (
	KeyID          KeyType = "id"
	KeyDisputes    KeyType = "disputes"
	KeyArbitration KeyType = "arbitration"
)

// GenerateKey creates a standardized cache key
func GenerateKey(entity EntityType, keyType KeyType, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entity, keyType, value)
}

// GenerateCompositeKey joins the components in the given order.
func GenerateCompositeKey(entity EntityType, keyType KeyType, components ...string) string {
	parts := make([]string, 0, len(components)+2)
	parts = append(parts, string(entity), string(keyType))
	for _, c := range components {
		if c == "" {
			c = "-"
		}
		parts = append(parts, c)
	}
	return strings.Join(parts, ":")
}

// DisputeKey is the case-file key for one dispute.
func DisputeKey(id string) string {
	return GenerateKey(EntityDispute, KeyID, id)
}

// StatsKey is the composite key for an aggregate: shape, scope and date range.
func StatsKey(shape KeyType, scope string, from, to *time.Time) string {
	return GenerateCompositeKey(EntityStats, shape, scope, formatBound(from), formatBound(to))
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "any"
	}
	return t.UTC().Format("20060102T150405")
}
