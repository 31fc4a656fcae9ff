package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisputeKey(t *testing.T) {
	assert.Equal(t, "dispute:id:7f0c", DisputeKey("7f0c"))
}

func TestStatsKey(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "stats:disputes:all:any:any", StatsKey(KeyDisputes, "all", nil, nil))
	assert.Equal(t, "stats:arbitration:arbitrator-u1:20250101T000000:any",
		StatsKey(KeyArbitration, "arbitrator-u1", &from, nil))
}

func TestGenerateCompositeKey_EmptyComponent(t *testing.T) {
	assert.Equal(t, "stats:disputes:-:x", GenerateCompositeKey(EntityStats, KeyDisputes, "", "x"))
}
