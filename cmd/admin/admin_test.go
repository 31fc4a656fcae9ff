package main

import (
	"bytes"
	"strings"
	"testing"

	"arbitra/internal/models"
	"arbitra/internal/services/stats"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStats() *stats.DisputeStats {
	return &stats.DisputeStats{
		TotalDisputes:              3,
		StatusBreakdown:            map[string]int64{"open": 2, "resolved": 1},
		ResolutionBreakdown:        map[string]int64{"pending": 2, "refund": 1},
		AverageResolutionTimeHours: 12.5,
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", sampleStats()))

	assert.Contains(t, buf.String(), `"totalDisputes": 3`)
	assert.Contains(t, buf.String(), `"averageResolutionTimeHours": 12.5`)
	assert.NotContains(t, buf.String(), "arbitratorPerformance")
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, "yaml", sampleStats()))

	out := buf.String()
	assert.Contains(t, out, "totalDisputes: 3\n")
	assert.Contains(t, out, "statusBreakdown:\n  open: 2\n  resolved: 1\n")
}

func TestStatsCmd_RejectsUnknownFormat(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"stats", "--output", "xml"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestTokenCmd_MintsVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--id", "arb-1", "--email", "arb@example.com", "--role", "arbitrator"})
	require.NoError(t, root.Execute())

	var claims models.ActorClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "arb-1", claims.ActorID)
	assert.Equal(t, models.RoleArbitrator, claims.Role)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--role", "admin"})
	assert.EqualError(t, root.Execute(), "JWT_SECRET is not set")
}

func TestTokenCmd_RejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--role", "owner"})
	assert.EqualError(t, root.Execute(), `unknown role "owner"`)
}

func TestDeactivateAPIKeyCmd_ValidatesID(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"deactivate-apikey", "not-a-uuid"})
	assert.EqualError(t, root.Execute(), `invalid key id "not-a-uuid"`)

	root = newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"deactivate-apikey"})
	assert.Error(t, root.Execute())
}
