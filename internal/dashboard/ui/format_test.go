package ui

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatTokens(t *testing.T) {
	require.Equal(t, "999", formatTokens(999))
	require.Equal(t, "1.0k", formatTokens(1000))
	require.Equal(t, "1.5M", formatTokens(1_500_000))
	require.Equal(t, "12.3k", formatTokens(12_340))
}

func TestFormatCost(t *testing.T) {
	require.Equal(t, "$0.00", formatCost(0))
	require.Equal(t, "$1.23", formatCost(1.234))
	require.Equal(t, "$100.00", formatCost(100))
}

func TestFormatProgressBar(t *testing.T) {
	require.Equal(t, "[..........]", formatProgressBar(0))
	require.Equal(t, "[##########]", formatProgressBar(100))
	require.Equal(t, "[######....]", formatProgressBar(55)) // 5.5 rounds up to 6
	require.Equal(t, "[#####.....]", formatProgressBar(54)) // 5.4 rounds down to 5
}

func TestTruncateTitle(t *testing.T) {
	require.Equal(t, "short", truncateTitle("short", 20))
	require.Equal(t, "exactly twenty chars", truncateTitle("exactly twenty chars", 20))
	require.Equal(t, "this title is way to…", truncateTitle("this title is way too long to fit", 21))
}

func TestShortAgentID(t *testing.T) {
	require.Equal(t, "abc", shortAgentID("abc", 5))
	require.Equal(t, "5678", shortAgentID("agent-1234-5678", 4))
}

func TestStatusToken(t *testing.T) {
	require.Equal(t, "IDLE", statusToken("Idle"))
	require.Equal(t, "BUSY", statusToken("Busy"))
	require.Equal(t, "DEAD", statusToken("Dead"))
	require.Equal(t, "ERRO", statusToken("Error"))
}
