package ui

import (
	"fmt"
	"strings"
)

// formatTokens renders a token count the way the Header region does:
// millions as "x.yM", thousands as "x.yk", anything smaller as a plain
// integer.
func formatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// formatCost renders an estimated-cost float as a two-decimal dollar
// amount.
func formatCost(usd float64) string {
	return fmt.Sprintf("$%.2f", usd)
}

// formatProgressBar renders a fixed-width-10 text progress bar for a
// [0,100] percent value, rounding the filled-cell count to the nearest
// integer (half rounds up).
func formatProgressBar(percent int) string {
	const width = 10
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := (percent*width + 50) / 100
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// truncateTitle clamps s to max runes, appending an ellipsis when it
// had to cut.
func truncateTitle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

// shortAgentID returns the last n characters of an agent id, used by
// the Agent Grid cards to keep labels compact.
func shortAgentID(id string, n int) string {
	r := []rune(id)
	if len(r) <= n {
		return id
	}
	return string(r[len(r)-n:])
}

// statusToken renders an AgentStatus as the uppercased, width-4 token
// the Agent Grid cards show.
func statusToken(s string) string {
	u := strings.ToUpper(s)
	if len(u) >= 4 {
		return u[:4]
	}
	return u + strings.Repeat(" ", 4-len(u))
}
