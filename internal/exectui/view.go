package exectui

import (
	"fmt"
	"strings"
	"time"
)

func render(s Snapshot, elapsed time.Duration) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("command pool") + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("elapsed %s", elapsed.Round(time.Second))) + "\n\n")

	queueLine := fmt.Sprintf("queue depth: %d", s.QueueDepth)
	b.WriteString(baseStyle.Render(queueLine) + "\n")

	statusLine := fmt.Sprintf(
		"%s  %s  %s  %s",
		mutedStyle.Render(fmt.Sprintf("pending %d", s.Pending)),
		warningStyle.Render(fmt.Sprintf("running %d", s.Running)),
		successStyle.Render(fmt.Sprintf("completed %d", s.Completed)),
		errorStyle.Render(fmt.Sprintf("failed %d", s.Failed)),
	)
	b.WriteString(statusLine + "\n\n")

	latencyLine := fmt.Sprintf(
		"latency p50=%s p95=%s p99=%s",
		s.P50Latency.Round(time.Millisecond),
		s.P95Latency.Round(time.Millisecond),
		s.P99Latency.Round(time.Millisecond),
	)
	b.WriteString(baseStyle.Render(latencyLine) + "\n\n")

	b.WriteString(mutedStyle.Render("q to quit") + "\n")

	return panelStyle.Render(b.String())
}
