package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/neonddos/console/internal/stream"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"

	clearScreen = "\033[H\033[2J"
	rule        = "────────────────────────────────────────────────────────────"
)

// View is everything a frame of the dashboard shows.
type View struct {
	Server string
	State  stream.State
	Nav    *Navigator
	Snap   Snapshot
}

// Render writes one frame of the dashboard.
func Render(w io.Writer, v View) {
	fmt.Fprintf(w, "\n  %sNeonDDoS%s  %s  %s\n", colorBold, colorReset, v.Server, stateLabel(v.State))
	fmt.Fprintf(w, "  %s\n", rule)

	if len(v.Snap.Alerts) > 0 {
		a := v.Snap.Alerts[0]
		fmt.Fprintf(w, "  %s! %s%s\n", severityColor(a.Severity), a.Text, colorReset)
	}

	renderSidebar(w, v.Nav)

	fmt.Fprintf(w, "\n  %s%s%s\n", colorBold, v.Nav.Title(), colorReset)
	fmt.Fprintf(w, "  %s\n", rule)

	switch v.Nav.Active().ID {
	case SectionOverview:
		renderOverview(w, v.Snap)
	case SectionAttacks:
		renderAttacks(w, v.Snap)
	case SectionConnections:
		renderConnections(w, v.Snap)
	case SectionAlerts:
		renderAlerts(w, v.Snap)
	}

	fmt.Fprintf(w, "\n  %s1-%d/name switch section · t toggle sidebar · q quit%s\n",
		colorGray, len(v.Nav.Entries()), colorReset)
}

func renderSidebar(w io.Writer, nav *Navigator) {
	entries := nav.Entries()

	if nav.Collapsed() {
		var b strings.Builder
		for i, e := range entries {
			if nav.IsActive(e.ID) {
				fmt.Fprintf(&b, "%s[%d]%s ", colorCyan, i+1, colorReset)
			} else {
				fmt.Fprintf(&b, "[%d] ", i+1)
			}
		}
		fmt.Fprintf(w, "  %s\n", strings.TrimSpace(b.String()))
		return
	}

	for i, e := range entries {
		if nav.IsActive(e.ID) {
			fmt.Fprintf(w, "  %s> %d %s%s\n", colorCyan, i+1, e.Label, colorReset)
		} else {
			fmt.Fprintf(w, "    %d %s\n", i+1, e.Label)
		}
	}
}

func renderOverview(w io.Writer, s Snapshot) {
	if s.Stats == nil && s.Live == nil {
		fmt.Fprintln(w, "  Waiting for data...")
		return
	}

	if s.Stats != nil {
		monitoring := colorYellow + "idle" + colorReset
		if s.Stats.ActiveMonitoring {
			monitoring = colorGreen + "active" + colorReset
		}
		fmt.Fprintf(w, "  %-22s %d\n", "Attacks detected:", s.Stats.DetectedAttacks)
		fmt.Fprintf(w, "  %-22s %d\n", "Blocked IPs:", s.Stats.BlockedIPs)
		fmt.Fprintf(w, "  %-22s %s\n", "Monitoring:", monitoring)
		if len(s.Stats.BlockedIPList) > 0 {
			fmt.Fprintf(w, "  %-22s %s\n", "Blocked:", strings.Join(s.Stats.BlockedIPList, ", "))
		}
	}

	if s.Live != nil {
		fmt.Fprintf(w, "  %-22s %s\n", "Server load:", formatLoad(s.Live.ServerLoad))
		fmt.Fprintf(w, "  %-22s %d\n", "Tracked IPs:", s.Live.TrackingIPs)
		fmt.Fprintf(w, "  %-22s %.1f/s\n", "Connections:", s.Live.ConnectionsPerSecond)
	}

	if !s.Updated.IsZero() {
		fmt.Fprintf(w, "  %sUpdated %s%s\n", colorGray, s.Updated.Format("15:04:05"), colorReset)
	}
}

func renderAttacks(w io.Writer, s Snapshot) {
	if len(s.Attacks) == 0 {
		fmt.Fprintln(w, "  No attacks recorded.")
		return
	}

	fmt.Fprintf(w, "  %-20s %-16s %-18s %s\n", "TIME", "IP", "TYPE", "SEVERITY")
	for _, a := range s.Attacks {
		ts := a.Timestamp
		if len(ts) > 19 {
			ts = ts[:19]
		}
		fmt.Fprintf(w, "  %-20s %-16s %-18s %d\n", ts, a.IP, a.AttackType, a.Severity)
	}
}

func renderConnections(w io.Writer, s Snapshot) {
	if len(s.Connections) == 0 {
		fmt.Fprintln(w, "  No connections tracked.")
		return
	}

	fmt.Fprintf(w, "  %-16s %-12s %s\n", "IP", "CONNECTIONS", "STATUS")
	for _, c := range s.Connections {
		status := colorGreen + "allowed" + colorReset
		if c.Blocked {
			status = colorRed + "blocked" + colorReset
		}
		fmt.Fprintf(w, "  %-16s %-12d %s\n", c.IP, c.ConnectionCount, status)
	}
}

func renderAlerts(w io.Writer, s Snapshot) {
	if len(s.Alerts) == 0 {
		fmt.Fprintln(w, "  No alerts.")
		return
	}

	for _, a := range s.Alerts {
		fmt.Fprintf(w, "  %s %s[%-7s]%s %s\n",
			a.Time.Format("15:04:05"), severityColor(a.Severity), a.Severity, colorReset, a.Text)
	}
}

func stateLabel(s stream.State) string {
	switch s {
	case stream.StateOpen:
		return colorGreen + "● live" + colorReset
	case stream.StateGaveUp:
		return colorRed + "● offline" + colorReset
	default:
		return colorYellow + "● " + s.String() + colorReset
	}
}

func severityColor(s stream.Severity) string {
	switch s {
	case stream.SeverityDanger:
		return colorRed
	case stream.SeverityWarning:
		return colorYellow
	default:
		return colorCyan
	}
}

func formatLoad(pct float64) string {
	color := colorGreen
	switch {
	case pct >= 90:
		color = colorRed
	case pct >= 70:
		color = colorYellow
	}
	return fmt.Sprintf("%s%.1f%%%s", color, pct, colorReset)
}
