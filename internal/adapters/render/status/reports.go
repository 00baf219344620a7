package status

import (
	"fmt"
	"math"
	"time"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/charmbracelet/lipgloss"
)

func renderDormancy(report application.DormancyReport, s styles) string {
	lines := []string{
		s.title.Render("Dormancy Review"),
		s.header.Render("generated: " + report.GeneratedAt.UTC().Format(stampLayout)),
	}

	lines = append(lines, s.section.Render(candidateSection(
		fmt.Sprintf("eligible now: %d", len(report.Eligible)),
		report.Eligible, s.warning, s,
	)))
	lines = append(lines, s.section.Render(candidateSection(
		fmt.Sprintf("approaching (notice window): %d", len(report.Approaching)),
		report.Approaching, s.detail, s,
	)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func candidateSection(heading string, candidates []application.DormancyCandidate, rowStyle lipgloss.Style, s styles) string {
	lines := []string{s.quotaKey.Render(heading)}
	if len(candidates) == 0 {
		lines = append(lines, s.empty.Render("  none"))
	}
	for _, candidate := range candidates {
		lines = append(lines, rowStyle.Render(fmt.Sprintf(
			"  %s  last login %s  dormant from %s",
			accountTitle(candidate.Account),
			candidate.LastLoginAt.UTC().Format(dateLayout),
			candidate.DormantFrom.UTC().Format(dateLayout),
		)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderPurgeable(candidates []application.PurgeCandidate, now time.Time, s styles) string {
	lines := []string{
		s.title.Render("Pending Hard Deletes"),
		s.header.Render(fmt.Sprintf("accounts past the grace period: %d", len(candidates))),
	}

	if len(candidates) == 0 {
		lines = append(lines, s.empty.Render("Nothing to purge."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, candidate := range candidates {
		row := fmt.Sprintf("%s  requested %s  purge after %s",
			accountTitle(candidate.Account),
			candidate.RequestedAt.UTC().Format(dateLayout),
			candidate.PurgeAt.UTC().Format(stampLayout),
		)
		if !now.IsZero() {
			overdue := int(math.Floor(now.Sub(candidate.PurgeAt).Hours() / 24))
			row += fmt.Sprintf("  (%d %s overdue)", overdue, plural(overdue, "day"))
		}
		lines = append(lines, s.detail.Render(row))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
