package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const (
	quotaBarWidth = 24
	dateLayout    = "2006-01-02"
	stampLayout   = "2006-01-02 15:04 MST"
)

type RenderOptions struct {
	Now time.Time
}

func renderView(snapshots []domain.AccountSnapshot, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Account Lifecycle"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(snapshots))),
	}

	if len(snapshots) == 0 {
		lines = append(lines, s.empty.Render("No accounts."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, snapshot := range snapshots {
		lines = append(lines, s.section.Render(renderAccount(snapshot, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(snapshot domain.AccountSnapshot, opts RenderOptions, s styles) string {
	account := snapshot.Account
	parts := []string{
		s.account.Render(accountTitle(account)),
		lipgloss.JoinHorizontal(lipgloss.Top,
			s.detail.Render(fmt.Sprintf("%s · %s · ", kindLabel(account.Kind), account.Role)),
			s.status(account.Status),
		),
		s.detail.Render(planLine(account)),
	}

	if account.Kind == domain.KindCompany {
		parts = append(parts, s.detail.Render("follower search: "+limitLabel(account.FollowerSearchLimit)))
	}

	parts = append(parts, quotaLine(snapshot, opts, s))
	parts = append(parts, s.detail.Render("last login: "+formatOptional(account.LastLoginAt)))

	if snapshot.PurgeAt != nil {
		parts = append(parts, s.warning.Render("deletion requested: purge after "+snapshot.PurgeAt.UTC().Format(stampLayout)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(account domain.Account) string {
	email := strings.TrimSpace(account.Email)
	if email == "" {
		return string(account.ID)
	}
	return fmt.Sprintf("%s (%s)", email, account.ID)
}

func kindLabel(kind domain.Kind) string {
	return strings.ToLower(string(kind))
}

func planLine(account domain.Account) string {
	if account.PlanExpiry == nil {
		return "plan: " + string(account.Plan)
	}
	return fmt.Sprintf("plan: %s (expires %s)", account.Plan, account.PlanExpiry.UTC().Format(dateLayout))
}

func limitLabel(limit int) string {
	if limit == domain.Unlimited {
		return "unlimited"
	}
	return groupThousands(limit)
}

func groupThousands(v int) string {
	digits := fmt.Sprintf("%d", v)
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func quotaLine(snapshot domain.AccountSnapshot, opts RenderOptions, s styles) string {
	label := s.quotaKey.Render(fmt.Sprintf("%s quota:", snapshot.Action))
	if snapshot.MonthlyLimit == domain.Unlimited {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render("unlimited"))
	}

	used := snapshot.MonthlyUsed
	limit := snapshot.MonthlyLimit
	left := limit - used
	if left < 0 {
		left = 0
	}

	usedPercent := 100.0
	if limit > 0 {
		usedPercent = float64(used) / float64(limit) * 100
	}

	meta := s.detail.Render(fmt.Sprintf("%d/%d used, %d left", used, limit, left))
	if left == 0 {
		meta = s.warning.Render(fmt.Sprintf("%d/%d used, none left", used, limit))
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top,
		label, " ",
		renderProgressBar(usedPercent, quotaBarWidth, s), " ",
		meta,
	)

	if opts.Now.IsZero() {
		return line
	}
	return line + " " + s.header.Render(fmt.Sprintf("(%s)", formatResetRelative(monthReset(opts.Now), opts.Now)))
}

// monthReset is the first instant of the next UTC month.
func monthReset(now time.Time) time.Time {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

func renderProgressBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	used := clampPercent(usedPercent)
	leftFraction := (100.0 - used) / 100.0
	filled := int(math.Round(float64(width) * leftFraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(stampLayout)
}

func formatResetRelative(resetsAt, now time.Time) string {
	if !resetsAt.After(now) {
		return "resets now"
	}

	remaining := resetsAt.Sub(now)
	if remaining < 24*time.Hour {
		hours := int(math.Ceil(remaining.Hours()))
		if hours < 1 {
			hours = 1
		}
		return fmt.Sprintf("resets in %d %s", hours, plural(hours, "hour"))
	}

	days := int(math.Ceil(remaining.Hours() / 24))
	return fmt.Sprintf("resets in %d %s (%s)", days, plural(days, "day"), resetsAt.Format("02 Jan"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
