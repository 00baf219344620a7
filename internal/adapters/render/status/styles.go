package status

import (
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	account    lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	quotaKey   lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
	statusTag  map[domain.Status]lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		account:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		quotaKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		statusTag: map[domain.Status]lipgloss.Style{
			domain.StatusActive:            lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
			domain.StatusPending:           lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
			domain.StatusProfilePending:    lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
			domain.StatusSuspended:         lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			domain.StatusRejected:          lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			domain.StatusDormant:           lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			domain.StatusDeletionRequested: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
			domain.StatusDeleted:           lipgloss.NewStyle().Faint(true),
		},
	}
}

func (s styles) status(status domain.Status) string {
	style, ok := s.statusTag[status]
	if !ok {
		style = s.detail
	}
	return style.Render(string(status))
}
