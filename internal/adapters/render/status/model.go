package status

import (
	"errors"
	"io"
	"time"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

// model renders once and quits; the program never reads input.
type model struct {
	render func(styles) string
	styles styles
	output string
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.render(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func run(render func(styles) string) (string, error) {
	p := tea.NewProgram(
		model{render: render, styles: newStyles()},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

// Render draws account snapshots.
func Render(snapshots []domain.AccountSnapshot, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderView(snapshots, opts, s)
	})
}

func RenderDormancy(report application.DormancyReport) (string, error) {
	return run(func(s styles) string {
		return renderDormancy(report, s)
	})
}

func RenderPurgeable(candidates []application.PurgeCandidate, now time.Time) (string, error) {
	return run(func(s styles) string {
		return renderPurgeable(candidates, now, s)
	})
}
