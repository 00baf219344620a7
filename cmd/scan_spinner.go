package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type scanDoneMsg struct {
	err error
}

// scanSpinnerModel animates while a review scan runs and shows the elapsed
// time once the scan takes longer than a second.
type scanSpinnerModel struct {
	spinner spinner.Model
	elapsed lipgloss.Style
	label   string
	scan    tea.Cmd
	started time.Time
	now     func() time.Time
	err     error
	done    bool
}

func newScanSpinnerModel(label string, scan tea.Cmd, now func() time.Time) scanSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return scanSpinnerModel{
		spinner: s,
		elapsed: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		label:   label,
		scan:    scan,
		started: now(),
		now:     now,
	}
}

func (m scanSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.scan)
}

func (m scanSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case scanDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m scanSpinnerModel) View() string {
	if m.done {
		return ""
	}

	line := fmt.Sprintf("%s %s", m.spinner.View(), m.label)
	if elapsed := m.now().Sub(m.started); elapsed >= time.Second {
		line += " " + m.elapsed.Render(fmt.Sprintf("(%ds)", int(elapsed.Seconds())))
	}
	return line
}

func runScanSpinner(ctx context.Context, output io.Writer, label string, scan func(context.Context) error) error {
	scanCmd := func() tea.Msg {
		return scanDoneMsg{err: scan(ctx)}
	}

	p := tea.NewProgram(
		newScanSpinnerModel(label, scanCmd, time.Now),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("run scan spinner: %w", err)
	}

	result, ok := finalModel.(scanSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}

// withScanSpinner runs scan behind a spinner on an interactive stderr and
// plainly otherwise.
func withScanSpinner(cmd *cobra.Command, label string, scan func(context.Context) error) error {
	output := cmd.ErrOrStderr()
	file, ok := output.(*os.File)
	if jsonOutput(cmd) || !ok || !term.IsTerminal(int(file.Fd())) {
		return scan(cmd.Context())
	}
	return runScanSpinner(cmd.Context(), output, label, scan)
}
