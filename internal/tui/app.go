package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"upm/internal/aggregate"
	"upm/internal/ratelimit"
	"upm/pkg/source"
)

// Searcher runs one merged search. Satisfied by the aggregator.
type Searcher interface {
	Search(ctx context.Context, query string) (*aggregate.Report, error)
}

// Action installs or removes one package, including database bookkeeping.
type Action func(ctx context.Context, pkg source.Package) error

// Messages for async operations
type (
	searchDoneMsg struct {
		report *aggregate.Report
		err    error
	}

	operationDoneMsg struct {
		message string
		err     error
	}
)

// App wraps the Model with bubbletea components
type App struct {
	*Model
	spinner   spinner.Model
	textInput textinput.Model

	searcher Searcher
	install  Action
	remove   Action

	pendingCmd tea.Cmd
}

// NewApp creates a new search browser. The install and remove actions are
// supplied by the caller so the TUI never touches the database directly.
func NewApp(searcher Searcher, install, remove Action) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	ti := textinput.New()
	ti.Placeholder = "Type to search..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.Focus()

	m := NewModel()
	m.inputMode = true

	return &App{
		Model:     m,
		spinner:   sp,
		textInput: ti,
		searcher:  searcher,
		install:   install,
		remove:    remove,
	}
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, textinput.Blink)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetSize(msg.Width, msg.Height)
		a.ready = true

	case tea.KeyMsg:
		// Handle confirmation dialog first
		if a.showConfirm {
			switch msg.String() {
			case "y", "Y", "enter":
				a.showConfirm = false
				if cmd := a.pendingCmd; cmd != nil {
					a.pendingCmd = nil
					a.loading = true
					return a, tea.Batch(cmd, a.spinner.Tick)
				}
			case "n", "N", "esc", "q":
				a.showConfirm = false
				a.pendingCmd = nil
				a.loadingMsg = ""
			}
			return a, nil
		}

		// Handle input mode
		if a.inputMode {
			switch msg.String() {
			case "enter":
				query := strings.TrimSpace(a.textInput.Value())
				if query == "" {
					return a, nil
				}
				a.inputMode = false
				a.query = query
				a.errorMsg = ""
				a.successMsg = ""
				a.loading = true
				a.loadingMsg = "Searching for '" + query + "'..."
				return a, tea.Batch(a.doSearch(query), a.spinner.Tick)
			case "esc":
				if a.report != nil {
					a.inputMode = false
				}
				return a, nil
			case "ctrl+c":
				a.quitting = true
				return a, tea.Quit
			default:
				var cmd tea.Cmd
				a.textInput, cmd = a.textInput.Update(msg)
				return a, cmd
			}
		}

		// Global keybindings
		switch {
		case key.Matches(msg, a.keys.Quit):
			a.quitting = true
			return a, tea.Quit

		case key.Matches(msg, a.keys.Search):
			a.inputMode = true
			a.textInput.SetValue("")
			a.textInput.Focus()
			return a, textinput.Blink

		case key.Matches(msg, a.keys.Cancel):
			a.errorMsg = ""
			a.successMsg = ""

		// Navigation
		case key.Matches(msg, a.keys.Up), key.Matches(msg, a.keys.VimUp):
			a.MoveCursor(-1)
		case key.Matches(msg, a.keys.Down), key.Matches(msg, a.keys.VimDown):
			a.MoveCursor(1)
		case key.Matches(msg, a.keys.PageUp):
			a.MoveCursor(-a.VisibleHeight())
		case key.Matches(msg, a.keys.PageDown):
			a.MoveCursor(a.VisibleHeight())

		// Actions
		case key.Matches(msg, a.keys.Install):
			if pkg := a.Selected(); pkg != nil && !pkg.Installed {
				p := *pkg
				a.showConfirm = true
				a.confirmTitle = fmt.Sprintf("Install %s from %s?", p.Name, p.SourceLabel)
				a.pendingCmd = a.doAction("Installing", "Installed", a.install, p)
			}

		case key.Matches(msg, a.keys.Uninstall):
			if pkg := a.Selected(); pkg != nil && pkg.Installed {
				p := *pkg
				a.showConfirm = true
				a.confirmTitle = fmt.Sprintf("Remove %s?", p.Name)
				a.pendingCmd = a.doAction("Removing", "Removed", a.remove, p)
			}
		}

	case searchDoneMsg:
		a.loading = false
		a.loadingMsg = ""
		if msg.err != nil {
			a.errorMsg = describeSearchError(msg.err)
		} else {
			a.SetReport(msg.report)
			if len(msg.report.Packages) == 0 {
				a.errorMsg = "No packages found"
			}
		}

	case operationDoneMsg:
		a.loading = false
		a.loadingMsg = ""
		if msg.err != nil {
			a.errorMsg = msg.err.Error()
		} else {
			a.successMsg = msg.message
		}

	case spinner.TickMsg:
		if a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return a, tea.Batch(cmds...)
}

// doSearch runs a merged search in the background.
func (a *App) doSearch(query string) tea.Cmd {
	return func() tea.Msg {
		report, err := a.searcher.Search(context.Background(), query)
		return searchDoneMsg{report: report, err: err}
	}
}

// doAction runs an install or remove in the background.
func (a *App) doAction(progress, done string, action Action, pkg source.Package) tea.Cmd {
	a.loadingMsg = progress + " " + pkg.Name + "..."
	return func() tea.Msg {
		if err := action(context.Background(), pkg); err != nil {
			return operationDoneMsg{err: err}
		}
		return operationDoneMsg{message: done + " " + pkg.Name}
	}
}

func describeSearchError(err error) string {
	var denied *ratelimit.DeniedError
	if errors.As(err, &denied) {
		return fmt.Sprintf("Rate limited, retry in %.0fs", denied.Wait.Seconds())
	}
	if errors.Is(err, aggregate.ErrNoSources) {
		return "No package sources available"
	}
	return err.Error()
}

// View implements tea.Model
func (a *App) View() string {
	if a.quitting {
		return ""
	}
	if !a.ready {
		return "Loading..."
	}

	var b strings.Builder

	header := a.styles.Header.Width(a.width).Render("upm — package search")
	b.WriteString(header + "\n")

	if a.inputMode {
		b.WriteString(a.styles.InputPrompt.Render("Search: ") + a.textInput.View() + "\n")
	} else {
		b.WriteString(a.styles.InputPrompt.Render("Query: ") + a.query + "\n")
	}

	switch {
	case a.showConfirm:
		b.WriteString("\n" + a.styles.Warning.Render(a.confirmTitle) + " " +
			a.styles.Description.Render("[y/n]") + "\n")
	case a.loading:
		b.WriteString("\n" + a.spinner.View() + " " + a.loadingMsg + "\n")
	default:
		b.WriteString(a.renderList())
	}

	b.WriteString(a.renderStatus())
	b.WriteString("\n" + a.styles.Footer.Render(a.renderHelp()))

	return b.String()
}

// renderList renders the visible slice of the result list.
func (a *App) renderList() string {
	pkgs := a.Packages()
	if len(pkgs) == 0 {
		return "\n" + a.styles.Description.Render("  No results. Press / to search.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")

	visible := a.VisibleHeight()
	end := a.scroll + visible
	if end > len(pkgs) {
		end = len(pkgs)
	}

	for i := a.scroll; i < end; i++ {
		pkg := pkgs[i]

		name := a.styles.PackageName.Render(pkg.Name)
		if pkg.Installed {
			name += " " + a.styles.Success.Render("[installed]")
		}
		version := ""
		if pkg.Version != "" {
			version = " " + a.styles.PackageVersion.Render(pkg.Version)
		}
		line := SourceBadge(string(pkg.Kind)) + " " + name + version

		if i == a.cursor {
			b.WriteString(a.styles.ListItemSelected.String() + line + "\n")
			if pkg.Description != "" {
				desc := pkg.Description
				if len(desc) > 70 {
					desc = desc[:67] + "..."
				}
				b.WriteString(a.styles.PackageDesc.Render("    "+desc) + "\n")
			}
		} else {
			b.WriteString(a.styles.ListItem.Render(line) + "\n")
		}
	}

	return b.String()
}

// renderStatus renders the per-source outcome line plus any message.
func (a *App) renderStatus() string {
	var parts []string

	if a.report != nil {
		for _, out := range a.report.Outcomes {
			switch out.Status {
			case aggregate.StatusOK:
				parts = append(parts, fmt.Sprintf("%s: %d", out.Kind, out.Count))
			case aggregate.StatusDenied:
				parts = append(parts, fmt.Sprintf("%s: rate limited", out.Kind))
			case aggregate.StatusFailed:
				parts = append(parts, fmt.Sprintf("%s: error", out.Kind))
			case aggregate.StatusDisabled:
				parts = append(parts, fmt.Sprintf("%s: off", out.Kind))
			case aggregate.StatusUnavailable:
				parts = append(parts, fmt.Sprintf("%s: n/a", out.Kind))
			}
		}
	}

	status := strings.Join(parts, "  ")
	if a.errorMsg != "" {
		status = a.styles.Error.Render(a.errorMsg)
	} else if a.successMsg != "" {
		status = a.styles.Success.Render(a.successMsg)
	}

	return a.styles.StatusBar.Width(a.width).Render(status)
}

// renderHelp renders the short help line.
func (a *App) renderHelp() string {
	var parts []string
	for _, binding := range a.keys.ShortHelp() {
		h := binding.Help()
		parts = append(parts, a.styles.HelpKey.Render(h.Key)+a.styles.HelpDesc.Render(" "+h.Desc))
	}
	return strings.Join(parts, "  ")
}
