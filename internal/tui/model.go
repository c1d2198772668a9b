package tui

import (
	"upm/internal/aggregate"
	"upm/pkg/source"
)

// Model holds the browser state
type Model struct {
	// Core state
	ready    bool
	quitting bool

	// Dimensions
	width  int
	height int

	// Data
	report *aggregate.Report
	cursor int
	scroll int

	// UI state
	loading    bool
	loadingMsg string
	errorMsg   string
	successMsg string
	inputMode  bool
	query      string

	// Styles and keys
	styles *Styles
	keys   KeyMap

	// Confirmation dialog
	showConfirm   bool
	confirmTitle  string
	confirmAction func()
}

// NewModel creates a new browser model
func NewModel() *Model {
	return &Model{
		styles: DefaultStyles(),
		keys:   DefaultKeyMap(),
	}
}

// SetSize sets the terminal size
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// VisibleHeight returns the height available for list content
func (m *Model) VisibleHeight() int {
	// Account for header (2), input (1), status bar (1), footer (2)
	h := m.height - 6
	if h < 1 {
		h = 1
	}
	return h
}

// Packages returns the merged result list, or nil before the first search.
func (m *Model) Packages() []source.Package {
	if m.report == nil {
		return nil
	}
	return m.report.Packages
}

// Selected returns the package under the cursor.
func (m *Model) Selected() *source.Package {
	pkgs := m.Packages()
	if m.cursor < 0 || m.cursor >= len(pkgs) {
		return nil
	}
	return &pkgs[m.cursor]
}

// MoveCursor moves the cursor by delta, clamping to the list and keeping
// the selection visible.
func (m *Model) MoveCursor(delta int) {
	pkgs := m.Packages()
	if len(pkgs) == 0 {
		m.cursor = 0
		m.scroll = 0
		return
	}

	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(pkgs) {
		m.cursor = len(pkgs) - 1
	}

	visible := m.VisibleHeight()
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+visible {
		m.scroll = m.cursor - visible + 1
	}
}

// SetReport installs a fresh search report and resets the cursor.
func (m *Model) SetReport(report *aggregate.Report) {
	m.report = report
	m.cursor = 0
	m.scroll = 0
}
