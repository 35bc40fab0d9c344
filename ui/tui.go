package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// State is the shared view of a running invocation. The engine's progress
// reports and the TUI read/write it concurrently, so all access goes through
// the mutex.
type State struct {
	mu sync.Mutex

	SourcePath string
	Bucket     string
	Mode       string

	FilesTotal     int
	FilesCompleted int

	// Current file progress as last reported by the engine.
	CurrentBytes int64
	CurrentTotal int64

	// SessionBytes accumulates bytes across completed files.
	SessionBytes int64

	StartedAt time.Time
	Done      bool
	Err       error
}

// NewState seeds the shared state for one invocation.
func NewState(sourcePath, bucket, mode string, filesTotal int) *State {
	return &State{
		SourcePath: sourcePath,
		Bucket:     bucket,
		Mode:       mode,
		FilesTotal: filesTotal,
		StartedAt:  time.Now(),
	}
}

// Progress implements the engine's ProgressReporter. Reports are per file
// with cumulative byte counts; a counter reset signals the next file. The
// accounting assumes one file in flight at a time, so TUI runs transfer
// sequentially.
func (s *State) Progress(transferred, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if transferred < s.CurrentBytes {
		// New file started; bank the previous one.
		s.SessionBytes += s.CurrentBytes
	}
	s.CurrentBytes = transferred
	s.CurrentTotal = total

	if total > 0 && transferred >= total {
		s.SessionBytes += transferred
		s.FilesCompleted++
		s.CurrentBytes = 0
		s.CurrentTotal = 0
	}
}

// Finish marks the invocation complete.
func (s *State) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Done = true
	s.Err = err
}

// snapshot copies the state under lock for rendering.
func (s *State) snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SourcePath:     s.SourcePath,
		Bucket:         s.Bucket,
		Mode:           s.Mode,
		FilesTotal:     s.FilesTotal,
		FilesCompleted: s.FilesCompleted,
		CurrentBytes:   s.CurrentBytes,
		CurrentTotal:   s.CurrentTotal,
		SessionBytes:   s.SessionBytes,
		StartedAt:      s.StartedAt,
		Done:           s.Done,
		Err:            s.Err,
	}
}

// UpdateMsg is sent periodically to refresh the rendered state.
type UpdateMsg struct{}

// Model implements the tea.Model interface for the transfer view.
type Model struct {
	state    *State
	spinner  spinner.Model
	progress progress.Model

	width int

	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
}

// NewModel builds the transfer view over the shared state.
func NewModel(state *State) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	prog := progress.New(progress.WithDefaultGradient())

	return Model{
		state:        state,
		spinner:      s,
		progress:     prog,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 14

	case UpdateMsg:
		if m.state.snapshot().Done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	st := m.state.snapshot()

	var sb strings.Builder

	header := fmt.Sprintf("%s Goshuttle %s", m.spinner.View(), m.titleStyle.Render("SFTP Transfer"))
	sb.WriteString(header + "\n")

	route := fmt.Sprintf("%s -> %s | mode: %s | files: %d/%d",
		st.SourcePath, st.Bucket, st.Mode, st.FilesCompleted, st.FilesTotal)
	sb.WriteString(m.infoStyle.Render(route) + "\n")

	var percent float64
	if st.CurrentTotal > 0 {
		percent = float64(st.CurrentBytes) / float64(st.CurrentTotal)
	} else if st.Done {
		percent = 1.0
	}
	sb.WriteString(m.progress.ViewAs(percent) + "\n")

	elapsed := time.Since(st.StartedAt)
	moved := st.SessionBytes + st.CurrentBytes
	speed := float64(0)
	if elapsed > 0 {
		speed = float64(moved) / elapsed.Seconds()
	}
	sb.WriteString(m.infoStyle.Render(fmt.Sprintf("%s moved | %s", formatBytes(moved), formatSpeed(speed))) + "\n")

	if st.Done {
		if st.Err != nil {
			sb.WriteString(m.errorStyle.Render("Transfer failed: "+st.Err.Error()) + "\n")
		} else {
			sb.WriteString(m.successStyle.Render("Transfer complete!") + "\n")
		}
	} else {
		sb.WriteString(m.infoStyle.Render("q/ctrl+c: quit") + "\n")
	}

	return sb.String()
}

func formatSpeed(bytesPerSec float64) string {
	if bytesPerSec >= 1024*1024*1024 {
		return fmt.Sprintf("%.2f GB/s", bytesPerSec/(1024*1024*1024))
	} else if bytesPerSec >= 1024*1024 {
		return fmt.Sprintf("%.2f MB/s", bytesPerSec/(1024*1024))
	} else if bytesPerSec >= 1024 {
		return fmt.Sprintf("%.2f KB/s", bytesPerSec/1024)
	}
	return fmt.Sprintf("%.0f B/s", bytesPerSec)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GB", float64(n)/(1024*1024*1024))
	case n >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%d B", n)
}
