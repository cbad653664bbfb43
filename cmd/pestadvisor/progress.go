package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/pestadvisor/internal/model"
)

var (
	progressNameStyle  = lipgloss.NewStyle().Bold(true)
	progressFaintStyle = lipgloss.NewStyle().Faint(true)
	progressStates     = map[model.State]lipgloss.Style{
		model.StateIdentifying:  lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("33")).Padding(0, 1),
		model.StateResearching:  lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63")).Padding(0, 1),
		model.StateSynthesizing: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("130")).Padding(0, 1),
		model.StateDone:         lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("34")).Padding(0, 1),
		model.StateFailed:       lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1),
	}
)

// progress prints one line per state change of every run.
// It is used as a pipeline.Observer and is safe for concurrent use.
type progress struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func newProgress(out io.Writer) *progress {
	return &progress{out: out, now: time.Now}
}

// observe implements pipeline.Observer.
func (p *progress) observe(run *model.Run) {
	if run.State == model.StateIdle {
		return
	}

	name := run.ID
	if b := run.Bundle(); b != nil && b.ImageName() != "" {
		name = b.ImageName()
	}

	badge := run.State.String()
	if style, ok := progressStates[run.State]; ok {
		badge = style.Render(badge)
	}

	line := fmt.Sprintf("%s %s", badge, progressNameStyle.Render(name))
	switch run.State {
	case model.StateDone, model.StateFailed:
		line += " " + progressFaintStyle.Render(p.now().Sub(run.StartedAt).Round(time.Millisecond).String())
	}
	if run.State == model.StateFailed && run.Error != "" {
		line += "\n  " + run.Error
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}
