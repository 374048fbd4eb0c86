package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"lockcore/pkg/txn"
)

type keyMap struct {
	Up, Down, Select, Back, Validate, Quit key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "inspect")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Validate: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "validate")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type pane int

const (
	paneList pane = iota
	paneDetail
	paneValidate
)

type model struct {
	world *demoWorld

	pane     pane
	cursor   int
	viewport viewport.Model
	width    int
	height   int
}

func newModel(world *demoWorld) model {
	return model{world: world, pane: paneList}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport = viewport.New(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Back):
			if m.pane != paneList {
				m.pane = paneList
			}
			return m, nil

		case key.Matches(msg, keys.Validate):
			m.pane = paneValidate
			m.viewport.SetContent(m.renderValidation())
			return m, nil

		case key.Matches(msg, keys.Up):
			if m.pane == paneList && m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.pane == paneList && m.cursor < len(m.world.trx)-1 {
				m.cursor++
			}
			return m, nil

		case key.Matches(msg, keys.Select):
			if m.pane == paneList {
				m.pane = paneDetail
				m.viewport.SetContent(m.renderDetail())
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("lockview — lock table inspector") + "\n\n")

	switch m.pane {
	case paneList:
		b.WriteString(m.renderList())
	case paneDetail, paneValidate:
		b.WriteString(paneStyle.Render(m.viewport.View()))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move  enter inspect  v validate  esc back  q quit"))
	return b.String()
}

func (m model) renderList() string {
	var b strings.Builder
	for i, trx := range m.world.trx {
		line := fmt.Sprintf(" %s  state=%s  weight=%d", trx.ID(), trx.State(), trx.Weight())
		if waiting := m.waitingLine(trx); waiting != "" {
			line += "  " + waitingStyle.Render(waiting)
		} else {
			line += "  " + grantedStyle.Render("no pending wait")
		}
		if i == m.cursor {
			b.WriteString(selectedRowStyle.Render(line) + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func (m model) waitingLine(trx *txn.Transaction) string {
	locks := m.world.mgr.TxLocks(trx.ID())
	for _, l := range locks {
		if l.IsWaiting() {
			return fmt.Sprintf("waiting on %s", l)
		}
	}
	return ""
}

func (m model) renderDetail() string {
	trx := m.world.trx[m.cursor]
	dump := m.world.mgr.DumpTransaction(trx.ID())
	if strings.TrimSpace(dump) == fmt.Sprintf("trx %s:", trx.ID()) {
		dump += "  (no locks held)\n"
	}
	return dump
}

func (m model) renderValidation() string {
	violations := m.world.mgr.Validate()
	if len(violations) == 0 {
		return grantedStyle.Render("no invariant violations found") + "\n"
	}
	var b strings.Builder
	for _, v := range violations {
		b.WriteString(victimStyle.Render(v.String()) + "\n")
	}
	return b.String()
}
