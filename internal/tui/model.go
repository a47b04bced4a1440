package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lifequest/internal/engine"
	"lifequest/internal/storage"
	"lifequest/internal/ui"
)

type boardModel struct {
	ctx context.Context
	svc Backend

	width  int
	height int

	character *storage.Character
	quests    []storage.Quest

	selected int

	lastLog string
	loading bool
	err     error
}

type loadedMsg struct {
	character *storage.Character
	quests    []storage.Quest
	err       error
}

type transitionMsg struct {
	title string
	res   *engine.TransitionResult
	err   error
}

func newBoardModel(ctx context.Context, svc Backend) boardModel {
	return boardModel{
		ctx:     ctx,
		svc:     svc,
		loading: true,
		lastLog: "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.loadCmd(false)
}

// loadCmd reads through the service cache; force goes to the store.
func (m boardModel) loadCmd(force bool) tea.Cmd {
	return func() tea.Msg {
		opts := engine.ReadOptions{Force: force}
		c, err := m.svc.GetCharacter(m.ctx, opts)
		if err != nil {
			return loadedMsg{err: err}
		}
		qs, err := m.svc.ListQuests(m.ctx, opts)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{character: c, quests: qs}
	}
}

func (m boardModel) setStatusCmd(q storage.Quest, to engine.QuestStatus) tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.SetQuestStatus(m.ctx, q.ID, to)
		return transitionMsg{title: q.Title, res: res, err: err}
	}
}

func (m boardModel) toggleTaskCmd(q storage.Quest, index int) tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.ToggleSubtask(m.ctx, q.ID, index)
		return transitionMsg{title: q.Title, res: res, err: err}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			// Keep what is on screen; a failed read does not clear the board.
			m.lastLog = "Load failed: " + msg.err.Error()
			if m.character == nil {
				m.err = msg.err
			}
			return m, nil
		}
		m.err = nil
		m.character = msg.character
		m.quests = sortedQuests(msg.quests)
		if m.selected >= len(m.quests) {
			m.selected = len(m.quests) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		m.lastLog = fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))
		return m, nil
	case transitionMsg:
		if msg.err != nil {
			m.lastLog = "Update failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = describeTransition(msg.title, msg.res)
		return m, m.loadCmd(false)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.lastLog = "Refreshing…"
			return m, m.loadCmd(true)
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.quests)-1 {
				m.selected++
			}
			return m, nil
		case "c", " ":
			q, ok := m.current()
			if !ok {
				return m, nil
			}
			to := engine.StatusCompleted
			if q.Status == string(engine.StatusCompleted) {
				to = engine.StatusInProgress
			}
			m.lastLog = fmt.Sprintf("Updating %s…", q.Title)
			return m, m.setStatusCmd(q, to)
		case "t":
			q, ok := m.current()
			if !ok {
				return m, nil
			}
			if len(q.Tasks) == 0 {
				m.lastLog = "This quest has no tasks."
				return m, nil
			}
			idx := engine.FirstOpenTask(q)
			if idx < 0 {
				idx = len(q.Tasks) - 1
			}
			return m, m.toggleTaskCmd(q, idx)
		}
	}
	return m, nil
}

func (m boardModel) current() (storage.Quest, bool) {
	if m.selected < 0 || m.selected >= len(m.quests) {
		return storage.Quest{}, false
	}
	return m.quests[m.selected], true
}

func describeTransition(title string, res *engine.TransitionResult) string {
	if res == nil || !res.Changed() {
		return fmt.Sprintf("%s: updated.", title)
	}
	line := fmt.Sprintf("%s: %s → %s", title, res.From, res.To)
	if res.XPDelta != 0 {
		line += fmt.Sprintf(" (%+d XP)", res.XPDelta)
	}
	if res.LevelUp() {
		line += fmt.Sprintf(" LEVEL UP %d → %d", res.LevelBefore, res.LevelAfter)
	}
	if res.Streak != nil && res.Streak.Changed {
		line += " | " + res.Streak.Message
	}
	return line
}

var statusOrder = map[string]int{
	string(engine.StatusInProgress): 0,
	string(engine.StatusAvailable):  1,
	string(engine.StatusCompleted):  2,
	string(engine.StatusFailed):     3,
}

// sortedQuests puts open quests first, then by creation time.
func sortedQuests(qs []storage.Quest) []storage.Quest {
	out := append([]storage.Quest(nil), qs...)
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := statusOrder[out[i].Status], statusOrder[out[j].Status]
		if oi != oj {
			return oi < oj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m boardModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}

	header := m.renderHeader()
	sidebar := m.renderSidebar()
	main := m.renderMain()
	footer := m.renderFooter()

	leftW := 26
	if m.width > 0 {
		maxLeft := m.width / 2
		if maxLeft < leftW {
			leftW = maxLeft
		}
		if leftW < 18 {
			leftW = 18
		}
	}

	left := lipgloss.NewStyle().Width(leftW).MarginRight(2).Render(sidebar)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, main)

	return header + "\n" + body + "\n" + footer
}

func (m boardModel) renderHeader() string {
	c := m.character
	if c == nil {
		return "Lifequest | loading…"
	}
	name := c.Name
	if name == "" {
		name = "Adventurer"
	}
	bar := ui.ProgressBar(c.XP, c.XPToNextLevel, 30)
	return fmt.Sprintf("Lifequest | %s | Level %d | XP %d/%d %s | Streak %d",
		name, c.Level, c.XP, c.XPToNextLevel, bar, c.StreakCount)
}

func (m boardModel) renderSidebar() string {
	if m.character == nil {
		return "Stats\n\nLoading…"
	}
	lines := []string{"Attributes"}
	for _, a := range engine.Attributes {
		lines = append(lines, fmt.Sprintf("- %-12s %3d", engine.AttributeLabel(a), m.character.Stats[string(a)]))
	}
	lines = append(lines, "")
	lines = append(lines, "Keys")
	lines = append(lines, "- ↑/↓ or j/k: move")
	lines = append(lines, "- c/space: complete/undo")
	lines = append(lines, "- t: toggle next task")
	lines = append(lines, "- r: refresh")
	lines = append(lines, "- q: quit")
	return strings.Join(lines, "\n")
}

func (m boardModel) renderMain() string {
	if m.loading && m.character == nil {
		return "Loading…"
	}
	out := []string{"Quest Log"}
	if len(m.quests) == 0 {
		out = append(out, "(empty)")
		return strings.Join(out, "\n")
	}
	for i, q := range m.quests {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		check := "[ ]"
		switch q.Status {
		case string(engine.StatusCompleted):
			check = "[x]"
		case string(engine.StatusFailed):
			check = "[!]"
		}
		line := fmt.Sprintf("%s%s %s %s (%s, %d XP)", cursor, check, ui.TypeIcon(q.Type), q.Title, strings.ReplaceAll(q.Status, "_", " "), q.XPReward)
		if len(q.Tasks) > 0 {
			line += " " + ui.ProgressBar(q.Progress, 100, 10)
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func (m boardModel) renderFooter() string {
	return "\n" + m.lastLog
}
