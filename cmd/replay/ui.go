package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/yags-engine/pkg/eventlog"
)

const autoplayInterval = 700 * time.Millisecond

// ReplayUI is the BubbleTea model that steps through a recorded session.
// https://github.com/charmbracelet/bubbletea
type ReplayUI struct {
	filename string
	events   []eventlog.Event

	index        int // events[0:index+1] are visible
	autoplay     bool
	logViewport  viewport.Model
	metaViewport viewport.Model
	ready        bool
	width        int
	height       int
}

type autoplayTickMsg struct{}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	roundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narrationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	declarationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")) // teal

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	spikeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewReplayUI(filename string, events []eventlog.Event) ReplayUI {
	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true
	metaVp := viewport.New(20, 20)

	return ReplayUI{
		filename:     filename,
		events:       events,
		index:        0,
		logViewport:  logVp,
		metaViewport: metaVp,
	}
}

func (m ReplayUI) Init() tea.Cmd {
	return nil
}

func (m ReplayUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		logWidth := int(float64(m.width)*0.7) - 4
		metaWidth := m.width - logWidth - 6
		m.logViewport.Width = logWidth - 2
		m.logViewport.Height = m.height - 4
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4

		m.ready = true
		m.writeContent()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "n", " ":
			m.autoplay = false
			m.advance(1)
		case "left", "p":
			m.autoplay = false
			m.advance(-1)
		case "home", "g":
			m.autoplay = false
			m.index = 0
			m.writeContent()
		case "end", "G":
			m.autoplay = false
			m.index = len(m.events) - 1
			m.writeContent()
		case "a":
			m.autoplay = !m.autoplay
			if m.autoplay {
				return m, autoplayTick()
			}
		}

	case autoplayTickMsg:
		if m.autoplay {
			if m.index < len(m.events)-1 {
				m.advance(1)
				return m, autoplayTick()
			}
			m.autoplay = false
		}
	}

	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m *ReplayUI) advance(delta int) {
	m.index += delta
	if m.index < 0 {
		m.index = 0
	}
	if m.index > len(m.events)-1 {
		m.index = len(m.events) - 1
	}
	m.writeContent()
}

// writeContent rebuilds both panels for the current position.
func (m *ReplayUI) writeContent() {
	if !m.ready {
		return
	}
	logWidth := m.logViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION REPLAY") + "  " + mutedStyle.Render(m.filename) + "\n\n")

	lastRound := -1
	for i := 0; i <= m.index && i < len(m.events); i++ {
		event := m.events[i]
		if event.Round != lastRound {
			lastRound = event.Round
			header := fmt.Sprintf("Round %d", event.Round)
			if event.Round == 0 {
				header = "Setup"
			}
			content.WriteString(roundStyle.Render("── "+header+" ") +
				mutedStyle.Render(strings.Repeat("─", max(0, logWidth-len(header)-6))) + "\n\n")
		}
		content.WriteString(renderEvent(event, logWidth) + "\n")
	}

	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
	m.metaViewport.SetContent(m.writeMetadata())
}

// renderEvent formats one event line for the transcript panel.
func renderEvent(event eventlog.Event, width int) string {
	switch event.Type {
	case eventlog.EventSessionStart:
		return mutedStyle.Render(fmt.Sprintf("session %s begins", shortID(event)))
	case eventlog.EventSessionEnd:
		outcome, _ := event.Data["outcome"].(string)
		return titleStyle.Render(fmt.Sprintf("session ends: %s", outcome))
	case eventlog.EventActionDeclaration:
		who, _ := event.Data["character"].(string)
		action, _ := event.Data["action"].(string)
		return declarationStyle.Render(who+" declares: ") + wordwrap.String(action, width-len(who)-12)
	case eventlog.EventActionResolution:
		agent, _ := event.Data["agent"].(string)
		narration, _ := event.Data["narration"].(string)
		line := narrationStyle.Render(agent+": ") + wordwrap.String(narration, width-len(agent)-4)
		if roll, ok := event.Data["roll"].(map[string]any); ok && roll != nil {
			line += "\n" + mutedStyle.Render(fmt.Sprintf("  d20 %v + ability vs dc %v, margin %v (%v)",
				roll["d20"], roll["dc"], roll["margin"], roll["tier"]))
		}
		if fallback, _ := event.Data["fallback_triggered"].(bool); fallback {
			line += "\n" + warnStyle.Render("  extraction fell back to narration parsing")
		}
		return line
	case eventlog.EventCharacterState:
		who, _ := event.Data["character"].(string)
		return mutedStyle.Render(fmt.Sprintf("  %s: hp %v, void %v, sc %v, %v",
			who, event.Data["health"], event.Data["void_score"],
			event.Data["soulcredit"], event.Data["position"]))
	case eventlog.EventEnemySpawn:
		name, _ := event.Data["name"].(string)
		return spikeStyle.Render(fmt.Sprintf("an enemy appears: %s", name))
	case eventlog.EventEnemyDefeat:
		enemy, _ := event.Data["enemy"].(string)
		return narrationStyle.Render(fmt.Sprintf("%s is defeated", enemy))
	case eventlog.EventClockAdvancement:
		name, _ := event.Data["clock_name"].(string)
		filled, _ := event.Data["filled"].(bool)
		line := warnStyle.Render(fmt.Sprintf("clock %q: %v/%v",
			name, event.Data["new_value"], event.Data["maximum"]))
		if filled {
			line += spikeStyle.Render("  FILLED")
		}
		return line
	case eventlog.EventVoidSpike:
		who, _ := event.Data["character"].(string)
		return spikeStyle.Render(fmt.Sprintf("VOID SPIKE: %s (score %v)", who, event.Data["new_score"]))
	case eventlog.EventRoundSummary:
		return mutedStyle.Render(fmt.Sprintf("round summary: success rate %.2f", floatOf(event.Data["success_rate"])))
	default:
		return mutedStyle.Render(string(event.Type))
	}
}

// writeMetadata builds the right-hand panel: position, latest character
// states and clock values as of the current event.
func (m *ReplayUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("REPLAY STATE") + "\n\n")

	current := m.events[m.index]
	content.WriteString("Session:\n")
	content.WriteString(shortID(current) + "...\n\n")
	content.WriteString(fmt.Sprintf("Event %d of %d\n", m.index+1, len(m.events)))
	content.WriteString(fmt.Sprintf("Round %d, seq %d\n\n", current.Round, current.Seq))

	characters := map[string]string{}
	clocks := map[string]string{}
	for i := 0; i <= m.index; i++ {
		event := m.events[i]
		switch event.Type {
		case eventlog.EventCharacterState:
			who, _ := event.Data["character"].(string)
			characters[who] = fmt.Sprintf("hp %v  void %v  sc %v",
				event.Data["health"], event.Data["void_score"], event.Data["soulcredit"])
		case eventlog.EventClockAdvancement:
			name, _ := event.Data["clock_name"].(string)
			clocks[name] = fmt.Sprintf("%v/%v", event.Data["new_value"], event.Data["maximum"])
		}
	}

	content.WriteString("Characters:\n")
	if len(characters) == 0 {
		content.WriteString("none seen yet\n")
	}
	for _, who := range sortedKeys(characters) {
		content.WriteString(fmt.Sprintf("• %s: %s\n", who, characters[who]))
	}

	content.WriteString("\nClocks:\n")
	if len(clocks) == 0 {
		content.WriteString("none seen yet\n")
	}
	for _, name := range sortedKeys(clocks) {
		content.WriteString(fmt.Sprintf("• %s: %s\n", name, clocks[name]))
	}

	content.WriteString("\n")
	content.WriteString("Keys:\n")
	content.WriteString("• →/n/space: next\n")
	content.WriteString("• ←/p: previous\n")
	content.WriteString("• a: autoplay\n")
	content.WriteString("• g/G: start/end\n")
	content.WriteString("• q: quit\n")

	return content.String()
}

func (m ReplayUI) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 2).Render(m.logViewport.View())
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(m.metaViewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}

func autoplayTick() tea.Cmd {
	return tea.Tick(autoplayInterval, func(time.Time) tea.Msg {
		return autoplayTickMsg{}
	})
}

func shortID(event eventlog.Event) string {
	return event.SessionID.String()[:8]
}

func floatOf(v any) float64 {
	f, _ := v.(float64)
	return f
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
