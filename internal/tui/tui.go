package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/potion-shop/internal/engine"
	"github.com/tatianab/potion-shop/internal/models"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))
)

// promptModel asks for one line of free text next to a panel showing the
// shop's state.
type promptModel struct {
	req       engine.ActionRequest
	textInput textinput.Model
	width     int
	done      bool
	aborted   bool
}

func newPromptModel(req engine.ActionRequest) promptModel {
	ti := textinput.New()
	ti.Placeholder = "How will you get the missing ingredients?"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return promptModel{req: req, textInput: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit

		case tea.KeyEnter:
			if strings.TrimSpace(m.textInput.Value()) == "" {
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	hint := gameStyle.Render(fmt.Sprintf("Assistant: you are missing %s.", formatCounts(m.req.Missing)))
	prompt := lipgloss.JoinVertical(lipgloss.Left,
		userStyle.Render(fmt.Sprintf("Day %d", m.req.Day)),
		"",
		hint,
		"",
		m.textInput.View(),
		"",
		helpStyle.Render("Enter to act, Esc to stop the game."),
	)
	return "\n" + lipgloss.JoinHorizontal(lipgloss.Top, prompt, "  ", m.renderState()) + "\n"
}

func (m promptModel) renderState() string {
	p := m.req.Player

	quest := titleStyle.Render("QUEST") + "\n"
	if m.req.Quest.PotionName == "" {
		quest += "(none)\n\n"
	} else {
		quest += fmt.Sprintf("%s\n%s for %d gold\n\n", m.req.Quest.Name, m.req.Quest.PotionName, m.req.Quest.Reward)
	}

	stats := titleStyle.Render("SHOP") + "\n"
	stats += fmt.Sprintf("Gold: %d\nReputation: %s\nDays passed: %d\n\n", p.Gold, p.ReputationLevel, p.DaysPassed)

	inventory := titleStyle.Render("INGREDIENTS") + "\n"
	if len(m.req.Stock) == 0 {
		inventory += "(empty)"
	} else {
		for _, name := range sortedKeys(m.req.Stock) {
			inventory += fmt.Sprintf("- %s x%d\n", name, m.req.Stock[name])
		}
	}

	stateWidth := 32
	if m.width > 0 {
		stateWidth = int(float64(m.width) * 0.3)
	}
	return stateStyle.Width(stateWidth).Render(quest + stats + inventory)
}

// Prompter asks the player for actions on the terminal.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

// NextAction runs one prompt. Esc or Ctrl+C yields engine.ErrInterrupted.
func (p Prompter) NextAction(ctx context.Context, req engine.ActionRequest) (string, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}

	final, err := tea.NewProgram(newPromptModel(req), opts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	m, ok := final.(promptModel)
	if !ok || m.aborted || !m.done {
		return "", engine.ErrInterrupted
	}
	return strings.TrimSpace(m.textInput.Value()), nil
}

// Console prints run progress with the game's styles.
type Console struct {
	Out io.Writer
}

func (c Console) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c Console) DayStarted(day int, p models.Player) {
	fmt.Fprintf(c.out(), "\n%s\n%s\n",
		titleStyle.Render(fmt.Sprintf("Day %d", day)),
		helpStyle.Render(fmt.Sprintf("Gold: %d | Reputation: %s", p.Gold, p.ReputationLevel)),
	)
}

func (c Console) StageFinished(r engine.StageResult) {
	w := c.out()
	if r.Err != nil {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%s failed: %v", r.Stage, r.Err)))
		return
	}
	switch r.Stage {
	case engine.StageQuestGeneration:
		fmt.Fprintln(w, gameStyle.Render(fmt.Sprintf("New quest: %s (%s, %d gold)", r.Quest.Name, r.Quest.PotionName, r.Quest.Reward)))
	case engine.StageRecipeDigest:
		if len(r.Missing) > 0 {
			fmt.Fprintln(w, gameStyle.Render("Missing ingredients: "+formatCounts(r.Missing)))
		} else if r.Narrative != "" {
			fmt.Fprintln(w, gameStyle.Render(r.Narrative))
		}
	case engine.StageFinalReview:
		fmt.Fprintf(w, "\n%s\n%s\n", titleStyle.Render("Final review"), gameStyle.Render(r.Narrative))
	default:
		if r.Narrative != "" {
			fmt.Fprintln(w, gameStyle.Render(r.Narrative))
		}
	}
	for _, op := range r.Merge.Unsupported {
		fmt.Fprintln(w, helpStyle.Render(op+" is not supported yet; ignored."))
	}
}

func (c Console) Crafting(cost int, p models.Player) {
	fmt.Fprintln(c.out(), gameStyle.Render(fmt.Sprintf("Assistant: all ingredients in stock, brewing costs %d gold (now %d).", cost, p.Gold)))
}

func (c Console) GameOver(sum engine.Summary) {
	reason := "the season is over"
	if sum.Reason == engine.StopBankrupt {
		reason = "the shop is out of gold"
	}
	fmt.Fprintf(c.out(), "\n%s\n%s\n",
		titleStyle.Render("Game over"),
		helpStyle.Render(fmt.Sprintf("%s after %d day(s); gold %d, %d log entries.", reason, sum.DaysPlayed, sum.Player.Gold, sum.Entries)),
	)
}

func formatCounts(m map[string]int) string {
	if len(m) == 0 {
		return "nothing"
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s x%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
