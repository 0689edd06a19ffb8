// Package tui provides a full-screen scene picker.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/scenedl/internal/domain"
	"github.com/mmcdole/scenedl/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// ErrCanceled is returned when the picker is closed without a choice.
var ErrCanceled = errors.New("scene selection canceled")

// SceneItem implements list.Item for catalog scenes
type SceneItem struct {
	Index     int // 1-based catalog position
	Scene     domain.Scene
	Installed bool
}

func (i SceneItem) FilterValue() string { return i.Scene.Name }

func (i SceneItem) Title() string {
	mark := " "
	if i.Installed {
		mark = styles.InstalledChar
	}
	return fmt.Sprintf("%s [%d] %s", mark, i.Index, i.Scene.Name)
}

func (i SceneItem) Description() string { return i.Scene.URL }

// fuzzyFilter ranks list items with sahilm/fuzzy.
func fuzzyFilter(term string, targets []string) []list.Rank {
	lower := make([]string, len(targets))
	for i, t := range targets {
		lower[i] = strings.ToLower(t)
	}

	matches := fuzzy.Find(strings.ToLower(term), lower)
	ranks := make([]list.Rank, len(matches))
	for i, m := range matches {
		ranks[i] = list.Rank{Index: m.Index, MatchedIndexes: m.MatchedIndexes}
	}
	return ranks
}

// Model is the bubbletea model for the picker
type Model struct {
	list     list.Model
	keys     KeyMap
	chosen   *domain.Scene
	quitting bool
}

// NewModel creates a picker over scenes. installed marks scene names that
// already have an install record.
func NewModel(scenes []domain.Scene, installed map[string]bool) Model {
	items := make([]list.Item, len(scenes))
	for i, s := range scenes {
		items[i] = SceneItem{Index: i + 1, Scene: s, Installed: installed[s.Name]}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = styles.SelectedStyle
	delegate.Styles.SelectedDesc = styles.SelectedStyle.Foreground(styles.LightGray)
	delegate.Styles.NormalTitle = styles.NormalStyle
	delegate.Styles.NormalDesc = styles.NormalStyle.Foreground(styles.DimGray)

	keys := DefaultKeyMap()

	l := list.New(items, delegate, 0, 0)
	l.Title = "Choose scene to download"
	l.Styles.Title = styles.TitleStyle
	l.Filter = fuzzyFilter
	l.SetShowStatusBar(false)
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{keys.Choose} }

	return Model{list: l, keys: keys}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		// While the filter prompt is open keys belong to the list
		if m.list.SettingFilter() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Choose):
			if item, ok := m.list.SelectedItem().(SceneItem); ok {
				scene := item.Scene
				m.chosen = &scene
			}
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Quit) && m.list.FilterState() == list.Unfiltered:
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.NewStyle().Margin(1, 2).Render(m.list.View())
}

// Chosen returns the selected scene, if any.
func (m Model) Chosen() (domain.Scene, bool) {
	if m.chosen == nil {
		return domain.Scene{}, false
	}
	return *m.chosen, true
}

// Pick runs the picker on the given terminal streams.
func Pick(in io.Reader, out io.Writer, scenes []domain.Scene, installed map[string]bool) (domain.Scene, error) {
	if len(scenes) == 0 {
		return domain.Scene{}, errors.New("no scenes to choose from")
	}

	p := tea.NewProgram(
		NewModel(scenes, installed),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)

	final, err := p.Run()
	if err != nil {
		return domain.Scene{}, fmt.Errorf("TUI error: %w", err)
	}

	scene, ok := final.(Model).Chosen()
	if !ok {
		return domain.Scene{}, ErrCanceled
	}
	return scene, nil
}
