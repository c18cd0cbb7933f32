package tui

import (
	"github.com/charmbracelet/bubbles/key"

	listview "github.com/cloudseek/cloudseek/internal/tui/list"
)

// browseKeyMap holds the article browser bindings on top of list navigation.
type browseKeyMap struct {
	listview.KeyMap

	Open     key.Binding
	Back     key.Binding
	Filter   key.Binding
	Category key.Binding
	Sort     key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newBrowseKeyMap(list listview.KeyMap) browseKeyMap {
	return browseKeyMap{
		KeyMap: list,
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back/clear"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Category: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "category"),
		),
		Sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the compact help line.
func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Filter, k.Category, k.Help, k.Quit}
}

// FullHelp returns all bindings grouped in columns.
func (k browseKeyMap) FullHelp() [][]key.Binding {
	return append(k.KeyMap.FullHelp(),
		[]key.Binding{k.Open, k.Back},
		[]key.Binding{k.Filter, k.Category, k.Sort},
		[]key.Binding{k.Refresh, k.Help, k.Quit},
	)
}
