package detail

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cloudseek/cloudseek/internal/content"
)

// minWrapWidth is the narrowest the summary is wrapped to.
const minWrapWidth = 20

// State is the loading state of the related section.
type State int

// Related section states.
const (
	StateLoading State = iota
	StateReady
	StateFailed
)

// Loader fetches the articles related to a.
type Loader func(ctx context.Context, a content.Article) ([]content.Article, error)

// RelatedLoadedMsg delivers the result of a Loader call.
type RelatedLoadedMsg struct {
	Slug    string
	Related []content.Article
	Err     error
}

// Styles used by the detail view. Zero values render plain text.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Critical lipgloss.Style
	Box      lipgloss.Style
}

// Model shows one article and its related articles.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type Model struct {
	ctx     context.Context
	article content.Article
	load    Loader
	styles  Styles
	retry   key.Binding
	width   int

	state   State
	related []content.Article
	err     error
}

// New creates a detail model for article. Init starts loading related
// articles.
func New(ctx context.Context, article content.Article, load Loader, width int, styles Styles) Model {
	return Model{
		ctx:     ctx,
		article: article,
		load:    load,
		styles:  styles,
		width:   width,
		state:   StateLoading,
		retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
	}
}

// Init starts the related-articles load.
func (m Model) Init() tea.Cmd {
	return m.fetch()
}

func (m Model) fetch() tea.Cmd {
	if m.load == nil {
		return nil
	}
	ctx, article, load := m.ctx, m.article, m.load
	return func() tea.Msg {
		related, err := load(ctx, article)
		return RelatedLoadedMsg{Slug: article.Slug, Related: related, Err: err}
	}
}

// Update applies load results and handles the retry key.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RelatedLoadedMsg:
		if msg.Slug != m.article.Slug {
			return m, nil
		}
		if msg.Err != nil {
			m.state = StateFailed
			m.err = msg.Err
			return m, nil
		}
		m.state = StateReady
		m.err = nil
		m.related = msg.Related
		return m, nil

	case tea.KeyMsg:
		if m.state == StateFailed && key.Matches(msg, m.retry) {
			m.state = StateLoading
			m.err = nil
			return m, m.fetch()
		}
	}
	return m, nil
}

// SetWidth changes the wrap width.
func (m *Model) SetWidth(width int) {
	m.width = width
}

// Article returns the article being shown.
func (m Model) Article() content.Article {
	return m.article
}

// State returns the loading state of the related section.
func (m Model) State() State {
	return m.state
}

// Related returns the loaded related articles.
func (m Model) Related() []content.Article {
	return m.related
}

// Err returns the last load error.
func (m Model) Err() error {
	return m.err
}

// View renders the article and the related section in a box.
func (m Model) View() string {
	a := m.article
	inner := max(m.width-m.styles.Box.GetHorizontalFrameSize(), minWrapWidth)

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(a.Title))
	b.WriteString("\n\n")
	m.field(&b, "Category", a.Category)
	m.field(&b, "Author", a.Author)
	m.field(&b, "Published", a.PublishedAt.Format("2006-01-02"))
	m.field(&b, "Read time", fmt.Sprintf("%d min", a.ReadMinutes))
	m.field(&b, "Slug", a.Slug)
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(inner).Render(a.Summary))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Label.Render("Related"))
	b.WriteString("\n")

	switch m.state {
	case StateLoading:
		b.WriteString(m.styles.Muted.Render("  Loading related articles..."))
	case StateFailed:
		b.WriteString(m.styles.Critical.Render("  Error: " + m.err.Error()))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("  Press r to retry"))
	case StateReady:
		if len(m.related) == 0 {
			b.WriteString(m.styles.Muted.Render("  No related articles."))
		}
		for i, r := range m.related {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("  - ")
			b.WriteString(m.styles.Value.Render(r.Title))
		}
	}

	return m.styles.Box.Width(max(m.width-m.styles.Box.GetHorizontalBorderSize(), minWrapWidth)).Render(b.String())
}

func (m Model) field(b *strings.Builder, label, value string) {
	b.WriteString(m.styles.Label.Render(fmt.Sprintf("%-10s ", label)))
	b.WriteString(m.styles.Value.Render(value))
	b.WriteString("\n")
}
