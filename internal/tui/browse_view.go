package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/cloudseek/cloudseek/internal/content"
	"github.com/cloudseek/cloudseek/internal/tui/detail"
)

const (
	// articleRowHeight is the height of an unselected row: title and byline.
	articleRowHeight = 2

	// rowIndent aligns the byline and summary under the title.
	rowIndent = 4

	dateLayout = "2006-01-02"
)

// articleRenderer renders list rows. The selected row also shows the summary,
// wrapped to the terminal width, so row heights vary.
type articleRenderer struct {
	width int
}

func (r *articleRenderer) render(a content.Article, selected bool) string {
	byline := fmt.Sprintf("%s · %s · %s · %d min",
		a.Category, a.Author, a.PublishedAt.Format(dateLayout), a.ReadMinutes)
	indent := strings.Repeat(" ", rowIndent)

	if !selected {
		return "  " + ValueStyle.Render(a.Title) + "\n" + indent + SubtleStyle.Render(byline)
	}

	summary := lipgloss.NewStyle().
		PaddingLeft(rowIndent).
		Width(max(r.width, rowIndent+1)).
		Render(a.Summary)
	return SelectedStyle.Render("> "+a.Title) + "\n" + indent + LabelStyle.Render(byline) + "\n" + summary
}

func detailStyles() detail.Styles {
	return detail.Styles{
		Title:    HeaderStyle,
		Label:    LabelStyle,
		Value:    ValueStyle,
		Muted:    InfoStyle,
		Critical: CriticalStyle,
		Box:      BoxStyle,
	}
}

// View renders the current screen (Bubble Tea interface).
func (m BrowseModel) View() string {
	switch m.state {
	case ViewStateQuitting:
		return ""
	case ViewStateLoading:
		return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), RenderLoading(m.loadingState))
	case ViewStateError:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			CriticalStyle.Render("Error: "+errString(m.err)),
			InfoStyle.Render("Press r to retry, q to quit."),
		)
	case ViewStateDetail:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.detail.View(),
			m.help.ShortHelpView([]key.Binding{m.keys.Back, m.keys.Quit}),
		)
	case ViewStateList:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			m.list.View(),
			m.renderStatus(),
			m.help.View(m.keys),
		)
	default:
		return ""
	}
}

func (m BrowseModel) renderHeader() string {
	category := m.categories[m.category]
	if category == "" {
		category = "all"
	}
	sort := sortOptions[m.sortIdx]

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("CloudSeek articles"))
	b.WriteString(LabelStyle.Render("  category: "))
	b.WriteString(ValueStyle.Render(category))
	b.WriteString(LabelStyle.Render("  sort: "))
	b.WriteString(ValueStyle.Render(sort.field + " " + sort.order))
	if m.query != "" {
		b.WriteString(LabelStyle.Render("  search: "))
		b.WriteString(ValueStyle.Render(m.query))
	}
	return b.String()
}

// renderStatus shows the search input while it is focused, otherwise load
// progress and scheduler counters.
func (m BrowseModel) renderStatus() string {
	if m.showFilter {
		return m.textInput.View()
	}

	stats := m.source.Stats()
	status := fmt.Sprintf("%d of %d · page %d/%d · batches %d · cache hits %d · joins %d",
		m.list.ItemCount(), m.meta.TotalItems,
		m.meta.CurrentPage, m.meta.TotalPages,
		stats.Batches, stats.CacheHits, stats.DedupJoins)

	switch {
	case m.err != nil:
		return status + "  " + WarningStyle.Render("load failed: "+m.err.Error())
	case m.loading:
		return status + "  " + m.loadingState.spinner.View()
	default:
		return SubtleStyle.Render(status)
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
