package detail_test

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/content"
	"github.com/cloudseek/cloudseek/internal/tui/detail"
)

func retryKey() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}
}

func TestModel_LoadsRelated(t *testing.T) {
	articles := content.GenerateArticles(12)
	calls := 0
	load := func(_ context.Context, a content.Article) ([]content.Article, error) {
		calls++
		assert.Equal(t, articles[0].Slug, a.Slug)
		return articles[5:7], nil
	}

	m := detail.New(context.Background(), articles[0], load, 80, detail.Styles{})
	assert.Equal(t, detail.StateLoading, m.State())
	assert.Contains(t, m.View(), "Loading related articles")

	cmd := m.Init()
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	assert.Equal(t, 1, calls)
	assert.Equal(t, detail.StateReady, m.State())
	assert.Len(t, m.Related(), 2)
	view := m.View()
	assert.Contains(t, view, articles[0].Title)
	assert.Contains(t, view, articles[5].Title)
	assert.Contains(t, view, articles[0].Author)
}

func TestModel_RetryAfterFailure(t *testing.T) {
	articles := content.GenerateArticles(3)
	fail := true
	load := func(context.Context, content.Article) ([]content.Article, error) {
		if fail {
			return nil, errors.New("upstream down")
		}
		return nil, nil
	}

	m := detail.New(context.Background(), articles[1], load, 60, detail.Styles{})

	_, cmd := m.Update(retryKey())
	assert.Nil(t, cmd, "retry only applies after a failure")

	m, _ = m.Update(m.Init()())
	require.Equal(t, detail.StateFailed, m.State())
	require.Error(t, m.Err())
	assert.Contains(t, m.View(), "upstream down")
	assert.Contains(t, m.View(), "Press r to retry")

	fail = false
	m, cmd = m.Update(retryKey())
	require.NotNil(t, cmd)
	assert.Equal(t, detail.StateLoading, m.State())

	m, _ = m.Update(cmd())
	assert.Equal(t, detail.StateReady, m.State())
	assert.NoError(t, m.Err())
	assert.Contains(t, m.View(), "No related articles.")
}

func TestModel_IgnoresOtherArticles(t *testing.T) {
	articles := content.GenerateArticles(3)
	m := detail.New(context.Background(), articles[0], nil, 60, detail.Styles{})
	assert.Nil(t, m.Init())

	m, _ = m.Update(detail.RelatedLoadedMsg{Slug: articles[1].Slug, Related: articles})
	assert.Equal(t, detail.StateLoading, m.State())
	assert.Empty(t, m.Related())
	assert.Equal(t, articles[0], m.Article())
}
