package cli

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/tui"
)

var errNotTerminal = errors.New("browse needs an interactive terminal; use 'cloudseek feed' for scripted output")

// NewBrowseCmd creates the browse command, which opens the interactive
// article browser.
func NewBrowseCmd() *cobra.Command {
	var pageSize int

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse articles interactively",
		Long: `Opens a scrollable article list. Pages load as you scroll, the next page is
prefetched in the background, and every request goes through the batch
scheduler, so scrolling back to a loaded query is served from cache.

Keys: j/k or arrows to move, enter to open, / to search, c to cycle the
category, s to change the sort, r to refresh, q to quit.`,
		Example: `  # Browse with the configured page size
  cloudseek browse

  # Smaller pages, to watch infinite scrolling at work
  cloudseek browse --page-size 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdout) {
				return errNotTerminal
			}
			return runBrowse(cmd, pageSize)
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 0, "articles per page (0 = content.page_size from config)")

	return cmd
}

// browseOptions maps the configuration onto the browser. The window section
// is in display units for embedders; the terminal list keeps its line-based
// row estimate and takes only the overscan and debounce settings.
func browseOptions(cfg *config.Config, pageSize int) tui.BrowseOptions {
	opts := tui.DefaultBrowseOptions()
	opts.PageSize = cfg.Content.PageSize
	if pageSize > 0 {
		opts.PageSize = pageSize
	}
	opts.Window.OverscanCount = cfg.Window.OverscanCount
	opts.Window.MeasurementDebounce = cfg.Window.MeasurementDebounce
	opts.Window.ScrollDebounce = cfg.Window.ScrollDebounce
	return opts
}

func runBrowse(cmd *cobra.Command, pageSize int) error {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()

	feed, _, err := newFeed(ctx, cfg)
	if err != nil {
		return err
	}
	defer feed.Close()

	model, err := tui.NewBrowseModel(ctx, feed, browseOptions(cfg, pageSize))
	if err != nil {
		return err
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run interactive TUI: %w", err)
	}

	stats := feed.Stats()
	logger.Info().
		Uint64("requests", stats.Submitted).
		Uint64("batches", stats.Batches).
		Uint64("cache_hits", stats.CacheHits).
		Msg("browse session finished")
	return nil
}
