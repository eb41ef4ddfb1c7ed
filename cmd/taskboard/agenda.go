package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/occurrence"
	"github.com/sandeepkv93/taskboard/internal/recurrence"
	"github.com/sandeepkv93/taskboard/internal/storage"
	"github.com/sandeepkv93/taskboard/internal/views"
)

func agendaCmd(flags *rootFlags) *cobra.Command {
	var (
		window windowFlags
		query  string
		tag    string
		plain  bool
	)
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print the occurrences of a window as markdown",
		Long: `Print every occurrence in a window, grouped by day.

Examples:
  taskboard agenda
  taskboard agenda --week 1 --tag work
  taskboard agenda --from 2024-01-01 --to 2024-01-31 --plain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			w, err := window.resolve(a.today(), a.loc)
			if err != nil {
				return err
			}
			view, err := a.windowAll(cmd.Context(), w)
			if err != nil {
				return err
			}
			items := occurrence.FilterTag(occurrence.Filter(view.Occurrences, query), tag)

			md := views.AgendaMarkdown(windowTitle(w), views.Rows(items), viewWarnings(view))
			if plain {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), views.RenderMarkdown(md))
			return nil
		},
	}
	window.register(cmd)
	cmd.Flags().StringVarP(&query, "query", "q", "", "only occurrences whose title or tags contain this text")
	cmd.Flags().StringVar(&tag, "tag", "", "only occurrences with this tag")
	cmd.Flags().BoolVar(&plain, "plain", false, "print markdown without terminal styling")
	return cmd
}

func (a *app) windowAll(ctx context.Context, w recurrence.Window) (occurrence.View, error) {
	templates, err := a.repo.ListTemplates(ctx, storage.TaskListFilter{})
	if err != nil {
		return occurrence.View{}, fmt.Errorf("load templates: %w", err)
	}
	return a.service.WindowAll(ctx, templates, w)
}

func windowTitle(w recurrence.Window) string {
	return fmt.Sprintf("%s to %s", w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
}

func viewWarnings(v occurrence.View) []string {
	var out []string
	if v.SyncErr != nil {
		out = append(out, "completion state unavailable, showing every occurrence as open: "+v.SyncErr.Error())
	}
	if v.Truncated {
		out = append(out, "some templates hit the occurrence limit; list truncated")
	}
	if len(v.Skipped) > 0 {
		out = append(out, "skipped templates: "+strings.Join(v.Skipped, ", "))
	}
	return out
}
