package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/ics"
	"github.com/sandeepkv93/taskboard/internal/log"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

func exportCmd(flags *rootFlags) *cobra.Command {
	var (
		window    windowFlags
		templates bool
		outPath   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an iCalendar feed",
		Long: `Write an iCalendar feed to stdout or --out.

By default every occurrence in the window becomes one event whose UID is the
occurrence identity. With --templates each repeating template is written once
with its RRULE instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			var body string
			if templates {
				list, err := a.repo.ListTemplates(cmd.Context(), storage.TaskListFilter{})
				if err != nil {
					return err
				}
				body = ics.ExportTemplates(list, a.now())
			} else {
				w, err := window.resolve(a.today(), a.loc)
				if err != nil {
					return err
				}
				view, err := a.windowAll(cmd.Context(), w)
				if err != nil {
					return err
				}
				if view.SyncErr != nil {
					log.Warn("export: completion state unavailable", "err", view.SyncErr)
				}
				body = ics.Export(view.Occurrences, a.now())
			}

			if outPath == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			return os.WriteFile(outPath, []byte(body), 0o644)
		},
	}
	window.register(cmd)
	cmd.Flags().BoolVar(&templates, "templates", false, "export repeating templates with RRULEs")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	return cmd
}
