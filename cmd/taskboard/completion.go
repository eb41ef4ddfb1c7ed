package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

// completionCmd builds "done" (completed=true) or "undo".
func completionCmd(flags *rootFlags, completed bool) *cobra.Command {
	use, short := "done <identity>...", "Mark occurrences completed"
	if !completed {
		use, short = "undo <identity>...", "Reopen completed occurrences"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

An identity is <template id>_<YYYY-MM-DD>, as printed by "taskboard agenda".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			var errs []error
			for _, raw := range args {
				title, err := a.setCompletion(cmd.Context(), identity.Key(raw), completed)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", raw, err))
					continue
				}
				verb := "done"
				if !completed {
					verb = "reopened"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", verb, title, raw)
			}
			return errors.Join(errs...)
		},
	}
}

// setCompletion checks that key names a real occurrence of a recurring
// template before writing it.
func (a *app) setCompletion(ctx context.Context, key identity.Key, completed bool) (string, error) {
	templateID, err := identity.TemplateID(key)
	if err != nil {
		return "", err
	}
	tmpl, err := a.repo.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("no template %q", templateID)
		}
		return "", err
	}
	if err := a.service.ToggleOccurrence(ctx, tmpl, key, completed); err != nil {
		return "", err
	}
	return tmpl.Title, nil
}
