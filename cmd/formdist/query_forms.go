package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"formdist/internal/form"
)

func queryActorsCmd() *cobra.Command {
	var plugin string
	cmd := &cobra.Command{
		Use:   "actors",
		Short: "List actors in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryForms(cmd, form.TypeNPC.String(), plugin)
		},
	}
	cmd.Flags().StringVar(&plugin, "plugin", "", "Plugin to filter")
	return cmd
}

func queryFormsCmd() *cobra.Command {
	var formType string
	var plugin string
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "List forms in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if formType != "" {
				t, err := form.ParseType(formType)
				if err != nil {
					return err
				}
				formType = t.String()
			}
			return runQueryForms(cmd, formType, plugin)
		},
	}
	cmd.Flags().StringVar(&formType, "type", "", "Form type to filter")
	cmd.Flags().StringVar(&plugin, "plugin", "", "Plugin to filter")
	return cmd
}

func runQueryForms(cmd *cobra.Command, formType, plugin string) error {
	ctx := context.Background()

	db, err := openDB(ctx, project)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	forms, err := db.ListForms(ctx, formType, plugin)
	if err != nil {
		return err
	}
	if len(forms) == 0 {
		fmt.Fprintln(os.Stdout, "No forms found.")
		return nil
	}

	for _, f := range forms {
		label := f.EditorID
		if f.Name != "" {
			label = fmt.Sprintf("%s %q", f.EditorID, f.Name)
		}
		fmt.Fprintf(os.Stdout, "%s~%s %s (%s)\n", form.ID(f.LocalID), f.Plugin, label, f.FormType)
	}
	return nil
}
