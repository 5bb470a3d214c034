package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"formdist/internal/form"
)

func queryActorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor <editor-id>",
		Short: "Display an actor record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryActor(cmd, args[0])
		},
	}
	return cmd
}

func runQueryActor(cmd *cobra.Command, editorID string) error {
	ctx := context.Background()

	db, err := openDB(ctx, project)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	actor, err := db.GetActor(ctx, editorID)
	if err != nil {
		return err
	}
	if actor == nil {
		fmt.Fprintf(os.Stdout, "No actor found for %q.\n", editorID)
		return nil
	}

	fmt.Fprintf(os.Stdout, "Editor ID: %s\n", actor.EditorID)
	fmt.Fprintf(os.Stdout, "Form: %s~%s\n", form.ID(actor.LocalID), actor.Plugin)
	if actor.Name != "" {
		fmt.Fprintf(os.Stdout, "Name: %s\n", actor.Name)
	}
	if actor.SourceFile != "" {
		fmt.Fprintf(os.Stdout, "Source: %s\n", actor.SourceFile)
	}

	keys := make([]string, 0, len(actor.Record))
	for key := range actor.Record {
		switch key {
		case "id", "editor_id", "name":
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	fmt.Fprintln(os.Stdout, "Record:")
	for _, key := range keys {
		fmt.Fprintf(os.Stdout, "  %s: %v\n", key, actor.Record[key])
	}
	return nil
}
