package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"formdist/internal/config"
)

const exampleRules = `rules:
  - type: keyword
    form: ExampleKeyword
    strings: {match: [Guard]}
    level: {min: 10}
`

func initCmd() *cobra.Command {
	var projectName string
	var dsn string
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Scaffold a new formdist project",
		Annotations: map[string]string{skipProject: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName, dsn)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dsn, "dsn", "sqlite://formdist.db", "Catalog database DSN")
	return cmd
}

func runInit(projectName, dsn string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	configContents := fmt.Sprintf("project: %s\nversion: 1\n\ndatabase:\n  dsn: %s\n\nload_order:\n  - Skyrim.esm\n\nworld:\n  paths:\n    - ./world/\n\nrules:\n  paths:\n    - ./rules/\n\nplayer_level: 1\n\nlog:\n  level: info\n  format: console\n", projectName, dsn)
	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}

	if _, err := config.LoadProjectConfig(configPath); err != nil {
		return err
	}

	for _, dir := range []string{"world", "rules"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	rulesPath := filepath.Join("rules", "Example_DISTR.yaml")
	if _, err := os.Stat(rulesPath); err == nil {
		return nil
	}
	if err := os.WriteFile(rulesPath, []byte(exampleRules), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", rulesPath, err)
	}
	return nil
}
