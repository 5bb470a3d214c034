package main

import "github.com/spf13/cobra"

var version = "dev"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print formdist version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipProject: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
