package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	goVersion "go.hein.dev/go-version"
)

// Set at build time:
//
//	go build -ldflags "-X metadata-mapper/internal/cli.version=v1.0.0 \
//	  -X metadata-mapper/internal/cli.commit=$(git rev-parse HEAD) \
//	  -X metadata-mapper/internal/cli.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionCommand() *cobra.Command {
	var (
		short  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, git commit and build date of this binary, as JSON
(default) or YAML. --short prints the version number only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), goVersion.FuncWithOutput(short, version, commit, date, output))
			return err
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print just the version number")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")

	return cmd
}
