// Package cli implements the mapper command line.
//
// Commands:
//   - serve: run the HTTP API
//   - submit: store a project, data model, schema or function document
//   - run: execute a task file or a stored project
//   - induce: derive a schema from sample records
//   - version: print build information
//
// Configuration comes from the file named by --config, MAPPER_* environment
// variables and flags, later sources overriding earlier ones.
package cli

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"metadata-mapper/internal/config"
	"metadata-mapper/internal/logging"
)

// app holds state shared by the commands of one invocation.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	log     *logrus.Logger
	out     io.Writer
}

// NewRootCommand builds the command tree. Results are written to out,
// logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:   "mapper",
		Short: "Metadata mapping platform",
		Long: `mapper stores mapping projects, compiles their transformations and
runs them over the records of a data model.

Use "mapper serve" to start the API server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			return a.init(errOut)
		},
	}

	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("store", "", "record backend: sqlite, memory or graphdb")
	flags.String("db", "", "SQLite database path")

	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("store.backend", flags.Lookup("store"))
	_ = a.v.BindPFlag("database.path", flags.Lookup("db"))

	root.AddCommand(
		a.serveCommand(),
		a.submitCommand(),
		a.runCommand(),
		a.induceCommand(),
		versionCommand(),
	)

	return root
}

func (a *app) init(errOut io.Writer) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log, errOut)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log

	if a.cfgFile != "" {
		log.WithField("file", a.v.ConfigFileUsed()).Debug("using config file")
	}

	return nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")

	return errors.Wrap(enc.Encode(v), "write output")
}
