package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"metadata-mapper/internal/compile"
	"metadata-mapper/internal/diagnostic"
	"metadata-mapper/internal/execute"
	"metadata-mapper/internal/jobs"
	"metadata-mapper/internal/model"
	"metadata-mapper/internal/schema"
)

type runOptions struct {
	project int64
	persist bool
	records []string
	limit   int
	plan    bool
	dump    bool
}

type runOutput struct {
	*execute.Result

	Shape    *schema.Document        `json:"shape,omitempty"`
	Warnings []diagnostic.Diagnostic `json:"warnings,omitempty"`
}

type planOutput struct {
	Shape    *schema.Document        `json:"shape"`
	Warnings []diagnostic.Diagnostic `json:"warnings,omitempty"`
}

func (a *app) runCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [TASK_FILE]",
		Short: "Execute a task file or a stored project",
		Long: `Compile the mappings of a task and run them over the records of its
input data model. The task comes either from a JSON or YAML file or, with
--project, from a stored project. References to stored data models and
functions are loaded from the database.

With --plan the output record shape is printed and nothing is executed;
--dump prints the compiled mappings instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (opts.project != 0) {
				return errors.New("name either a task file or --project")
			}

			b, err := openBackends(a.cfg)
			if err != nil {
				return err
			}
			defer b.close()

			r := &jobs.Runner{
				Documents: b.docs,
				Executor:  a.executor(b),
				Registry:  compile.DefaultRegistry(),
				MaxFanOut: a.cfg.Executor.MaxFanOut,
				Log:       a.log,
			}

			var task *model.Task

			if opts.project != 0 {
				task, err = r.LoadProject(cmd.Context(), model.ID(opts.project))
			} else {
				task, err = loadTask(args[0])
			}

			if err != nil {
				return err
			}

			if opts.plan {
				p, err := r.Compile(cmd.Context(), task)
				if err != nil {
					return err
				}

				if opts.dump {
					_, err = fmt.Fprint(a.out, p.Dump())
					return err
				}

				return a.print(planOutput{Shape: p.Shape, Warnings: p.Warnings.Warnings})
			}

			p, res, err := r.Run(cmd.Context(), task, execute.Request{
				SelectedRecords: opts.records,
				Limit:           opts.limit,
				Persist:         opts.persist,
			})
			if err != nil {
				return err
			}

			return a.print(runOutput{Result: res, Shape: p.Shape, Warnings: p.Warnings.Warnings})
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&opts.project, "project", 0, "id of a stored project")
	flags.BoolVar(&opts.persist, "persist", false, "write output records to the output data model")
	flags.StringSliceVar(&opts.records, "records", nil, "only process these record ids")
	flags.IntVar(&opts.limit, "limit", 0, "process at most this many records")
	flags.BoolVar(&opts.plan, "plan", false, "print the output record shape and exit")
	flags.BoolVar(&opts.dump, "dump", false, "with --plan, print the compiled mappings instead")

	return cmd
}

func loadTask(path string) (*model.Task, error) {
	data, err := model.LoadFile(path)
	if err != nil {
		return nil, err
	}

	return model.Decode[model.Task](data)
}
