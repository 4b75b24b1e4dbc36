package cli

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"metadata-mapper/internal/model"
	"metadata-mapper/internal/resolve"
)

// submittable lists the document kinds accepted by submit.
var submittable = map[string]model.EntityKind{
	"project":   model.KindProject,
	"datamodel": model.KindDataModel,
	"schema":    model.KindSchema,
	"function":  model.KindFunction,
}

type submitOutput struct {
	Kind     string                `json:"kind"`
	ID       model.ID              `json:"id"`
	Resolved map[model.ID]model.ID `json:"resolved"`
}

func (a *app) submitCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Store a JSON or YAML document",
		Long: `Resolve the dummy ids of a document and store it. Entities may use
negative ids to refer to each other within the document; each is replaced by
a durable id. Nothing is stored if any reference cannot be resolved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := submittable[strings.ToLower(kind)]
			if !ok {
				return errors.Newf("unknown document kind %q", kind)
			}

			data, err := model.LoadFile(args[0])
			if err != nil {
				return err
			}

			b, err := openBackends(a.cfg)
			if err != nil {
				return err
			}
			defer b.close()

			sub, err := resolve.Submit(cmd.Context(), b.docs, k, data, a.log)
			if err != nil {
				return err
			}

			return a.print(submitOutput{Kind: sub.Kind.String(), ID: sub.ID, Resolved: sub.Resolved})
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "project", "document kind: project, datamodel, schema or function")

	return cmd
}
