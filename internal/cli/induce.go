package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
	"metadata-mapper/internal/resolve"
	"metadata-mapper/internal/schema"
)

type induceOptions struct {
	title  string
	policy string
	mint   bool
	submit bool
}

func (a *app) induceCommand() *cobra.Command {
	var opts induceOptions

	cmd := &cobra.Command{
		Use:   "induce RECORDS_FILE...",
		Short: "Derive a schema from sample records",
		Long: `Collect the attribute paths of sample records and print the schema
document they imply. Each file holds one record object or an array of them.

--mint prints a schema with dummy ids, ready for "mapper submit --kind schema".
--submit stores the minted schema directly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := schema.PolicyByName(opts.policy)
			if err != nil {
				return err
			}

			t := schema.NewTrie()

			for _, path := range args {
				records, err := loadRecords(path)
				if err != nil {
					return err
				}

				for _, rec := range records {
					for _, h := range schema.PathsFromRecord(rec) {
						t.Insert(h)
					}
				}
			}

			if t.Len() == 0 {
				return domain.NewInvalidDocument("records contain no attribute paths", nil)
			}

			if !opts.mint && !opts.submit {
				return a.print(schema.InduceWith(opts.title, t, policy))
			}

			s := schema.MintSchema(opts.title, nil, t, schema.NewMinter())
			if !opts.submit {
				return a.print(s)
			}

			doc, err := json.Marshal(s)
			if err != nil {
				return err
			}

			b, err := openBackends(a.cfg)
			if err != nil {
				return err
			}
			defer b.close()

			sub, err := resolve.Submit(cmd.Context(), b.docs, model.KindSchema, doc, a.log)
			if err != nil {
				return err
			}

			return a.print(submitOutput{Kind: sub.Kind.String(), ID: sub.ID, Resolved: sub.Resolved})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.title, "title", "record", "schema title")
	flags.StringVar(&opts.policy, "policy", "multivalue", "array policy: multivalue or sibling")
	flags.BoolVar(&opts.mint, "mint", false, "print a submittable schema")
	flags.BoolVar(&opts.submit, "submit", false, "store the minted schema")

	return cmd
}

// loadRecords reads one record or an array of records.
func loadRecords(path string) ([]map[string]any, error) {
	data, err := model.LoadFile(path)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, domain.NewInvalidDocument("malformed records file "+path, err)
	}

	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}, nil
	case []any:
		out := make([]map[string]any, 0, len(t))

		for _, e := range t {
			rec, ok := e.(map[string]any)
			if !ok {
				return nil, domain.NewInvalidDocument("records file "+path+" holds a non-object element", nil)
			}

			out = append(out, rec)
		}

		return out, nil
	default:
		return nil, domain.NewInvalidDocument("records file "+path+" holds neither an object nor an array", nil)
	}
}
