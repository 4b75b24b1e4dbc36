package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"metadata-mapper/internal/diagnostic"
	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/execute"
	"metadata-mapper/internal/model"
	"metadata-mapper/internal/resolve"
	"metadata-mapper/internal/schema"
)

// SubmitResponse is returned for a stored document.
type SubmitResponse struct {
	Kind     string                `json:"kind"`
	ID       model.ID              `json:"id"`
	Resolved map[model.ID]model.ID `json:"resolved"`
	Document json.RawMessage       `json:"document"`
}

// submit stores a document whose root is of the given kind.
func (s *Server) submit(kind model.EntityKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return s.fail(c, echo.NewHTTPError(http.StatusBadRequest, "cannot read request body"))
		}

		sub, err := resolve.Submit(c.Request().Context(), s.deps.Store, kind, body, s.deps.Log)
		if err != nil {
			return s.fail(c, err)
		}

		return c.JSON(http.StatusCreated, SubmitResponse{
			Kind:     sub.Kind.String(),
			ID:       sub.ID,
			Resolved: sub.Resolved,
			Document: sub.Document,
		})
	}
}

// JobRequest runs either an inline task or a stored project.
type JobRequest struct {
	// Job is a task document: a job with its input and output data models.
	Job json.RawMessage `json:"job,omitempty"`
	// Project names a stored project to run instead of Job.
	Project         model.ID `json:"project,omitempty"`
	Persist         bool     `json:"persist"`
	SelectedRecords []string `json:"selectedRecords,omitempty"`
	Limit           int      `json:"limit,omitempty"`
}

// JobResponse carries the run result, the output record shape and the
// compiler's warnings.
type JobResponse struct {
	*execute.Result

	Shape    *schema.Document        `json:"shape,omitempty"`
	Warnings []diagnostic.Diagnostic `json:"warnings,omitempty"`
}

func (s *Server) runJob(c echo.Context) error {
	var req JobRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return s.fail(c, domain.NewInvalidDocument("malformed job request", err))
	}

	task, err := s.loadTask(c, req)
	if err != nil {
		return s.fail(c, err)
	}

	p, res, err := s.runner.Run(c.Request().Context(), task, execute.Request{
		SelectedRecords: req.SelectedRecords,
		Limit:           req.Limit,
		Persist:         req.Persist,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, JobResponse{Result: res, Shape: p.Shape, Warnings: p.Warnings.Warnings})
}

func (s *Server) loadTask(c echo.Context, req JobRequest) (*model.Task, error) {
	switch {
	case req.Project != 0:
		return s.runner.LoadProject(c.Request().Context(), req.Project)
	case len(req.Job) > 0:
		data, err := model.LoadDocument(req.Job)
		if err != nil {
			return nil, err
		}

		return model.Decode[model.Task](data)
	default:
		return nil, domain.NewInvalidDocument("job request names neither a job nor a project", nil)
	}
}

// InduceRequest derives a schema from sample records or explicit paths.
type InduceRequest struct {
	Title   string           `json:"title"`
	Records []map[string]any `json:"records,omitempty"`
	// Paths are attribute paths in wire form.
	Paths []string `json:"paths,omitempty"`
	// Policy is "multivalue" (default) or "sibling".
	Policy string `json:"policy,omitempty"`
	// Mint also returns a submittable schema with fresh dummy ids.
	Mint        bool               `json:"mint,omitempty"`
	RecordClass *model.RecordClass `json:"record_class,omitempty"`
}

// InduceResponse holds the induced document and, on request, the schema.
type InduceResponse struct {
	Document *schema.Document `json:"document"`
	Schema   *model.Schema    `json:"schema,omitempty"`
}

func (s *Server) induce(c echo.Context) error {
	var req InduceRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return s.fail(c, domain.NewInvalidDocument("malformed induce request", err))
	}

	policy, err := schema.PolicyByName(req.Policy)
	if err != nil {
		return s.fail(c, domain.NewInvalidDocument("invalid induce request", err))
	}

	t := schema.NewTrie()

	for _, rec := range req.Records {
		for _, h := range schema.PathsFromRecord(rec) {
			t.Insert(h)
		}
	}

	for _, p := range req.Paths {
		h, err := schema.ParsePathHelper(p)
		if err != nil {
			return s.fail(c, domain.NewInvalidDocument("invalid attribute path", err))
		}

		t.Insert(h)
	}

	if t.Len() == 0 {
		return s.fail(c, domain.NewInvalidDocument("nothing to induce a schema from", errors.New("no records and no paths")))
	}

	resp := InduceResponse{Document: schema.InduceWith(req.Title, t, policy)}
	if req.Mint {
		resp.Schema = schema.MintSchema(req.Title, req.RecordClass, t, schema.NewMinter())
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listFunctions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"functions": s.deps.Registry.Names()})
}
