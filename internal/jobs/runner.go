// Package jobs runs tasks end to end: it fills references to stored
// entities, attaches schemas, compiles the mappings and executes them.
package jobs

import (
	"context"

	"github.com/sirupsen/logrus"

	"metadata-mapper/internal/compile"
	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/execute"
	"metadata-mapper/internal/model"
	"metadata-mapper/internal/resolve"
)

// Runner ties the stores, the compiler and the executor together.
type Runner struct {
	Documents resolve.DocumentLoader
	Executor  *execute.Executor
	Registry  *compile.Registry
	MaxFanOut int
	Log       logrus.FieldLogger
}

// LoadProject reads a stored project and converts it into a task.
func (r *Runner) LoadProject(ctx context.Context, id model.ID) (*model.Task, error) {
	doc, ok, err := r.Documents.LoadDocument(ctx, model.KindProject, id)
	if err != nil {
		return nil, domain.NewExternalStore("entity store", "load project", err)
	}

	if !ok {
		return nil, domain.NewUnresolvedReference(model.KindProject.String(), int64(id), "not found")
	}

	p, err := model.Decode[model.Project](doc)
	if err != nil {
		return nil, err
	}

	return p.Task(), nil
}

// Compile prepares the task and compiles it.
func (r *Runner) Compile(ctx context.Context, task *model.Task) (*compile.Pipeline, error) {
	if _, err := resolve.Hydrate(ctx, r.Documents, task); err != nil {
		return nil, err
	}

	if err := r.Executor.AttachSchemas(ctx, task); err != nil {
		return nil, err
	}

	p, err := compile.Compile(task, compile.Options{Registry: r.Registry, MaxFanOut: r.MaxFanOut})
	if err != nil {
		return nil, err
	}

	for _, w := range p.Warnings.Warnings {
		r.Log.WithFields(logrus.Fields{"task": task.Name, "mapping": w.Mapping}).Warn(w.Message)
	}

	return p, nil
}

// Run compiles and executes the task. Without explicit record ids the
// task's own selection applies.
func (r *Runner) Run(ctx context.Context, task *model.Task, req execute.Request) (*compile.Pipeline, *execute.Result, error) {
	if len(req.SelectedRecords) == 0 {
		req.SelectedRecords = task.SelectedRecords
	}

	p, err := r.Compile(ctx, task)
	if err != nil {
		return nil, nil, err
	}

	res, err := r.Executor.Execute(ctx, req, p)
	if err != nil {
		return p, nil, err
	}

	return p, res, nil
}
