package cli

import (
	"github.com/cockroachdb/errors"

	"metadata-mapper/internal/api"
	"metadata-mapper/internal/config"
	"metadata-mapper/internal/execute"
	"metadata-mapper/internal/graphdb"
	"metadata-mapper/internal/store"
)

// backends are the stores selected by the configuration.
type backends struct {
	docs   api.Store
	source execute.Source
	sink   execute.Sink
	close  func() error
}

func openBackends(cfg *config.Config) (*backends, error) {
	if cfg.Store.Backend == config.BackendMemory {
		m := store.NewMemory()
		return &backends{docs: m, source: m, sink: m, close: func() error { return nil }}, nil
	}

	db, err := store.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	b := &backends{docs: db, source: db, sink: db, close: db.Close}

	if cfg.Store.Backend == config.BackendGraphDB {
		c, err := graphdb.New(graphdb.Config{
			URL:      cfg.GraphDB.URL,
			Timeout:  cfg.GraphDB.Timeout,
			PageSize: cfg.GraphDB.PageSize,
		})
		if err != nil {
			return nil, errors.CombineErrors(err, db.Close())
		}

		b.source, b.sink = c, c
	}

	return b, nil
}

func (a *app) executor(b *backends) *execute.Executor {
	return execute.New(b.source, b.sink, execute.Options{
		Workers:        a.cfg.Executor.Workers,
		MaxFailureRate: a.cfg.Executor.MaxFailureRate,
		MinRecords:     a.cfg.Executor.MinRecords,
	}, a.log)
}
