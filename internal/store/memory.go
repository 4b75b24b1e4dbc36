package store

import (
	"context"
	"iter"
	"maps"
	"slices"
	"sync"

	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
	"metadata-mapper/internal/resolve"
)

type contentRef struct {
	kind model.EntityKind
	key  string
}

type memState struct {
	next     model.ID
	entities map[model.Ref]struct{}
	keys     map[contentRef]model.ID
	docs     map[model.Ref][]byte
}

func (s *memState) clone() *memState {
	return &memState{
		next:     s.next,
		entities: maps.Clone(s.entities),
		keys:     maps.Clone(s.keys),
		docs:     maps.Clone(s.docs),
	}
}

func (s *memState) create(kind model.EntityKind, contentKey string) model.ID {
	if contentKey != "" {
		if id, ok := s.keys[contentRef{kind, contentKey}]; ok {
			return id
		}
	}

	id := s.next
	s.next++
	s.entities[model.Ref{Kind: kind, ID: id}] = struct{}{}

	if contentKey != "" {
		s.keys[contentRef{kind, contentKey}] = id
	}

	return id
}

// Memory keeps everything in process memory. Transactions work on a copy of
// the state that replaces the shared state on Commit; the last commit wins.
type Memory struct {
	mu      sync.RWMutex
	state   *memState
	records map[model.ID][]model.Record
}

// NewMemory returns an empty store whose first id is 1.
func NewMemory() *Memory {
	return &Memory{
		state: &memState{
			next:     1,
			entities: make(map[model.Ref]struct{}),
			keys:     make(map[contentRef]model.ID),
			docs:     make(map[model.Ref][]byte),
		},
		records: make(map[model.ID][]model.Record),
	}
}

// Begin opens a transaction on a snapshot of the store.
func (m *Memory) Begin(context.Context) (resolve.Tx, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &memTx{parent: m, state: m.state.clone()}, nil
}

// Create persists an entity outside any transaction.
func (m *Memory) Create(_ context.Context, kind model.EntityKind, contentKey string) (model.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.create(kind, contentKey), nil
}

// Exists reports whether an entity of the given kind has the given id.
func (m *Memory) Exists(_ context.Context, kind model.EntityKind, id model.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.state.entities[model.Ref{Kind: kind, ID: id}]

	return ok, nil
}

// LoadDocument returns the latest document saved for an entity.
func (m *Memory) LoadDocument(_ context.Context, kind model.EntityKind, id model.ID) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.state.docs[model.Ref{Kind: kind, ID: id}]

	return doc, ok, nil
}

// GetSchema returns the schema of a data model submitted earlier.
func (m *Memory) GetSchema(ctx context.Context, dataModelID model.ID) (*model.Schema, error) {
	doc, ok, err := m.LoadDocument(ctx, model.KindDataModel, dataModelID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, domain.NewUnresolvedReference(model.KindDataModel.String(), int64(dataModelID), "not found")
	}

	return schemaOf(dataModelID, doc, func(kind model.EntityKind, id model.ID) ([]byte, bool, error) {
		return m.LoadDocument(ctx, kind, id)
	})
}

// GetObjects streams records like SQLite.GetObjects.
func (m *Memory) GetObjects(
	_ context.Context,
	dataModelID model.ID,
	recordIDs []string,
	limit int,
) iter.Seq2[model.Record, error] {
	m.mu.RLock()
	all := slices.Clone(m.records[dataModelID])
	m.mu.RUnlock()

	if len(recordIDs) > 0 {
		byID := make(map[string]model.Record, len(all))
		for _, r := range all {
			byID[r.ID] = r
		}

		selected := make([]model.Record, 0, len(recordIDs))
		for _, id := range recordIDs {
			if r, ok := byID[id]; ok {
				selected = append(selected, r)
			}
		}

		all = selected
	}

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return func(yield func(model.Record, error) bool) {
		for _, r := range all {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// CreateObjects stores records under a data model, replacing records with
// the same id in place.
func (m *Memory) CreateObjects(_ context.Context, dataModelID model.ID, records []model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.records[dataModelID]

	for _, r := range records {
		i := slices.IndexFunc(existing, func(e model.Record) bool { return e.ID == r.ID })
		if i >= 0 {
			existing[i] = r
			continue
		}

		existing = append(existing, r)
	}

	m.records[dataModelID] = existing

	return nil
}

type memTx struct {
	parent *Memory
	state  *memState
	done   bool
}

func (t *memTx) Create(_ context.Context, kind model.EntityKind, contentKey string) (model.ID, error) {
	return t.state.create(kind, contentKey), nil
}

func (t *memTx) Exists(_ context.Context, kind model.EntityKind, id model.ID) (bool, error) {
	_, ok := t.state.entities[model.Ref{Kind: kind, ID: id}]
	return ok, nil
}

func (t *memTx) SaveDocument(_ context.Context, kind model.EntityKind, id model.ID, doc []byte) error {
	t.state.docs[model.Ref{Kind: kind, ID: id}] = slices.Clone(doc)
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errTxDone
	}

	t.done = true

	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()

	t.parent.state = t.state

	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return errTxDone
	}

	t.done = true

	return nil
}
