package model

import (
	"strings"
)

// PathDelimiter separates attribute URIs in the serialized form of an
// attribute path. U+001E (record separator) never occurs in a URI.
const PathDelimiter = "\u001e"

// Entity is implemented by every identifiable type in this package.
type Entity interface {
	EntityKind() EntityKind
	EntityID() ID
	// isStub reports whether the value carries nothing but an identifier.
	isStub() bool
}

// Attribute is a single property URI. Attributes are content-addressed by URI.
type Attribute struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// AttributePath is an ordered, non-empty sequence of attributes. Two paths
// with the same sequence of URIs are the same path.
type AttributePath struct {
	ID         ID           `json:"id"`
	Attributes []*Attribute `json:"attributes,omitempty"`
}

// URIs returns the attribute URIs of the path in order.
func (p *AttributePath) URIs() []string {
	uris := make([]string, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		uris = append(uris, a.URI)
	}

	return uris
}

// Key returns the serialized form used for content addressing.
func (p *AttributePath) Key() string {
	return strings.Join(p.URIs(), PathDelimiter)
}

// Readable renders the path with dots for logs and error messages.
func (p *AttributePath) Readable() string {
	if p == nil {
		return ""
	}

	return strings.Join(p.URIs(), ".")
}

// AttributePathInstance is the part shared by the mapping and the schema
// views of an attribute path.
type AttributePathInstance struct {
	ID            ID             `json:"id"`
	Name          string         `json:"name,omitempty"`
	AttributePath *AttributePath `json:"attribute_path,omitempty"`
}

// Path returns the attribute path, or nil when the instance has none.
func (i *AttributePathInstance) Path() *AttributePath {
	if i == nil {
		return nil
	}

	return i.AttributePath
}

// MappingAttributePathInstance is an attribute path as used by a mapping,
// optionally narrowed by a filter and an ordinal position.
type MappingAttributePathInstance struct {
	AttributePathInstance

	Filter *Filter `json:"filter,omitempty"`
	// Ordinal selects the n-th (1-based) candidate value after filtering.
	Ordinal *int `json:"ordinal,omitempty"`
}

// SchemaAttributePathInstance is an attribute path as declared by a schema.
type SchemaAttributePathInstance struct {
	AttributePathInstance

	Required   bool `json:"required,omitempty"`
	Multivalue bool `json:"multivalue,omitempty"`
}

// RecordClass names the class of the records a schema describes.
type RecordClass struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// Schema is a named set of attribute paths.
type Schema struct {
	ID             ID                             `json:"id"`
	Name           string                         `json:"name,omitempty"`
	AttributePaths []*SchemaAttributePathInstance `json:"attribute_paths,omitempty"`
	RecordClass    *RecordClass                   `json:"record_class,omitempty"`
}

// FindPath returns the schema instance whose path has the given key.
func (s *Schema) FindPath(key string) (*SchemaAttributePathInstance, bool) {
	if s == nil {
		return nil, false
	}

	for _, inst := range s.AttributePaths {
		if inst.AttributePath != nil && inst.AttributePath.Key() == key {
			return inst, true
		}
	}

	return nil, false
}

// DataModel binds a schema to a body of records.
type DataModel struct {
	ID          ID      `json:"id"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// Filter restricts the values an input attribute path yields.
// Expression is a JSON array of {attribute path: regular expression} objects.
type Filter struct {
	ID         ID     `json:"id"`
	Name       string `json:"name,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// Mapping transforms values read from input attribute paths into a value
// written to one output attribute path.
type Mapping struct {
	ID                  ID                              `json:"id"`
	Name                string                          `json:"name,omitempty"`
	InputAttributePaths []*MappingAttributePathInstance `json:"input_attribute_paths,omitempty"`
	OutputAttributePath *MappingAttributePathInstance   `json:"output_attribute_path,omitempty"`
	Transformation      *Component                      `json:"transformation,omitempty"`
}

// Project groups mappings between an input and an output data model.
type Project struct {
	ID              ID          `json:"id"`
	Name            string      `json:"name,omitempty"`
	Description     string      `json:"description,omitempty"`
	InputDataModel  *DataModel  `json:"input_data_model,omitempty"`
	OutputDataModel *DataModel  `json:"output_data_model,omitempty"`
	Mappings        []*Mapping  `json:"mappings,omitempty"`
	Functions       []*Function `json:"functions,omitempty"`
	SkipFilter      *Filter     `json:"skip_filter,omitempty"`
	// SelectedRecords restricts runs to the listed record identifiers.
	SelectedRecords []string `json:"selected_records,omitempty"`
}

// Task converts the project into an executable task.
func (p *Project) Task() *Task {
	return &Task{
		Name: p.Name,
		Job: &Job{
			Name:       p.Name,
			Mappings:   p.Mappings,
			SkipFilter: p.SkipFilter,
		},
		InputDataModel:  p.InputDataModel,
		OutputDataModel: p.OutputDataModel,
		SelectedRecords: p.SelectedRecords,
	}
}

// Job is an executable set of mappings.
type Job struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Mappings    []*Mapping `json:"mappings,omitempty"`
	// SkipFilter drops input records that match it before any mapping runs.
	SkipFilter *Filter `json:"skip_filter,omitempty"`
}

// Task runs a job from an input data model into an output data model.
type Task struct {
	ID              ID         `json:"id"`
	Name            string     `json:"name,omitempty"`
	Description     string     `json:"description,omitempty"`
	Job             *Job       `json:"job,omitempty"`
	InputDataModel  *DataModel `json:"input_data_model,omitempty"`
	OutputDataModel *DataModel `json:"output_data_model,omitempty"`
	// SelectedRecords is the default record subset of a run.
	SelectedRecords []string `json:"selected_records,omitempty"`
}

func (a *Attribute) EntityKind() EntityKind                    { return KindAttribute }
func (p *AttributePath) EntityKind() EntityKind                { return KindAttributePath }
func (i *MappingAttributePathInstance) EntityKind() EntityKind { return KindAttributePathInstance }
func (i *SchemaAttributePathInstance) EntityKind() EntityKind  { return KindAttributePathInstance }
func (s *Schema) EntityKind() EntityKind                       { return KindSchema }
func (d *DataModel) EntityKind() EntityKind                    { return KindDataModel }
func (f *Filter) EntityKind() EntityKind                       { return KindFilter }
func (m *Mapping) EntityKind() EntityKind                      { return KindMapping }
func (p *Project) EntityKind() EntityKind                      { return KindProject }
func (j *Job) EntityKind() EntityKind                          { return KindJob }
func (t *Task) EntityKind() EntityKind                         { return KindTask }

func (a *Attribute) EntityID() ID                    { return a.ID }
func (p *AttributePath) EntityID() ID                { return p.ID }
func (i *MappingAttributePathInstance) EntityID() ID { return i.ID }
func (i *SchemaAttributePathInstance) EntityID() ID  { return i.ID }
func (s *Schema) EntityID() ID                       { return s.ID }
func (d *DataModel) EntityID() ID                    { return d.ID }
func (f *Filter) EntityID() ID                       { return f.ID }
func (m *Mapping) EntityID() ID                      { return m.ID }
func (p *Project) EntityID() ID                      { return p.ID }
func (j *Job) EntityID() ID                          { return j.ID }
func (t *Task) EntityID() ID                         { return t.ID }

func (a *Attribute) isStub() bool { return a.URI == "" && a.Name == "" }

func (p *AttributePath) isStub() bool { return len(p.Attributes) == 0 }

func (i *MappingAttributePathInstance) isStub() bool {
	return i.Name == "" && i.AttributePath == nil && i.Filter == nil && i.Ordinal == nil
}

func (i *SchemaAttributePathInstance) isStub() bool {
	return i.Name == "" && i.AttributePath == nil && !i.Required && !i.Multivalue
}

func (s *Schema) isStub() bool {
	return s.Name == "" && len(s.AttributePaths) == 0 && s.RecordClass == nil
}

func (d *DataModel) isStub() bool { return d.Name == "" && d.Description == "" && d.Schema == nil }

func (f *Filter) isStub() bool { return f.Name == "" && f.Expression == "" }

func (m *Mapping) isStub() bool {
	return m.Name == "" && len(m.InputAttributePaths) == 0 && m.OutputAttributePath == nil && m.Transformation == nil
}

func (p *Project) isStub() bool {
	return p.Name == "" && p.InputDataModel == nil && p.OutputDataModel == nil && len(p.Mappings) == 0
}

func (j *Job) isStub() bool { return j.Name == "" && len(j.Mappings) == 0 }

func (t *Task) isStub() bool { return t.Name == "" && t.Job == nil }
