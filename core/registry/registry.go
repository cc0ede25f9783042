/*Package registry holds the static schema registry.

The registry is the allow-list between the HTTP surface and the generic
data-access facade: every table that can be touched through the API is
described here with its columns, and nothing outside of it ever reaches
the SQL layer. Unknown table names are rejected before any query text is
built.
*/
package registry

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/xeipuuv/gojsonschema"
)

// ColumnType is the coarse type of a column, used to derive the JSON
// schema for generic payload validation.
type ColumnType string

// The supported column types
const (
	String  ColumnType = "string"
	Integer ColumnType = "integer"
	Number  ColumnType = "number"
	Time    ColumnType = "time"
)

// Column describes a single table column.
type Column struct {
	Name     string
	Type     ColumnType
	Required bool
}

// Table describes a relation the facade may operate on.
type Table struct {
	Name string
	// Primary is the name of the primary key column.
	Primary string
	// Generated is true when the store assigns the primary key itself;
	// generated keys must not appear in create payloads.
	Generated bool
	// Columns are all non-primary columns.
	Columns []Column
	// Exposed makes the table reachable through the generic /api/{table}
	// endpoints. Tables holding credentials stay unexposed.
	Exposed bool

	columnSet map[string]Column
}

// HasColumn reports whether name is the primary key or a registered column.
func (t *Table) HasColumn(name string) bool {
	if name == t.Primary {
		return true
	}
	_, ok := t.columnSet[name]
	return ok
}

// Registry is the set of registered tables together with a compiled JSON
// schema per exposed table.
type Registry struct {
	tables  map[string]*Table
	schemas map[string]*gojsonschema.Schema
}

// New builds a registry from the table descriptors. It derives a JSON
// schema for every exposed table and compiles it, so that generic create
// payloads can be validated at the boundary. New panics on an invalid
// descriptor set, this is a configuration error.
func New(tables []Table) *Registry {
	r := &Registry{
		tables:  make(map[string]*Table, len(tables)),
		schemas: make(map[string]*gojsonschema.Schema),
	}
	for i := range tables {
		t := tables[i]
		if t.Name == "" || t.Primary == "" {
			panic(fmt.Sprintf("invalid table descriptor %q", t.Name))
		}
		t.columnSet = make(map[string]Column, len(t.Columns))
		for _, c := range t.Columns {
			t.columnSet[c.Name] = c
		}
		r.tables[t.Name] = &t

		if !t.Exposed {
			continue
		}
		schema, err := compileSchema(&t)
		if err != nil {
			panic(fmt.Sprintf("cannot compile schema for table %s: %v", t.Name, err))
		}
		r.schemas[t.Name] = schema
	}
	return r
}

// Lookup returns the descriptor for the named table, or nil.
func (r *Registry) Lookup(table string) *Table {
	return r.tables[table]
}

// ValidateCreate validates a generic create payload against the table's
// derived JSON schema. The table must be exposed.
func (r *Registry) ValidateCreate(table string, payload map[string]interface{}) error {
	schema, ok := r.schemas[table]
	if !ok {
		return fmt.Errorf("table %s has no schema", table)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msg := "invalid payload:"
		for _, e := range result.Errors() {
			msg += "\n- " + e.String()
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

func jsonType(ct ColumnType) interface{} {
	switch ct {
	case Integer:
		return "integer"
	case Number:
		return "number"
	case Time:
		// timestamps travel as strings over JSON
		return "string"
	default:
		return "string"
	}
}

func compileSchema(t *Table) (*gojsonschema.Schema, error) {
	properties := map[string]interface{}{}
	required := []string{}
	if !t.Generated {
		properties[t.Primary] = map[string]interface{}{"type": "string"}
		required = append(required, t.Primary)
	}
	for _, c := range t.Columns {
		properties[c.Name] = map[string]interface{}{"type": jsonType(c.Type)}
		if c.Required {
			required = append(required, c.Name)
		}
	}
	document := map[string]interface{}{
		"$id":                  "galerie/" + t.Name + ".json",
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		document["required"] = required
	}
	data, err := json.Marshal(document)
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
}
