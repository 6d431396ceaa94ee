package testmo

import (
	"encoding/json"
	"maps"
	"math"
)

// Annotation keys added to cases returned by the recursive tools.
const (
	FolderNameKey = "_folder_name"
	FolderPathKey = "_folder_path"
)

// Folder is a node of a project's case repository. Properties other than
// id, name and parent_id are kept in Extra and written back unchanged.
type Folder struct {
	ID       int64
	Name     string
	ParentID int64 // 0 for a top-level folder
	Extra    map[string]any
}

func (f *Folder) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, _ := IntValue(raw["id"])
	parentID, _ := IntValue(raw["parent_id"])
	name, _ := raw["name"].(string)
	delete(raw, "id")
	delete(raw, "name")
	delete(raw, "parent_id")
	*f = Folder{ID: id, Name: name, ParentID: parentID, Extra: raw}
	return nil
}

func (f Folder) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Fields())
}

// Fields returns every property of the folder as a flat map.
func (f Folder) Fields() map[string]any {
	m := make(map[string]any, len(f.Extra)+3)
	maps.Copy(m, f.Extra)
	m["id"] = f.ID
	m["name"] = f.Name
	m["parent_id"] = nullableID(f.ParentID)
	return m
}

// Case is a test case. Custom fields, tags, issues and any other property
// the project defines live in Fields.
type Case struct {
	ID       int64
	Name     string
	FolderID int64
	Fields   map[string]any

	// Set by the recursive tools, omitted from JSON when nil.
	FolderName *string
	FolderPath *string
}

func (c *Case) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, _ := IntValue(raw["id"])
	folderID, _ := IntValue(raw["folder_id"])
	name, _ := raw["name"].(string)
	out := Case{ID: id, Name: name, FolderID: folderID}
	if s, ok := raw[FolderNameKey].(string); ok {
		out.FolderName = &s
	}
	if s, ok := raw[FolderPathKey].(string); ok {
		out.FolderPath = &s
	}
	for _, k := range []string{"id", "name", "folder_id", FolderNameKey, FolderPathKey} {
		delete(raw, k)
	}
	out.Fields = raw
	*c = out
	return nil
}

func (c Case) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Fields)+5)
	maps.Copy(m, c.Fields)
	m["id"] = c.ID
	m["name"] = c.Name
	m["folder_id"] = nullableID(c.FolderID)
	if c.FolderName != nil {
		m[FolderNameKey] = *c.FolderName
	}
	if c.FolderPath != nil {
		m[FolderPathKey] = *c.FolderPath
	}
	return json.Marshal(m)
}

// Get returns the value of a case property by its JSON name.
func (c Case) Get(key string) (any, bool) {
	switch key {
	case "id":
		return c.ID, true
	case "name":
		return c.Name, true
	case "folder_id":
		return c.FolderID, true
	}
	v, ok := c.Fields[key]
	return v, ok
}

// IntValue converts a decoded JSON number to int64. It reports false for
// non-numbers and numbers with a fractional part.
func IntValue(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	}
	return 0, false
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
