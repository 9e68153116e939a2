package maplayer

import (
	"sort"
	"strings"
)

// Info is the flat, JSON-friendly description of a layer.
type Info struct {
	Name     string            `json:"name"`
	Kind     string            `json:"kind"`
	Driver   string            `json:"driver,omitempty"`
	TileSize int               `json:"tile_size,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
}

func Describe(l Layer) Info {
	opts := l.Options()
	info := Info{
		Name:     l.Name(),
		Kind:     l.Kind().String(),
		Driver:   opts.Driver(),
		TileSize: opts.TileSize(),
		Options:  make(map[string]string),
	}
	cfg := opts.Config()
	for _, ch := range cfg.Children {
		if _, ok := info.Options[ch.Key]; ok || ch.Value == "" {
			continue
		}
		info.Options[ch.Key] = ch.Value
	}
	for _, a := range cfg.Attrs {
		if _, ok := info.Options[a.Name]; !ok {
			info.Options[a.Name] = a.Value
		}
	}
	return info
}

type Op int

const (
	OpEqual Op = iota
	OpIn
	OpLike
	OpSearch
)

// Condition is one parsed query filter.
type Condition struct {
	Field  string
	Op     Op
	Values []string
}

var defaultSearchColumns = "name,driver,url"

// BuildFilterConditions turns query parameters into conditions, sorted by field.
// "a,b" and "[a,b]" mean IN, a __like suffix means a case-insensitive substring match
// and search matches any of search_columns.
func BuildFilterConditions(filters map[string]string) []Condition {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conditions []Condition
	for _, key := range keys {
		value := filters[key]
		// Skip metadata keys or empty values
		if key == "search_columns" || value == "" {
			continue
		}

		if key == "search" {
			searchCols := filters["search_columns"]
			if searchCols == "" {
				searchCols = defaultSearchColumns
			}
			var cols []string
			for _, col := range strings.Split(searchCols, ",") {
				if col = strings.TrimSpace(col); col != "" {
					cols = append(cols, col)
				}
			}
			if len(cols) > 0 {
				conditions = append(conditions, Condition{Field: strings.Join(cols, ","), Op: OpSearch, Values: []string{value}})
			}
			continue
		}

		if strings.Contains(value, ",") {
			var parts []string
			for _, part := range strings.Split(strings.Trim(value, "[]"), ",") {
				parts = append(parts, strings.TrimSpace(part))
			}
			conditions = append(conditions, Condition{Field: strings.TrimSuffix(key, "__like"), Op: OpIn, Values: parts})
			continue
		}

		if strings.HasSuffix(key, "__like") {
			conditions = append(conditions, Condition{Field: strings.TrimSuffix(key, "__like"), Op: OpLike, Values: []string{value}})
			continue
		}

		conditions = append(conditions, Condition{Field: key, Op: OpEqual, Values: []string{value}})
	}
	return conditions
}

func (i Info) field(name string) string {
	switch name {
	case "name":
		return i.Name
	case "kind":
		return i.Kind
	case "driver":
		return i.Driver
	}
	return i.Options[name]
}

func normalize(field, v string) string {
	if field == "kind" {
		if k, ok := ParseKind(v); ok {
			return k.String()
		}
	}
	return v
}

// Match reports whether info satisfies every condition.
func Match(info Info, conditions []Condition) bool {
	for _, c := range conditions {
		if !c.match(info) {
			return false
		}
	}
	return true
}

func (c Condition) match(info Info) bool {
	switch c.Op {
	case OpSearch:
		needle := strings.ToLower(c.Values[0])
		for _, col := range strings.Split(c.Field, ",") {
			if strings.Contains(strings.ToLower(info.field(col)), needle) {
				return true
			}
		}
		return false
	case OpLike:
		return strings.Contains(strings.ToLower(info.field(c.Field)), strings.ToLower(c.Values[0]))
	case OpIn:
		got := info.field(c.Field)
		for _, v := range c.Values {
			if got == normalize(c.Field, v) {
				return true
			}
		}
		return false
	}
	return info.field(c.Field) == normalize(c.Field, c.Values[0])
}

// Filter describes the layers and keeps those matching the query parameters.
func Filter(layers []Layer, filters map[string]string) []Info {
	conditions := BuildFilterConditions(filters)
	out := []Info{}
	for _, l := range layers {
		if info := Describe(l); Match(info, conditions) {
			out = append(out, info)
		}
	}
	return out
}
