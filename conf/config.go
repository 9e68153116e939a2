package conf

import (
	"strconv"
	"strings"
)

// Attr is a single named attribute on a config node.
type Attr struct {
	Name  string
	Value string
}

// Config is an ordered key/value/children document node. It is the in-memory form of
// one XML element: Key is the element name, Value its trimmed text, Attrs its
// attributes in document order and Children its child elements in document order.
type Config struct {
	Key      string
	Value    string
	Attrs    []Attr
	Children []Config
}

// New returns an empty node with the given key.
func New(key string) Config {
	return Config{Key: key}
}

// NewValue returns a leaf node carrying a scalar value.
func NewValue(key, value string) Config {
	return Config{Key: key, Value: value}
}

// Empty reports whether the node carries nothing at all.
func (c Config) Empty() bool {
	return c.Key == "" && c.Value == "" && len(c.Attrs) == 0 && len(c.Children) == 0
}

// Attr returns the attribute value, or "" when absent.
func (c Config) Attr(name string) string {
	v, _ := c.lookupAttr(name)
	return v
}

// HasAttr reports whether the attribute is present.
func (c Config) HasAttr(name string) bool {
	_, ok := c.lookupAttr(name)
	return ok
}

func (c Config) lookupAttr(name string) (string, bool) {
	for _, a := range c.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces an existing attribute in place or appends a new one.
func (c *Config) SetAttr(name, value string) {
	for i := range c.Attrs {
		if c.Attrs[i].Name == name {
			c.Attrs[i].Value = value
			return
		}
	}
	c.Attrs = append(c.Attrs, Attr{Name: name, Value: value})
}

// HasChild reports whether at least one child has the key.
func (c Config) HasChild(key string) bool {
	for _, ch := range c.Children {
		if ch.Key == key {
			return true
		}
	}
	return false
}

// Child returns the first child with the key, or an empty node.
func (c Config) Child(key string) Config {
	for _, ch := range c.Children {
		if ch.Key == key {
			return ch
		}
	}
	return Config{}
}

// ChildrenOf returns every child with the key, in document order.
func (c Config) ChildrenOf(key string) []Config {
	var out []Config
	for _, ch := range c.Children {
		if ch.Key == key {
			out = append(out, ch)
		}
	}
	return out
}

// Add appends children.
func (c *Config) Add(children ...Config) {
	c.Children = append(c.Children, children...)
}

// AddValue appends a leaf child.
func (c *Config) AddValue(key, value string) {
	c.Children = append(c.Children, NewValue(key, value))
}

// Remove drops every child with the key.
func (c *Config) Remove(key string) {
	var kept []Config
	for _, ch := range c.Children {
		if ch.Key != key {
			kept = append(kept, ch)
		}
	}
	c.Children = kept
}

// Get returns the scalar for key: the first child's value, falling back to the attribute.
func (c Config) Get(key string) string {
	for _, ch := range c.Children {
		if ch.Key == key && ch.Value != "" {
			return ch.Value
		}
	}
	return c.Attr(key)
}

// Has reports whether Get(key) would find anything.
func (c Config) Has(key string) bool {
	return c.Get(key) != ""
}

// Int parses Get(key) as an integer.
func (c Config) Int(key string) (int, bool) {
	v := strings.TrimSpace(c.Get(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Float parses Get(key) as a float64.
func (c Config) Float(key string) (float64, bool) {
	v := strings.TrimSpace(c.Get(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bool parses Get(key) as a boolean. It accepts true/false, yes/no, on/off and 1/0.
func (c Config) Bool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(c.Get(key))) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0":
		return false, true
	}
	return false, false
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := Config{Key: c.Key, Value: c.Value}
	if c.Attrs != nil {
		out.Attrs = append([]Attr(nil), c.Attrs...)
	}
	if c.Children != nil {
		out.Children = make([]Config, len(c.Children))
		for i, ch := range c.Children {
			out.Children[i] = ch.Clone()
		}
	}
	return out
}

// String renders an indented debug view of the tree.
func (c Config) String() string {
	var b strings.Builder
	c.dump(&b, 0)
	return b.String()
}

func (c Config) dump(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(c.Key)
	for _, a := range c.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString("=")
		b.WriteString(strconv.Quote(a.Value))
	}
	if c.Value != "" {
		b.WriteString(": ")
		b.WriteString(c.Value)
	}
	b.WriteByte('\n')
	for _, ch := range c.Children {
		ch.dump(b, depth+1)
	}
}
