// Package maplayer holds the layer variants of an earth file and their config readers
// and writers. A layer's role (image, elevation, model or mask) is carried as data on
// the layer itself.
package maplayer

import (
	"strings"

	"github.com/khankhulgun/khanearth/conf"
	"github.com/khankhulgun/khanearth/models"
)

type Kind int

const (
	KindImage Kind = iota
	KindElevation
	KindModel
	KindMask
)

// ElementName is the XML element a layer of this kind is written as.
func (k Kind) ElementName() string {
	switch k {
	case KindElevation:
		return "heightfield"
	case KindModel:
		return "model"
	case KindMask:
		return "mask"
	}
	return "image"
}

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindElevation:
		return "elevation"
	case KindModel:
		return "model"
	case KindMask:
		return "mask"
	}
	return "unknown"
}

// ParseKind accepts both the kind names and the element names.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image":
		return KindImage, true
	case "elevation", "heightfield":
		return KindElevation, true
	case "model":
		return KindModel, true
	case "mask":
		return KindMask, true
	}
	return KindImage, false
}

type Layer interface {
	Kind() Kind
	Name() string
	Options() models.DriverOptions
	ToConfig() conf.Config
}

// MapLayer is an image or elevation layer. Options holds the driver options with the
// group defaults merged in; source is the node as it was read and is what gets written.
type MapLayer struct {
	name    string
	kind    Kind
	options models.DriverOptions
	source  conf.Config
}

// NewMapLayer builds a layer programmatically. The options double as its source config.
func NewMapLayer(name string, kind Kind, opts models.DriverOptions) *MapLayer {
	if kind != KindElevation {
		kind = KindImage
	}
	source := opts.Config()
	source.Key = kind.ElementName()
	if name != "" && !source.Has("name") {
		source.SetAttr("name", name)
	}
	return &MapLayer{name: name, kind: kind, options: opts, source: source}
}

func (l *MapLayer) Kind() Kind                    { return l.kind }
func (l *MapLayer) Name() string                  { return l.name }
func (l *MapLayer) Options() models.DriverOptions { return l.options }

func (l *MapLayer) ToConfig() conf.Config {
	out := l.source.Clone()
	out.Key = l.kind.ElementName()
	return out
}

type ModelLayer struct {
	name    string
	options models.DriverOptions
}

func NewModelLayer(name string, opts models.DriverOptions) *ModelLayer {
	return &ModelLayer{name: name, options: opts}
}

func (l *ModelLayer) Kind() Kind                    { return KindModel }
func (l *ModelLayer) Name() string                  { return l.name }
func (l *ModelLayer) Options() models.DriverOptions { return l.options }

func (l *ModelLayer) ToConfig() conf.Config {
	out := l.options.Config()
	out.Key = KindModel.ElementName()
	if l.name != "" && !out.Has("name") {
		out.SetAttr("name", l.name)
	}
	return out
}

// MaskLayer is the terrain mask. It has no name of its own.
type MaskLayer struct {
	options models.DriverOptions
}

func NewMaskLayer(opts models.DriverOptions) *MaskLayer {
	return &MaskLayer{options: opts}
}

func (l *MaskLayer) Kind() Kind                    { return KindMask }
func (l *MaskLayer) Name() string                  { return l.options.Get("name") }
func (l *MaskLayer) Options() models.DriverOptions { return l.options }

func (l *MaskLayer) ToConfig() conf.Config {
	out := l.options.Config()
	out.Key = KindMask.ElementName()
	return out
}

// ReadMapLayer reads an image or heightfield element. Children of defaults are merged
// underneath the node's own options; a key the node already carries is left alone.
func ReadMapLayer(node, defaults conf.Config) *MapLayer {
	merged := node.Clone()
	for _, d := range defaults.Children {
		if !merged.Has(d.Key) {
			merged.Add(d.Clone())
		}
	}
	kind := KindImage
	if node.Key == KindElevation.ElementName() {
		kind = KindElevation
	}
	return &MapLayer{
		name:    node.Get("name"),
		kind:    kind,
		options: models.NewDriverOptions(merged),
		source:  node.Clone(),
	}
}

func ReadModelLayer(node conf.Config) *ModelLayer {
	return &ModelLayer{name: node.Get("name"), options: models.NewDriverOptions(node)}
}

func ReadMaskLayer(node conf.Config) *MaskLayer {
	return &MaskLayer{options: models.NewDriverOptions(node)}
}

// Write returns the layer's config relabelled to key, or to its kind's element when
// key is empty.
func Write(l Layer, key string) conf.Config {
	out := l.ToConfig()
	if key != "" {
		out.Key = key
	}
	return out
}
