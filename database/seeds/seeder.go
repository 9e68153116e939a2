package seeds

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"path"
	"strings"

	"github.com/khankhulgun/khanearth/catalog"
	"github.com/pkg/errors"
)

//go:embed earth/*.earth
var samples embed.FS

// Seed stores the bundled sample earth files that the catalog does not have yet and
// returns the names it added.
func Seed(ctx context.Context, cat *catalog.Catalog) ([]string, error) {
	existing, err := cat.List()
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	files, err := fs.Glob(samples, "earth/*"+catalog.Ext)
	if err != nil {
		return nil, errors.Wrap(err, "seeds: list samples")
	}

	var added []string
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), catalog.Ext)
		if have[name] {
			continue
		}
		data, err := samples.ReadFile(file)
		if err != nil {
			return added, errors.Wrapf(err, "seeds: read %s", file)
		}
		if _, err := cat.Store(ctx, name, bytes.NewReader(data)); err != nil {
			return added, errors.Wrapf(err, "seeds: store %s", name)
		}
		added = append(added, name)
	}
	return added, nil
}
