// Package tiles serves and stores tiles through the live cache of a stored earth file.
// Tiles are never fetched from a layer's upstream source.
package tiles

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanearth/cache"
	"github.com/khankhulgun/khanearth/catalog"
	"github.com/khankhulgun/khanearth/earth"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"
)

const maxZoom = 30

type Handlers struct {
	Catalog *catalog.Catalog
	Log     logging.Logger
}

func NewHandlers(cat *catalog.Catalog, log logging.Logger) *Handlers {
	if log == nil {
		log = logging.Noop()
	}
	return &Handlers{Catalog: cat, Log: log}
}

func parseTileParams(c *fiber.Ctx) (maptile.Tile, error) {
	z, err := strconv.ParseUint(c.Params("z"), 10, 32)
	if err != nil {
		return maptile.Tile{}, err
	}
	x, err := strconv.ParseUint(c.Params("x"), 10, 32)
	if err != nil {
		return maptile.Tile{}, err
	}
	y, err := strconv.ParseUint(c.Params("y"), 10, 32)
	if err != nil {
		return maptile.Tile{}, err
	}
	if z > maxZoom {
		return maptile.Tile{}, errors.New("zoom out of range")
	}
	t := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	if !t.Valid() {
		return maptile.Tile{}, errors.New("tile out of range")
	}
	return t, nil
}

// layerCache resolves the map and layer named in the route and returns the map's live
// cache. It writes the error response itself and returns a nil cache when it did.
func (h *Handlers) layerCache(c *fiber.Ctx) (earth.Snapshot, cache.Cache, error) {
	ef, err := h.Catalog.Fetch(c.UserContext(), c.Params("map"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrInvalidName) {
			return earth.Snapshot{}, nil, c.Status(fiber.StatusNotFound).SendString("Map not found")
		}
		h.Log.Error(c.UserContext(), "loading map for tiles", logging.String("map", c.Params("map")), logging.Err(err))
		return earth.Snapshot{}, nil, c.Status(fiber.StatusInternalServerError).SendString("Error loading map")
	}
	s := ef.Map().Snapshot()
	if _, ok := s.FindLayer(c.Params("layer")); !ok {
		return s, nil, c.Status(fiber.StatusNotFound).SendString("Layer not found")
	}
	if s.Cache == nil {
		return s, nil, c.Status(fiber.StatusNotFound).SendString("Map has no tile cache")
	}
	return s, s.Cache, nil
}

// TileHandler serves a tile from the map's live cache; a miss is a 404.
func (h *Handlers) TileHandler(c *fiber.Ctx) error {
	tile, err := parseTileParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid tile parameters")
	}
	_, tc, err := h.layerCache(c)
	if tc == nil {
		return err
	}

	key := cache.Key{Layer: c.Params("layer"), Tile: tile}
	data, ok, err := tc.Get(c.UserContext(), key)
	if err != nil {
		h.Log.Error(c.UserContext(), "cache read failed", logging.String("key", key.String()), logging.Err(err))
		return c.Status(fiber.StatusBadGateway).SendString("Cache read failed")
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).SendString("Tile not cached")
	}
	c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	return c.Send(data)
}

// SaveHandler stores the request body as a tile in the map's live cache.
func (h *Handlers) SaveHandler(c *fiber.Ctx) error {
	tile, err := parseTileParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid tile parameters")
	}
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).SendString("Empty tile")
	}
	_, tc, err := h.layerCache(c)
	if tc == nil {
		return err
	}

	key := cache.Key{Layer: c.Params("layer"), Tile: tile}
	if err := tc.Set(c.UserContext(), key, append([]byte(nil), body...)); err != nil {
		h.Log.Error(c.UserContext(), "cache write failed", logging.String("key", key.String()), logging.Err(err))
		return c.Status(fiber.StatusBadGateway).SendString("Cache write failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func cached(ctx context.Context, tc cache.Cache, layer string, t maptile.Tile) (bool, error) {
	_, ok, err := tc.Get(ctx, cache.Key{Layer: layer, Tile: t})
	return ok, err
}
