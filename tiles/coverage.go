package tiles

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/khankhulgun/khanearth/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Coverage reports beyond this many tiles per request are refused.
const maxCoverageTiles = 1 << 14

const mercatorMaxLat = 85.0511287798

var world = orb.Bound{Min: orb.Point{-180, -mercatorMaxLat}, Max: orb.Point{180, mercatorMaxLat}}

// Clamps the latitude to the valid bounds of the Mercator projection
func clampLatitude(lat float64) float64 {
	if lat > mercatorMaxLat {
		return mercatorMaxLat
	}
	if lat < -mercatorMaxLat {
		return -mercatorMaxLat
	}
	return lat
}

// coverageBound is the profile extent when it is geographic, otherwise the whole world.
func coverageBound(p *models.ProfileConfig) orb.Bound {
	if p == nil || !p.HasExtent {
		return world
	}
	e := p.Extent
	if e.Left() < -180 || e.Right() > 180 || e.Bottom() < -90 || e.Top() > 90 {
		return world
	}
	return orb.Bound{
		Min: orb.Point{e.Left(), clampLatitude(e.Bottom())},
		Max: orb.Point{e.Right(), clampLatitude(e.Top())},
	}
}

// TileRange is the inclusive block of tiles covering a bound at one zoom.
type TileRange struct {
	Zoom       maptile.Zoom
	MinX, MaxX uint32
	MinY, MaxY uint32
}

// lonLatToTile converts a position to tile coordinates at a given zoom level
func lonLatToTile(p orb.Point, z maptile.Zoom) (x, y uint32) {
	// Clamp latitude to prevent invalid tile ranges
	lat := clampLatitude(p.Lat())
	latRad := lat * math.Pi / 180.0
	n := math.Exp2(float64(z))

	fx := (p.Lon() + 180.0) / 360.0 * n
	fy := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n
	return clampTile(fx, n), clampTile(fy, n)
}

func clampTile(f, n float64) uint32 {
	if f < 0 {
		return 0
	}
	if f >= n {
		return uint32(n) - 1
	}
	return uint32(f)
}

func tileRange(b orb.Bound, z maptile.Zoom) TileRange {
	minX, minY := lonLatToTile(orb.Point{b.Left(), b.Top()}, z)
	maxX, maxY := lonLatToTile(orb.Point{b.Right(), b.Bottom()}, z)
	r := TileRange{Zoom: z, MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}
	// Swap values if inverted
	if r.MinX > r.MaxX {
		r.MinX, r.MaxX = r.MaxX, r.MinX
	}
	if r.MinY > r.MaxY {
		r.MinY, r.MaxY = r.MaxY, r.MinY
	}
	return r
}

func (r TileRange) Count() uint64 {
	return uint64(r.MaxX-r.MinX+1) * uint64(r.MaxY-r.MinY+1)
}

// Each calls fn for every tile in the range until fn returns false.
func (r TileRange) Each(fn func(maptile.Tile) bool) {
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			if !fn(maptile.New(x, y, r.Zoom)) {
				return
			}
		}
	}
}

// StatusHandler reports how much of a layer's coverage at one zoom level is cached.
func (h *Handlers) StatusHandler(c *fiber.Ctx) error {
	z, err := strconv.ParseUint(c.Query("zoom", "0"), 10, 32)
	if err != nil || z > maxZoom {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid zoom")
	}
	s, tc, err := h.layerCache(c)
	if tc == nil {
		return err
	}

	r := tileRange(coverageBound(s.Profile), maptile.Zoom(z))
	if r.Count() > maxCoverageTiles {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Too many tiles at this zoom level",
			"tiles":   r.Count(),
		})
	}

	layer := c.Params("layer")
	var n uint64
	var readErr error
	r.Each(func(t maptile.Tile) bool {
		ok, err := cached(c.UserContext(), tc, layer, t)
		if err != nil {
			readErr = err
			return false
		}
		if ok {
			n++
		}
		return true
	})
	if readErr != nil {
		h.Log.Error(c.UserContext(), "cache read failed", logging.String("layer", layer), logging.Err(readErr))
		return c.Status(fiber.StatusBadGateway).SendString("Cache read failed")
	}

	return c.JSON(fiber.Map{
		"map":    c.Params("map"),
		"layer":  layer,
		"zoom":   z,
		"range":  []uint32{r.MinX, r.MinY, r.MaxX, r.MaxY},
		"total":  r.Count(),
		"cached": n,
	})
}
