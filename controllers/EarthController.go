package controllers

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanearth/catalog"
	"github.com/khankhulgun/khanearth/internal/logging"
	"github.com/pkg/errors"
)

type EarthController struct {
	Catalog *catalog.Catalog
	Log     logging.Logger
}

func NewEarthController(cat *catalog.Catalog, log logging.Logger) *EarthController {
	if log == nil {
		log = logging.Noop()
	}
	return &EarthController{Catalog: cat, Log: log}
}

// ListEarthFiles returns the stored earth file names.
func (ec *EarthController) ListEarthFiles(c *fiber.Ctx) error {
	names, err := ec.Catalog.List()
	if err != nil {
		return ec.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   names,
	})
}

// GetEarthFile returns the normalized XML of a stored earth file.
func (ec *EarthController) GetEarthFile(c *fiber.Ctx) error {
	ef, err := ec.Catalog.Fetch(c.UserContext(), c.Params("name"))
	if err != nil {
		return ec.fail(c, err)
	}
	var buf bytes.Buffer
	if err := ef.WriteXML(&buf); err != nil {
		return ec.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

// PutEarthFile validates the request body and stores it under the name.
func (ec *EarthController) PutEarthFile(c *fiber.Ctx) error {
	name := c.Params("name")
	ef, err := ec.Catalog.Store(c.UserContext(), name, bytes.NewReader(c.Body()))
	if err != nil {
		return ec.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "success",
		"data":   Summarize(name, ef),
	})
}

func (ec *EarthController) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Error retrieving earth file"
	switch {
	case errors.Is(err, catalog.ErrInvalidName):
		status, message = fiber.StatusBadRequest, "Invalid earth file name"
	case errors.Is(err, catalog.ErrNotFound):
		status, message = fiber.StatusNotFound, "Earth file not found"
	case errors.Is(err, catalog.ErrInvalidDocument):
		status, message = fiber.StatusUnprocessableEntity, "Invalid earth file"
	default:
		ec.Log.Error(c.UserContext(), "earth file request failed",
			logging.String("path", c.Path()), logging.Err(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"error":   err.Error(),
	})
}
