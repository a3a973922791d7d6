package server

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/scout/tools/images"
)

// ImagesHandler exposes the downloaded-images directory. Image names are
// paths relative to the store root since downloads live in per-run
// subdirectories.
type ImagesHandler struct {
	Store images.Store
}

func (h *ImagesHandler) Register(g *echo.Group) {
	g.GET("/images_list", h.list)
	g.GET("/images/*", h.get)
	g.DELETE("/images/*", h.remove)
}

func (h *ImagesHandler) list(c echo.Context) error {
	names, err := h.Store.ListAll()
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"images": names})
}

func (h *ImagesHandler) resolve(c echo.Context) (string, error) {
	path, err := h.Store.Resolve(c.Param("*"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return path, nil
}

func (h *ImagesHandler) get(c echo.Context) error {
	path, err := h.resolve(c)
	if err != nil {
		return err
	}
	return c.File(path)
}

func (h *ImagesHandler) remove(c echo.Context) error {
	path, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}
