package server

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleSongs(c echo.Context) error {
	list, err := s.songs.List()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list songs"})
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleSongText(c echo.Context) error {
	text, err := s.songs.Fetch(c.Param("id"))
	if errors.Is(err, fs.ErrNotExist) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown song"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.String(http.StatusOK, text)
}
