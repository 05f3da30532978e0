package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
)

func (s *HTTPServer) TagList(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	resp, err := s.tags.List(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) TagGet(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.tags.Get(c.Request().Context(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) TagCreate(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	req := models.TagReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := s.tags.Create(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *HTTPServer) TagUpdate(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	req := models.TagPatchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := s.tags.Update(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) TagDelete(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.tags.Delete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
