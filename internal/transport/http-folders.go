package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
)

func (s *HTTPServer) FolderList(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	resp, err := s.folders.List(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) FolderRoots(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	resp, err := s.folders.ListRoots(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) FolderGet(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.folders.Get(c.Request().Context(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) FolderContents(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.folders.GetWithContents(c.Request().Context(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) FolderSubfolders(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.folders.ListSubfolders(c.Request().Context(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) FolderCreate(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	req := models.FolderReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := s.folders.Create(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *HTTPServer) FolderUpdate(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	req := models.FolderPatchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := s.folders.Update(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) FolderDelete(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.folders.Delete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) FolderReorder(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	req := models.ReorderReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := s.folders.Reorder(c.Request().Context(), user, req.IDs); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
