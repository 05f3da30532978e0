package transport

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/service"
)

// BookmarkList lists the caller's bookmarks, optionally only those carrying one of ?tags=<id>,<id>.
func (s *HTTPServer) BookmarkList(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	tagIDs, err := parseIDList(c.QueryParam("tags"))
	if err != nil {
		return err
	}
	resp, err := s.bookmarks.ListByTags(c.Request().Context(), user, tagIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarkGet(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := s.bookmarks.Get(c.Request().Context(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarkListByFolder(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	var folderID *uuid.UUID
	if raw := c.QueryParam("folderId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return errors.Wrap(service.ErrInvalidArgument, "invalid query param 'folderId'")
		}
		folderID = &id
	}
	resp, err := s.bookmarks.ListByFolder(c.Request().Context(), user, folderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarkFavorites(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	resp, err := s.bookmarks.ListFavorites(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarkSearch(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	resp, err := s.bookmarks.Search(c.Request().Context(), user, c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarkMostUsed(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	count := 0
	if raw := c.QueryParam("count"); raw != "" {
		if count, err = strconv.Atoi(raw); err != nil {
			return errors.Wrap(service.ErrInvalidArgument, "invalid query param 'count'")
		}
	}
	resp, err := s.bookmarks.MostUsed(c.Request().Context(), user, count)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarkCheckDuplicate(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	dup, err := s.bookmarks.CheckDuplicate(c.Request().Context(), user, c.QueryParam("url"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.DuplicateResp{IsDuplicate: dup})
}

func (s *HTTPServer) BookmarkCreate(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	req := models.BookmarkReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := s.bookmarks.Create(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *HTTPServer) BookmarkUpdate(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	req := models.BookmarkPatchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := s.bookmarks.Update(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarkDelete(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.bookmarks.Delete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) BookmarkClick(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.bookmarks.TrackClick(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) BookmarkReorder(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	req := models.ReorderReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := s.bookmarks.Reorder(c.Request().Context(), user, req.IDs); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) BookmarkExport(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	resp, err := s.bookmarks.Export(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarkImport(c echo.Context) error {
	user, err := GetUserID(c)
	if err != nil {
		return err
	}
	req := models.ImportReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := s.bookmarks.Import(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func parseIDList(raw string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, errors.Wrapf(service.ErrInvalidArgument, "invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
