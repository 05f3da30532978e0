package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/metadata"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/service"
)

const userIDKey = "userID"

type (
	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		echo      *echo.Echo
		general   *service.General
		bookmarks *service.Bookmarks
		folders   *service.Folders
		tags      *service.Tags
		fetcher   *metadata.Fetcher
		metrics   *metrics
		logger    *zap.SugaredLogger
	}
)

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	general *service.General,
	bookmarks *service.Bookmarks,
	folders *service.Folders,
	tags *service.Tags,
	fetcher *metadata.Fetcher,
	logger *zap.SugaredLogger,
) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	instance := HTTPServer{
		echo:      e,
		general:   general,
		bookmarks: bookmarks,
		folders:   folders,
		tags:      tags,
		fetcher:   fetcher,
		metrics:   newMetrics(),
		logger:    logger,
	}

	e.HTTPErrorHandler = instance.handleError
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(instance.metrics.middleware)
	e.Use(instance.requestLogger)
	if !cfg.IsProduction() {
		e.Use(middleware.BodyDump(instance.dumpBody))
	}

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/metrics", echo.WrapHandler(instance.metrics.handler()))
	e.POST("/auth/register", instance.Register)
	e.POST("/auth/login", instance.Login)

	api := e.Group("/api", instance.AuthMiddleware)
	api.GET("/metadata", instance.Metadata)

	bookmarkG := api.Group("/bookmarks")
	bookmarkG.GET("", instance.BookmarkList)
	bookmarkG.GET("/folder", instance.BookmarkListByFolder)
	bookmarkG.GET("/favorites", instance.BookmarkFavorites)
	bookmarkG.GET("/search", instance.BookmarkSearch)
	bookmarkG.GET("/most-used", instance.BookmarkMostUsed)
	bookmarkG.GET("/check-duplicate", instance.BookmarkCheckDuplicate)
	bookmarkG.GET("/export", instance.BookmarkExport)
	bookmarkG.POST("/import", instance.BookmarkImport)
	bookmarkG.POST("/reorder", instance.BookmarkReorder)
	bookmarkG.GET("/:id", instance.BookmarkGet)
	bookmarkG.POST("", instance.BookmarkCreate)
	bookmarkG.PATCH("/:id", instance.BookmarkUpdate)
	bookmarkG.DELETE("/:id", instance.BookmarkDelete)
	bookmarkG.POST("/:id/click", instance.BookmarkClick)

	folderG := api.Group("/folders")
	folderG.GET("", instance.FolderList)
	folderG.GET("/root", instance.FolderRoots)
	folderG.POST("/reorder", instance.FolderReorder)
	folderG.GET("/:id", instance.FolderGet)
	folderG.GET("/:id/contents", instance.FolderContents)
	folderG.GET("/:id/subfolders", instance.FolderSubfolders)
	folderG.POST("", instance.FolderCreate)
	folderG.PATCH("/:id", instance.FolderUpdate)
	folderG.DELETE("/:id", instance.FolderDelete)

	tagG := api.Group("/tags")
	tagG.GET("", instance.TagList)
	tagG.GET("/:id", instance.TagGet)
	tagG.POST("", instance.TagCreate)
	tagG.PATCH("/:id", instance.TagUpdate)
	tagG.DELETE("/:id", instance.TagDelete)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				logger.Infow("Starting HTTP server.", "listen", listen)
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					logger.Fatalw("HTTP server failed", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *HTTPServer) Register(c echo.Context) error {
	req := models.UserReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	token, err := s.general.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, models.TokenResp{Token: token})
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := models.UserReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	token, err := s.general.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.TokenResp{Token: token})
}

func (s *HTTPServer) Metadata(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("url"))
	if raw == "" {
		return errors.Wrap(service.ErrInvalidArgument, "query param 'url' is required")
	}
	meta := s.fetcher.Fetch(c.Request().Context(), raw)
	return c.JSON(http.StatusOK, models.MetadataResp{
		Title:       meta.Title,
		Description: meta.Description,
		FaviconURL:  meta.FaviconURL,
		ImageURL:    meta.ImageURL,
	})
}

// AuthMiddleware resolves the bearer token into the caller's user id.
func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return errors.Wrap(service.ErrUnauthorized, "missing bearer token")
		}
		userID, err := s.general.Authenticate(strings.TrimSpace(token))
		if err != nil {
			return err
		}
		c.Set(userIDKey, userID)
		return next(c)
	}
}

func (s *HTTPServer) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debugw("request",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
		)
		return nil
	}
}

func (s *HTTPServer) dumpBody(c echo.Context, reqBody, resBody []byte) {
	s.logger.Debugw("http body",
		"path", c.Request().URL.Path,
		"request", string(censorBody(reqBody)),
		"response", string(censorBody(resBody)),
	)
}

// censorBody hides the password of a JSON object body. Anything else is returned as is.
func censorBody(body []byte) []byte {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return body
	}
	if _, ok := fields["password"]; !ok {
		return body
	}
	fields["password"] = json.RawMessage(`"$censored"`)
	censored, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return censored
}

////////

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func BindAndValidate(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return errors.Wrap(service.ErrInvalidArgument, "malformed request body")
	}
	if err := c.Validate(v); err != nil {
		return errors.Wrap(service.ErrInvalidArgument, err.Error())
	}
	return nil
}

func GetUserID(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.Wrap(service.ErrUnauthorized, "no user in context")
	}
	return userID, nil
}

func GetAndParseParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errors.Wrapf(service.ErrInvalidArgument, "invalid path param '%s'", name)
	}
	return id, nil
}
