package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/auth"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db/dbtest"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/metadata"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/repository"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/service"
)

func TestCensorBody(t *testing.T) {
	b := `{
		"email": "email@email.com",
		"password": "123456789123"
	}`

	got := censorBody([]byte(b))
	assert.JSONEq(t, `{
		"email": "email@email.com",
		"password": "$censored"
	}`, string(got))

	assert.Equal(t, `[1,2]`, string(censorBody([]byte(`[1,2]`))))
	assert.Equal(t, `{"email":"x"}`, string(censorBody([]byte(`{"email":"x"}`))))
}

type client struct {
	t      *testing.T
	server http.Handler
	token  string
}

func newServer(t *testing.T) *HTTPServer {
	cfg := &config.Config{
		Env:               config.EnvDevelopment,
		JWTSecret:         "test-secret",
		JWTTTL:            time.Hour,
		MetadataTimeout:   2 * time.Second,
		MetadataUserAgent: "test-agent",
	}
	l := zap.NewNop().Sugar()
	store := repository.NewStore(dbtest.New(t))
	return NewHTTPServer(
		fxtest.NewLifecycle(t),
		cfg,
		service.NewGeneral(store, auth.NewTokenManager(cfg), l),
		service.NewBookmarks(store, l),
		service.NewFolders(store, l),
		service.NewTags(store, l),
		metadata.NewFetcher(cfg, l),
		l,
	)
}

func (c *client) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(c.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.server.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() != 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func register(t *testing.T, server http.Handler, email string) *client {
	c := &client{t: t, server: server}
	token := models.TokenResp{}
	code := c.do(http.MethodPost, "/auth/register", models.UserReq{Email: email, Password: "long-enough"}, &token)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, token.Token)
	c.token = token.Token
	return c
}

func TestHTTPAuth(t *testing.T) {
	srv := newServer(t)
	anon := &client{t: t, server: srv}

	errResp := models.ErrorResp{}
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/bookmarks", nil, &errResp))
	assert.Equal(t, string(service.KindUnauthorized), errResp.ErrorCode)

	anon.token = "garbage"
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/tags", nil, nil))
	anon.token = ""

	register(t, srv, "user@example.com")

	errResp = models.ErrorResp{}
	code := anon.do(http.MethodPost, "/auth/register", models.UserReq{Email: "user@example.com", Password: "long-enough"}, &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(service.KindDuplicate), errResp.ErrorCode)

	errResp = models.ErrorResp{}
	code = anon.do(http.MethodPost, "/auth/register", models.UserReq{Email: "not-an-email", Password: "long-enough"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(service.KindInvalidArgument), errResp.ErrorCode)

	token := models.TokenResp{}
	assert.Equal(t, http.StatusOK, anon.do(http.MethodPost, "/auth/login", models.UserReq{Email: "user@example.com", Password: "long-enough"}, &token))
	anon.token = token.Token
	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/api/bookmarks", nil, nil))

	anon.token = ""
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/auth/login", models.UserReq{Email: "user@example.com", Password: "wrong-password"}, nil))
}

func TestHTTPBookmarks(t *testing.T) {
	srv := newServer(t)
	alice := register(t, srv, "alice@example.com")
	bob := register(t, srv, "bob@example.com")

	folder := models.FolderResp{}
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/api/folders", models.FolderReq{Name: "Reading"}, &folder))

	created := models.BookmarkResp{}
	code := alice.do(http.MethodPost, "/api/bookmarks", models.BookmarkReq{
		URL:      "https://Go.dev/doc",
		Title:    "Go docs",
		FolderID: &folder.ID,
		Tags:     []string{"go"},
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "https://go.dev/doc", created.URL)
	require.Len(t, created.Tags, 1)

	t.Run("error mapping", func(t *testing.T) {
		errResp := models.ErrorResp{}
		assert.Equal(t, http.StatusConflict, alice.do(http.MethodPost, "/api/bookmarks", models.BookmarkReq{URL: "https://go.dev/doc", Title: "again"}, &errResp))
		assert.Equal(t, string(service.KindDuplicate), errResp.ErrorCode)

		errResp = models.ErrorResp{}
		assert.Equal(t, http.StatusForbidden, bob.do(http.MethodGet, "/api/bookmarks/"+created.ID.String(), nil, &errResp))
		assert.Equal(t, string(service.KindForbidden), errResp.ErrorCode)

		errResp = models.ErrorResp{}
		assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/api/bookmarks/00000000-0000-0000-0000-000000000001", nil, &errResp))
		assert.Equal(t, string(service.KindNotFound), errResp.ErrorCode)

		errResp = models.ErrorResp{}
		assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodGet, "/api/bookmarks/not-a-uuid", nil, &errResp))
		assert.Equal(t, string(service.KindInvalidArgument), errResp.ErrorCode)

		errResp = models.ErrorResp{}
		assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodPost, "/api/bookmarks", map[string]string{"url": "https://x.dev"}, &errResp))
		assert.Equal(t, string(service.KindInvalidArgument), errResp.ErrorCode)
	})

	t.Run("listing and filters", func(t *testing.T) {
		list := []models.BookmarkResp{}
		require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/bookmarks?tags="+created.Tags[0].ID.String(), nil, &list))
		assert.Len(t, list, 1)

		list = []models.BookmarkResp{}
		require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/bookmarks/folder?folderId="+folder.ID.String(), nil, &list))
		assert.Len(t, list, 1)

		list = []models.BookmarkResp{}
		require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/bookmarks/folder", nil, &list))
		assert.Empty(t, list)

		list = []models.BookmarkResp{}
		require.Equal(t, http.StatusOK, bob.do(http.MethodGet, "/api/bookmarks/search?q=go", nil, &list))
		assert.Empty(t, list)

		dup := models.DuplicateResp{}
		require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/bookmarks/check-duplicate?url=HTTPS://GO.DEV/doc", nil, &dup))
		assert.True(t, dup.IsDuplicate)
	})

	t.Run("clicks and most used", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusNoContent, alice.do(http.MethodPost, "/api/bookmarks/"+created.ID.String()+"/click", nil, nil))
		}
		top := []models.BookmarkResp{}
		require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/bookmarks/most-used?count=5", nil, &top))
		require.Len(t, top, 1)
		assert.Equal(t, int64(3), top[0].ClickCount)

		assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodGet, "/api/bookmarks/most-used?count=many", nil, nil))
	})

	t.Run("patch and delete", func(t *testing.T) {
		updated := models.BookmarkResp{}
		title := "Renamed"
		require.Equal(t, http.StatusOK, alice.do(http.MethodPatch, "/api/bookmarks/"+created.ID.String(), models.BookmarkPatchReq{Title: &title, RemoveFromFolder: true}, &updated))
		assert.Equal(t, "Renamed", updated.Title)
		assert.Nil(t, updated.FolderID)

		assert.Equal(t, http.StatusForbidden, bob.do(http.MethodDelete, "/api/bookmarks/"+created.ID.String(), nil, nil))
		assert.Equal(t, http.StatusNoContent, alice.do(http.MethodDelete, "/api/bookmarks/"+created.ID.String(), nil, nil))
		assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/api/bookmarks/"+created.ID.String(), nil, nil))
	})
}

func TestHTTPFoldersAndTags(t *testing.T) {
	srv := newServer(t)
	c := register(t, srv, "folders@example.com")

	parent := models.FolderResp{}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/folders", models.FolderReq{Name: "Parent"}, &parent))
	child := models.FolderResp{}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/folders", models.FolderReq{Name: "Child", ParentID: &parent.ID}, &child))

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPatch, "/api/folders/"+parent.ID.String(), models.FolderPatchReq{ParentID: &child.ID}, nil))

	contents := models.FolderContentsResp{}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/folders/"+parent.ID.String()+"/contents", nil, &contents))
	assert.Equal(t, "Parent", contents.Name)
	require.Len(t, contents.Subfolders, 1)
	assert.Equal(t, child.ID, contents.Subfolders[0].ID)

	roots := []models.FolderResp{}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/folders/root", nil, &roots))
	assert.Len(t, roots, 1)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/folders/"+parent.ID.String(), nil, nil))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/folders/"+child.ID.String(), nil, nil))

	tag := models.TagResp{}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/tags", models.TagReq{Name: "news"}, &tag))
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/tags", models.TagReq{Name: "news"}, nil))
	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/tags/"+tag.ID.String(), nil, nil))

	tags := []models.TagResp{}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/tags", nil, &tags))
	assert.Empty(t, tags)
}

func TestHTTPMetadataAndMetrics(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Page</title><link rel="icon" href="/i.png"></head></html>`)
	}))
	defer page.Close()

	srv := newServer(t)
	c := register(t, srv, "meta@example.com")

	meta := models.MetadataResp{}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/metadata?url="+page.URL, nil, &meta))
	require.NotNil(t, meta.Title)
	assert.Equal(t, "Page", *meta.Title)
	assert.Equal(t, page.URL+"/i.png", *meta.FaviconURL)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/metadata", nil, nil))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `bookmarker_http_requests_total{method="GET",route="/api/metadata",status="200"} 1`), rec.Body.String())
}
