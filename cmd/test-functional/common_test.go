//go:build functional

package test_functional

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
)

func register(t *testing.T, ctx context.Context, email string) string {
	u := AppBaseURL
	u.Path = "/auth/register"

	resp, err := resty.New().
		R().
		SetContext(ctx).
		SetResult(&models.TokenResp{}).
		SetBody(models.UserReq{Email: email, Password: "111111111111"}).
		Post(u.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	return resp.Result().(*models.TokenResp).Token
}

func api(ctx context.Context, token string) *resty.Request {
	return resty.New().
		SetBaseURL(AppBaseURL.String()).
		R().
		SetContext(ctx).
		SetAuthToken(token)
}

func TestRegister(t *testing.T) {
	u := AppBaseURL
	u.Path = "/auth/register"

	t.Run("successful register", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		token := register(t, ctx, "test@gmail.com")
		assert.NotEmpty(t, token)

		var (
			email    string
			password string
		)
		err := DBConn.QueryRow(ctx, "SELECT email, password FROM users WHERE email=$1", "test@gmail.com").Scan(&email, &password)
		assert.Nil(t, err)
		assert.NotEqual(t, "111111111111", password)
	})

	t.Run("bad body", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetError(&models.ErrorResp{}).
			SetBody(`
			{"something": "???"}
		`).
			Post(u.String())
		assert.Nil(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.Equal(t, "INVALID_ARGUMENT", resp.Error().(*models.ErrorResp).ErrorCode)
	})
}

func TestBookmarksCrud(t *testing.T) {
	defer FlushDB()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	token := register(t, ctx, "crud@gmail.com")

	folder := models.FolderResp{}
	resp, err := api(ctx, token).SetBody(models.FolderReq{Name: "Reading"}).SetResult(&folder).Post("/api/folders")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	created := models.BookmarkResp{}
	resp, err = api(ctx, token).
		SetBody(models.BookmarkReq{URL: "https://go.dev", Title: "Go", FolderID: &folder.ID, Tags: []string{"go"}}).
		SetResult(&created).
		Post("/api/bookmarks")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var links int
	require.NoError(t, DBConn.QueryRow(ctx, "SELECT count(*) FROM bookmark_tags WHERE bookmark_id=$1", created.ID.String()).Scan(&links))
	assert.Equal(t, 1, links)

	for i := 0; i < 5; i++ {
		resp, err = api(ctx, token).Post("/api/bookmarks/" + created.ID.String() + "/click")
		require.NoError(t, err)
		require.Equal(t, http.StatusNoContent, resp.StatusCode())
	}
	var clicks int64
	require.NoError(t, DBConn.QueryRow(ctx, "SELECT click_count FROM bookmarks WHERE id=$1", created.ID.String()).Scan(&clicks))
	assert.Equal(t, int64(5), clicks)

	resp, err = api(ctx, token).Delete("/api/folders/" + folder.ID.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode())

	var folderID *string
	require.NoError(t, DBConn.QueryRow(ctx, "SELECT folder_id FROM bookmarks WHERE id=$1", created.ID.String()).Scan(&folderID))
	assert.Nil(t, folderID)

	resp, err = api(ctx, token).Delete("/api/bookmarks/" + created.ID.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode())

	var tags int
	require.NoError(t, DBConn.QueryRow(ctx, "SELECT count(*) FROM tags").Scan(&tags))
	assert.Equal(t, 1, tags)
}
