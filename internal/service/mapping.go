package service

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/repository"
)

// NormalizeURL trims raw and lower-cases its scheme and host. Path, query and
// fragment are kept as given, so two urls differing only there are distinct.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalid("url is required")
	}
	if len(trimmed) > db.MaxURLLength {
		return "", invalid("url is longer than %d characters", db.MaxURLLength)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", invalid("url is malformed: %s", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", invalid("url must use http or https")
	}
	if u.Host == "" {
		return "", invalid("url has no host")
	}

	sep := strings.Index(trimmed, "://")
	if sep < 0 {
		return "", invalid("url must be absolute")
	}
	rest := trimmed[sep+3:]
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	authority := rest[:end]
	at := strings.LastIndex(authority, "@")
	authority = authority[:at+1] + strings.ToLower(authority[at+1:])

	return scheme + "://" + authority + rest[end:], nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", invalid("title is required")
	}
	if utf8.RuneCountInString(title) > db.MaxTitleLength {
		return "", invalid("title is longer than %d characters", db.MaxTitleLength)
	}
	return title, nil
}

// optionalText trims raw; blank values become nil.
func optionalText(raw *string, field string, max int) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > max {
		return nil, invalid("%s is longer than %d characters", field, max)
	}
	return &v, nil
}

// normalizeTagNames trims names, drops blanks and repeats, and keeps first-seen order.
func normalizeTagNames(raw []string) ([]string, error) {
	names := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, n := range raw {
		name := strings.TrimSpace(n)
		if name == "" || seen[name] {
			continue
		}
		if utf8.RuneCountInString(name) > db.MaxTagNameLength {
			return nil, invalid("tag name is longer than %d characters", db.MaxTagNameLength)
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

func distinctIDs(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return invalid("ids are required")
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return invalid("id %s is listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

func positions(ids []uuid.UUID) []repository.SortOrderUpdate {
	updates := make([]repository.SortOrderUpdate, len(ids))
	for i, id := range ids {
		updates[i] = repository.SortOrderUpdate{ID: id, SortOrder: i}
	}
	return updates
}

func toTagResp(t db.Tag) models.TagResp {
	return models.TagResp{
		ID:    t.ID,
		Name:  t.Name,
		Color: t.Color,
	}
}

func toTagResps(tags []db.Tag) []models.TagResp {
	resp := make([]models.TagResp, len(tags))
	for i := range tags {
		resp[i] = toTagResp(tags[i])
	}
	return resp
}

func toBookmarkResp(b db.Bookmark, tags []db.Tag) models.BookmarkResp {
	return models.BookmarkResp{
		ID:          b.ID,
		URL:         b.URL,
		Title:       b.Title,
		Description: b.Description,
		FaviconURL:  b.FaviconURL,
		IsFavorite:  b.IsFavorite,
		ClickCount:  b.ClickCount,
		SortOrder:   b.SortOrder,
		FolderID:    b.FolderID,
		Tags:        toTagResps(tags),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toFolderResp(f db.Folder) models.FolderResp {
	return models.FolderResp{
		ID:        f.ID,
		Name:      f.Name,
		Color:     f.Color,
		Icon:      f.Icon,
		SortOrder: f.SortOrder,
		ParentID:  f.ParentID,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func toFolderResps(folders []db.Folder) []models.FolderResp {
	resp := make([]models.FolderResp, len(folders))
	for i := range folders {
		resp[i] = toFolderResp(folders[i])
	}
	return resp
}

// bookmarkResps maps bookmarks together with their tags.
func bookmarkResps(uow *repository.UnitOfWork, userID uuid.UUID, bookmarks []db.Bookmark) ([]models.BookmarkResp, error) {
	ids := make([]uuid.UUID, len(bookmarks))
	for i := range bookmarks {
		ids[i] = bookmarks[i].ID
	}
	tags, err := uow.BookmarkTags().TagsForBookmarks(userID, ids)
	if err != nil {
		return nil, err
	}

	resp := make([]models.BookmarkResp, len(bookmarks))
	for i := range bookmarks {
		resp[i] = toBookmarkResp(bookmarks[i], tags[bookmarks[i].ID])
	}
	return resp, nil
}
