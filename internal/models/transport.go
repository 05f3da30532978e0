package models

import (
	"time"

	"github.com/google/uuid"
)

type UserReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type TokenResp struct {
	Token string `json:"token"`
}

// BookmarkReq creates a bookmark.
type BookmarkReq struct {
	URL         string     `json:"url" validate:"required,max=2048"`
	Title       string     `json:"title" validate:"required,max=500"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	FaviconURL  *string    `json:"faviconUrl" validate:"omitempty,max=2048"`
	IsFavorite  bool       `json:"isFavorite"`
	FolderID    *uuid.UUID `json:"folderId"`
	Tags        []string   `json:"tags" validate:"omitempty,dive,max=100"`
}

// BookmarkPatchReq updates only the supplied fields. A non-nil Tags replaces the whole tag set.
type BookmarkPatchReq struct {
	URL              *string    `json:"url" validate:"omitempty,max=2048"`
	Title            *string    `json:"title" validate:"omitempty,max=500"`
	Description      *string    `json:"description" validate:"omitempty,max=2000"`
	FaviconURL       *string    `json:"faviconUrl" validate:"omitempty,max=2048"`
	IsFavorite       *bool      `json:"isFavorite"`
	FolderID         *uuid.UUID `json:"folderId"`
	RemoveFromFolder bool       `json:"removeFromFolder"`
	Tags             *[]string  `json:"tags"`
}

type BookmarkResp struct {
	ID          uuid.UUID  `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	FaviconURL  *string    `json:"faviconUrl,omitempty"`
	IsFavorite  bool       `json:"isFavorite"`
	ClickCount  int64      `json:"clickCount"`
	SortOrder   int        `json:"sortOrder"`
	FolderID    *uuid.UUID `json:"folderId,omitempty"`
	Tags        []TagResp  `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type DuplicateResp struct {
	IsDuplicate bool `json:"isDuplicate"`
}

type ReorderReq struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type FolderReq struct {
	Name     string     `json:"name" validate:"required,max=255"`
	Color    *string    `json:"color" validate:"omitempty,max=32"`
	Icon     *string    `json:"icon" validate:"omitempty,max=64"`
	ParentID *uuid.UUID `json:"parentId"`
}

type FolderPatchReq struct {
	Name       *string    `json:"name" validate:"omitempty,max=255"`
	Color      *string    `json:"color" validate:"omitempty,max=32"`
	Icon       *string    `json:"icon" validate:"omitempty,max=64"`
	ParentID   *uuid.UUID `json:"parentId"`
	MoveToRoot bool       `json:"moveToRoot"`
}

type FolderResp struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Color     *string    `json:"color,omitempty"`
	Icon      *string    `json:"icon,omitempty"`
	SortOrder int        `json:"sortOrder"`
	ParentID  *uuid.UUID `json:"parentId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type FolderContentsResp struct {
	FolderResp
	Subfolders []FolderResp   `json:"subfolders"`
	Bookmarks  []BookmarkResp `json:"bookmarks"`
}

type TagReq struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Color *string `json:"color" validate:"omitempty,max=32"`
}

type TagPatchReq struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Color *string `json:"color" validate:"omitempty,max=32"`
}

type TagResp struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color *string   `json:"color,omitempty"`
}

// ExportResp is the full snapshot of one user's data. ImportReq accepts the same shape.
type ExportResp struct {
	Bookmarks  []BookmarkResp `json:"bookmarks"`
	Folders    []FolderResp   `json:"folders"`
	Tags       []TagResp      `json:"tags"`
	ExportedAt time.Time      `json:"exportedAt"`
}

type ImportReq struct {
	Bookmarks []ImportBookmark `json:"bookmarks"`
	Folders   []ImportFolder   `json:"folders"`
	Tags      []ImportTag      `json:"tags"`
}

// ImportBookmark is an external bookmark record. FolderID refers to an ImportFolder.ID.
type ImportBookmark struct {
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	FaviconURL  *string     `json:"faviconUrl"`
	IsFavorite  bool        `json:"isFavorite"`
	FolderID    *string     `json:"folderId"`
	Tags        []ImportTag `json:"tags"`
}

type ImportFolder struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Color    *string `json:"color"`
	Icon     *string `json:"icon"`
	ParentID *string `json:"parentId"`
}

type ImportTag struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

const (
	SkipReasonDuplicate = "duplicate"
	SkipReasonInvalid   = "invalid"
)

type ImportSkip struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

type ImportResp struct {
	Imported       int          `json:"imported"`
	Skipped        int          `json:"skipped"`
	FoldersCreated int          `json:"foldersCreated"`
	SkippedItems   []ImportSkip `json:"skippedItems"`
}

type MetadataResp struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	FaviconURL  *string `json:"faviconUrl,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

type ErrorResp struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}
