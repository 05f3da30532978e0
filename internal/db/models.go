package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MaxURLLength         = 2048
	MaxTitleLength       = 500
	MaxDescriptionLength = 2000
	MaxFolderNameLength  = 255
	MaxTagNameLength     = 100
)

type (
	GormForkedModel struct {
		ID        uuid.UUID `gorm:"primarykey;size:36"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Email    string `gorm:"size:320;unique;not null"`
		Password string `gorm:"not null"`
	}

	Bookmark struct {
		GormForkedModel
		UserID      uuid.UUID  `gorm:"size:36;not null;uniqueIndex:uidx_bookmark_user_url;index:idx_bookmark_user_folder"`
		URL         string     `gorm:"size:2048;not null;uniqueIndex:uidx_bookmark_user_url"`
		Title       string     `gorm:"size:500;not null"`
		Description *string    `gorm:"size:2000"`
		FaviconURL  *string    `gorm:"size:2048"`
		IsFavorite  bool       `gorm:"not null"`
		ClickCount  int64      `gorm:"not null"`
		SortOrder   int        `gorm:"not null"`
		FolderID    *uuid.UUID `gorm:"size:36;index:idx_bookmark_user_folder"`

		Links []BookmarkTag `gorm:"foreignKey:BookmarkID;constraint:OnDelete:CASCADE"`
	}

	Folder struct {
		GormForkedModel
		UserID    uuid.UUID  `gorm:"size:36;not null;index:idx_folder_user_parent"`
		Name      string     `gorm:"size:255;not null"`
		Color     *string    `gorm:"size:32"`
		Icon      *string    `gorm:"size:64"`
		SortOrder int        `gorm:"not null"`
		ParentID  *uuid.UUID `gorm:"size:36;index:idx_folder_user_parent"`

		Children  []Folder   `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
		Bookmarks []Bookmark `gorm:"foreignKey:FolderID;constraint:OnDelete:SET NULL"`
	}

	Tag struct {
		GormForkedModel
		UserID uuid.UUID `gorm:"size:36;not null;uniqueIndex:uidx_tag_user_name"`
		Name   string    `gorm:"size:100;not null;uniqueIndex:uidx_tag_user_name"`
		Color  *string   `gorm:"size:32"`

		Links []BookmarkTag `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
	}

	// BookmarkTag is the join row between a bookmark and a tag.
	BookmarkTag struct {
		BookmarkID uuid.UUID `gorm:"primaryKey;size:36"`
		TagID      uuid.UUID `gorm:"primaryKey;size:36;index"`
		CreatedAt  time.Time

		Tag *Tag `gorm:"constraint:OnDelete:CASCADE"`
	}
)

// Entities lists every migrated model, parents first.
func Entities() []interface{} {
	return []interface{}{&User{}, &Folder{}, &Tag{}, &Bookmark{}, &BookmarkTag{}}
}

func (m *GormForkedModel) BeforeCreate(tx *gorm.DB) error {
	m.EnsureID()
	return nil
}

// EnsureID assigns a fresh id to a model that has none yet.
func (m *GormForkedModel) EnsureID() uuid.UUID {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return m.ID
}

func (m *GormForkedModel) Touch(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

func (BookmarkTag) TableName() string {
	return "bookmark_tags"
}
