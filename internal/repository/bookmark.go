package repository

import (
	"database/sql"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
)

// SortOrderUpdate moves one row to a new position.
type SortOrderUpdate struct {
	ID        uuid.UUID
	SortOrder int
}

type BookmarkRepository struct {
	uow *UnitOfWork
}

func (r *BookmarkRepository) ListByUser(userID uuid.UUID) ([]db.Bookmark, error) {
	bookmarks := make([]db.Bookmark, 0)
	res := r.uow.conn().Where("user_id = ?", userID).Order("sort_order").Order("created_at").Find(&bookmarks)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list bookmarks")
	}
	return bookmarks, nil
}

func (r *BookmarkRepository) Get(userID, id uuid.UUID) (*db.Bookmark, error) {
	model := db.Bookmark{}
	if err := r.uow.conn().Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "get bookmark")
	}
	if model.UserID != userID {
		return nil, ErrForbidden
	}
	return &model, nil
}

// ListByFolder returns the bookmarks filed in folderID, or the unfiled ones when folderID is nil.
func (r *BookmarkRepository) ListByFolder(userID uuid.UUID, folderID *uuid.UUID) ([]db.Bookmark, error) {
	bookmarks := make([]db.Bookmark, 0)
	q := scopeNullable(r.uow.conn().Where("user_id = ?", userID), "folder_id", folderID)
	if err := q.Order("sort_order").Order("created_at").Find(&bookmarks).Error; err != nil {
		return nil, errors.Wrap(err, "list bookmarks by folder")
	}
	return bookmarks, nil
}

func (r *BookmarkRepository) ListFavorites(userID uuid.UUID) ([]db.Bookmark, error) {
	bookmarks := make([]db.Bookmark, 0)
	res := r.uow.conn().Where("user_id = ? AND is_favorite = ?", userID, true).Order("sort_order").Order("created_at").Find(&bookmarks)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list favorite bookmarks")
	}
	return bookmarks, nil
}

// Search matches term case-insensitively against title, description and url.
func (r *BookmarkRepository) Search(userID uuid.UUID, term string) ([]db.Bookmark, error) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	sql, args, err := squirrel.
		Select("b.*").From("bookmarks b").
		Where(squirrel.Eq{"b.user_id": userID.String()}).
		Where(squirrel.Or{
			squirrel.Expr(`LOWER(b.title) LIKE ? ESCAPE '\'`, pattern),
			squirrel.Expr(`LOWER(COALESCE(b.description, '')) LIKE ? ESCAPE '\'`, pattern),
			squirrel.Expr(`LOWER(b.url) LIKE ? ESCAPE '\'`, pattern),
		}).
		OrderBy("b.sort_order", "b.created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	bookmarks := make([]db.Bookmark, 0)
	if err := r.uow.conn().Raw(sql, args...).Scan(&bookmarks).Error; err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return bookmarks, nil
}

// ListByTags returns bookmarks linked to any of tagIDs.
func (r *BookmarkRepository) ListByTags(userID uuid.UUID, tagIDs []uuid.UUID) ([]db.Bookmark, error) {
	ids := make([]string, len(tagIDs))
	for i := range tagIDs {
		ids[i] = tagIDs[i].String()
	}
	sql, args, err := squirrel.
		Select("b.*").From("bookmarks b").
		Where(squirrel.Eq{"b.user_id": userID.String()}).
		Where(squirrel.Expr("EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id AND bt.tag_id IN ("+
			squirrel.Placeholders(len(ids))+"))", toArgs(ids)...)).
		OrderBy("b.sort_order", "b.created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	bookmarks := make([]db.Bookmark, 0)
	if err := r.uow.conn().Raw(sql, args...).Scan(&bookmarks).Error; err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return bookmarks, nil
}

// ListMostUsed ranks bookmarks by click count, highest first.
func (r *BookmarkRepository) ListMostUsed(userID uuid.UUID, limit int) ([]db.Bookmark, error) {
	bookmarks := make([]db.Bookmark, 0)
	res := r.uow.conn().Where("user_id = ?", userID).
		Order("click_count DESC").Order("sort_order").Order("created_at").
		Limit(limit).
		Find(&bookmarks)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list most used bookmarks")
	}
	return bookmarks, nil
}

func (r *BookmarkRepository) FindByURL(userID uuid.UUID, url string) (*db.Bookmark, error) {
	model := db.Bookmark{}
	if err := r.uow.conn().Where("user_id = ? AND url = ?", userID, url).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "find bookmark by url")
	}
	return &model, nil
}

func (r *BookmarkRepository) ExistsURL(userID uuid.UUID, url string, except *uuid.UUID) (bool, error) {
	var count int64
	q := r.uow.conn().Model(&db.Bookmark{}).Where("user_id = ? AND url = ?", userID, url)
	if except != nil {
		q = q.Where("id <> ?", *except)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "count bookmarks by url")
	}
	return count > 0, nil
}

// URLsByUser returns the set of stored urls of the user.
func (r *BookmarkRepository) URLsByUser(userID uuid.UUID) (map[string]struct{}, error) {
	urls := make([]string, 0)
	if err := r.uow.conn().Model(&db.Bookmark{}).Where("user_id = ?", userID).Pluck("url", &urls).Error; err != nil {
		return nil, errors.Wrap(err, "pluck urls")
	}
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set, nil
}

// NextSortOrder is one past the highest sort order among the folder's bookmarks, 0 when empty.
func (r *BookmarkRepository) NextSortOrder(userID uuid.UUID, folderID *uuid.UUID) (int, error) {
	var max sql.NullInt64
	q := scopeNullable(r.uow.conn().Model(&db.Bookmark{}).Where("user_id = ?", userID), "folder_id", folderID)
	if err := q.Select("MAX(sort_order)").Row().Scan(&max); err != nil {
		return 0, errors.Wrap(err, "max sort order")
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

// IncrementClickCount adds one to the counter in a single UPDATE.
func (r *BookmarkRepository) IncrementClickCount(userID, id uuid.UUID) error {
	res := r.uow.conn().Model(&db.Bookmark{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if res.Error != nil {
		return errors.Wrap(res.Error, "increment click count")
	}
	if res.RowsAffected == 0 {
		_, err := r.Get(userID, id)
		if err == nil {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// CountOwned counts how many of ids are bookmarks of the user.
func (r *BookmarkRepository) CountOwned(userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return countOwned(r.uow.conn().Model(&db.Bookmark{}), userID, ids)
}

func (r *BookmarkRepository) UpdateSortOrders(userID uuid.UUID, updates []SortOrderUpdate) error {
	return updateSortOrders(r.uow.conn().Model(&db.Bookmark{}), userID, updates)
}

// ClearFolders un-files every bookmark of the user that sits in one of folderIDs.
func (r *BookmarkRepository) ClearFolders(userID uuid.UUID, folderIDs []uuid.UUID) error {
	if len(folderIDs) == 0 {
		return nil
	}
	res := r.uow.conn().Model(&db.Bookmark{}).
		Where("user_id = ? AND folder_id IN ?", userID, folderIDs).
		Update("folder_id", nil)
	if res.Error != nil {
		return errors.Wrap(res.Error, "clear bookmark folders")
	}
	return nil
}

func (r *BookmarkRepository) Add(model *db.Bookmark) {
	model.EnsureID()
	r.uow.stage(changeCreate, model)
}

func (r *BookmarkRepository) Update(model *db.Bookmark) {
	r.uow.stage(changeUpdate, model)
}

func (r *BookmarkRepository) Remove(model *db.Bookmark) {
	r.uow.stage(changeDelete, model)
}

func scopeNullable(q *gorm.DB, column string, id *uuid.UUID) *gorm.DB {
	if id == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *id)
}

func countOwned(q *gorm.DB, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	if err := q.Where("user_id = ? AND id IN ?", userID, ids).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count owned")
	}
	return count, nil
}

func updateSortOrders(q *gorm.DB, userID uuid.UUID, updates []SortOrderUpdate) error {
	for _, u := range updates {
		res := q.Session(&gorm.Session{}).
			Where("id = ? AND user_id = ?", u.ID, userID).
			Update("sort_order", u.SortOrder)
		if res.Error != nil {
			return errors.Wrap(res.Error, "update sort order")
		}
		if res.RowsAffected != 1 {
			return errors.Wrapf(ErrNotFound, "sort order target %s", u.ID)
		}
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i := range values {
		args[i] = values[i]
	}
	return args
}
