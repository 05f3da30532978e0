package repository

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
)

type TagRepository struct {
	uow *UnitOfWork
}

func (r *TagRepository) ListByUser(userID uuid.UUID) ([]db.Tag, error) {
	tags := make([]db.Tag, 0)
	res := r.uow.conn().Where("user_id = ?", userID).Order("name").Find(&tags)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list tags")
	}
	return tags, nil
}

func (r *TagRepository) Get(userID, id uuid.UUID) (*db.Tag, error) {
	model := db.Tag{}
	if err := r.uow.conn().Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "get tag")
	}
	if model.UserID != userID {
		return nil, ErrForbidden
	}
	return &model, nil
}

func (r *TagRepository) FindByName(userID uuid.UUID, name string) (*db.Tag, error) {
	model := db.Tag{}
	if err := r.uow.conn().Where("user_id = ? AND name = ?", userID, name).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "find tag by name")
	}
	return &model, nil
}

func (r *TagRepository) FindByNames(userID uuid.UUID, names []string) ([]db.Tag, error) {
	tags := make([]db.Tag, 0)
	if len(names) == 0 {
		return tags, nil
	}
	res := r.uow.conn().Where("user_id = ? AND name IN ?", userID, names).Order("name").Find(&tags)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "find tags by names")
	}
	return tags, nil
}

func (r *TagRepository) Add(model *db.Tag) {
	model.EnsureID()
	r.uow.stage(changeCreate, model)
}

func (r *TagRepository) Update(model *db.Tag) {
	r.uow.stage(changeUpdate, model)
}

func (r *TagRepository) Remove(model *db.Tag) {
	r.uow.stage(changeDelete, model)
}

type BookmarkTagRepository struct {
	uow *UnitOfWork
}

// TagsForBookmarks loads the tags of each given bookmark of the user, sorted by name.
func (r *BookmarkTagRepository) TagsForBookmarks(userID uuid.UUID, bookmarkIDs []uuid.UUID) (map[uuid.UUID][]db.Tag, error) {
	result := make(map[uuid.UUID][]db.Tag, len(bookmarkIDs))
	if len(bookmarkIDs) == 0 {
		return result, nil
	}

	links := make([]db.BookmarkTag, 0)
	res := r.uow.conn().
		Preload("Tag").
		Joins("JOIN bookmarks ON bookmarks.id = bookmark_tags.bookmark_id AND bookmarks.user_id = ?", userID).
		Where("bookmark_tags.bookmark_id IN ?", bookmarkIDs).
		Find(&links)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "load bookmark tags")
	}

	for _, link := range links {
		if link.Tag == nil {
			continue
		}
		result[link.BookmarkID] = append(result[link.BookmarkID], *link.Tag)
	}
	for id := range result {
		tags := result[id]
		sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	}
	return result, nil
}

func (r *BookmarkTagRepository) TagIDs(bookmarkID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	res := r.uow.conn().Model(&db.BookmarkTag{}).Where("bookmark_id = ?", bookmarkID).Pluck("tag_id", &ids)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "pluck tag ids")
	}
	return ids, nil
}

// DeleteByBookmark removes every link of the bookmark right away.
func (r *BookmarkTagRepository) DeleteByBookmark(bookmarkID uuid.UUID) error {
	res := r.uow.conn().Where("bookmark_id = ?", bookmarkID).Delete(&db.BookmarkTag{})
	return errors.Wrap(res.Error, "delete bookmark links")
}

// DeleteByTag removes every link of the tag right away.
func (r *BookmarkTagRepository) DeleteByTag(tagID uuid.UUID) error {
	res := r.uow.conn().Where("tag_id = ?", tagID).Delete(&db.BookmarkTag{})
	return errors.Wrap(res.Error, "delete tag links")
}

func (r *BookmarkTagRepository) Link(bookmarkID, tagID uuid.UUID) {
	r.uow.stage(changeCreate, &db.BookmarkTag{BookmarkID: bookmarkID, TagID: tagID})
}

func (r *BookmarkTagRepository) Unlink(bookmarkID, tagID uuid.UUID) {
	r.uow.stage(changeDelete, &db.BookmarkTag{BookmarkID: bookmarkID, TagID: tagID})
}

type UserRepository struct {
	uow *UnitOfWork
}

func (r *UserRepository) FindByEmail(email string) (*db.User, error) {
	model := db.User{}
	if err := r.uow.conn().Where("email = ?", email).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "find user by email")
	}
	return &model, nil
}

func (r *UserRepository) Add(model *db.User) {
	model.EnsureID()
	r.uow.stage(changeCreate, model)
}
