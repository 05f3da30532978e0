package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
)

type FolderRepository struct {
	uow *UnitOfWork
}

func (r *FolderRepository) ListByUser(userID uuid.UUID) ([]db.Folder, error) {
	folders := make([]db.Folder, 0)
	res := r.uow.conn().Where("user_id = ?", userID).Order("sort_order").Order("created_at").Find(&folders)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list folders")
	}
	return folders, nil
}

func (r *FolderRepository) Get(userID, id uuid.UUID) (*db.Folder, error) {
	return r.get(userID, id, false)
}

// GetForUpdate is Get holding a row lock until the transaction ends.
func (r *FolderRepository) GetForUpdate(userID, id uuid.UUID) (*db.Folder, error) {
	return r.get(userID, id, true)
}

func (r *FolderRepository) get(userID, id uuid.UUID, lock bool) (*db.Folder, error) {
	q := r.uow.conn()
	if lock {
		q = r.uow.forUpdate(q)
	}
	model := db.Folder{}
	if err := q.Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "get folder")
	}
	if model.UserID != userID {
		return nil, ErrForbidden
	}
	return &model, nil
}

func (r *FolderRepository) ListRoots(userID uuid.UUID) ([]db.Folder, error) {
	return r.ListChildren(userID, nil)
}

// ListChildren returns the direct subfolders of parentID, or the root folders when parentID is nil.
func (r *FolderRepository) ListChildren(userID uuid.UUID, parentID *uuid.UUID) ([]db.Folder, error) {
	folders := make([]db.Folder, 0)
	q := scopeNullable(r.uow.conn().Where("user_id = ?", userID), "parent_id", parentID)
	if err := q.Order("sort_order").Order("created_at").Find(&folders).Error; err != nil {
		return nil, errors.Wrap(err, "list child folders")
	}
	return folders, nil
}

// Ancestors walks up from id and returns the parent chain, nearest first.
// A chain that revisits a folder stops there. Inside a transaction every
// visited row stays locked, so concurrent moves cannot close a cycle.
func (r *FolderRepository) Ancestors(userID, id uuid.UUID) ([]db.Folder, error) {
	current, err := r.GetForUpdate(userID, id)
	if err != nil {
		return nil, err
	}

	ancestors := make([]db.Folder, 0)
	seen := map[uuid.UUID]bool{current.ID: true}
	for current.ParentID != nil {
		parent, err := r.GetForUpdate(userID, *current.ParentID)
		if err != nil {
			return nil, err
		}
		if seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		ancestors = append(ancestors, *parent)
		current = parent
	}
	return ancestors, nil
}

// Descendants returns the ids of every folder below id, breadth first.
func (r *FolderRepository) Descendants(userID, id uuid.UUID) ([]uuid.UUID, error) {
	result := make([]uuid.UUID, 0)
	seen := map[uuid.UUID]bool{id: true}
	frontier := []uuid.UUID{id}
	for len(frontier) != 0 {
		children := make([]uuid.UUID, 0)
		res := r.uow.conn().Model(&db.Folder{}).
			Where("user_id = ? AND parent_id IN ?", userID, frontier).
			Order("sort_order").
			Pluck("id", &children)
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "pluck child folders")
		}

		frontier = frontier[:0]
		for _, child := range children {
			if seen[child] {
				continue
			}
			seen[child] = true
			result = append(result, child)
			frontier = append(frontier, child)
		}
	}
	return result, nil
}

func (r *FolderRepository) FindByNameAndParent(userID uuid.UUID, name string, parentID *uuid.UUID) (*db.Folder, error) {
	model := db.Folder{}
	q := scopeNullable(r.uow.conn().Where("user_id = ? AND name = ?", userID, name), "parent_id", parentID)
	if err := q.Order("created_at").First(&model).Error; err != nil {
		return nil, notFoundOr(err, "find folder by name")
	}
	return &model, nil
}

func (r *FolderRepository) NextSortOrder(userID uuid.UUID, parentID *uuid.UUID) (int, error) {
	var max sql.NullInt64
	q := scopeNullable(r.uow.conn().Model(&db.Folder{}).Where("user_id = ?", userID), "parent_id", parentID)
	if err := q.Select("MAX(sort_order)").Row().Scan(&max); err != nil {
		return 0, errors.Wrap(err, "max sort order")
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

func (r *FolderRepository) CountOwned(userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return countOwned(r.uow.conn().Model(&db.Folder{}), userID, ids)
}

func (r *FolderRepository) UpdateSortOrders(userID uuid.UUID, updates []SortOrderUpdate) error {
	return updateSortOrders(r.uow.conn().Model(&db.Folder{}), userID, updates)
}

func (r *FolderRepository) Add(model *db.Folder) {
	model.EnsureID()
	r.uow.stage(changeCreate, model)
}

func (r *FolderRepository) Update(model *db.Folder) {
	r.uow.stage(changeUpdate, model)
}

func (r *FolderRepository) Remove(model *db.Folder) {
	r.uow.stage(changeDelete, model)
}
