package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/repository"
)

type Folders struct {
	store  *repository.Store
	logger *zap.SugaredLogger
}

func NewFolders(store *repository.Store, l *zap.SugaredLogger) *Folders {
	return &Folders{
		store:  store,
		logger: l,
	}
}

func (s *Folders) List(ctx context.Context, userID uuid.UUID) ([]models.FolderResp, error) {
	folders, err := s.store.UnitOfWork(ctx).Folders().ListByUser(userID)
	if err != nil {
		return nil, err
	}
	return toFolderResps(folders), nil
}

func (s *Folders) Get(ctx context.Context, userID, id uuid.UUID) (*models.FolderResp, error) {
	model, err := s.store.UnitOfWork(ctx).Folders().Get(userID, id)
	if err != nil {
		return nil, storeErr(err, "folder", id)
	}
	resp := toFolderResp(*model)
	return &resp, nil
}

// GetWithContents returns the folder with its direct subfolders and bookmarks.
func (s *Folders) GetWithContents(ctx context.Context, userID, id uuid.UUID) (*models.FolderContentsResp, error) {
	uow := s.store.UnitOfWork(ctx)
	model, err := uow.Folders().Get(userID, id)
	if err != nil {
		return nil, storeErr(err, "folder", id)
	}
	children, err := uow.Folders().ListChildren(userID, &model.ID)
	if err != nil {
		return nil, err
	}
	bookmarks, err := uow.Bookmarks().ListByFolder(userID, &model.ID)
	if err != nil {
		return nil, err
	}
	bookmarkResp, err := bookmarkResps(uow, userID, bookmarks)
	if err != nil {
		return nil, err
	}

	return &models.FolderContentsResp{
		FolderResp: toFolderResp(*model),
		Subfolders: toFolderResps(children),
		Bookmarks:  bookmarkResp,
	}, nil
}

func (s *Folders) ListRoots(ctx context.Context, userID uuid.UUID) ([]models.FolderResp, error) {
	folders, err := s.store.UnitOfWork(ctx).Folders().ListRoots(userID)
	if err != nil {
		return nil, err
	}
	return toFolderResps(folders), nil
}

func (s *Folders) ListSubfolders(ctx context.Context, userID, parentID uuid.UUID) ([]models.FolderResp, error) {
	uow := s.store.UnitOfWork(ctx)
	if _, err := uow.Folders().Get(userID, parentID); err != nil {
		return nil, storeErr(err, "folder", parentID)
	}
	folders, err := uow.Folders().ListChildren(userID, &parentID)
	if err != nil {
		return nil, err
	}
	return toFolderResps(folders), nil
}

func (s *Folders) Create(ctx context.Context, userID uuid.UUID, req models.FolderReq) (*models.FolderResp, error) {
	name, err := folderName(req.Name)
	if err != nil {
		return nil, err
	}

	model := &db.Folder{
		UserID:   userID,
		Name:     name,
		Color:    trimmedOrNil(req.Color),
		Icon:     trimmedOrNil(req.Icon),
		ParentID: req.ParentID,
	}
	err = s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		if req.ParentID != nil {
			if _, err := uow.Folders().Get(userID, *req.ParentID); err != nil {
				return storeErr(err, "folder", *req.ParentID)
			}
		}
		order, err := uow.Folders().NextSortOrder(userID, req.ParentID)
		if err != nil {
			return err
		}
		model.SortOrder = order
		uow.Folders().Add(model)
		return nil
	})
	if err != nil {
		return nil, saveErr(err, "folder")
	}

	s.logger.Infow("folder created", "userID", userID, "folderID", model.ID)
	resp := toFolderResp(*model)
	return &resp, nil
}

// Update patches the folder. A new parent must belong to the caller and must
// not be the folder itself or one of its descendants.
func (s *Folders) Update(ctx context.Context, userID, id uuid.UUID, req models.FolderPatchReq) (*models.FolderResp, error) {
	var model *db.Folder
	err := s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		var err error
		model, err = uow.Folders().GetForUpdate(userID, id)
		if err != nil {
			return storeErr(err, "folder", id)
		}

		if req.Name != nil {
			if model.Name, err = folderName(*req.Name); err != nil {
				return err
			}
		}
		if req.Color != nil {
			model.Color = trimmedOrNil(req.Color)
		}
		if req.Icon != nil {
			model.Icon = trimmedOrNil(req.Icon)
		}

		switch {
		case req.MoveToRoot:
			if model.ParentID != nil {
				if model.SortOrder, err = uow.Folders().NextSortOrder(userID, nil); err != nil {
					return err
				}
				model.ParentID = nil
			}
		case req.ParentID != nil && !sameFolder(model.ParentID, req.ParentID):
			if err := checkParent(uow, userID, model.ID, *req.ParentID); err != nil {
				return err
			}
			if model.SortOrder, err = uow.Folders().NextSortOrder(userID, req.ParentID); err != nil {
				return err
			}
			model.ParentID = req.ParentID
		}

		uow.Folders().Update(model)
		return nil
	})
	if err != nil {
		return nil, saveErr(err, "folder")
	}

	resp := toFolderResp(*model)
	return &resp, nil
}

// checkParent refuses parentID when it is id itself or lies below id.
func checkParent(uow *repository.UnitOfWork, userID, id, parentID uuid.UUID) error {
	if parentID == id {
		return invalid("folder cannot be its own parent")
	}
	ancestors, err := uow.Folders().Ancestors(userID, parentID)
	if err != nil {
		return storeErr(err, "folder", parentID)
	}
	for _, a := range ancestors {
		if a.ID == id {
			return invalid("folder %s cannot move below its own descendant %s", id, parentID)
		}
	}
	return nil
}

// Delete removes the folder and every folder below it. Bookmarks filed in any
// of them stay, without a folder.
func (s *Folders) Delete(ctx context.Context, userID, id uuid.UUID) error {
	var removed int
	err := s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		model, err := uow.Folders().Get(userID, id)
		if err != nil {
			return storeErr(err, "folder", id)
		}
		descendants, err := uow.Folders().Descendants(userID, model.ID)
		if err != nil {
			return err
		}

		all := append([]uuid.UUID{model.ID}, descendants...)
		if err := uow.Bookmarks().ClearFolders(userID, all); err != nil {
			return err
		}
		for i := len(all) - 1; i >= 0; i-- {
			uow.Folders().Remove(&db.Folder{GormForkedModel: db.GormForkedModel{ID: all[i]}, UserID: userID})
		}
		removed = len(all)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infow("folder deleted", "userID", userID, "folderID", id, "removed", removed)
	return nil
}

// Reorder sets each folder's sort order to its index in ids. All folders must
// share one parent.
func (s *Folders) Reorder(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if err := distinctIDs(ids); err != nil {
		return err
	}
	return s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		var parent *uuid.UUID
		for i, id := range ids {
			folder, err := uow.Folders().Get(userID, id)
			if err != nil {
				return storeErr(err, "folder", id)
			}
			if i == 0 {
				parent = folder.ParentID
				continue
			}
			if !sameFolder(parent, folder.ParentID) {
				return invalid("folders to reorder must share one parent")
			}
		}
		return storeErr(uow.Folders().UpdateSortOrders(userID, positions(ids)), "folder", uuid.Nil)
	})
}

func folderName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid("folder name is required")
	}
	if utf8.RuneCountInString(name) > db.MaxFolderNameLength {
		return "", invalid("folder name is longer than %d characters", db.MaxFolderNameLength)
	}
	return name, nil
}
