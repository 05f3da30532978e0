package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/repository"
)

type Tags struct {
	store  *repository.Store
	logger *zap.SugaredLogger
}

func NewTags(store *repository.Store, l *zap.SugaredLogger) *Tags {
	return &Tags{
		store:  store,
		logger: l,
	}
}

func (s *Tags) List(ctx context.Context, userID uuid.UUID) ([]models.TagResp, error) {
	tags, err := s.store.UnitOfWork(ctx).Tags().ListByUser(userID)
	if err != nil {
		return nil, err
	}
	return toTagResps(tags), nil
}

func (s *Tags) Get(ctx context.Context, userID, id uuid.UUID) (*models.TagResp, error) {
	model, err := s.store.UnitOfWork(ctx).Tags().Get(userID, id)
	if err != nil {
		return nil, storeErr(err, "tag", id)
	}
	resp := toTagResp(*model)
	return &resp, nil
}

func (s *Tags) Create(ctx context.Context, userID uuid.UUID, req models.TagReq) (*models.TagResp, error) {
	name, err := tagName(req.Name)
	if err != nil {
		return nil, err
	}

	model := &db.Tag{UserID: userID, Name: name, Color: trimmedOrNil(req.Color)}
	err = s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		if err := ensureFreeTagName(uow, userID, name, nil); err != nil {
			return err
		}
		uow.Tags().Add(model)
		return nil
	})
	if err != nil {
		return nil, saveErr(err, "tag")
	}

	resp := toTagResp(*model)
	return &resp, nil
}

func (s *Tags) Update(ctx context.Context, userID, id uuid.UUID, req models.TagPatchReq) (*models.TagResp, error) {
	var model *db.Tag
	err := s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		var err error
		model, err = uow.Tags().Get(userID, id)
		if err != nil {
			return storeErr(err, "tag", id)
		}
		if req.Name != nil {
			name, err := tagName(*req.Name)
			if err != nil {
				return err
			}
			if name != model.Name {
				if err := ensureFreeTagName(uow, userID, name, &model.ID); err != nil {
					return err
				}
				model.Name = name
			}
		}
		if req.Color != nil {
			model.Color = trimmedOrNil(req.Color)
		}
		uow.Tags().Update(model)
		return nil
	})
	if err != nil {
		return nil, saveErr(err, "tag")
	}

	resp := toTagResp(*model)
	return &resp, nil
}

// Delete removes the tag and its links; the bookmarks themselves stay.
func (s *Tags) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		model, err := uow.Tags().Get(userID, id)
		if err != nil {
			return storeErr(err, "tag", id)
		}
		if err := uow.BookmarkTags().DeleteByTag(model.ID); err != nil {
			return err
		}
		uow.Tags().Remove(model)
		return nil
	})
}

func ensureFreeTagName(uow *repository.UnitOfWork, userID uuid.UUID, name string, except *uuid.UUID) error {
	existing, err := uow.Tags().FindByName(userID, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case except != nil && existing.ID == *except:
		return nil
	default:
		return errors.Wrapf(ErrDuplicate, "tag %q already exists", name)
	}
}

func tagName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid("tag name is required")
	}
	if utf8.RuneCountInString(name) > db.MaxTagNameLength {
		return "", invalid("tag name is longer than %d characters", db.MaxTagNameLength)
	}
	return name, nil
}
