package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/repository"
)

const (
	DefaultMostUsedCount = 10
	MaxMostUsedCount     = 100
)

type Bookmarks struct {
	store  *repository.Store
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewBookmarks(store *repository.Store, l *zap.SugaredLogger) *Bookmarks {
	return &Bookmarks{
		store:  store,
		logger: l,
		now:    time.Now,
	}
}

func (s *Bookmarks) List(ctx context.Context, userID uuid.UUID) ([]models.BookmarkResp, error) {
	uow := s.store.UnitOfWork(ctx)
	bookmarks, err := uow.Bookmarks().ListByUser(userID)
	if err != nil {
		return nil, err
	}
	return bookmarkResps(uow, userID, bookmarks)
}

func (s *Bookmarks) Get(ctx context.Context, userID, id uuid.UUID) (*models.BookmarkResp, error) {
	uow := s.store.UnitOfWork(ctx)
	model, err := uow.Bookmarks().Get(userID, id)
	if err != nil {
		return nil, storeErr(err, "bookmark", id)
	}
	resp, err := bookmarkResps(uow, userID, []db.Bookmark{*model})
	if err != nil {
		return nil, err
	}
	return &resp[0], nil
}

// ListByFolder lists the bookmarks of folderID, or those in no folder when folderID is nil.
func (s *Bookmarks) ListByFolder(ctx context.Context, userID uuid.UUID, folderID *uuid.UUID) ([]models.BookmarkResp, error) {
	uow := s.store.UnitOfWork(ctx)
	if folderID != nil {
		if _, err := uow.Folders().Get(userID, *folderID); err != nil {
			return nil, storeErr(err, "folder", *folderID)
		}
	}
	bookmarks, err := uow.Bookmarks().ListByFolder(userID, folderID)
	if err != nil {
		return nil, err
	}
	return bookmarkResps(uow, userID, bookmarks)
}

func (s *Bookmarks) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.BookmarkResp, error) {
	uow := s.store.UnitOfWork(ctx)
	bookmarks, err := uow.Bookmarks().ListFavorites(userID)
	if err != nil {
		return nil, err
	}
	return bookmarkResps(uow, userID, bookmarks)
}

// ListByTags lists bookmarks carrying any of tagIDs; no tags means every bookmark.
func (s *Bookmarks) ListByTags(ctx context.Context, userID uuid.UUID, tagIDs []uuid.UUID) ([]models.BookmarkResp, error) {
	if len(tagIDs) == 0 {
		return s.List(ctx, userID)
	}
	uow := s.store.UnitOfWork(ctx)
	bookmarks, err := uow.Bookmarks().ListByTags(userID, tagIDs)
	if err != nil {
		return nil, err
	}
	return bookmarkResps(uow, userID, bookmarks)
}

// Search matches the query against title, description and url. A blank query lists everything.
func (s *Bookmarks) Search(ctx context.Context, userID uuid.UUID, query string) ([]models.BookmarkResp, error) {
	term := strings.TrimSpace(query)
	if term == "" {
		return s.List(ctx, userID)
	}
	uow := s.store.UnitOfWork(ctx)
	bookmarks, err := uow.Bookmarks().Search(userID, term)
	if err != nil {
		return nil, err
	}
	return bookmarkResps(uow, userID, bookmarks)
}

// MostUsed returns the count most clicked bookmarks. Non-positive counts fall back to the default.
func (s *Bookmarks) MostUsed(ctx context.Context, userID uuid.UUID, count int) ([]models.BookmarkResp, error) {
	if count <= 0 {
		count = DefaultMostUsedCount
	}
	if count > MaxMostUsedCount {
		count = MaxMostUsedCount
	}
	uow := s.store.UnitOfWork(ctx)
	bookmarks, err := uow.Bookmarks().ListMostUsed(userID, count)
	if err != nil {
		return nil, err
	}
	return bookmarkResps(uow, userID, bookmarks)
}

func (s *Bookmarks) CheckDuplicate(ctx context.Context, userID uuid.UUID, rawURL string) (bool, error) {
	url, err := NormalizeURL(rawURL)
	if err != nil {
		return false, err
	}
	return s.store.UnitOfWork(ctx).Bookmarks().ExistsURL(userID, url, nil)
}

func (s *Bookmarks) Create(ctx context.Context, userID uuid.UUID, req models.BookmarkReq) (*models.BookmarkResp, error) {
	url, err := NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}
	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}
	description, err := optionalText(req.Description, "description", db.MaxDescriptionLength)
	if err != nil {
		return nil, err
	}
	favicon, err := optionalText(req.FaviconURL, "favicon url", db.MaxURLLength)
	if err != nil {
		return nil, err
	}
	tagNames, err := normalizeTagNames(req.Tags)
	if err != nil {
		return nil, err
	}

	model := &db.Bookmark{
		UserID:      userID,
		URL:         url,
		Title:       title,
		Description: description,
		FaviconURL:  favicon,
		IsFavorite:  req.IsFavorite,
		FolderID:    req.FolderID,
	}
	err = s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		exists, err := uow.Bookmarks().ExistsURL(userID, url, nil)
		if err != nil {
			return err
		}
		if exists {
			return errors.Wrapf(ErrDuplicate, "bookmark with url %s already exists", url)
		}
		if req.FolderID != nil {
			if _, err := uow.Folders().Get(userID, *req.FolderID); err != nil {
				return storeErr(err, "folder", *req.FolderID)
			}
		}

		order, err := uow.Bookmarks().NextSortOrder(userID, req.FolderID)
		if err != nil {
			return err
		}
		model.SortOrder = order
		uow.Bookmarks().Add(model)

		tags, err := resolveTags(uow, userID, tagNames)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			uow.BookmarkTags().Link(model.ID, tag.ID)
		}
		return nil
	})
	if err != nil {
		return nil, saveErr(err, "bookmark")
	}

	s.logger.Infow("bookmark created", "userID", userID, "bookmarkID", model.ID)
	return s.Get(ctx, userID, model.ID)
}

func (s *Bookmarks) Update(ctx context.Context, userID, id uuid.UUID, req models.BookmarkPatchReq) (*models.BookmarkResp, error) {
	err := s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		model, err := uow.Bookmarks().Get(userID, id)
		if err != nil {
			return storeErr(err, "bookmark", id)
		}

		if req.URL != nil {
			url, err := NormalizeURL(*req.URL)
			if err != nil {
				return err
			}
			if url != model.URL {
				exists, err := uow.Bookmarks().ExistsURL(userID, url, &model.ID)
				if err != nil {
					return err
				}
				if exists {
					return errors.Wrapf(ErrDuplicate, "bookmark with url %s already exists", url)
				}
				model.URL = url
			}
		}
		if req.Title != nil {
			title, err := validateTitle(*req.Title)
			if err != nil {
				return err
			}
			model.Title = title
		}
		if req.Description != nil {
			if model.Description, err = optionalText(req.Description, "description", db.MaxDescriptionLength); err != nil {
				return err
			}
		}
		if req.FaviconURL != nil {
			if model.FaviconURL, err = optionalText(req.FaviconURL, "favicon url", db.MaxURLLength); err != nil {
				return err
			}
		}
		if req.IsFavorite != nil {
			model.IsFavorite = *req.IsFavorite
		}
		if err := s.moveToFolder(uow, userID, model, req.FolderID, req.RemoveFromFolder); err != nil {
			return err
		}
		uow.Bookmarks().Update(model)

		if req.Tags != nil {
			return replaceTags(uow, userID, model.ID, *req.Tags)
		}
		return nil
	})
	if err != nil {
		return nil, saveErr(err, "bookmark")
	}

	return s.Get(ctx, userID, id)
}

// moveToFolder re-files model and appends it at the end of its new folder.
func (s *Bookmarks) moveToFolder(uow *repository.UnitOfWork, userID uuid.UUID, model *db.Bookmark, folderID *uuid.UUID, remove bool) error {
	var target *uuid.UUID
	switch {
	case remove:
		target = nil
	case folderID != nil:
		if _, err := uow.Folders().Get(userID, *folderID); err != nil {
			return storeErr(err, "folder", *folderID)
		}
		target = folderID
	default:
		return nil
	}
	if sameFolder(model.FolderID, target) {
		return nil
	}

	order, err := uow.Bookmarks().NextSortOrder(userID, target)
	if err != nil {
		return err
	}
	model.FolderID = target
	model.SortOrder = order
	return nil
}

func (s *Bookmarks) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		model, err := uow.Bookmarks().Get(userID, id)
		if err != nil {
			return storeErr(err, "bookmark", id)
		}
		if err := uow.BookmarkTags().DeleteByBookmark(model.ID); err != nil {
			return err
		}
		uow.Bookmarks().Remove(model)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infow("bookmark deleted", "userID", userID, "bookmarkID", id)
	return nil
}

// TrackClick adds exactly one to the bookmark's click counter.
func (s *Bookmarks) TrackClick(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.UnitOfWork(ctx).Bookmarks().IncrementClickCount(userID, id)
	return storeErr(err, "bookmark", id)
}

// Reorder sets each bookmark's sort order to its index in ids. Either every id
// is moved or none is.
func (s *Bookmarks) Reorder(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if err := distinctIDs(ids); err != nil {
		return err
	}
	return s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		owned, err := uow.Bookmarks().CountOwned(userID, ids)
		if err != nil {
			return err
		}
		if owned != int64(len(ids)) {
			for _, id := range ids {
				if _, err := uow.Bookmarks().Get(userID, id); err != nil {
					return storeErr(err, "bookmark", id)
				}
			}
		}
		return storeErr(uow.Bookmarks().UpdateSortOrders(userID, positions(ids)), "bookmark", uuid.Nil)
	})
}

// Export returns every bookmark, folder and tag of the user.
func (s *Bookmarks) Export(ctx context.Context, userID uuid.UUID) (*models.ExportResp, error) {
	uow := s.store.UnitOfWork(ctx)

	bookmarks, err := uow.Bookmarks().ListByUser(userID)
	if err != nil {
		return nil, err
	}
	bookmarkResp, err := bookmarkResps(uow, userID, bookmarks)
	if err != nil {
		return nil, err
	}
	folders, err := uow.Folders().ListByUser(userID)
	if err != nil {
		return nil, err
	}
	tags, err := uow.Tags().ListByUser(userID)
	if err != nil {
		return nil, err
	}

	return &models.ExportResp{
		Bookmarks:  bookmarkResp,
		Folders:    toFolderResps(folders),
		Tags:       toTagResps(tags),
		ExportedAt: s.now().UTC(),
	}, nil
}

// Import creates the records of req in one transaction. Folders are matched by
// name and parent before new ones are made. Bookmarks whose url already exists,
// or repeats an earlier record, are skipped as duplicates; records with an
// unusable url are skipped as invalid. Skips never fail the import.
func (s *Bookmarks) Import(ctx context.Context, userID uuid.UUID, req models.ImportReq) (*models.ImportResp, error) {
	resp := models.ImportResp{SkippedItems: make([]models.ImportSkip, 0)}

	err := s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		imp := importer{uow: uow, userID: userID, resp: &resp}
		if err := imp.loadState(); err != nil {
			return err
		}
		if err := imp.importFolders(req.Folders); err != nil {
			return err
		}
		for _, t := range req.Tags {
			if _, err := imp.tag(t); err != nil {
				return err
			}
		}
		for i, b := range req.Bookmarks {
			if err := imp.bookmark(i, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, saveErr(err, "bookmark")
	}

	resp.Skipped = len(resp.SkippedItems)
	s.logger.Infow("bookmarks imported", "userID", userID, "imported", resp.Imported, "skipped", resp.Skipped)
	return &resp, nil
}

type importer struct {
	uow     *repository.UnitOfWork
	userID  uuid.UUID
	resp    *models.ImportResp
	urls    map[string]struct{}
	tags    map[string]*db.Tag
	folders map[string]uuid.UUID
	orders  map[uuid.UUID]int
}

func (imp *importer) loadState() error {
	urls, err := imp.uow.Bookmarks().URLsByUser(imp.userID)
	if err != nil {
		return err
	}
	tags, err := imp.uow.Tags().ListByUser(imp.userID)
	if err != nil {
		return err
	}

	imp.urls = urls
	imp.tags = make(map[string]*db.Tag, len(tags))
	for i := range tags {
		imp.tags[tags[i].Name] = &tags[i]
	}
	imp.folders = make(map[string]uuid.UUID)
	imp.orders = make(map[uuid.UUID]int)
	return nil
}

// importFolders creates parents before children. Records whose parent never
// resolves (unknown id or a cycle) land at the root.
func (imp *importer) importFolders(items []models.ImportFolder) error {
	known := make(map[string]bool, len(items))
	for _, f := range items {
		known[f.ID] = true
	}

	pending := append([]models.ImportFolder(nil), items...)
	for len(pending) != 0 {
		next := pending[:0]
		progressed := false
		for _, f := range pending {
			if f.ParentID != nil && known[*f.ParentID] {
				if _, ok := imp.folders[*f.ParentID]; !ok {
					next = append(next, f)
					continue
				}
			}
			if err := imp.folder(f); err != nil {
				return err
			}
			progressed = true
		}
		if !progressed {
			for _, f := range next {
				f.ParentID = nil
				if err := imp.folder(f); err != nil {
					return err
				}
			}
			return nil
		}
		pending = next
	}
	return nil
}

func (imp *importer) folder(f models.ImportFolder) error {
	name := strings.TrimSpace(f.Name)
	if name == "" || utf8.RuneCountInString(name) > db.MaxFolderNameLength {
		return nil
	}

	var parentID *uuid.UUID
	if f.ParentID != nil {
		if id, ok := imp.folders[*f.ParentID]; ok {
			parentID = &id
		}
	}

	existing, err := imp.uow.Folders().FindByNameAndParent(imp.userID, name, parentID)
	if err == nil {
		imp.folders[f.ID] = existing.ID
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	order, err := imp.uow.Folders().NextSortOrder(imp.userID, parentID)
	if err != nil {
		return err
	}
	model := &db.Folder{
		UserID:    imp.userID,
		Name:      name,
		Color:     trimmedOrNil(f.Color),
		Icon:      trimmedOrNil(f.Icon),
		SortOrder: order,
		ParentID:  parentID,
	}
	imp.uow.Folders().Add(model)
	if err := imp.uow.SaveChanges(); err != nil {
		return err
	}
	imp.folders[f.ID] = model.ID
	imp.resp.FoldersCreated++
	return nil
}

// tag returns the user's tag named t.Name, creating it when missing. Blank or
// oversized names yield nil.
func (imp *importer) tag(t models.ImportTag) (*db.Tag, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" || utf8.RuneCountInString(name) > db.MaxTagNameLength {
		return nil, nil
	}
	if existing, ok := imp.tags[name]; ok {
		return existing, nil
	}
	model := &db.Tag{UserID: imp.userID, Name: name, Color: trimmedOrNil(t.Color)}
	imp.uow.Tags().Add(model)
	if err := imp.uow.SaveChanges(); err != nil {
		return nil, err
	}
	imp.tags[name] = model
	return model, nil
}

func (imp *importer) bookmark(index int, b models.ImportBookmark) error {
	url, err := NormalizeURL(b.URL)
	if err != nil {
		imp.skip(index, b.URL, models.SkipReasonInvalid)
		return nil
	}
	if _, ok := imp.urls[url]; ok {
		imp.skip(index, url, models.SkipReasonDuplicate)
		return nil
	}

	title := strings.TrimSpace(b.Title)
	if title == "" {
		title = url
	}
	if utf8.RuneCountInString(title) > db.MaxTitleLength {
		title = string([]rune(title)[:db.MaxTitleLength])
	}
	description, err := optionalText(b.Description, "description", db.MaxDescriptionLength)
	if err != nil {
		imp.skip(index, url, models.SkipReasonInvalid)
		return nil
	}
	favicon, err := optionalText(b.FaviconURL, "favicon url", db.MaxURLLength)
	if err != nil {
		imp.skip(index, url, models.SkipReasonInvalid)
		return nil
	}

	var folderID *uuid.UUID
	if b.FolderID != nil {
		if id, ok := imp.folders[*b.FolderID]; ok {
			folderID = &id
		}
	}
	order, err := imp.nextOrder(folderID)
	if err != nil {
		return err
	}

	model := &db.Bookmark{
		UserID:      imp.userID,
		URL:         url,
		Title:       title,
		Description: description,
		FaviconURL:  favicon,
		IsFavorite:  b.IsFavorite,
		SortOrder:   order,
		FolderID:    folderID,
	}
	imp.uow.Bookmarks().Add(model)
	linked := make(map[uuid.UUID]bool, len(b.Tags))
	for _, t := range b.Tags {
		tag, err := imp.tag(t)
		if err != nil {
			return err
		}
		if tag == nil || linked[tag.ID] {
			continue
		}
		linked[tag.ID] = true
		imp.uow.BookmarkTags().Link(model.ID, tag.ID)
	}
	if err := imp.uow.SaveChanges(); err != nil {
		return err
	}

	imp.urls[url] = struct{}{}
	imp.resp.Imported++
	return nil
}

func (imp *importer) nextOrder(folderID *uuid.UUID) (int, error) {
	key := uuid.Nil
	if folderID != nil {
		key = *folderID
	}
	order, ok := imp.orders[key]
	if !ok {
		var err error
		if order, err = imp.uow.Bookmarks().NextSortOrder(imp.userID, folderID); err != nil {
			return 0, err
		}
	}
	imp.orders[key] = order + 1
	return order, nil
}

func (imp *importer) skip(index int, url, reason string) {
	imp.resp.SkippedItems = append(imp.resp.SkippedItems, models.ImportSkip{Index: index, URL: url, Reason: reason})
}

// resolveTags returns the user's tags for names in order, staging the missing ones.
func resolveTags(uow *repository.UnitOfWork, userID uuid.UUID, names []string) ([]db.Tag, error) {
	existing, err := uow.Tags().FindByNames(userID, names)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]db.Tag, len(existing))
	for _, t := range existing {
		byName[t.Name] = t
	}

	tags := make([]db.Tag, 0, len(names))
	for _, name := range names {
		tag, ok := byName[name]
		if !ok {
			model := &db.Tag{UserID: userID, Name: name}
			uow.Tags().Add(model)
			tag = *model
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// replaceTags makes names the complete tag set of the bookmark: links not
// wanted any more are removed, missing ones added, existing tags reused.
func replaceTags(uow *repository.UnitOfWork, userID, bookmarkID uuid.UUID, raw []string) error {
	names, err := normalizeTagNames(raw)
	if err != nil {
		return err
	}
	wanted, err := resolveTags(uow, userID, names)
	if err != nil {
		return err
	}
	current, err := uow.BookmarkTags().TagIDs(bookmarkID)
	if err != nil {
		return err
	}

	keep := make(map[uuid.UUID]bool, len(wanted))
	for _, t := range wanted {
		keep[t.ID] = true
	}
	have := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		have[id] = true
		if !keep[id] {
			uow.BookmarkTags().Unlink(bookmarkID, id)
		}
	}
	for _, t := range wanted {
		if !have[t.ID] {
			uow.BookmarkTags().Link(bookmarkID, t.ID)
		}
	}
	return nil
}

func sameFolder(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
