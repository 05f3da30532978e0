package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db/dbtest"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/repository"
)

func newStore(t *testing.T) *repository.Store {
	return repository.NewStore(dbtest.New(t))
}

func addBookmark(t *testing.T, store *repository.Store, userID uuid.UUID, url string, mods ...func(*db.Bookmark)) *db.Bookmark {
	t.Helper()
	b := &db.Bookmark{UserID: userID, URL: url, Title: url}
	for _, m := range mods {
		m(b)
	}
	uow := store.UnitOfWork(context.Background())
	uow.Bookmarks().Add(b)
	require.NoError(t, uow.SaveChanges())
	return b
}

func TestUnitOfWork(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("save changes stamps timestamps", func(t *testing.T) {
		at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		store := newStore(t).WithClock(func() time.Time { return at })

		uow := store.UnitOfWork(ctx)
		tag := &db.Tag{UserID: user, Name: "go"}
		uow.Tags().Add(tag)
		require.NoError(t, uow.SaveChanges())
		assert.True(t, tag.CreatedAt.Equal(at))

		later := at.Add(time.Hour)
		uow = store.WithClock(func() time.Time { return later }).UnitOfWork(ctx)
		tag.Name = "golang"
		uow.Tags().Update(tag)
		require.NoError(t, uow.SaveChanges())

		got, err := uow.Tags().Get(user, tag.ID)
		require.NoError(t, err)
		assert.Equal(t, "golang", got.Name)
		assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	})

	t.Run("rollback discards staged and flushed changes", func(t *testing.T) {
		store := newStore(t)
		uow := store.UnitOfWork(ctx)
		require.NoError(t, uow.Begin())
		uow.Tags().Add(&db.Tag{UserID: user, Name: "flushed"})
		require.NoError(t, uow.SaveChanges())
		uow.Tags().Add(&db.Tag{UserID: user, Name: "staged"})
		require.NoError(t, uow.Rollback())

		tags, err := store.UnitOfWork(ctx).Tags().ListByUser(user)
		require.NoError(t, err)
		assert.Empty(t, tags)
	})

	t.Run("commit refuses unsaved changes", func(t *testing.T) {
		uow := newStore(t).UnitOfWork(ctx)
		require.NoError(t, uow.Begin())
		uow.Tags().Add(&db.Tag{UserID: user, Name: "x"})
		assert.ErrorIs(t, uow.Commit(), repository.ErrPendingChanges)
		assert.NoError(t, uow.Rollback())
		assert.ErrorIs(t, uow.Commit(), repository.ErrNoTx)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		store := newStore(t)
		boom := errors.New("boom")
		err := store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
			uow.Tags().Add(&db.Tag{UserID: user, Name: "never"})
			require.NoError(t, uow.SaveChanges())
			return boom
		})
		assert.ErrorIs(t, err, boom)

		tags, err := store.UnitOfWork(ctx).Tags().ListByUser(user)
		require.NoError(t, err)
		assert.Empty(t, tags)
	})

	t.Run("duplicate is detectable", func(t *testing.T) {
		store := newStore(t)
		addBookmark(t, store, user, "https://dup.example")

		uow := store.UnitOfWork(ctx)
		uow.Bookmarks().Add(&db.Bookmark{UserID: user, URL: "https://dup.example", Title: "x"})
		err := uow.SaveChanges()
		assert.True(t, repository.IsDuplicate(err))
		assert.False(t, repository.IsDuplicate(errors.New("other")))
	})

	t.Run("update of a removed row is not found", func(t *testing.T) {
		store := newStore(t)
		b := addBookmark(t, store, user, "https://gone.example")

		stale, err := store.UnitOfWork(ctx).Bookmarks().Get(user, b.ID)
		require.NoError(t, err)

		remover := store.UnitOfWork(ctx)
		remover.Bookmarks().Remove(b)
		require.NoError(t, remover.SaveChanges())

		uow := store.UnitOfWork(ctx)
		stale.Title = "patched"
		uow.Bookmarks().Update(stale)
		assert.ErrorIs(t, uow.SaveChanges(), repository.ErrNotFound)

		_, err = uow.Bookmarks().Get(user, b.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("update of a present row applies every field", func(t *testing.T) {
		store := newStore(t)
		b := addBookmark(t, store, user, "https://kept.example", func(b *db.Bookmark) { b.IsFavorite = true })

		uow := store.UnitOfWork(ctx)
		b.IsFavorite = false
		b.Title = "kept"
		uow.Bookmarks().Update(b)
		require.NoError(t, uow.SaveChanges())

		got, err := uow.Bookmarks().Get(user, b.ID)
		require.NoError(t, err)
		assert.False(t, got.IsFavorite)
		assert.Equal(t, "kept", got.Title)
	})
}

func TestBookmarkRepository(t *testing.T) {
	ctx := context.Background()
	user, other := uuid.New(), uuid.New()

	t.Run("get distinguishes missing from foreign", func(t *testing.T) {
		store := newStore(t)
		b := addBookmark(t, store, other, "https://other.example")
		repo := store.UnitOfWork(ctx).Bookmarks()

		_, err := repo.Get(user, b.ID)
		assert.ErrorIs(t, err, repository.ErrForbidden)

		_, err = repo.Get(user, uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)

		got, err := repo.Get(other, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://other.example", got.URL)
	})

	t.Run("search is scoped and case insensitive", func(t *testing.T) {
		store := newStore(t)
		desc := "All about GOLANG"
		addBookmark(t, store, user, "https://go.dev", func(b *db.Bookmark) { b.Title = "Go"; b.Description = &desc })
		addBookmark(t, store, user, "https://rust-lang.org", func(b *db.Bookmark) { b.Title = "Rust" })
		addBookmark(t, store, user, "https://100%.example", func(b *db.Bookmark) { b.Title = "percent" })
		addBookmark(t, store, other, "https://golang.org", func(b *db.Bookmark) { b.Title = "golang" })

		repo := store.UnitOfWork(ctx).Bookmarks()
		got, err := repo.Search(user, "golang")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "https://go.dev", got[0].URL)

		got, err = repo.Search(user, "RUST-LANG")
		require.NoError(t, err)
		require.Len(t, got, 1)

		got, err = repo.Search(user, "%")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "percent", got[0].Title)
	})

	t.Run("next sort order is per folder", func(t *testing.T) {
		store := newStore(t)
		uow := store.UnitOfWork(ctx)
		folder := &db.Folder{UserID: user, Name: "f"}
		uow.Folders().Add(folder)
		require.NoError(t, uow.SaveChanges())

		repo := uow.Bookmarks()
		next, err := repo.NextSortOrder(user, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, next)

		addBookmark(t, store, user, "https://a.example", func(b *db.Bookmark) { b.SortOrder = 4 })
		addBookmark(t, store, user, "https://b.example", func(b *db.Bookmark) { b.SortOrder = 7; b.FolderID = &folder.ID })

		next, err = repo.NextSortOrder(user, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, next)

		next, err = repo.NextSortOrder(user, &folder.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, next)

		next, err = repo.NextSortOrder(other, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, next)
	})

	t.Run("click count increments atomically", func(t *testing.T) {
		store := newStore(t)
		b := addBookmark(t, store, user, "https://click.example")
		repo := store.UnitOfWork(ctx).Bookmarks()

		require.NoError(t, repo.IncrementClickCount(user, b.ID))
		require.NoError(t, repo.IncrementClickCount(user, b.ID))
		assert.ErrorIs(t, repo.IncrementClickCount(other, b.ID), repository.ErrForbidden)
		assert.ErrorIs(t, repo.IncrementClickCount(user, uuid.New()), repository.ErrNotFound)

		got, err := repo.Get(user, b.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, got.ClickCount)
	})

	t.Run("sort order update fails on foreign ids", func(t *testing.T) {
		store := newStore(t)
		mine := addBookmark(t, store, user, "https://mine.example")
		theirs := addBookmark(t, store, other, "https://theirs.example")

		err := store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
			return uow.Bookmarks().UpdateSortOrders(user, []repository.SortOrderUpdate{
				{ID: mine.ID, SortOrder: 9},
				{ID: theirs.ID, SortOrder: 10},
			})
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)

		got, err := store.UnitOfWork(ctx).Bookmarks().Get(user, mine.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.SortOrder)
	})

	t.Run("list by tags", func(t *testing.T) {
		store := newStore(t)
		a := addBookmark(t, store, user, "https://a.example")
		addBookmark(t, store, user, "https://b.example")

		uow := store.UnitOfWork(ctx)
		tag := &db.Tag{UserID: user, Name: "read"}
		uow.Tags().Add(tag)
		uow.BookmarkTags().Link(a.ID, tag.ID)
		require.NoError(t, uow.SaveChanges())

		got, err := uow.Bookmarks().ListByTags(user, []uuid.UUID{tag.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[0].ID)

		tags, err := uow.BookmarkTags().TagsForBookmarks(user, []uuid.UUID{a.ID})
		require.NoError(t, err)
		require.Len(t, tags[a.ID], 1)
		assert.Equal(t, "read", tags[a.ID][0].Name)

		tags, err = uow.BookmarkTags().TagsForBookmarks(other, []uuid.UUID{a.ID})
		require.NoError(t, err)
		assert.Empty(t, tags)
	})
}

func TestFolderRepository(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	store := newStore(t)
	uow := store.UnitOfWork(ctx)

	root := &db.Folder{UserID: user, Name: "root"}
	uow.Folders().Add(root)
	child := &db.Folder{UserID: user, Name: "child", ParentID: &root.ID}
	uow.Folders().Add(child)
	grandchild := &db.Folder{UserID: user, Name: "grandchild", ParentID: &child.ID}
	uow.Folders().Add(grandchild)
	require.NoError(t, uow.SaveChanges())

	repo := uow.Folders()

	descendants, err := repo.Descendants(user, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{child.ID, grandchild.ID}, descendants)

	ancestors, err := repo.Ancestors(user, grandchild.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, child.ID, ancestors[0].ID)
	assert.Equal(t, root.ID, ancestors[1].ID)

	roots, err := repo.ListRoots(user)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)

	found, err := repo.FindByNameAndParent(user, "child", &root.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, found.ID)

	_, err = repo.FindByNameAndParent(user, "child", nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	next, err := repo.NextSortOrder(user, &root.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	err = store.UnitOfWork(ctx).Transaction(func(tx *repository.UnitOfWork) error {
		locked, err := tx.Folders().GetForUpdate(user, child.ID)
		require.NoError(t, err)
		assert.Equal(t, "child", locked.Name)

		_, err = tx.Folders().GetForUpdate(uuid.New(), child.ID)
		assert.ErrorIs(t, err, repository.ErrForbidden)

		chain, err := tx.Folders().Ancestors(user, grandchild.ID)
		require.NoError(t, err)
		assert.Len(t, chain, 2)
		return nil
	})
	require.NoError(t, err)
}
