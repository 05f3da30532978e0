package repository

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrForbidden       = errors.New("record belongs to another user")
	ErrTxActive        = errors.New("transaction already started")
	ErrNoTx            = errors.New("no transaction started")
	ErrPendingChanges  = errors.New("unsaved changes pending")
	errUnsupportedKind = errors.New("unsupported change kind")
)

type changeKind int

const (
	changeCreate changeKind = iota
	changeUpdate
	changeDelete
)

type (
	change struct {
		kind  changeKind
		model interface{}
	}

	touchable interface {
		Touch(now time.Time)
	}

	// Store hands out units of work over one database.
	Store struct {
		db  *gorm.DB
		now func() time.Time
	}

	// UnitOfWork groups repository calls into one transactional boundary.
	// Add, Update and Remove only stage changes; SaveChanges flushes them.
	UnitOfWork struct {
		root    *gorm.DB
		tx      *gorm.DB
		pending []change
		now     func() time.Time
	}
)

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

// WithClock replaces the clock used to stamp timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

func (s *Store) UnitOfWork(ctx context.Context) *UnitOfWork {
	return &UnitOfWork{
		root: s.db.WithContext(ctx),
		now:  s.now,
	}
}

func (u *UnitOfWork) Bookmarks() *BookmarkRepository {
	return &BookmarkRepository{uow: u}
}

func (u *UnitOfWork) Folders() *FolderRepository {
	return &FolderRepository{uow: u}
}

func (u *UnitOfWork) Tags() *TagRepository {
	return &TagRepository{uow: u}
}

func (u *UnitOfWork) BookmarkTags() *BookmarkTagRepository {
	return &BookmarkTagRepository{uow: u}
}

func (u *UnitOfWork) Users() *UserRepository {
	return &UserRepository{uow: u}
}

func (u *UnitOfWork) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.root
}

// forUpdate locks the selected rows until the open transaction ends. sqlite
// has no row locks and serializes writers anyway.
func (u *UnitOfWork) forUpdate(q *gorm.DB) *gorm.DB {
	if u.tx == nil || q.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (u *UnitOfWork) InTransaction() bool {
	return u.tx != nil
}

func (u *UnitOfWork) Begin() error {
	if u.tx != nil {
		return ErrTxActive
	}
	tx := u.root.Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "begin transaction")
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return ErrNoTx
	}
	if len(u.pending) != 0 {
		return ErrPendingChanges
	}
	err := u.tx.Commit().Error
	u.tx = nil
	if err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// Rollback drops the open transaction together with any staged changes.
func (u *UnitOfWork) Rollback() error {
	u.pending = nil
	if u.tx == nil {
		return ErrNoTx
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	if err != nil {
		return errors.Wrap(err, "rollback transaction")
	}
	return nil
}

// SaveChanges flushes staged changes in the order they were staged.
// Without an open transaction the flush runs in one of its own.
func (u *UnitOfWork) SaveChanges() error {
	if len(u.pending) == 0 {
		return nil
	}
	pending := u.pending
	u.pending = nil

	if u.tx != nil {
		return u.flush(u.tx, pending)
	}
	return u.root.Transaction(func(tx *gorm.DB) error {
		return u.flush(tx, pending)
	})
}

// Transaction runs fn in a transaction, saves what fn staged and commits.
// Any error or panic rolls everything back.
func (u *UnitOfWork) Transaction(fn func(uow *UnitOfWork) error) (err error) {
	if err := u.Begin(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = u.Rollback()
			panic(r)
		}
		if err != nil {
			_ = u.Rollback()
		}
	}()

	if err = fn(u); err != nil {
		return err
	}
	if err = u.SaveChanges(); err != nil {
		return err
	}
	return u.Commit()
}

func (u *UnitOfWork) stage(kind changeKind, model interface{}) {
	u.pending = append(u.pending, change{kind: kind, model: model})
}

func (u *UnitOfWork) flush(tx *gorm.DB, pending []change) error {
	now := u.now()
	for _, c := range pending {
		switch c.kind {
		case changeCreate:
			if t, ok := c.model.(touchable); ok {
				t.Touch(now)
			}
			if err := tx.Omit(clause.Associations).Create(c.model).Error; err != nil {
				return errors.Wrapf(err, "create %T", c.model)
			}
		case changeUpdate:
			if t, ok := c.model.(touchable); ok {
				t.Touch(now)
			}
			// Updates, unlike Save, never inserts a row that is already gone.
			res := tx.Model(c.model).Select("*").Omit(clause.Associations).Updates(c.model)
			if res.Error != nil {
				return errors.Wrapf(res.Error, "update %T", c.model)
			}
			if res.RowsAffected == 0 {
				return errors.Wrapf(ErrNotFound, "update %T", c.model)
			}
		case changeDelete:
			if err := tx.Delete(c.model).Error; err != nil {
				return errors.Wrapf(err, "delete %T", c.model)
			}
		default:
			return errUnsupportedKind
		}
	}
	return nil
}

// IsDuplicate reports whether err comes from a unique constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}
