package service

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/repository"
)

var (
	ErrNotFound        = errors.New("entity not found")
	ErrDuplicate       = errors.New("duplicate entity")
	ErrForbidden       = errors.New("access denied")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")

	ErrLoginUserNotFound         = errors.Wrap(ErrUnauthorized, "user not found")
	ErrLoginPasswordDoesNotMatch = errors.Wrap(ErrUnauthorized, "password does not match")
)

// Kind is the error code reported to API clients.
type Kind string

const (
	KindNotFound        Kind = "ENTITY_NOT_FOUND"
	KindDuplicate       Kind = "DUPLICATE_ENTITY"
	KindForbidden       Kind = "ACCESS_DENIED"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindInternal        Kind = "INTERNAL_ERROR"
)

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindInternal
	}
}

// IsClientError reports whether err was caused by the caller rather than the server.
func IsClientError(err error) bool {
	k := KindOf(err)
	return k != "" && k != KindInternal
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// storeErr converts repository failures about one entity into service errors.
func storeErr(err error, entity string, id uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return errors.Wrapf(ErrNotFound, "%s %s", entity, id)
	case errors.Is(err, repository.ErrForbidden):
		return errors.Wrapf(ErrForbidden, "%s %s", entity, id)
	case repository.IsDuplicate(err):
		return errors.Wrap(ErrDuplicate, entity)
	default:
		return err
	}
}

// saveErr converts a failed flush; a unique violation becomes ErrDuplicate and
// an update of a deleted row ErrNotFound.
func saveErr(err error, entity string) error {
	if err == nil {
		return nil
	}
	if repository.IsDuplicate(err) && !errors.Is(err, ErrDuplicate) {
		return errors.Wrapf(ErrDuplicate, "%s already exists", entity)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return errors.Wrapf(ErrNotFound, "%s was removed meanwhile", entity)
	}
	return err
}
