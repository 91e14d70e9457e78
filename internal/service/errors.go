package service

import (
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/store"
)

// fromStore turns a repository error into a coded error. what names the
// record for NotFound messages ("person", "tag"). Errors that already carry
// a code pass through unchanged.
func fromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var coded *domainerrors.Error
	if domainerrors.As(err, &coded) {
		return err
	}

	switch store.KindOf(err) {
	case store.KindNotFound:
		return domainerrors.NotFoundf("%s not found", what).WithCause(err)
	case store.KindAlreadyExists:
		return domainerrors.AlreadyExists(what + " already exists").WithCause(err)
	case store.KindUnavailable:
		return domainerrors.ErrUnavailable.WithCause(err)
	case store.KindTimeout:
		return domainerrors.ErrTimeout.WithCause(err)
	case store.KindRejected:
		return domainerrors.Wrapf(err, domainerrors.CodeInternal, "%s rejected by database", what)
	}
	return err
}
