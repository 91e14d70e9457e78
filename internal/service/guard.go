package service

import (
	"context"

	"github.com/communitymapper/community-mapper/internal/domain"
	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/store/sqlstore"
)

// requireOwner returns FORBIDDEN unless callerID owns the record.
func requireOwner(owned domain.Owned, callerID, what string) error {
	if !CanAccess(owned, callerID) {
		return domainerrors.Forbidden("you do not have access to this " + what)
	}
	return nil
}

// CanAccess reports whether callerID owns the record. An empty caller never
// has access.
func CanAccess(owned domain.Owned, callerID string) bool {
	return callerID != "" && owned.OwnerID() == callerID
}

// ownedPerson loads a person and checks the caller owns it.
// Absent records are NOT_FOUND; records owned by someone else are FORBIDDEN.
func ownedPerson(ctx context.Context, st *sqlstore.Store, callerID, personID string) (*domain.Person, error) {
	p, err := st.GetPerson(ctx, personID)
	if err != nil {
		return nil, fromStore(err, "person")
	}
	if err := requireOwner(p, callerID, "person"); err != nil {
		return nil, err
	}
	return p, nil
}

func ownedTag(ctx context.Context, st *sqlstore.Store, callerID, tagID string) (*domain.Tag, error) {
	t, err := st.GetTag(ctx, tagID)
	if err != nil {
		return nil, fromStore(err, "tag")
	}
	if err := requireOwner(t, callerID, "tag"); err != nil {
		return nil, err
	}
	return t, nil
}
