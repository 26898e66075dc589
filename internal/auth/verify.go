package auth

import (
	"errors"

	"github.com/gaogaogoo/sport-log/internal/db/models"
)

// ErrForbidden is returned when a principal tries to touch data it does not
// own. Handlers map it to 403 without leaking whether the row exists.
var ErrForbidden = errors.New("forbidden")

// VerifyOwner ensures the payload's user id matches the principal.
func VerifyOwner(p Principal, owner models.UserID) error {
	if !p.ActsForUser(owner) {
		return ErrForbidden
	}
	return nil
}

// VerifyOptionalOwner ensures ownership of a possibly shared row. Rows with
// no owner belong to the instance and only admins may write them.
func VerifyOptionalOwner(p Principal, owner *models.UserID) error {
	if owner == nil {
		if p.Kind == KindAdmin {
			return nil
		}
		return ErrForbidden
	}
	return VerifyOwner(p, *owner)
}

// VerifyRecordOwner ensures ownership of a stored or incoming record.
func VerifyRecordOwner(p Principal, rec models.Record) error {
	owner, ok := rec.Owner()
	if !ok {
		if p.Kind == KindAdmin {
			return nil
		}
		return ErrForbidden
	}
	return VerifyOwner(p, owner)
}

// VerifyRecordsOwner ensures every record of a batch belongs to the
// principal.
func VerifyRecordsOwner[M any, T interface {
	*M
	models.Record
}](p Principal, recs []M) error {
	for i := range recs {
		if err := VerifyRecordOwner(p, T(&recs[i])); err != nil {
			return err
		}
	}
	return nil
}
