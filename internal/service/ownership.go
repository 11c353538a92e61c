package service

import (
	"errors"

	"go-content-dashboard/internal/event"
	"go-content-dashboard/internal/model"
	"go-content-dashboard/pkg/apierror"
)

// Owned is any resource with a single owning user.
type Owned interface {
	OwnerID() string
}

// assertOwner is the one ownership check every mutating operation goes through.
func assertOwner(identity model.Identity, resource Owned) error {
	if identity.UserID == "" || resource.OwnerID() != identity.UserID {
		return apierror.Forbidden(model.ErrForbidden, "User not authorized")
	}
	return nil
}

// notFound turns a store miss into a 404; any other error passes through.
func notFound(err error, sentinel error, message string, id string) error {
	if errors.Is(err, sentinel) {
		return apierror.NotFound(err, message, id)
	}
	return err
}

func publish(bus event.Bus, e event.Event) {
	if bus == nil {
		return
	}
	bus.Publish(e)
}
