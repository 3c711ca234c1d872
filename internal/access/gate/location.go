package gate

import (
	"context"
	accesserrors "staymate/internal/access/errors"
	"staymate/pkg/geo"
)

// LocationProvider yields the device position or one of
// ErrLocationUnsupported and ErrPermissionDenied.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (geo.Point, error)
}

// Location failure codes a client may report instead of coordinates.
const (
	LocationErrorUnsupported      = "unsupported"
	LocationErrorPermissionDenied = "permission_denied"
)

// ReportedLocation is a position the client already acquired and sent along
// with the request.
type ReportedLocation struct {
	Lat   float64 `json:"lat" validate:"latitude"`
	Lng   float64 `json:"lng" validate:"longitude"`
	Error string  `json:"error,omitempty" validate:"omitempty,oneof=unsupported permission_denied"`
}

func (l ReportedLocation) CurrentPosition(context.Context) (geo.Point, error) {
	switch l.Error {
	case LocationErrorUnsupported:
		return geo.Point{}, accesserrors.ErrLocationUnsupported
	case LocationErrorPermissionDenied:
		return geo.Point{}, accesserrors.ErrPermissionDenied
	}
	return geo.Point{Lat: l.Lat, Lng: l.Lng}, nil
}
