// Package keystore holds the digital key rules. Every function mutates the
// given user in memory and reports whether it changed anything, leaving
// persistence to the caller.
package keystore

import (
	"staymate/pkg/model"
	"time"
)

// Grant appends an active key for the confirmation unless one already exists
// for the same hotel and booking reference, whatever its status.
func Grant(user *model.User, conf model.BookingConfirmation, now time.Time) bool {
	for _, k := range user.DigitalKeys {
		if k.HotelID == conf.HotelID && k.BookingReference == conf.BookingReference {
			return false
		}
	}

	user.DigitalKeys = append(user.DigitalKeys, model.DigitalKey{
		HotelID:          conf.HotelID,
		HotelName:        conf.HotelName,
		City:             conf.City,
		RoomType:         conf.RoomType,
		CheckIn:          conf.CheckIn,
		CheckOut:         conf.CheckOut,
		BookingReference: conf.BookingReference,
		Status:           model.KeyActive,
		IssuedAt:         now,
	})
	return true
}

// SweepExpired expires every active key whose check-out has passed.
func SweepExpired(user *model.User, now time.Time) bool {
	changed := false
	for i := range user.DigitalKeys {
		k := &user.DigitalKeys[i]
		if k.Status == model.KeyActive && now.After(k.CheckOut) {
			k.Status = model.KeyExpired
			changed = true
		}
	}
	return changed
}

// NeedsSweep reports whether SweepExpired would change anything.
func NeedsSweep(user *model.User, now time.Time) bool {
	for _, k := range user.DigitalKeys {
		if k.Status == model.KeyActive && now.After(k.CheckOut) {
			return true
		}
	}
	return false
}

// Cancel cancels the active keys carrying bookingReference. The reference is
// the only thing matched.
func Cancel(user *model.User, bookingReference string) bool {
	changed := false
	for i := range user.DigitalKeys {
		k := &user.DigitalKeys[i]
		if k.BookingReference == bookingReference && k.Status == model.KeyActive {
			k.Status = model.KeyCancelled
			changed = true
		}
	}
	return changed
}

// Lookup returns an active key for the hotel, or nil.
func Lookup(user *model.User, hotelID string, policy model.KeyLookupPolicy) *model.DigitalKey {
	return pick(user, policy, func(k model.DigitalKey) bool {
		return k.HotelID == hotelID
	})
}

// LookupCity returns an active key for any hotel in the city, or nil.
func LookupCity(user *model.User, citySlug string, policy model.KeyLookupPolicy) *model.DigitalKey {
	if citySlug == "" {
		return nil
	}
	return pick(user, policy, func(k model.DigitalKey) bool {
		return model.CitySlug(k.City) == citySlug
	})
}

func pick(user *model.User, policy model.KeyLookupPolicy, match func(model.DigitalKey) bool) *model.DigitalKey {
	var found *model.DigitalKey
	for i := range user.DigitalKeys {
		k := user.DigitalKeys[i]
		if !k.IsActive() || !match(k) {
			continue
		}
		if found == nil {
			found = &k
			if policy != model.KeyLookupLatestCheckOut {
				return found
			}
			continue
		}
		if k.CheckOut.After(found.CheckOut) {
			found = &k
		}
	}
	return found
}

// Active returns a copy of the user's active keys in list order.
func Active(user *model.User) []model.DigitalKey {
	out := make([]model.DigitalKey, 0, len(user.DigitalKeys))
	for _, k := range user.DigitalKeys {
		if k.IsActive() {
			out = append(out, k)
		}
	}
	return out
}
