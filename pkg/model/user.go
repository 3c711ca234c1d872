package model

import "time"

type KeyStatus string

const (
	KeyActive    KeyStatus = "active"
	KeyExpired   KeyStatus = "expired"
	KeyCancelled KeyStatus = "cancelled"
)

// KeyLookupPolicy picks one key when a user holds several active keys for
// the same venue or city.
type KeyLookupPolicy string

const (
	KeyLookupFirstInList    KeyLookupPolicy = "first_in_list"
	KeyLookupLatestCheckOut KeyLookupPolicy = "latest_check_out"
)

func (p KeyLookupPolicy) Valid() bool {
	return p == KeyLookupFirstInList || p == KeyLookupLatestCheckOut
}

type User struct {
	ID          string       `json:"id" bson:"_id" validate:"required,user_id"`
	DisplayName string       `json:"display_name" bson:"display_name" validate:"required,min=1,max=60"`
	AvatarURL   string       `json:"avatar_url,omitempty" bson:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio         string       `json:"bio,omitempty" bson:"bio,omitempty" validate:"max=280"`
	DigitalKeys []DigitalKey `json:"digital_keys" bson:"digital_keys"`
	Version     int64        `json:"version" bson:"version"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
}

// DigitalKey is a time-boxed grant to a venue lobby. Keys change status but
// are never removed from the owning user.
type DigitalKey struct {
	HotelID          string    `json:"hotel_id" bson:"hotel_id"`
	HotelName        string    `json:"hotel_name" bson:"hotel_name"`
	City             string    `json:"city,omitempty" bson:"city,omitempty"`
	RoomType         string    `json:"room_type,omitempty" bson:"room_type,omitempty"`
	CheckIn          time.Time `json:"check_in" bson:"check_in"`
	CheckOut         time.Time `json:"check_out" bson:"check_out"`
	BookingReference string    `json:"booking_reference" bson:"booking_reference"`
	Status           KeyStatus `json:"status" bson:"status"`
	IssuedAt         time.Time `json:"issued_at" bson:"issued_at"`
}

func (k DigitalKey) IsActive() bool {
	return k.Status == KeyActive
}

type BookingConfirmation struct {
	HotelID          string    `json:"hotel_id" validate:"required,venue_id"`
	HotelName        string    `json:"hotel_name" validate:"required,max=200"`
	City             string    `json:"city,omitempty" validate:"max=100"`
	RoomType         string    `json:"room_type,omitempty" validate:"max=100"`
	CheckIn          time.Time `json:"check_in" validate:"required"`
	CheckOut         time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
	BookingReference string    `json:"booking_reference" validate:"required,min=3,max=64"`
}
