package model

type Venue struct {
	ID        string  `json:"id" bson:"_id" validate:"required"`
	Name      string  `json:"name" bson:"name" validate:"required,max=200"`
	City      string  `json:"city" bson:"city" validate:"required,max=100"`
	Latitude  float64 `json:"latitude" bson:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude" validate:"longitude"`
}
