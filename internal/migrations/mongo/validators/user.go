package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"display_name",
			"digital_keys",
			"version",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"display_name": bson.M{
				"bsonType":  "string",
				"maxLength": 60,
			},

			"avatar_url": bson.M{
				"bsonType": "string",
			},

			"bio": bson.M{
				"bsonType":  "string",
				"maxLength": 280,
			},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},

			"digital_keys": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{
						"hotel_id",
						"hotel_name",
						"check_in",
						"check_out",
						"booking_reference",
						"status",
						"issued_at",
					},
					"properties": bson.M{
						"hotel_id": bson.M{
							"bsonType":  "string",
							"minLength": 1,
							"maxLength": 128,
						},
						"hotel_name": bson.M{
							"bsonType":  "string",
							"maxLength": 200,
						},
						"booking_reference": bson.M{
							"bsonType":  "string",
							"minLength": 1,
						},
						"check_in":  bson.M{"bsonType": "date"},
						"check_out": bson.M{"bsonType": "date"},
						"issued_at": bson.M{"bsonType": "date"},
						"status": bson.M{
							"enum": []string{"active", "expired", "cancelled"},
						},
					},
				},
			},
		},
	},
}
