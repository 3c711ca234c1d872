package validators

import "go.mongodb.org/mongo-driver/bson"

// MessageValidator requires text or an image on every message.
var MessageValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"channel_id",
			"sender_id",
			"created_at",
			"is_private",
		},
		"additionalProperties": true,

		"anyOf": []bson.M{
			{"required": []string{"text"}},
			{"required": []string{"image_ref"}},
		},

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"channel_id": bson.M{
				"bsonType": "string",
				"pattern":  "^(lobby:hotel:|lobby:city:|dm:)",
			},

			"sender_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"text": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 2000,
			},

			"image_ref": bson.M{
				"bsonType": "string",
				"pattern":  "^chat/",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"is_private": bson.M{
				"bsonType": "bool",
			},

			"recipient_id": bson.M{
				"bsonType": "string",
			},
		},
	},
}
