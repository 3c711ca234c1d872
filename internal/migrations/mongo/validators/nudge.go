package validators

import "go.mongodb.org/mongo-driver/bson"

var NudgeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"pair_key",
			"from_user_id",
			"to_user_id",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"pair_key": bson.M{
				"bsonType": "string",
				"pattern":  "^[^|]+\\|[^|]+$",
			},

			"from_user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"to_user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"status": bson.M{
				"enum": []string{"pending", "accepted", "rejected"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"responded_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
