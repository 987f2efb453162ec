package mongodb

import (
	"regexp"

	"go.mongodb.org/mongo-driver/mongo"

	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

var dupKeyField = regexp.MustCompile(`dup key: \{ ?"?([A-Za-z0-9_.]+)"?\s*:`)

// duplicateKey maps a duplicate key write error to a DuplicateKey AppError
// naming the offending field. It returns nil for any other error.
func duplicateKey(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	field := "id"
	if m := dupKeyField.FindStringSubmatch(err.Error()); m != nil {
		field = m[1]
		if field == "_id" {
			field = "id"
		}
	}
	return apperrors.DuplicateKey(field)
}
