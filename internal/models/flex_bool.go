package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// FlexBool decodes item flags whether they were stored as booleans, as the
// strings "true"/"false", or not stored at all.
type FlexBool bool

// UnmarshalBSONValue accepts boolean, string and null BSON types, allowing
// legacy order documents to be decoded without failing the whole snapshot.
func (b *FlexBool) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*b = false
		return nil
	case bsontype.Boolean:
		var value bool
		if err := bson.UnmarshalValue(t, data, &value); err != nil {
			return err
		}
		*b = FlexBool(value)
		return nil
	case bsontype.String:
		var value string
		if err := bson.UnmarshalValue(t, data, &value); err != nil {
			return err
		}
		*b = FlexBool(strings.EqualFold(strings.TrimSpace(value), "true"))
		return nil
	default:
		return fmt.Errorf("cannot decode %s into FlexBool", t)
	}
}

// MarshalBSONValue always stores a real boolean.
func (b FlexBool) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(bool(b))
}
