package storage

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidID is returned when a key that would be written is not a UUID.
var ErrInvalidID = errors.New("storage: invalid id")

// ValidID reports whether id is a canonical hyphenated UUID, the only form a key column holds.
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func IsInvalidID(err error) bool { return errors.Is(err, ErrInvalidID) }

// lookupIDs returns ErrNotFound when any id cannot name a row.
func lookupIDs(ids ...string) error {
	for _, id := range ids {
		if !ValidID(id) {
			return ErrNotFound
		}
	}
	return nil
}

// addID filters col by id. A malformed id matches nothing.
func (w *where) addID(col, id string) {
	switch {
	case id == "":
	case !ValidID(id):
		w.add("FALSE")
	default:
		w.add(col+" = ?", id)
	}
}
