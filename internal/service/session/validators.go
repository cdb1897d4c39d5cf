package session

import (
	"strings"

	"courier-dispatch/internal/entities"
)

const maxIDLength = 128

func isValidID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && len(id) <= maxIDLength
}

func isValidLocation(p entities.GeoPoint) bool {
	return p.Valid()
}
