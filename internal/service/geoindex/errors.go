package geoindex

import "errors"

var (
	ErrInvalidCenter = errors.New("invalid query center")
	ErrInvalidRadius = errors.New("invalid query radius")
)
