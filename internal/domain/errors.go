package domain

import "errors"

var (
	ErrRoomConflict     = errors.New("room id already in use")
	ErrRoomNotFound     = errors.New("room not found")
	ErrInvalidRole      = errors.New("invalid role")
	ErrOperatorNotReady = errors.New("operator not ready")
	ErrNoOperator       = errors.New("no operator in room")
)
