package service

import (
	"fmt"

	"github.com/remotedesk/signal-service/internal/domain"
	"github.com/remotedesk/signal-service/internal/registry"
	"github.com/remotedesk/signal-service/internal/security"
)

const defaultTokenBytes = 6

// RoomService sits between the HTTP edge and the registry: it owns room id
// generation and the explicit-creation conflict rule.
type RoomService struct {
	rooms      *registry.Registry
	tokenBytes int
}

func NewRoomService(rooms *registry.Registry, tokenBytes int) *RoomService {
	if tokenBytes <= 0 {
		tokenBytes = defaultTokenBytes
	}
	return &RoomService{rooms: rooms, tokenBytes: tokenBytes}
}

// CreateRoom allocates a room and returns its id. With a customID the call
// fails with domain.ErrRoomConflict while that id has a live operator;
// without one it generates an unpredictable id, retrying on the off chance
// the token is already in use.
func (s *RoomService) CreateRoom(customID string) (string, error) {
	if customID != "" {
		if err := s.rooms.Create(customID); err != nil {
			return "", err
		}
		return customID, nil
	}

	for {
		id, err := security.RandomStringURLSafe(s.tokenBytes)
		if err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		if s.rooms.Exists(id) {
			continue
		}
		if err := s.rooms.Create(id); err != nil {
			// lost a race for this id
			continue
		}
		return id, nil
	}
}

// CheckRoom returns the slot snapshot for id.
func (s *RoomService) CheckRoom(id string) (domain.RoomStatus, error) {
	return s.rooms.Status(id)
}
