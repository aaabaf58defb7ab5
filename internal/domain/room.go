package domain

import "errors"

const MaxRoomIDLen = 64

var (
	ErrMissingRoom = errors.New("room id missing")
	ErrRoomTooLong = errors.New("room id too long")
)

type (
	// ConnectionID identifies one live transport session.
	ConnectionID string
	// RoomID is the class session identifier a live room is keyed by.
	RoomID string
)

func (id RoomID) Validate() error {
	if id == "" {
		return ErrMissingRoom
	}
	if len(id) > MaxRoomIDLen {
		return ErrRoomTooLong
	}
	return nil
}

type Room struct {
	ID          RoomID `json:"id"`
	MemberCount int    `json:"member_count"`
}
