package app

import (
	"fmt"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

func (a BackpressureAction) String() string {
	switch a {
	case KickMember:
		return "kick"
	case DropFrame:
		return "drop"
	default:
		return "none"
	}
}

// Policy decides what happens to a member whose send queue is full.
type Policy interface {
	OnBackPressure(room domain.RoomID, member core.Recipient) BackpressureAction
}

// SimplePolicy closes slow members.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomID, core.Recipient) BackpressureAction {
	return KickMember
}

// DropPolicy keeps slow members and loses the frame for them.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.RoomID, core.Recipient) BackpressureAction {
	return DropFrame
}

// PolicyFor maps the config value to a Policy.
func PolicyFor(name string) (Policy, error) {
	switch name {
	case "", "kick":
		return SimplePolicy{}, nil
	case "drop":
		return DropPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", name)
}
