// Package stream broadcasts generation progress to WebSocket viewers.
package stream

import (
	"github.com/lawnchairsociety/stationgen/internal/construction"
	"github.com/lawnchairsociety/stationgen/internal/generator"
	"github.com/lawnchairsociety/stationgen/internal/geom"
	"github.com/samber/lo"
)

// Event types sent to viewers.
const (
	EventRoomPlaced  = "room_placed"
	EventSessionDone = "session_done"
)

// Event is one JSON message on the viewer socket.
type Event struct {
	Type    string        `json:"type"`
	Room    *RoomEvent    `json:"room,omitempty"`
	Outcome *OutcomeEvent `json:"outcome,omitempty"`
}

// RoomEvent describes a committed room in world coordinates.
type RoomEvent struct {
	ID          int       `json:"id"`
	Part        string    `json:"part"`
	Rotation    [3][3]int `json:"rotation"`
	Translation [3]int    `json:"translation"`
	Cells       [][3]int  `json:"cells"`
	OpenMounts  int       `json:"open_mounts"`
}

// OutcomeEvent summarizes a finished session.
type OutcomeEvent struct {
	Rooms         int     `json:"rooms"`
	OpenMounts    int     `json:"open_mounts"`
	NeverClosable int     `json:"never_closable"`
	Grown         int     `json:"grown"`
	Closed        int     `json:"closed"`
	Reason        string  `json:"reason"`
	Seconds       float64 `json:"seconds"`
}

// NewRoomEvent builds the placement message for r.
func NewRoomEvent(r *construction.Room) Event {
	t := r.Transform()
	return Event{
		Type: EventRoomPlaced,
		Room: &RoomEvent{
			ID:          r.ID(),
			Part:        r.Part().Name,
			Rotation:    t.Rotation,
			Translation: t.Translation.Array(),
			Cells:       lo.Map(r.Cells(), func(v geom.Vec3, _ int) [3]int { return v.Array() }),
			OpenMounts:  r.OpenMountCount(),
		},
	}
}

// NewOutcomeEvent builds the end of session message.
func NewOutcomeEvent(o generator.Outcome) Event {
	return Event{
		Type: EventSessionDone,
		Outcome: &OutcomeEvent{
			Rooms:         o.Rooms,
			OpenMounts:    o.OpenMounts,
			NeverClosable: o.NeverClosable,
			Grown:         o.Grown,
			Closed:        o.Closed,
			Reason:        o.Reason,
			Seconds:       o.Duration.Seconds(),
		},
	}
}
