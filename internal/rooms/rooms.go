// Package rooms tracks which connections have joined which room.
//
// A room is a rendezvous point for exactly one peer-to-peer session and
// never holds more than two members.
package rooms

import "errors"

// MaxMembers is the room capacity. A room pairs exactly two participants.
const MaxMembers = 2

var ErrRoomFull = errors.New("room already has two members")

// Table maps room IDs to their members in join order, with a reverse
// connID->roomID index so leave does not scan every room.
//
// Not safe for concurrent use; the session coordinator owns it and
// serializes all access.
type Table struct {
	members map[string][]string
	roomOf  map[string]string
}

func NewTable() *Table {
	return &Table{
		members: make(map[string][]string),
		roomOf:  make(map[string]string),
	}
}

// Join adds connID to roomID, creating the room if absent, and returns the
// resulting member set in join order. A full room rejects with ErrRoomFull
// without mutating any state. Joining a room the connection is already a
// member of is a no-op.
//
// The caller must ensure connID is not a member of another room first.
func (t *Table) Join(roomID, connID string) ([]string, error) {
	cur := t.members[roomID]
	for _, id := range cur {
		if id == connID {
			return append([]string(nil), cur...), nil
		}
	}
	if len(cur) >= MaxMembers {
		return nil, ErrRoomFull
	}

	t.members[roomID] = append(cur, connID)
	t.roomOf[connID] = roomID
	return append([]string(nil), t.members[roomID]...), nil
}

// Leave removes connID from whichever room contains it and deletes the room
// once empty. It returns the room left and whether the room was deleted.
// No-op if the connection is not in any room.
func (t *Table) Leave(connID string) (roomID string, deleted bool) {
	roomID, ok := t.roomOf[connID]
	if !ok {
		return "", false
	}
	delete(t.roomOf, connID)

	cur := t.members[roomID]
	kept := cur[:0]
	for _, id := range cur {
		if id != connID {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(t.members, roomID)
		return roomID, true
	}
	t.members[roomID] = kept
	return roomID, false
}

// RoomOf returns the room connID is currently a member of.
func (t *Table) RoomOf(connID string) (string, bool) {
	roomID, ok := t.roomOf[connID]
	return roomID, ok
}

// MembersOf returns the members of roomID in join order. Nil if the room
// does not exist.
func (t *Table) MembersOf(roomID string) []string {
	cur, ok := t.members[roomID]
	if !ok {
		return nil
	}
	return append([]string(nil), cur...)
}

// Len returns the number of live rooms.
func (t *Table) Len() int {
	return len(t.members)
}
