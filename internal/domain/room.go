package domain

// RoomStatus is a point-in-time snapshot of a room's slots.
//
// HasOperator and HasClient report raw slot occupancy. Whether a client may
// be admitted additionally depends on OperatorReady; the /check-room endpoint
// reports has_operator as HasOperator && OperatorReady.
type RoomStatus struct {
	HasOperator   bool
	HasClient     bool
	OperatorReady bool
}
