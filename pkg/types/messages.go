package types

// Message names. Client -> server:
//
//	join          {displayName, role}
//	leave         {}
//	lock-item     {itemId}
//	capture-item  {itemId}
//
// Server -> client:
//
//	room-summary        lobby-wide occupancy, sent to every connection
//	role-assigned       {role} or {error}
//	match-start         {remainingTime}
//	item-spawned        {itemId, x, y, tier}
//	item-locked         {itemId}
//	item-captured       {itemId, x, y, tier, capturedByRole, points}
//	participants-update [{id, displayName, role, score}]
//	time-update         {remainingTime}
//	match-end           {participants}
//	error               {message}
const (
	MsgJoin        = "join"
	MsgLeave       = "leave"
	MsgLockItem    = "lock-item"
	MsgCaptureItem = "capture-item"

	MsgRoomSummary        = "room-summary"
	MsgRoleAssigned       = "role-assigned"
	MsgMatchStart         = "match-start"
	MsgItemSpawned        = "item-spawned"
	MsgItemLocked         = "item-locked"
	MsgItemCaptured       = "item-captured"
	MsgParticipantsUpdate = "participants-update"
	MsgTimeUpdate         = "time-update"
	MsgMatchEnd           = "match-end"
	MsgError              = "error"
)

// Role and tier names as they appear on the wire.
const (
	RoleFactionA = "factionA"
	RoleFactionB = "factionB"
	RoleObserver = "observer"

	TierCritical     = "critical"
	TierConfidential = "confidential"
	TierNormal       = "normal"
)

// Admission rejections carried in RoleAssigned.Error.
const (
	ErrFactionFull = "FactionFull"
	ErrRoomFull    = "RoomFull"
)

type JoinRequest struct {
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type ItemRequest struct {
	ItemID string `json:"itemId"`
}
