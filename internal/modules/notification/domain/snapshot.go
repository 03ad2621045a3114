package domain

import "encoding/json"

const SnapshotType = "snapshot"

// Snapshot is the serialized form of the whole set, sent to relay clients and
// mirrored to Redis.
type Snapshot struct {
	Type          string         `json:"type"`
	Unread        int            `json:"unread"`
	Notifications []Notification `json:"notifications"`
}

func NewSnapshot(list []Notification) Snapshot {
	if list == nil {
		list = []Notification{}
	}
	return Snapshot{Type: SnapshotType, Unread: CountUnread(list), Notifications: list}
}

func EncodeSnapshot(list []Notification) ([]byte, error) {
	return json.Marshal(NewSnapshot(list))
}
