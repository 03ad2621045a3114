package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// RoleSuperAdmin is the only role allowed to receive live notifications.
const RoleSuperAdmin = "superadmin"

type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

// ID is the server-assigned notification identifier. The backend emits it
// either as a JSON string or a JSON number; both decode to the same string.
// Notification remembers which kind arrived and re-emits it.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: id must be a string or number", ErrInvalidRecord)
	}
	*id = ID(n.String())
	return nil
}


type Notification struct {
	ID            ID        `json:"id" validate:"required"`
	Message       string    `json:"message"`
	Timestamp     Timestamp `json:"timestamp"`
	Status        Status    `json:"status" validate:"required,oneof=unread read"`
	FormattedTime string    `json:"formattedTime,omitempty"`

	numericID bool
}

// NumericID reports whether the id arrived as a JSON number.
func (n Notification) NumericID() bool {
	return n.numericID
}

type wireNotification Notification

func (n *Notification) UnmarshalJSON(data []byte) error {
	var w struct {
		wireNotification
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*n = Notification(w.wireNotification)
	raw := bytes.TrimSpace(w.ID)
	if len(raw) == 0 {
		return nil
	}
	if err := n.ID.UnmarshalJSON(raw); err != nil {
		return err
	}
	n.numericID = raw[0] != '"'
	return nil
}

func (n Notification) MarshalJSON() ([]byte, error) {
	out := struct {
		wireNotification
		ID any `json:"id"`
	}{wireNotification: wireNotification(n), ID: string(n.ID)}
	if n.numericID {
		out.ID = json.Number(n.ID)
	}
	return json.Marshal(out)
}

// IsRead reports whether the record has been acknowledged.
func (n Notification) IsRead() bool {
	return n.Status == StatusRead
}

var validate = validator.New()

// Validate enforces the record contract shared by the feed and the listing
// endpoint.
func (n Notification) Validate() error {
	if err := validate.Struct(n); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if n.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidRecord)
	}
	return nil
}

// DecodeNotification parses a single JSON-encoded record and validates it.
func DecodeNotification(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := n.Validate(); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// CountUnread returns the number of unread records in list.
func CountUnread(list []Notification) int {
	count := 0
	for _, n := range list {
		if !n.IsRead() {
			count++
		}
	}
	return count
}
