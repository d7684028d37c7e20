package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Fixed audit event vocabulary. Handlers and services must not invent
// event names outside this set.
const (
	EventLogin         = "login"
	EventFailedLogin   = "failed_login"
	EventLogout        = "logout"
	EventRefreshToken  = "refresh_token"
	EventFailedRefresh = "failed_refresh"
	EventRegister      = "register"
)

// Metadata is a free-form key/value bag serialized as JSON in the audit
// store. Implemented by hand so the model works against both postgres and
// the sqlite test driver.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}
}

// AuditEvent is an immutable record of one authentication attempt outcome.
// UserID is nil for unauthenticated or failed attempts. Rows are append
// only: no update or delete path exists.
type AuditEvent struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *string   `gorm:"type:uuid;index" json:"user_id"`
	Event     string    `gorm:"size:32;index;not null" json:"event"`
	IPAddress string    `gorm:"size:64" json:"ip_address"`
	UserAgent string    `gorm:"size:512" json:"user_agent"`
	Metadata  Metadata  `gorm:"type:text" json:"metadata,omitempty"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}
