package model

import "time"

const (
	AuditRegister       = "register"
	AuditLogin          = "login"
	AuditLoginFailed    = "login_failed"
	AuditLogout         = "logout"
	AuditPasswordReset  = "password_reset"
	AuditRoleChanged    = "role_changed"
	AuditUserDeleted    = "user_deleted"
	AuditReportStatus   = "report_status"
	AuditReportDeleted  = "report_deleted"
	AuditSettingsUpdate = "settings_update"
)

// AuditLog records authentication and administrative actions in Postgres.
type AuditLog struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text;not null"`
	UserID    string    `json:"user_id" gorm:"index;size:128"`
	ActorID   string    `json:"actor_id,omitempty" gorm:"index;size:128"`
	Action    string    `json:"action" gorm:"index;size:50;not null"`
	Target    string    `json:"target,omitempty" gorm:"size:255"`
	IP        string    `json:"ip,omitempty" gorm:"size:64"`
	UserAgent string    `json:"user_agent,omitempty" gorm:"size:512"`
	Location  string    `json:"location,omitempty" gorm:"size:255"`
	Success   bool      `json:"success"`
	Details   string    `json:"details,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index;not null"`
}
