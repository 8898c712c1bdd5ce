package model

const DefaultMaxUsers = 1000

// SystemSettings is the singleton document at system.
type SystemSettings struct {
	MaxUsers    int    `json:"maxUsers"`
	Maintenance bool   `json:"maintenance"`
	Message     string `json:"message,omitempty"`
	UpdatedAt   int64  `json:"updatedAt,omitempty"`
	UpdatedBy   string `json:"updatedBy,omitempty"`
}

func DefaultSystemSettings() SystemSettings {
	return SystemSettings{MaxUsers: DefaultMaxUsers}
}
