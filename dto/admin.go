package dto

type UpdateSettingsRequest struct {
	MaxUsers    *int    `json:"max_users,omitempty" validate:"omitempty,min=1"`
	Maintenance *bool   `json:"maintenance,omitempty"`
	Message     *string `json:"message,omitempty" validate:"omitempty,max=280"`
}

func (r UpdateSettingsRequest) Validate() error {
	return GetValidator().Struct(r)
}

type SettingsResponse struct {
	MaxUsers    int    `json:"max_users"`
	Maintenance bool   `json:"maintenance"`
	Message     string `json:"message,omitempty"`
	UserCount   int    `json:"user_count"`
}

type AdminUpdateUserRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func (r AdminUpdateUserRequest) Validate() error {
	return GetValidator().Struct(r)
}

type AdminUserInfo struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	TotalScore     int    `json:"total_score"`
	CompletedCount int    `json:"completed_count"`
	UnlockedCount  int    `json:"unlocked_count"`
	CreatedAt      int64  `json:"created_at"`
}

type AdminUserListResponse struct {
	Users []AdminUserInfo `json:"users"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type AdminStats struct {
	Users            int            `json:"users"`
	Admins           int            `json:"admins"`
	Completions      int            `json:"completions"`
	TotalScore       int            `json:"total_score"`
	ReportsByStatus  map[string]int `json:"reports_by_status"`
	StoryCompletions map[string]int `json:"story_completions"`
	Maintenance      bool           `json:"maintenance"`
}

type AuditLogResponse struct {
	Logs  []AuditLogEntry `json:"logs"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type AuditLogEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ActorID   string `json:"actor_id,omitempty"`
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
	IP        string `json:"ip,omitempty"`
	Location  string `json:"location,omitempty"`
	Success   bool   `json:"success"`
	Details   string `json:"details,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=80"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,min=3,max=120"`
	Message string `json:"message" validate:"required,min=10,max=4000"`
}

func (r ContactRequest) Validate() error {
	return GetValidator().Struct(r)
}
