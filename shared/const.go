package shared

const (
	UserID    = "user_id"
	UserRole  = "user_role"
	TokenID   = "token_id"
	TokenExp  = "token_exp"
	SessionID = "session_id"

	RoleUser  = "user"
	RoleAdmin = "admin"

	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"

	ThemeLight = "light"
	ThemeDark  = "dark"

	ReportStatusPending = "pending"
	ReportStatusProcess = "process"
	ReportStatusDone    = "done"
)
