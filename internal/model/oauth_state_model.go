package model

// OAuthState is a single-use record correlating an authorization attempt with
// its callback. It is created when the authorization URL is handed out and
// consumed exactly once by the exchange.
type OAuthState struct {
	State        string `gorm:"column:state;primaryKey"`
	CodeVerifier string `gorm:"column:code_verifier;not null"`
	Provider     string `gorm:"column:provider;not null"`
	UserID       string `gorm:"column:user_id"`
	IsLogin      bool   `gorm:"column:is_login;default:false"`
	CreatedAt    int64  `gorm:"column:created_at;not null"`
	ExpiresAt    int64  `gorm:"column:expires_at;not null"`
}

func (OAuthState) TableName() string {
	return "oauth_states"
}
