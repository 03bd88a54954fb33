package model

// LinkedIdentity stores an external provider identity linked to a Postflow
// user. At most one row exists per (user_id, provider) pair.
type LinkedIdentity struct {
	ID               uint   `gorm:"column:id;primaryKey"`
	UserID           string `gorm:"column:user_id;index:idx_user_provider,unique;not null"`
	Provider         string `gorm:"column:provider;index:idx_user_provider,unique;not null"`
	ProviderUserID   string `gorm:"column:provider_user_id;not null"`
	ProviderUsername string `gorm:"column:provider_username;not null"`
	ProfileImageURL  string `gorm:"column:profile_image_url"`
	AccessToken      string `gorm:"column:access_token"`
	RefreshToken     string `gorm:"column:refresh_token"`
	ExpiresAt        int64  `gorm:"column:expires_at"`
	CreatedAt        int64  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        int64  `gorm:"column:updated_at;autoUpdateTime"`
}

func (LinkedIdentity) TableName() string {
	return "linked_identities"
}
