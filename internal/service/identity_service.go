package service

import (
	"context"
	"errors"

	"github.com/postflowhq/postflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityService persists linked provider identities. A second successful
// link for the same (user, provider) pair overwrites the previous one.
type IdentityService struct {
	db *gorm.DB
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{
		db: db,
	}
}

func (is *IdentityService) Upsert(ctx context.Context, identity *model.LinkedIdentity) error {
	err := is.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_user_id",
			"provider_username",
			"profile_image_url",
			"access_token",
			"refresh_token",
			"expires_at",
			"updated_at",
		}),
	}).Create(identity).Error

	if err != nil {
		return &PersistenceError{Op: "upsert linked identity", Err: err}
	}

	return nil
}

func (is *IdentityService) GetByUserAndProvider(ctx context.Context, userID string, provider string) (*model.LinkedIdentity, error) {
	var identity model.LinkedIdentity

	err := is.db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).First(&identity).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, &PersistenceError{Op: "read linked identity", Err: err}
	}

	return &identity, nil
}
