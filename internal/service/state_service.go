package service

import (
	"context"
	"errors"
	"time"

	"github.com/postflowhq/postflow/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type StateServiceConfig struct {
	// TTL bounds how long a handed-out state is exchangeable. Defaults to
	// ten minutes.
	TTL time.Duration
	// SweepInterval controls the background cleanup of abandoned states.
	// Defaults to the TTL. Zero disables the sweeper entirely when TTL is
	// also zero.
	SweepInterval time.Duration
}

// StateService owns the oauth_states table. States are created by the
// authorization initiator and consumed exactly once by the exchange; the
// single-consumption guarantee comes from the conditional delete in Claim,
// not from any in-process locking.
type StateService struct {
	config StateServiceConfig
	db     *gorm.DB
	done   chan struct{}
}

func NewStateService(config StateServiceConfig, db *gorm.DB) *StateService {
	return &StateService{
		config: config,
		db:     db,
		done:   make(chan struct{}),
	}
}

func (ss *StateService) Init() error {
	if ss.config.TTL == 0 {
		ss.config.TTL = 10 * time.Minute
	}

	if ss.config.SweepInterval == 0 {
		ss.config.SweepInterval = ss.config.TTL
	}

	go ss.sweep()
	return nil
}

func (ss *StateService) Stop() {
	close(ss.done)
}

// Create persists a new state row. CreatedAt and ExpiresAt are stamped here
// so all rows share one TTL policy.
func (ss *StateService) Create(ctx context.Context, state *model.OAuthState) error {
	now := time.Now()
	state.CreatedAt = now.Unix()
	state.ExpiresAt = now.Add(ss.config.TTL).Unix()

	if err := ss.db.WithContext(ctx).Create(state).Error; err != nil {
		return &PersistenceError{Op: "create oauth state", Err: err}
	}

	return nil
}

// Get returns a stored state without consuming it. Used by the initiator to
// verify the row is readable before the authorization URL is handed out.
func (ss *StateService) Get(ctx context.Context, state string) (*model.OAuthState, error) {
	var row model.OAuthState

	err := ss.db.WithContext(ctx).Where("state = ?", state).First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStateNotFound
	}

	if err != nil {
		return nil, &PersistenceError{Op: "read oauth state", Err: err}
	}

	return &row, nil
}

// Claim atomically consumes a state row. Of two concurrent claims for the
// same state exactly one gets the row; the other observes ErrStateNotFound.
// An expired row is removed and rejected in the same call, so staleness is
// enforced at read time rather than left to the sweeper.
func (ss *StateService) Claim(ctx context.Context, state string, provider string) (*model.OAuthState, error) {
	var row model.OAuthState

	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("state = ? AND provider = ?", state, provider).First(&row).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStateNotFound
		}

		if err != nil {
			return &PersistenceError{Op: "read oauth state", Err: err}
		}

		res := tx.Where("state = ?", state).Delete(&model.OAuthState{})

		if res.Error != nil {
			return &PersistenceError{Op: "delete oauth state", Err: res.Error}
		}

		// Someone else consumed the row between the read and the delete.
		if res.RowsAffected == 0 {
			return ErrStateNotFound
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	if row.ExpiresAt <= time.Now().Unix() {
		return nil, ErrStateNotFound
	}

	return &row, nil
}

// Delete removes a state row regardless of expiry. Used to roll back a state
// whose durability could not be verified.
func (ss *StateService) Delete(ctx context.Context, state string) error {
	if err := ss.db.WithContext(ctx).Where("state = ?", state).Delete(&model.OAuthState{}).Error; err != nil {
		return &PersistenceError{Op: "delete oauth state", Err: err}
	}

	return nil
}

// CountRecent reports how many unconsumed states exist. Returned as a
// diagnostic on invalid-state responses outside release mode.
func (ss *StateService) CountRecent(ctx context.Context) (int64, error) {
	var count int64

	err := ss.db.WithContext(ctx).Model(&model.OAuthState{}).Where("expires_at > ?", time.Now().Unix()).Count(&count).Error

	if err != nil {
		return 0, &PersistenceError{Op: "count oauth states", Err: err}
	}

	return count, nil
}

func (ss *StateService) sweep() {
	ticker := time.NewTicker(ss.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ss.done:
			return
		case <-ticker.C:
			res := ss.db.Where("expires_at <= ?", time.Now().Unix()).Delete(&model.OAuthState{})

			if res.Error != nil {
				log.Error().Err(res.Error).Msg("Failed to sweep expired oauth states")
				continue
			}

			if res.RowsAffected > 0 {
				log.Debug().Int64("removed", res.RowsAffected).Msg("Swept expired oauth states")
			}
		}
	}
}
