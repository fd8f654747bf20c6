package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"replyflow/internal/model"
)

type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the user's settings, falling back to defaults when the user
// has never saved any.
func (r *SettingsRepository) Get(ctx context.Context, userID string) (model.Settings, error) {
	query := `
        SELECT user_id, notify_before_reply, notify_after_reply, default_reply_tone,
               max_daily_replies, enable_cta_handling, cta_handling_preference
        FROM settings
        WHERE user_id = $1
    `
	var s model.Settings
	var tone, pref string
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.NotifyBeforeReply,
		&s.NotifyAfterReply,
		&tone,
		&s.MaxDailyReplies,
		&s.EnableCTAHandling,
		&pref,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.DefaultSettings(userID), nil
		}
		return model.Settings{}, err
	}
	s.DefaultReplyTone = model.ReplyTone(tone)
	s.CTAHandlingPreference = model.CTAPreference(pref)
	return s, nil
}

// Put upserts the user's settings.
func (r *SettingsRepository) Put(ctx context.Context, s *model.Settings) error {
	query := `
        INSERT INTO settings (user_id, notify_before_reply, notify_after_reply, default_reply_tone,
                              max_daily_replies, enable_cta_handling, cta_handling_preference)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_id) DO UPDATE SET
            notify_before_reply = EXCLUDED.notify_before_reply,
            notify_after_reply = EXCLUDED.notify_after_reply,
            default_reply_tone = EXCLUDED.default_reply_tone,
            max_daily_replies = EXCLUDED.max_daily_replies,
            enable_cta_handling = EXCLUDED.enable_cta_handling,
            cta_handling_preference = EXCLUDED.cta_handling_preference
    `
	_, err := r.db.Exec(ctx, query,
		s.UserID,
		s.NotifyBeforeReply,
		s.NotifyAfterReply,
		string(s.DefaultReplyTone),
		s.MaxDailyReplies,
		s.EnableCTAHandling,
		string(s.CTAHandlingPreference),
	)
	return err
}
