package model

type CTAPreference string

const (
	CTAAccept   CTAPreference = "accept"
	CTAForward  CTAPreference = "forward"
	CTAEscalate CTAPreference = "escalate"
	CTADelay    CTAPreference = "delay"
)

// Settings holds per-user assistant preferences. MaxDailyReplies caps how
// many reply actions the pipeline will send per day; zero means unlimited.
type Settings struct {
	UserID                string        `json:"-"`
	NotifyBeforeReply     bool          `json:"notifyBeforeReply"`
	NotifyAfterReply      bool          `json:"notifyAfterReply"`
	DefaultReplyTone      ReplyTone     `json:"defaultReplyTone"`
	MaxDailyReplies       int           `json:"maxDailyReplies"`
	EnableCTAHandling     bool          `json:"enableCTAHandling"`
	CTAHandlingPreference CTAPreference `json:"ctaHandlingPreference"`
}

// DefaultSettings mirrors the defaults a fresh account starts with.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:                userID,
		NotifyAfterReply:      true,
		DefaultReplyTone:      ToneProfessional,
		MaxDailyReplies:       50,
		CTAHandlingPreference: CTAForward,
	}
}

func (s *Settings) Validate() error {
	switch s.DefaultReplyTone {
	case "", ToneProfessional, ToneFriendly, ToneUrgent:
	default:
		return &ValidationError{Field: "defaultReplyTone", Reason: "unknown tone"}
	}
	switch s.CTAHandlingPreference {
	case "", CTAAccept, CTAForward, CTAEscalate, CTADelay:
	default:
		return &ValidationError{Field: "ctaHandlingPreference", Reason: "unknown preference"}
	}
	if s.MaxDailyReplies < 0 {
		return &ValidationError{Field: "maxDailyReplies", Reason: "must not be negative"}
	}
	return nil
}
