package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"replyflow/internal/dispatch"
	"replyflow/internal/model"
)

type fakeRuleSource struct {
	rules []model.Rule
	err   error
}

func (f *fakeRuleSource) ListActiveByUser(ctx context.Context, userID string) ([]model.Rule, error) {
	return f.rules, f.err
}

type fakeHistorySink struct {
	entries []model.ReplyHistory
	count   int
	err     error
}

func (f *fakeHistorySink) Record(ctx context.Context, h *model.ReplyHistory) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *h)
	return nil
}

func (f *fakeHistorySink) CountRepliesToday(ctx context.Context, userID string) (int, error) {
	return f.count, nil
}

type fakeNotificationSink struct {
	notifications []model.Notification
}

func (f *fakeNotificationSink) Append(ctx context.Context, n *model.Notification) error {
	f.notifications = append(f.notifications, *n)
	return nil
}

type fakeSettingsSource struct {
	settings model.Settings
}

func (f *fakeSettingsSource) Get(ctx context.Context, userID string) (model.Settings, error) {
	return f.settings, nil
}

type fakeDispatcher struct {
	outcome dispatch.Outcome
	calls   int
	actions []model.RuleAction
}

func (f *fakeDispatcher) Execute(ctx context.Context, action model.RuleAction, email *model.Email) dispatch.Outcome {
	f.calls++
	f.actions = append(f.actions, action)
	return f.outcome
}

func activeReplyRule(id string, notifyAfter bool) model.Rule {
	r := model.Rule{
		ID:     id,
		UserID: "user-1",
		Name:   "reply to clients",
		Active: true,
		Conditions: []model.RuleCondition{
			{Field: model.FieldSenderType, Operator: model.OpEquals, Value: "client"},
		},
		Action: model.ReplyAction{
			Template:    "Thanks, I will get back to you shortly.",
			Tone:        model.ToneProfessional,
			NotifyAfter: notifyAfter,
		},
	}
	return r
}

func clientEmail() *model.Email {
	return &model.Email{
		ID:         "email-1",
		UserID:     "user-1",
		From:       "boss@client.com",
		Subject:    "Project status",
		Body:       "Where are we on the deliverable?",
		SenderType: model.SenderClient,
	}
}

func newTestPipeline(rules *fakeRuleSource, history *fakeHistorySink, notes *fakeNotificationSink, settings *fakeSettingsSource, disp *fakeDispatcher) *Pipeline {
	return NewPipeline(rules, history, notes, settings, disp, zap.NewNop())
}

func TestPipelineDispatchesAndRecordsSuccess(t *testing.T) {
	rules := &fakeRuleSource{rules: []model.Rule{activeReplyRule("rule-1", true)}}
	history := &fakeHistorySink{}
	notes := &fakeNotificationSink{}
	settings := &fakeSettingsSource{settings: model.DefaultSettings("user-1")}
	disp := &fakeDispatcher{outcome: dispatch.Outcome{Success: true, SentContent: "Thanks, I will get back to you shortly."}}

	p := newTestPipeline(rules, history, notes, settings, disp)
	err := p.HandleEmail(context.Background(), clientEmail())
	require.NoError(t, err)

	assert.Equal(t, 1, disp.calls)
	require.Len(t, history.entries, 1)
	entry := history.entries[0]
	assert.True(t, entry.Successful)
	assert.Equal(t, "rule-1", entry.RuleID)
	assert.Equal(t, "email-1", entry.EmailID)
	assert.Equal(t, "Thanks, I will get back to you shortly.", entry.ReplyContent)
	assert.Empty(t, entry.ErrorMessage)

	require.Len(t, notes.notifications, 1)
	assert.Equal(t, model.NotifyReplySent, notes.notifications[0].Kind)
}

func TestPipelineDispatchFailureRecordsHistoryAndNotifies(t *testing.T) {
	rules := &fakeRuleSource{rules: []model.Rule{activeReplyRule("rule-1", true)}}
	history := &fakeHistorySink{}
	notes := &fakeNotificationSink{}
	settings := &fakeSettingsSource{settings: model.DefaultSettings("user-1")}
	disp := &fakeDispatcher{outcome: dispatch.Outcome{Success: false, Error: "provider returned 5xx: 503"}}

	p := newTestPipeline(rules, history, notes, settings, disp)
	err := p.HandleEmail(context.Background(), clientEmail())
	require.NoError(t, err, "dispatch failure is handled, not propagated")

	require.Len(t, history.entries, 1)
	entry := history.entries[0]
	assert.False(t, entry.Successful)
	assert.NotEmpty(t, entry.ErrorMessage)
	assert.Equal(t, "provider returned 5xx: 503", entry.ErrorMessage)

	require.Len(t, notes.notifications, 1)
	assert.Equal(t, model.NotifyError, notes.notifications[0].Kind)
}

func TestPipelineNoMatchHasNoSideEffects(t *testing.T) {
	rules := &fakeRuleSource{rules: []model.Rule{}}
	history := &fakeHistorySink{}
	notes := &fakeNotificationSink{}
	settings := &fakeSettingsSource{settings: model.DefaultSettings("user-1")}
	disp := &fakeDispatcher{}

	p := newTestPipeline(rules, history, notes, settings, disp)
	err := p.HandleEmail(context.Background(), clientEmail())
	require.NoError(t, err)

	assert.Zero(t, disp.calls)
	assert.Empty(t, history.entries)
	assert.Empty(t, notes.notifications)
}

func TestPipelineDailyCapSkipsDispatch(t *testing.T) {
	rules := &fakeRuleSource{rules: []model.Rule{activeReplyRule("rule-1", true)}}
	history := &fakeHistorySink{count: 50}
	notes := &fakeNotificationSink{}
	settings := &fakeSettingsSource{settings: model.DefaultSettings("user-1")} // MaxDailyReplies 50
	disp := &fakeDispatcher{outcome: dispatch.Outcome{Success: true}}

	p := newTestPipeline(rules, history, notes, settings, disp)
	err := p.HandleEmail(context.Background(), clientEmail())
	require.NoError(t, err)

	assert.Zero(t, disp.calls)
	assert.Empty(t, history.entries)
	require.Len(t, notes.notifications, 1)
	assert.Equal(t, model.NotifyRuleMatched, notes.notifications[0].Kind)
}

func TestPipelineCapIgnoredForNonReplyActions(t *testing.T) {
	rule := model.Rule{
		ID:     "rule-2",
		UserID: "user-1",
		Name:   "archive newsletters",
		Active: true,
		Conditions: []model.RuleCondition{
			{Field: model.FieldSubject, Operator: model.OpContains, Value: "status"},
		},
		Action: model.ArchiveAction{},
	}
	rules := &fakeRuleSource{rules: []model.Rule{rule}}
	history := &fakeHistorySink{count: 1000}
	notes := &fakeNotificationSink{}
	settings := &fakeSettingsSource{settings: model.DefaultSettings("user-1")}
	disp := &fakeDispatcher{outcome: dispatch.Outcome{Success: true}}

	p := newTestPipeline(rules, history, notes, settings, disp)
	err := p.HandleEmail(context.Background(), clientEmail())
	require.NoError(t, err)

	assert.Equal(t, 1, disp.calls)
	require.Len(t, history.entries, 1)
	assert.True(t, history.entries[0].Successful)
	assert.Empty(t, notes.notifications, "non-reply actions produce no notifications")
}

func TestPipelineNotifyBeforeFiresBeforeDispatch(t *testing.T) {
	rule := activeReplyRule("rule-1", false)
	action := rule.Action.(model.ReplyAction)
	action.NotifyBefore = true
	rule.Action = action

	rules := &fakeRuleSource{rules: []model.Rule{rule}}
	history := &fakeHistorySink{}
	notes := &fakeNotificationSink{}
	settings := &fakeSettingsSource{settings: model.DefaultSettings("user-1")}
	disp := &fakeDispatcher{outcome: dispatch.Outcome{Success: true}}

	p := newTestPipeline(rules, history, notes, settings, disp)
	err := p.HandleEmail(context.Background(), clientEmail())
	require.NoError(t, err)

	// default settings also enable the after-reply notification
	require.Len(t, notes.notifications, 2)
	assert.Equal(t, model.NotifyRuleMatched, notes.notifications[0].Kind)
	assert.Equal(t, model.NotifyReplySent, notes.notifications[1].Kind)
	assert.Equal(t, 1, disp.calls)
}

func TestPipelineSettingsGateNotifications(t *testing.T) {
	// the rule sets no notification flags of its own
	rule := activeReplyRule("rule-1", false)

	t.Run("settings enable after-reply notification", func(t *testing.T) {
		rules := &fakeRuleSource{rules: []model.Rule{rule}}
		history := &fakeHistorySink{}
		notes := &fakeNotificationSink{}
		settings := &fakeSettingsSource{settings: model.Settings{
			UserID:           "user-1",
			NotifyAfterReply: true,
		}}
		disp := &fakeDispatcher{outcome: dispatch.Outcome{Success: true}}

		p := newTestPipeline(rules, history, notes, settings, disp)
		require.NoError(t, p.HandleEmail(context.Background(), clientEmail()))

		require.Len(t, notes.notifications, 1)
		assert.Equal(t, model.NotifyReplySent, notes.notifications[0].Kind)
	})

	t.Run("all toggles off means no notifications", func(t *testing.T) {
		rules := &fakeRuleSource{rules: []model.Rule{rule}}
		history := &fakeHistorySink{}
		notes := &fakeNotificationSink{}
		settings := &fakeSettingsSource{settings: model.Settings{UserID: "user-1"}}
		disp := &fakeDispatcher{outcome: dispatch.Outcome{Success: true}}

		p := newTestPipeline(rules, history, notes, settings, disp)
		require.NoError(t, p.HandleEmail(context.Background(), clientEmail()))

		assert.Empty(t, notes.notifications)
		assert.Equal(t, 1, disp.calls)
	})

	t.Run("settings enable before-reply notification", func(t *testing.T) {
		rules := &fakeRuleSource{rules: []model.Rule{rule}}
		history := &fakeHistorySink{}
		notes := &fakeNotificationSink{}
		settings := &fakeSettingsSource{settings: model.Settings{
			UserID:            "user-1",
			NotifyBeforeReply: true,
		}}
		disp := &fakeDispatcher{outcome: dispatch.Outcome{Success: true}}

		p := newTestPipeline(rules, history, notes, settings, disp)
		require.NoError(t, p.HandleEmail(context.Background(), clientEmail()))

		require.Len(t, notes.notifications, 1)
		assert.Equal(t, model.NotifyRuleMatched, notes.notifications[0].Kind)
	})
}

func TestPipelineFirstMatchOnlyDispatchesOnce(t *testing.T) {
	first := activeReplyRule("rule-1", false)
	second := activeReplyRule("rule-2", false)
	rules := &fakeRuleSource{rules: []model.Rule{first, second}}
	history := &fakeHistorySink{}
	notes := &fakeNotificationSink{}
	settings := &fakeSettingsSource{settings: model.DefaultSettings("user-1")}
	disp := &fakeDispatcher{outcome: dispatch.Outcome{Success: true}}

	p := newTestPipeline(rules, history, notes, settings, disp)
	err := p.HandleEmail(context.Background(), clientEmail())
	require.NoError(t, err)

	assert.Equal(t, 1, disp.calls)
	require.Len(t, history.entries, 1)
	assert.Equal(t, "rule-1", history.entries[0].RuleID)
}

func TestPipelineRuleLoadFailurePropagates(t *testing.T) {
	rules := &fakeRuleSource{err: errors.New("connection refused")}
	history := &fakeHistorySink{}
	notes := &fakeNotificationSink{}
	settings := &fakeSettingsSource{settings: model.DefaultSettings("user-1")}
	disp := &fakeDispatcher{}

	p := newTestPipeline(rules, history, notes, settings, disp)
	err := p.HandleEmail(context.Background(), clientEmail())
	require.Error(t, err)
	assert.Zero(t, disp.calls)
}
