package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replyflow/internal/model"
)

func subjectRule(id, value string, active bool) model.Rule {
	return model.Rule{
		ID:     id,
		Name:   "subject " + value,
		Active: active,
		Conditions: []model.RuleCondition{
			{Field: model.FieldSubject, Operator: model.OpContains, Value: value},
		},
		Action: model.ArchiveAction{},
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	email := &model.Email{Subject: "Q3 Invoice"}
	rules := []model.Rule{
		subjectRule("r1", "invoice", true),
		subjectRule("r2", "q3", true),
	}

	got := Evaluate(email, rules)
	require.NotNil(t, got)
	assert.Equal(t, "r1", got.ID, "the earlier of two matching rules must win")
}

func TestEvaluateSkipsInactive(t *testing.T) {
	email := &model.Email{Subject: "Q3 Invoice"}
	rules := []model.Rule{
		subjectRule("r1", "invoice", false),
		subjectRule("r2", "invoice", true),
	}

	got := Evaluate(email, rules)
	require.NotNil(t, got)
	assert.Equal(t, "r2", got.ID)

	// only inactive rules: no match at all
	got = Evaluate(email, []model.Rule{subjectRule("r1", "invoice", false)})
	assert.Nil(t, got, "an inactive rule must never be returned")
}

func TestEvaluateANDSemantics(t *testing.T) {
	email := &model.Email{
		From:    "boss@corp.example.com",
		Subject: "Q3 Invoice",
	}

	both := model.Rule{
		ID:     "both",
		Active: true,
		Conditions: []model.RuleCondition{
			{Field: model.FieldSubject, Operator: model.OpContains, Value: "invoice"},
			{Field: model.FieldDomain, Operator: model.OpEquals, Value: "corp.example.com"},
		},
		Action: model.ArchiveAction{},
	}

	require.NotNil(t, Evaluate(email, []model.Rule{both}))

	// flipping either condition to non-matching flips the result
	brokenSubject := both
	brokenSubject.Conditions = []model.RuleCondition{
		{Field: model.FieldSubject, Operator: model.OpContains, Value: "receipt"},
		both.Conditions[1],
	}
	assert.Nil(t, Evaluate(email, []model.Rule{brokenSubject}))

	brokenDomain := both
	brokenDomain.Conditions = []model.RuleCondition{
		both.Conditions[0],
		{Field: model.FieldDomain, Operator: model.OpEquals, Value: "other.example.com"},
	}
	assert.Nil(t, Evaluate(email, []model.Rule{brokenDomain}))
}

func TestEvaluateScenarioForwardInvoices(t *testing.T) {
	rule := model.Rule{
		ID:     "fwd",
		Name:   "Forward Invoices",
		Active: true,
		Conditions: []model.RuleCondition{
			{Field: model.FieldSubject, Operator: model.OpContains, Value: "invoice"},
		},
		Action: model.ForwardAction{ForwardTo: "accounting@example.com"},
	}

	got := Evaluate(&model.Email{Subject: "Q3 Invoice"}, []model.Rule{rule})
	require.NotNil(t, got)
	assert.Equal(t, "fwd", got.ID)

	assert.Nil(t, Evaluate(&model.Email{Subject: "Meeting notes"}, []model.Rule{rule}))
}

func TestEvaluateIdempotent(t *testing.T) {
	email := &model.Email{Subject: "Re: invoice request", SenderType: model.SenderClient}
	rules := []model.Rule{
		subjectRule("r1", "status report", true),
		subjectRule("r2", "invoice", true),
	}

	first := Evaluate(email, rules)
	second := Evaluate(email, rules)
	assert.Equal(t, first, second, "unchanged inputs must yield the identical result")
}

func TestEvaluateNoRules(t *testing.T) {
	assert.Nil(t, Evaluate(&model.Email{Subject: "anything"}, nil))
}
