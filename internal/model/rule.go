package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type ConditionField string

const (
	FieldSender     ConditionField = "sender"
	FieldDomain     ConditionField = "domain"
	FieldSubject    ConditionField = "subject"
	FieldContent    ConditionField = "content"
	FieldSenderType ConditionField = "senderType"
)

type ConditionOperator string

const (
	OpContains   ConditionOperator = "contains"
	OpEquals     ConditionOperator = "equals"
	OpStartsWith ConditionOperator = "startsWith"
	OpEndsWith   ConditionOperator = "endsWith"
	OpMatches    ConditionOperator = "matches"
)

// RuleCondition is a single predicate over one email field. The zero value
// is invalid; conditions are checked with Validate before a rule is stored.
type RuleCondition struct {
	Field    ConditionField    `json:"type"`
	Operator ConditionOperator `json:"operator"`
	Value    string            `json:"value"`

	// compiled pattern for OpMatches, populated by Validate so that
	// evaluation never compiles (and never fails) at match time
	pattern *regexp.Regexp
}

// Validate checks field and operator membership and eagerly compiles
// pattern-match values.
func (c *RuleCondition) Validate() error {
	switch c.Field {
	case FieldSender, FieldDomain, FieldSubject, FieldContent, FieldSenderType:
	default:
		return &ValidationError{Field: "conditions.type", Reason: fmt.Sprintf("unknown field %q", c.Field)}
	}

	switch c.Operator {
	case OpContains, OpEquals, OpStartsWith, OpEndsWith:
	case OpMatches:
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return &ValidationError{Field: "conditions.value", Reason: fmt.Sprintf("invalid pattern: %v", err)}
		}
		c.pattern = re
	default:
		return &ValidationError{Field: "conditions.operator", Reason: fmt.Sprintf("unknown operator %q", c.Operator)}
	}

	return nil
}

// Matches reports whether the condition holds for the given email.
// contains/equals/startsWith/endsWith are case-insensitive; matches applies
// the pattern as written. A senderType condition on an email with no
// inferred category is false, never an error.
func (c *RuleCondition) Matches(e *Email) bool {
	var subject string
	switch c.Field {
	case FieldSender:
		subject = e.From
	case FieldDomain:
		subject = e.SenderDomain()
	case FieldSubject:
		subject = e.Subject
	case FieldContent:
		subject = e.Body
	case FieldSenderType:
		if e.SenderType == "" {
			return false
		}
		subject = string(e.SenderType)
	default:
		return false
	}

	if c.Operator == OpMatches {
		re := c.pattern
		if re == nil {
			var err error
			re, err = regexp.Compile(c.Value)
			if err != nil {
				return false
			}
		}
		return re.MatchString(subject)
	}

	s := strings.ToLower(subject)
	v := strings.ToLower(c.Value)

	switch c.Operator {
	case OpContains:
		return strings.Contains(s, v)
	case OpEquals:
		return s == v
	case OpStartsWith:
		return strings.HasPrefix(s, v)
	case OpEndsWith:
		return strings.HasSuffix(s, v)
	}
	return false
}

type ActionType string

const (
	ActionReply   ActionType = "reply"
	ActionForward ActionType = "forward"
	ActionLabel   ActionType = "label"
	ActionArchive ActionType = "archive"
)

type ReplyTone string

const (
	ToneProfessional ReplyTone = "professional"
	ToneFriendly     ReplyTone = "friendly"
	ToneUrgent       ReplyTone = "urgent"
)

// RuleAction is a closed union: exactly one of Reply, Forward, Label or
// Archive. Invalid combinations (a forward with a tone, a label without a
// name) are unrepresentable.
type RuleAction interface {
	Type() ActionType
	validate() error
}

type ReplyAction struct {
	Template     string    `json:"template"`
	Tone         ReplyTone `json:"tone,omitempty"`
	NotifyBefore bool      `json:"notifyBefore,omitempty"`
	NotifyAfter  bool      `json:"notifyAfter,omitempty"`
}

func (ReplyAction) Type() ActionType { return ActionReply }

func (a ReplyAction) validate() error {
	if a.Template == "" {
		return &ValidationError{Field: "action.template", Reason: "reply action requires a template"}
	}
	switch a.Tone {
	case "", ToneProfessional, ToneFriendly, ToneUrgent:
	default:
		return &ValidationError{Field: "action.tone", Reason: fmt.Sprintf("unknown tone %q", a.Tone)}
	}
	return nil
}

type ForwardAction struct {
	ForwardTo string `json:"forwardTo"`
}

func (ForwardAction) Type() ActionType { return ActionForward }

func (a ForwardAction) validate() error {
	if a.ForwardTo == "" {
		return &ValidationError{Field: "action.forwardTo", Reason: "forward action requires a destination"}
	}
	return nil
}

type LabelAction struct {
	Label string `json:"label"`
}

func (LabelAction) Type() ActionType { return ActionLabel }

func (a LabelAction) validate() error {
	if a.Label == "" {
		return &ValidationError{Field: "action.label", Reason: "label action requires a label name"}
	}
	return nil
}

type ArchiveAction struct{}

func (ArchiveAction) Type() ActionType { return ActionArchive }

func (ArchiveAction) validate() error { return nil }

// MarshalAction encodes an action as {"type": ..., <variant fields>}.
func MarshalAction(a RuleAction) ([]byte, error) {
	if a == nil {
		return nil, &ValidationError{Field: "action", Reason: "rule requires exactly one action"}
	}

	body, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["type"], _ = json.Marshal(a.Type())
	return json.Marshal(m)
}

// UnmarshalAction decodes the tagged representation, rejecting unknown
// types and variants missing their required payload.
func UnmarshalAction(data []byte) (RuleAction, error) {
	var tag struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	var a RuleAction
	switch tag.Type {
	case ActionReply:
		var v ReplyAction
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		a = v
	case ActionForward:
		var v ForwardAction
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		a = v
	case ActionLabel:
		var v LabelAction
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		a = v
	case ActionArchive:
		a = ArchiveAction{}
	default:
		return nil, &ValidationError{Field: "action.type", Reason: fmt.Sprintf("unknown action type %q", tag.Type)}
	}

	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Rule is a user-owned set of conditions (all must match) plus one action.
type Rule struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	Name       string          `json:"name"`
	Active     bool            `json:"active"`
	Conditions []RuleCondition `json:"conditions"`
	Action     RuleAction      `json:"-"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Validate enforces the rule invariants: a name, at least one valid
// condition, and exactly one valid action.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Reason: "rule requires a name"}
	}
	if len(r.Conditions) == 0 {
		return &ValidationError{Field: "conditions", Reason: "rule requires at least one condition"}
	}
	for i := range r.Conditions {
		if err := r.Conditions[i].Validate(); err != nil {
			return err
		}
	}
	if r.Action == nil {
		return &ValidationError{Field: "action", Reason: "rule requires exactly one action"}
	}
	return r.Action.validate()
}

type ruleJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Active     bool            `json:"active"`
	Conditions []RuleCondition `json:"conditions"`
	Action     json.RawMessage `json:"action"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (r Rule) MarshalJSON() ([]byte, error) {
	action, err := MarshalAction(r.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ruleJSON{
		ID:         r.ID,
		Name:       r.Name,
		Active:     r.Active,
		Conditions: r.Conditions,
		Action:     action,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	})
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw ruleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	action, err := UnmarshalAction(raw.Action)
	if err != nil {
		return err
	}

	r.ID = raw.ID
	r.Name = raw.Name
	r.Active = raw.Active
	r.Conditions = raw.Conditions
	r.Action = action
	r.CreatedAt = raw.CreatedAt
	r.UpdatedAt = raw.UpdatedAt
	return nil
}
