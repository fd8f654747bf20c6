package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"replyflow/internal/model"
	"replyflow/internal/service"
)

type memRuleStore struct {
	rules map[string]*model.Rule
}

func newMemRuleStore() *memRuleStore {
	return &memRuleStore{rules: make(map[string]*model.Rule)}
}

func (m *memRuleStore) Create(ctx context.Context, rule *model.Rule) error {
	cp := *rule
	m.rules[rule.ID] = &cp
	return nil
}

func (m *memRuleStore) FindByID(ctx context.Context, userID, id string) (*model.Rule, error) {
	r, ok := m.rules[id]
	if !ok || r.UserID != userID {
		return nil, model.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRuleStore) ListByUser(ctx context.Context, userID string) ([]model.Rule, error) {
	out := []model.Rule{}
	for _, r := range m.rules {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRuleStore) Update(ctx context.Context, rule *model.Rule) error {
	if _, ok := m.rules[rule.ID]; !ok {
		return model.ErrNotFound
	}
	cp := *rule
	m.rules[rule.ID] = &cp
	return nil
}

func (m *memRuleStore) Delete(ctx context.Context, userID, id string) error {
	r, ok := m.rules[id]
	if !ok || r.UserID != userID {
		return model.ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func newRuleTestRouter(store *memRuleStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRuleHandler(service.NewRuleService(store), zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Next()
	})
	r.GET("/rules", h.List)
	r.POST("/rules", h.Create)
	r.PATCH("/rules/:id", h.Update)
	r.DELETE("/rules/:id", h.Delete)
	r.POST("/rules/:id/toggle", h.Toggle)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validRuleBody = `{
	"name": "forward invoices",
	"conditions": [{"type": "subject", "operator": "contains", "value": "invoice"}],
	"action": {"type": "forward", "forwardTo": "accounting@company.com"}
}`

func TestCreateRule(t *testing.T) {
	store := newMemRuleStore()
	router := newRuleTestRouter(store)

	w := doJSON(t, router, http.MethodPost, "/rules", validRuleBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active, "rules default to active")
	assert.Equal(t, model.ActionForward, created.Action.Type())
}

func TestCreateRuleValidationFailure(t *testing.T) {
	router := newRuleTestRouter(newMemRuleStore())

	body := `{
		"name": "bad pattern",
		"conditions": [{"type": "subject", "operator": "matches", "value": "(["}],
		"action": {"type": "archive"}
	}`
	w := doJSON(t, router, http.MethodPost, "/rules", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRuleUnknownActionType(t *testing.T) {
	router := newRuleTestRouter(newMemRuleStore())

	body := `{
		"name": "mystery",
		"conditions": [{"type": "subject", "operator": "contains", "value": "x"}],
		"action": {"type": "teleport"}
	}`
	w := doJSON(t, router, http.MethodPost, "/rules", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRuleNotFound(t *testing.T) {
	router := newRuleTestRouter(newMemRuleStore())

	w := doJSON(t, router, http.MethodPatch, "/rules/missing", `{"name": "renamed"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateRulePartial(t *testing.T) {
	store := newMemRuleStore()
	router := newRuleTestRouter(store)

	w := doJSON(t, router, http.MethodPost, "/rules", validRuleBody)
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPatch, "/rules/"+created.ID, `{"name": "renamed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated model.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, created.Conditions, updated.Conditions)
	assert.Equal(t, created.Action, updated.Action)
}

func TestDeleteRule(t *testing.T) {
	store := newMemRuleStore()
	router := newRuleTestRouter(store)

	w := doJSON(t, router, http.MethodPost, "/rules", validRuleBody)
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodDelete, "/rules/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/rules/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code, "deleting twice reports not found")
}

func TestToggleRule(t *testing.T) {
	store := newMemRuleStore()
	router := newRuleTestRouter(store)

	w := doJSON(t, router, http.MethodPost, "/rules", validRuleBody)
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPost, "/rules/"+created.ID+"/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)

	var toggled model.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.False(t, toggled.Active)
}
