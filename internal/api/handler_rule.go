package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"replyflow/internal/model"
	"replyflow/internal/service"
)

type RuleHandler struct {
	ruleService *service.RuleService
	logger      *zap.Logger
}

func NewRuleHandler(ruleService *service.RuleService, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{ruleService: ruleService, logger: logger}
}

type ruleCreateRequest struct {
	Name       string                `json:"name"`
	Active     *bool                 `json:"active"`
	Conditions []model.RuleCondition `json:"conditions"`
	Action     json.RawMessage       `json:"action"`
}

type ruleUpdateRequest struct {
	Name       *string               `json:"name"`
	Active     *bool                 `json:"active"`
	Conditions []model.RuleCondition `json:"conditions"`
	Action     json.RawMessage       `json:"action"`
}

func (h *RuleHandler) List(c *gin.Context) {
	rules, err := h.ruleService.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Error("Failed to list rules", zap.Error(err))
		writeError(c, err)
		return
	}
	if rules == nil {
		rules = []model.Rule{}
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (h *RuleHandler) Create(c *gin.Context) {
	var req ruleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rule := model.Rule{
		Name:       req.Name,
		Active:     true,
		Conditions: req.Conditions,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if len(req.Action) > 0 {
		action, err := model.UnmarshalAction(req.Action)
		if err != nil {
			writeError(c, err)
			return
		}
		rule.Action = action
	}

	created, err := h.ruleService.Create(c.Request.Context(), currentUserID(c), rule)
	if err != nil {
		if !model.IsValidation(err) {
			h.logger.Error("Failed to create rule", zap.Error(err))
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *RuleHandler) Update(c *gin.Context) {
	var req ruleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	upd := service.RuleUpdate{
		Name:       req.Name,
		Active:     req.Active,
		Conditions: req.Conditions,
	}
	if len(req.Action) > 0 {
		action, err := model.UnmarshalAction(req.Action)
		if err != nil {
			writeError(c, err)
			return
		}
		upd.Action = action
	}

	updated, err := h.ruleService.Update(c.Request.Context(), currentUserID(c), c.Param("id"), upd)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *RuleHandler) Delete(c *gin.Context) {
	if err := h.ruleService.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RuleHandler) Toggle(c *gin.Context) {
	rule, err := h.ruleService.Toggle(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}
