package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"outdial-platform/internal/agents"
	"outdial-platform/internal/audit"
	"outdial-platform/internal/auth"
	"outdial-platform/internal/calljobs"
	"outdial-platform/internal/calls"
	"outdial-platform/internal/contacts"
	"outdial-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Jobs     *calljobs.Service
	Dialer   *calls.Dialer
	Contacts *contacts.Service
	Importer *contacts.Importer
	Agents   *agents.Service
	Audit    *audit.Service
	Log      *slog.Logger
}

// --- Auth ---

type tokenRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// IssueToken issues a JWT access token.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.UserID == "" || req.Role == "" {
		badRequest(c, "user_id, role required")
		return
	}
	if !rbac.IsKnownRole(req.Role) {
		badRequest(c, "unknown role")
		return
	}
	token, err := h.Auth.Issue(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

// --- Call jobs ---

func (h Handlers) CreateJob(c *gin.Context) {
	var req calljobs.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	res, err := h.Jobs.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type controlJobRequest struct {
	JobID  string          `json:"jobId"`
	Action calljobs.Action `json:"action"`
}

func (h Handlers) ControlJob(c *gin.Context) {
	var req controlJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.JobID == "" || req.Action == "" {
		badRequest(c, "jobId, action required")
		return
	}

	res, err := h.Jobs.Control(c.Request.Context(), req.JobID, req.Action)
	h.auditJobControl(c, req.JobID, string(req.Action), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	job, progress, err := h.Jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job, "progress": progress})
}

// --- Calls ---

type startCallRequest struct {
	AgentID   string `json:"agentId"`
	ContactID string `json:"contactId"`
}

func (h Handlers) StartCall(c *gin.Context) {
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.AgentID == "" || req.ContactID == "" {
		badRequest(c, "agentId, contactId required")
		return
	}
	res, err := h.Dialer.Start(c.Request.Context(), req.AgentID, req.ContactID)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.Audit != nil {
		userID, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		if aerr := h.Audit.LogCallStart(c.Request.Context(), userID, role, c.ClientIP(), res.CallRunID, req.AgentID); aerr != nil {
			h.Log.Warn("audit append failed", "error", aerr)
		}
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) StopCall(c *gin.Context) {
	callRunID := c.Param("call_run_id")
	run, err := h.Dialer.Stop(c.Request.Context(), callRunID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// --- Contacts ---

func (h Handlers) CreateContact(c *gin.Context) {
	var req contacts.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	contact, err := h.Contacts.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h Handlers) ListContacts(c *gin.Context) {
	q := contacts.ListQuery{
		Page:    intQuery(c, "page", 1),
		PerPage: intQuery(c, "per_page", 50),
		Q:       c.Query("q"),
		Source:  c.Query("source"),
		Phone:   c.Query("phone"),
	}
	if tags := c.Query("tags"); tags != "" {
		q.Tags = strings.Split(tags, ",")
	}
	res, err := h.Contacts.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) GetContact(c *gin.Context) {
	contact, err := h.Contacts.Get(c.Request.Context(), c.Param("contact_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

// ImportContacts ingests a CSV upload under the form field "file".
func (h Handlers) ImportContacts(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file upload required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "unreadable upload")
		return
	}
	defer file.Close()

	report, err := h.Importer.Import(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- Agents ---

func (h Handlers) ListAgents(c *gin.Context) {
	list, err := h.Agents.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h Handlers) ImportAgent(c *gin.Context) {
	var req agents.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.Provider == "" || req.ExternalAgentID == "" {
		badRequest(c, "provider, external_agent_id required")
		return
	}
	agent, err := h.Agents.ImportFromProvider(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.Audit != nil {
		userID, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		if aerr := h.Audit.LogAgentImport(c.Request.Context(), userID, role, c.ClientIP(), agent.ID, agent.Provider); aerr != nil {
			h.Log.Warn("audit append failed", "error", aerr)
		}
	}
	c.JSON(http.StatusOK, agent)
}

func (h Handlers) GetAgentPrompt(c *gin.Context) {
	prompt, err := h.Agents.GetPrompt(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

// --- DNC ---

type dncAddRequest struct {
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

func (h Handlers) AddDNC(c *gin.Context) {
	var req dncAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.Phone == "" {
		badRequest(c, "phone required")
		return
	}
	entry, err := h.Contacts.DNCAdd(c.Request.Context(), req.Phone, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	h.auditDNC(c, entry.PhoneE164, "added")
	c.JSON(http.StatusOK, entry)
}

func (h Handlers) RemoveDNC(c *gin.Context) {
	phone := c.Param("phone")
	if err := h.Contacts.DNCRemove(c.Request.Context(), phone); err != nil {
		respondError(c, err)
		return
	}
	h.auditDNC(c, phone, "removed")
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (h Handlers) ListDNC(c *gin.Context) {
	list, err := h.Contacts.DNCList(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// --- helpers ---

func (h Handlers) auditJobControl(c *gin.Context, jobID, action string, controlErr error) {
	if h.Audit == nil {
		return
	}
	outcome := "accepted"
	if controlErr != nil {
		outcome = "rejected"
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogJobControl(c.Request.Context(), userID, role, c.ClientIP(), jobID, action, outcome); err != nil {
		h.Log.Warn("audit append failed", "error", err)
	}
}

func (h Handlers) auditDNC(c *gin.Context, phoneE164, change string) {
	if h.Audit == nil {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogDNCChange(c.Request.Context(), userID, role, c.ClientIP(), phoneE164, change); err != nil {
		h.Log.Warn("audit append failed", "error", err)
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
