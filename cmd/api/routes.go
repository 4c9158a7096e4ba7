package main

import (
	"outdial-platform/internal/httpapi"
	"outdial-platform/internal/rbac"
	"outdial-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, webhook telephony.WebhookHandler) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Vendor webhooks (public, signature-verified inside the handler).
	r.POST("/api/webhooks/retell", webhook.Handle)

	// Token issuance (public).
	r.POST("/api/auth/token", h.IssueToken)

	// protected API group
	api := r.Group("/api")
	api.Use(authMW)
	{
		operate := rbac.RequireAnyRole(rbac.RoleOperator)
		view := rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleViewer)

		jobs := api.Group("/call-jobs")
		{
			jobs.POST("/create", operate, h.CreateJob)
			jobs.POST("/control", operate, h.ControlJob)
			jobs.GET("/:job_id", view, h.GetJob)
		}

		callsGroup := api.Group("/calls")
		{
			callsGroup.POST("/start", operate, h.StartCall)
			callsGroup.POST("/:call_run_id/stop", operate, h.StopCall)
		}

		contactsGroup := api.Group("/contacts")
		{
			contactsGroup.GET("", view, h.ListContacts)
			contactsGroup.POST("", operate, h.CreateContact)
			contactsGroup.GET("/:contact_id", view, h.GetContact)
			contactsGroup.POST("/import", operate, h.ImportContacts)
		}

		agentsGroup := api.Group("/agents")
		{
			agentsGroup.GET("", view, h.ListAgents)
			agentsGroup.POST("/import", operate, h.ImportAgent)
			agentsGroup.GET("/:agent_id/prompt", view, h.GetAgentPrompt)
		}

		dnc := api.Group("/dnc")
		{
			dnc.GET("", view, h.ListDNC)
			dnc.POST("", operate, h.AddDNC)
			dnc.DELETE("/:phone", operate, h.RemoveDNC)
		}
	}
}
