package telephony

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"outdial-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "x-retell-signature"

// WebhookHandler receives Retell call-lifecycle events.
//
// The signature is HMAC-SHA256 over the raw body, keyed with the vendor
// API key, hex-encoded in the x-retell-signature header. An absent or
// wrong signature is a hard 401; unsigned payloads are never accepted.
//
// Events are acknowledged and logged only. Reconciliation of call runs
// against these events is deliberately out of scope.
type WebhookHandler struct {
	SigningKey string
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		CallID string `json:"call_id"`
	} `json:"data"`
}

func (h WebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if !h.verify(body, c.GetHeader(signatureHeader)) {
		log.Warn("webhook signature rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	switch ev.Event {
	case "call_started":
		log.Info("call started", "external_call_id", ev.Data.CallID)
	case "call_ended":
		log.Info("call ended", "external_call_id", ev.Data.CallID)
	case "call_analyzed":
		log.Info("call analyzed", "external_call_id", ev.Data.CallID)
	default:
		log.Warn("unknown webhook event", "event", ev.Event)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h WebhookHandler) verify(body []byte, signature string) bool {
	if h.SigningKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.SigningKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
