package telephony

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/calls"
	"aurora-dashboard/pkg/logger"
)

const signatureHeader = "X-Twilio-Signature"

// CallStore is what ingestion needs from persistence.
type CallStore interface {
	FindTenantByPhoneNumber(ctx context.Context, phone string) (calls.Tenant, error)
	UpsertCall(ctx context.Context, rec calls.CallRecord) (calls.CallRecord, error)
}

// Recomputer refreshes the rollups of the day a call belongs to.
type Recomputer interface {
	RecomputeDay(ctx context.Context, tenantID string, day time.Time) error
}

// StatusHandler ingests Twilio voice status callbacks.
//
// Tenant scoping: the tenant is resolved from the dialed number (To), never from the payload.
type StatusHandler struct {
	Store   CallStore
	Rollups Recomputer

	// AuthToken enables signature validation; empty skips it (local only, config enforces production).
	AuthToken string
	// PublicBaseURL is the scheme and host Twilio signed; the request host is used when empty.
	PublicBaseURL string

	Now func() time.Time
}

func (h StatusHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	if h.Store == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if h.AuthToken != "" && !ValidSignature(h.AuthToken, h.signedURL(c.Request), c.Request.PostForm, c.GetHeader(signatureHeader)) {
		log.Warn("twilio signature rejected", "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	cb, err := ParseStatusCallback(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status callback"})
		return
	}

	ctx := c.Request.Context()
	tenant, err := h.Store.FindTenantByPhoneNumber(ctx, cb.To)
	if errors.Is(err, calls.ErrNotFound) {
		log.Warn("status callback for unknown number", "to", cb.To, "call_sid", cb.CallSid)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown destination"})
		return
	}
	if err != nil {
		log.Error("tenant lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "tenant lookup failed"})
		return
	}
	c.Set("tenant_id", tenant.ID)

	rec, err := cb.ToCallRecord(tenant.ID, now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown call status"})
		return
	}
	stored, err := h.Store.UpsertCall(ctx, rec)
	if errors.Is(err, calls.ErrConflict) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call belongs to another tenant"})
		return
	}
	if err != nil {
		log.Error("call upsert failed", "call_sid", cb.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store failed"})
		return
	}

	// Rollups are caches; a failed refresh is repaired by the next recompute.
	if stored.Status.Terminal() && h.Rollups != nil {
		if err := h.Rollups.RecomputeDay(ctx, tenant.ID, stored.At()); err != nil {
			log.Warn("rollup refresh failed", "tenant_id", tenant.ID, "err", err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (h StatusHandler) signedURL(r *http.Request) string {
	base := strings.TrimRight(h.PublicBaseURL, "/")
	if base == "" {
		scheme := "https"
		if r.TLS == nil {
			scheme = "http"
		}
		base = scheme + "://" + r.Host
	}
	return base + r.URL.RequestURI()
}
