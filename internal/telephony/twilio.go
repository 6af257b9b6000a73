package telephony

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"aurora-dashboard/internal/calls"
)

var (
	ErrInvalidCallback = errors.New("telephony: invalid status callback")
	ErrUnknownStatus   = errors.New("telephony: unknown call status")
)

// callNamespace seeds the name-based ids derived from Twilio CallSids.
var callNamespace = uuid.MustParse("6f1c7a52-3c1e-4f55-9a43-0e8f2d6b9c11")

// StatusCallback is the subset of Twilio's voice status callback we store.
// Twilio posts application/x-www-form-urlencoded.
type StatusCallback struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	Direction    string
	CallStatus   string
	CallerName   string
	CallDuration int
	Timestamp    string
}

// ParseStatusCallback reads the posted form. CallSid, To and CallStatus are required.
func ParseStatusCallback(r *http.Request) (StatusCallback, error) {
	if err := r.ParseForm(); err != nil {
		return StatusCallback{}, err
	}
	cb := StatusCallback{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		AccountSid: strings.TrimSpace(r.PostFormValue("AccountSid")),
		From:       strings.TrimSpace(r.PostFormValue("From")),
		To:         strings.TrimSpace(r.PostFormValue("To")),
		Direction:  r.PostFormValue("Direction"),
		CallStatus: strings.ToLower(strings.TrimSpace(r.PostFormValue("CallStatus"))),
		CallerName: strings.TrimSpace(r.PostFormValue("CallerName")),
		Timestamp:  r.PostFormValue("Timestamp"),
	}
	if d := strings.TrimSpace(r.PostFormValue("CallDuration")); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			return StatusCallback{}, ErrInvalidCallback
		}
		cb.CallDuration = n
	}
	if cb.CallSid == "" || cb.To == "" || cb.CallStatus == "" {
		return StatusCallback{}, ErrInvalidCallback
	}
	return cb, nil
}

// MapStatus folds Twilio's call statuses onto ours.
func MapStatus(twilioStatus string) (calls.Status, error) {
	switch twilioStatus {
	case "queued", "initiated", "ringing", "in-progress":
		return calls.StatusActive, nil
	case "completed":
		return calls.StatusCompleted, nil
	case "busy", "failed", "no-answer", "canceled":
		return calls.StatusFailed, nil
	default:
		return "", ErrUnknownStatus
	}
}

// RecordID is stable per (tenant, CallSid), so every callback of a call lands on one row.
func RecordID(tenantID, callSid string) string {
	return uuid.NewSHA1(callNamespace, []byte(tenantID+"/"+callSid)).String()
}

// ToCallRecord builds the partial record one callback contributes. Merging with what is
// already stored is the repository's job.
func (cb StatusCallback) ToCallRecord(tenantID string, now time.Time) (calls.CallRecord, error) {
	st, err := MapStatus(cb.CallStatus)
	if err != nil {
		return calls.CallRecord{}, err
	}
	at := now.UTC()
	if ts, err := time.Parse(time.RFC1123Z, cb.Timestamp); err == nil {
		at = ts.UTC()
	}

	rec := calls.CallRecord{
		ID:             RecordID(tenantID, cb.CallSid),
		TenantID:       tenantID,
		ProviderCallID: cb.CallSid,
		PhoneNumber:    cb.From,
		CallerName:     cb.CallerName,
		Status:         st,
		AIHandled:      true,
		Metadata:       map[string]any{"twilio_status": cb.CallStatus},
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if cb.Direction != "" {
		rec.Metadata["direction"] = cb.Direction
	}

	if st.Terminal() {
		end := at
		rec.EndedAt = &end
		rec.DurationSeconds = cb.CallDuration
		rec.StartedAt = at.Add(-time.Duration(cb.CallDuration) * time.Second)
	} else {
		rec.StartedAt = at
	}
	return rec, nil
}
