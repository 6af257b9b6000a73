package telephony

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"aurora-dashboard/internal/calls"
)

var testNow = time.Unix(1700000000, 0).UTC()

func formRequest(v url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestMapStatus(t *testing.T) {
	cases := map[string]calls.Status{
		"queued":      calls.StatusActive,
		"ringing":     calls.StatusActive,
		"in-progress": calls.StatusActive,
		"completed":   calls.StatusCompleted,
		"busy":        calls.StatusFailed,
		"no-answer":   calls.StatusFailed,
		"canceled":    calls.StatusFailed,
		"failed":      calls.StatusFailed,
	}
	for in, want := range cases {
		got, err := MapStatus(in)
		if err != nil || got != want {
			t.Fatalf("%s: expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := MapStatus("teleported"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestParseStatusCallback(t *testing.T) {
	cb, err := ParseStatusCallback(formRequest(url.Values{
		"CallSid":      {"CA1"},
		"To":           {"+15550100"},
		"From":         {" +15550199 "},
		"CallStatus":   {"Completed"},
		"CallDuration": {"42"},
	}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.From != "+15550199" || cb.CallStatus != "completed" || cb.CallDuration != 42 {
		t.Fatalf("unexpected callback %+v", cb)
	}

	if _, err := ParseStatusCallback(formRequest(url.Values{"To": {"+1"}, "CallStatus": {"ringing"}})); !errors.Is(err, ErrInvalidCallback) {
		t.Fatalf("expected missing CallSid to fail, got %v", err)
	}
	if _, err := ParseStatusCallback(formRequest(url.Values{"CallSid": {"CA1"}, "To": {"+1"}, "CallStatus": {"completed"}, "CallDuration": {"-3"}})); !errors.Is(err, ErrInvalidCallback) {
		t.Fatalf("expected negative duration to fail, got %v", err)
	}
}

func TestToCallRecord(t *testing.T) {
	cb := StatusCallback{CallSid: "CA1", To: "+15550100", From: "+15550199", CallStatus: "completed", CallDuration: 95, Timestamp: "Tue, 14 Nov 2023 22:01:35 +0000"}
	rec, err := cb.ToCallRecord("t1", testNow)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if rec.ID != RecordID("t1", "CA1") || rec.ID == RecordID("t2", "CA1") {
		t.Fatalf("expected a tenant-scoped stable id, got %s", rec.ID)
	}
	if rec.Status != calls.StatusCompleted || rec.DurationSeconds != 95 || rec.EndedAt == nil {
		t.Fatalf("unexpected record %+v", rec)
	}
	if want := time.Date(2023, 11, 14, 22, 0, 0, 0, time.UTC); !rec.StartedAt.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, rec.StartedAt)
	}

	// Without a parseable timestamp the receive time is used.
	cb = StatusCallback{CallSid: "CA2", To: "+1", CallStatus: "ringing"}
	rec, _ = cb.ToCallRecord("t1", testNow)
	if !rec.StartedAt.Equal(testNow) || rec.EndedAt != nil {
		t.Fatalf("unexpected active record %+v", rec)
	}
}

func TestSignature(t *testing.T) {
	params := url.Values{"CallSid": {"CA1"}, "To": {"+15550100"}}
	sig := Signature("token", "https://api.example.com/webhooks/twilio/status", params)
	if !ValidSignature("token", "https://api.example.com/webhooks/twilio/status", params, sig) {
		t.Fatalf("expected own signature to validate")
	}
	if ValidSignature("other", "https://api.example.com/webhooks/twilio/status", params, sig) {
		t.Fatalf("expected another token to fail")
	}
	params.Set("To", "+15550101")
	if ValidSignature("token", "https://api.example.com/webhooks/twilio/status", params, sig) {
		t.Fatalf("expected tampered params to fail")
	}
	if ValidSignature("token", "https://api.example.com/webhooks/twilio/status", params, "") {
		t.Fatalf("expected empty signature to fail")
	}
}
