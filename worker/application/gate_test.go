package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"edge-worker/worker/domain"
	"edge-worker/worker/kvtest"
)

func validSubmission() domain.Submission {
	return domain.Submission{Name: "Alice", Email: "alice@example.com", Message: "Hello\nthere"}
}

func newGate(store *kvtest.Store, d *fakeDispatcher) Gate {
	return Gate{
		Limiter:    RateLimiter{Store: store},
		Dispatcher: d,
		From:       "noreply@example.com",
		To:         "owner@example.com",
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@b.co", true},
		{"alice@mail.example.com", true},
		{"a@b", false},
		{"a@@b.co", false},
		{"a b@c.co", false},
		{"a\u00a0b@c.co", false},
		{"a@b\u2003.co", false},
		{"a@b.c\ufeffo", false},
		{"", false},
		{"@b.co", false},
	}
	for _, tt := range tests {
		if got := ValidEmail(tt.in); got != tt.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate_Order(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Submission
		want domain.RejectReason
	}{
		{"honeypot wins over everything", domain.Submission{Website: "x"}, domain.ReasonSpamDetected},
		{"honeypot with valid fields", domain.Submission{Name: "a", Email: "a@b.co", Message: "m", Website: "x"}, domain.ReasonSpamDetected},
		{"missing name", domain.Submission{Email: "a@b.co", Message: "m"}, domain.ReasonMissingFields},
		{"missing email", domain.Submission{Name: "a", Message: "m"}, domain.ReasonMissingFields},
		{"missing message", domain.Submission{Name: "a", Email: "a@b.co"}, domain.ReasonMissingFields},
		{"missing beats bad email", domain.Submission{Name: "a", Email: "nope"}, domain.ReasonMissingFields},
		{"bad email", domain.Submission{Name: "a", Email: "a@b", Message: "m"}, domain.ReasonInvalidEmail},
		{"valid", domain.Submission{Name: "a", Email: "a@b.co", Message: "m"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.in); got != tt.want {
				t.Fatalf("Validate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGate_AcceptsAndDispatches(t *testing.T) {
	store := kvtest.New(nil)
	d := &fakeDispatcher{}
	g := newGate(store, d)

	res, err := g.Submit(context.Background(), "1.2.3.4", validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Accepted() {
		t.Fatalf("expected accepted, got %q", res.Reason)
	}
	if d.count() != 1 {
		t.Fatalf("expected 1 email, got %d", d.count())
	}

	e := d.sent[0]
	if e.Subject != "Contact Form: Alice" {
		t.Fatalf("unexpected subject %q", e.Subject)
	}
	if e.ReplyTo != "alice@example.com" || e.From != "noreply@example.com" || e.To != "owner@example.com" {
		t.Fatalf("unexpected addressing: %+v", e)
	}
	if !strings.Contains(e.HTMLBody, "Hello<br>there") {
		t.Fatalf("expected newline converted to <br>, got %q", e.HTMLBody)
	}
}

func TestGate_HoneypotRejectsWithoutSideEffects(t *testing.T) {
	store := kvtest.New(nil)
	d := &fakeDispatcher{}
	g := newGate(store, d)

	s := validSubmission()
	s.Website = "http://spam.example"
	res, err := g.Submit(context.Background(), "c", s)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Reason != domain.ReasonSpamDetected {
		t.Fatalf("expected SpamDetected, got %q", res.Reason)
	}
	if len(store.Puts()) != 0 || d.count() != 0 {
		t.Fatalf("expected no rate-limit write and no email")
	}
}

func TestGate_SecondSubmissionRateLimitedUntilWindowElapses(t *testing.T) {
	ctx := context.Background()
	clock := kvtest.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	store := kvtest.New(clock)
	d := &fakeDispatcher{}
	g := newGate(store, d)

	if res, _ := g.Submit(ctx, "c", validSubmission()); !res.Accepted() {
		t.Fatalf("first submission should be accepted, got %q", res.Reason)
	}

	clock.Advance(30 * time.Minute)
	res, err := g.Submit(ctx, "c", validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Reason != domain.ReasonRateLimited {
		t.Fatalf("expected RateLimited, got %q", res.Reason)
	}

	clock.Advance(31 * time.Minute)
	if res, _ := g.Submit(ctx, "c", validSubmission()); !res.Accepted() {
		t.Fatalf("expected accepted after window, got %q", res.Reason)
	}
	if d.count() != 2 {
		t.Fatalf("expected 2 emails, got %d", d.count())
	}
}

func TestGate_DispatchFailureKeepsRateLimitEntry(t *testing.T) {
	ctx := context.Background()
	store := kvtest.New(nil)
	d := &fakeDispatcher{err: errBoom}
	g := newGate(store, d)

	res, err := g.Submit(ctx, "c", validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Reason != domain.ReasonDispatchFailed || !errors.Is(res.Err, errBoom) {
		t.Fatalf("expected DispatchFailed wrapping cause, got %+v", res)
	}
	if puts := store.Puts(); len(puts) != 1 || puts[0].Key != "ratelimit:c" {
		t.Fatalf("expected exactly one rate-limit write, got %+v", puts)
	}

	d.err = nil
	if res, _ := g.Submit(ctx, "c", validSubmission()); res.Reason != domain.ReasonRateLimited {
		t.Fatalf("expected window consumed by failed dispatch, got %q", res.Reason)
	}
}

func TestGate_StoreFailureSurfacesAsError(t *testing.T) {
	store := kvtest.New(nil)
	store.Fail = errBoom
	d := &fakeDispatcher{}
	stats := &fakeStats{}
	g := newGate(store, d)
	g.Stats = stats

	_, err := g.Submit(context.Background(), "c", validSubmission())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if d.count() != 0 {
		t.Fatalf("expected no email when store is down")
	}
	if len(stats.events) != 1 || stats.events[0].Outcome != "store_unavailable" {
		t.Fatalf("unexpected stats: %+v", stats.events)
	}
}

func TestGate_RecordsOutcomeStats(t *testing.T) {
	stats := &fakeStats{}
	g := newGate(kvtest.New(nil), &fakeDispatcher{})
	g.Stats = stats

	_, _ = g.Submit(context.Background(), "c", domain.Submission{})
	_, _ = g.Submit(context.Background(), "c", validSubmission())
	_, _ = g.Submit(context.Background(), "c", validSubmission())

	want := []string{"missing_fields", "accepted", "rate_limited"}
	if len(stats.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(stats.events))
	}
	for i, w := range want {
		if stats.events[i].Outcome != w {
			t.Fatalf("event %d: got %q want %q", i, stats.events[i].Outcome, w)
		}
	}
}

func TestBuildContactEmail_EscapesHTML(t *testing.T) {
	e := BuildContactEmail("f@x.io", "t@x.io", domain.Submission{
		Name:    "<b>Eve</b>",
		Email:   "eve@example.com",
		Message: "line1\r\n<script>",
	})
	if strings.Contains(e.HTMLBody, "<script>") || strings.Contains(e.HTMLBody, "<b>Eve") {
		t.Fatalf("expected escaped body, got %q", e.HTMLBody)
	}
	if !strings.Contains(e.HTMLBody, "line1<br>&lt;script&gt;") {
		t.Fatalf("unexpected body %q", e.HTMLBody)
	}
	if e.Subject != "Contact Form: <b>Eve</b>" {
		t.Fatalf("unexpected subject %q", e.Subject)
	}
}
