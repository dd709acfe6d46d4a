package auth

import (
	"context"
	"sync"

	"societyhub.org/internal/obs"
	"societyhub.org/internal/otp"
)

// Notifier delivers one-time codes to their holder. The ledger does not care
// about the channel; SMS, email and log delivery all satisfy this.
type Notifier interface {
	SendCode(ctx context.Context, rec *otp.Record) error
}

// LogNotifier writes codes to the service log instead of sending them. This
// is the delivery path for local development and staging.
type LogNotifier struct{}

func (LogNotifier) SendCode(ctx context.Context, rec *otp.Record) error {
	obs.LogRequest(map[string]any{
		"type":    "otp_delivery",
		"phone":   rec.Phone,
		"purpose": rec.Purpose.String(),
		"code":    rec.Code,
	})
	return nil
}

// Recorder captures sent codes for tests.
type Recorder struct {
	mu   sync.Mutex
	sent []*otp.Record
}

func (r *Recorder) SendCode(ctx context.Context, rec *otp.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, rec)
	return nil
}

// Last returns the most recently captured record, or nil.
func (r *Recorder) Last() *otp.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return nil
	}
	return r.sent[len(r.sent)-1]
}

// Count returns how many codes were sent.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
