package metrics

import "expvar"

var (
	SubmissionsReceived = expvar.NewInt("frontdesk_submissions_received_total")
	SubmissionsRejected = expvar.NewInt("frontdesk_submissions_rejected_total")
	MailDelivered       = expvar.NewInt("frontdesk_mail_delivered_total")
	MailFailures        = expvar.NewInt("frontdesk_mail_failures_total")
	AttachmentsBlocked  = expvar.NewInt("frontdesk_attachments_blocked_total")
	RateLimited         = expvar.NewInt("frontdesk_rate_limited_total")
	activeCarts         = expvar.NewInt("frontdesk_active_carts")
)

// SetActiveCarts records how many cart sessions are held in memory.
func SetActiveCarts(n int) {
	activeCarts.Set(int64(n))
}

// ResetForTests clears counters; intended for use in tests only.
func ResetForTests() {
	SubmissionsReceived.Set(0)
	SubmissionsRejected.Set(0)
	MailDelivered.Set(0)
	MailFailures.Set(0)
	AttachmentsBlocked.Set(0)
	RateLimited.Set(0)
	activeCarts.Set(0)
}
