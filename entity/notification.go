package entity

// NotificationKind selects which message a notifier delivers.
type NotificationKind string

const (
	KindAdminReview NotificationKind = "admin_review_requested"
	KindApproved    NotificationKind = "approved"
	KindDenied      NotificationKind = "denied"
)

// NotificationIntent is built by the workflow after a confirmed write and
// handed to a notifier; it is never persisted.
type NotificationIntent struct {
	Kind      NotificationKind    `json:"kind"`
	Recipient string              `json:"recipient"`
	Payload   NotificationPayload `json:"payload"`
}

// NotificationPayload carries opaque references; rendering is up to the notifier.
type NotificationPayload struct {
	RegistrationId  string `json:"registration_id"`
	ParticipantName string `json:"participant_name"`
	ContestCode     string `json:"contest_code,omitempty"`
	VoucherUrl      string `json:"voucher_url,omitempty"`
	ApproveLink     string `json:"approve_link,omitempty"`
	DenyLink        string `json:"deny_link,omitempty"`
	ImageUrl        string `json:"image_url,omitempty"`
	SiteUrl         string `json:"site_url,omitempty"`
}
