package domain

import "time"

// Challenge is a one-time captcha pair issued by the validation backend.
// It is consumed by exactly one lookup call and never persisted.
type Challenge struct {
	Key         string `json:"key"`
	CaptchaText string `json:"captchaText"`
}

// Verdict is the tri-state outcome of an invoice lookup.
type Verdict struct {
	Valid     bool      `json:"is_valid"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checked_at"`
}
