package models

// Flash categories
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashDanger  = "danger"
)

// Flash is a one-time notice shown on the next rendered page
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}
