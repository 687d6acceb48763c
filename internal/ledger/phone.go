package ledger

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// whatsAppE164 returns raw in E.164 form when it parses as a valid number
// for region, and "" otherwise. The raw value is stored separately as typed.
func whatsAppE164(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || region == "" {
		return ""
	}
	num, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return ""
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}
