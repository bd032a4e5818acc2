package payment

import "fmt"

// ZarinPal v4 result codes. Used for logs and operator diagnostics only.
var statusMessages = map[int]string{
	-9:  "validation error in request parameters",
	-10: "terminal is not valid: check merchant_id or server IP",
	-11: "terminal is not active",
	-12: "too many attempts, please try again later",
	-15: "terminal user is suspended",
	-16: "terminal user level is not valid",
	-17: "terminal user level is not allowed for this request",
	-30: "terminal does not allow floating wages",
	-31: "terminal does not allow wages; add a default bank account",
	-32: "wages amount exceeds the total amount",
	-33: "wages percentage is not valid",
	-34: "wages amount exceeds the total amount",
	-35: "too many wages recipients",
	-40: "invalid extra parameters",
	-50: "session amount does not match the verified amount",
	-51: "session is not active or the payment was not successful",
	-52: "unexpected gateway error, contact support",
	-53: "session does not belong to this merchant",
	-54: "invalid authority",
	100: "success",
	101: "payment already verified",
}

// StatusMessage maps a ZarinPal code to a human readable description.
func StatusMessage(code int) string {
	if m, ok := statusMessages[code]; ok {
		return m
	}
	return fmt.Sprintf("unknown gateway status %d", code)
}
