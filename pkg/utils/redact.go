package utils

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" -> "jo***@example.com", "ab@example.com" -> "***@example.com"
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "***@***"
	}
	name, domain := email[:at], email[at+1:]
	if len(name) > 2 {
		return name[:2] + "***@" + domain
	}
	return "***@" + domain
}
