package logger

import "regexp"

const redactedPlaceholder = "[REDACTED]"

var (
	// Presigned URLs end up in wrapped S3 errors; the signature alone grants access.
	amzQueryPattern = regexp.MustCompile(`(?i)(X-Amz-(?:Signature|Credential|Security-Token))=[^&\s"]+`)
	bearerPattern   = regexp.MustCompile(`(?i)(bearer)\s+[A-Za-z0-9\-_.~+/]+=*`)
	// Covers both key=value DSNs and user:password@host URLs.
	dsnPasswordPattern = regexp.MustCompile(`(?i)(password)=\S+`)
	urlPasswordPattern = regexp.MustCompile(`(://[^:/@\s]+):[^@\s]+@`)
	secretPattern      = regexp.MustCompile(`(?i)(secret|token|api[_-]?key)[\s:=]+[^\s&"]+`)
)

// SanitizeLogMessage strips credentials and signing material before a message is logged.
func SanitizeLogMessage(message string) string {
	message = amzQueryPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = bearerPattern.ReplaceAllString(message, "${1} "+redactedPlaceholder)
	message = dsnPasswordPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = urlPasswordPattern.ReplaceAllString(message, "${1}:"+redactedPlaceholder+"@")
	message = secretPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	return message
}
