package redact

import (
	"fmt"
	"log"
	"regexp"
)

// Log lines in this system routinely carry RTSP URLs with embedded camera
// credentials and Telegram bot API URLs with the token in the path. Every
// log call goes through here so neither can leak.
var (
	streamCredsRe = regexp.MustCompile(`(?i)((?:rtsp|rtsps|rtmp|http|https)://)([^/\s@:]+):([^/\s@]+)@`)
	botTokenRe    = regexp.MustCompile(`(/bot)([0-9]+:[A-Za-z0-9_\-]+)`)
	bearerRe      = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._\-+/=]+)`)
	apiKeyValueRe = regexp.MustCompile(`(?i)(api[_-]?key(?:s)?\s*[:=]\s*)([A-Za-z0-9._\-+/=]+)`)
	tokenishKeyRe = regexp.MustCompile(`(?i)((?:bot[_-]?)?token\s*[:=]\s*)([A-Za-z0-9._\-+/=:]{6,})`)
)

// String redacts known secret patterns from free-form strings.
func String(s string) string {
	if s == "" {
		return s
	}

	out := s
	out = streamCredsRe.ReplaceAllString(out, "${1}[REDACTED]@")
	out = botTokenRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = bearerRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyValueRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = tokenishKeyRe.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}

// Any formats the value with %+v and redacts secrets.
func Any(v any) string {
	return String(fmt.Sprintf("%+v", v))
}

// Sprintf formats like fmt.Sprintf and redacts the result.
func Sprintf(format string, args ...interface{}) string {
	return String(fmt.Sprintf(format, args...))
}

// Logf prints a redacted log line.
func Logf(format string, args ...interface{}) {
	log.Print(Sprintf(format, args...))
}

// Fatalf prints a redacted fatal log line.
func Fatalf(format string, args ...interface{}) {
	log.Fatal(Sprintf(format, args...))
}
