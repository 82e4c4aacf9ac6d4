package domain

import (
	"fmt"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// Credentials is the object-storage access key pair. It formats as
// "[REDACTED]" under every fmt verb and slog, so it is safe to pass to loggers.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Empty reports whether neither key is set.
func (c Credentials) Empty() bool {
	return c.AccessKey == "" && c.SecretKey == ""
}

func (c Credentials) String() string   { return redacted }
func (c Credentials) GoString() string { return redacted }

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value { return slog.StringValue(redacted) }

// Format implements fmt.Formatter so %+v and %#v cannot reach the fields.
func (c Credentials) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}

// Redact replaces every occurrence of either key in s.
func (c Credentials) Redact(s string) string {
	for _, v := range []string{c.SecretKey, c.AccessKey} {
		if v != "" {
			s = strings.ReplaceAll(s, v, redacted)
		}
	}
	return s
}

// RedactError returns err with key material scrubbed from its message.
// errors.Is and errors.As still see the original chain.
func (c Credentials) RedactError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	clean := c.Redact(msg)
	if clean == msg {
		return err
	}
	return &redactedError{msg: clean, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
