// Package classify maps arbitrary extraction failures onto a fixed error
// taxonomy with retryability. Classification is total and non-throwing:
// anything unmatched becomes UNKNOWN, non-retryable.
package classify

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/linkscope/audit-cli/internal/model"
)

// pattern maps message substrings to an error type. The list is ordered and
// first match wins, so more specific patterns must precede generic ones
// (e.g. "element not found" before "not found").
type pattern struct {
	errType    model.ErrorType
	substrings []string
}

var patterns = []pattern{
	{model.ErrorTimeout, []string{
		"timeout", "timed out", "deadline exceeded", "context deadline",
	}},
	{model.ErrorCaptchaRequired, []string{
		"captcha", "challenge", "are you a robot", "unusual traffic",
	}},
	{model.ErrorRateLimited, []string{
		"429", "rate limit", "too many requests", "throttl",
	}},
	{model.ErrorAuthRequired, []string{
		"401", "403", "unauthorized", "forbidden", "login required", "sign in",
	}},
	{model.ErrorSelectorNotFound, []string{
		"selector", "element not found", "no such element", "node not found",
	}},
	{model.ErrorNotFound, []string{
		"404", "not found", "does not exist", "page unavailable", "user unavailable",
	}},
	{model.ErrorNetwork, []string{
		"connection reset", "connection refused", "broken pipe", "no such host",
		"network", "dns", "tls handshake", "eof", "i/o error",
	}},
}

var retryable = map[model.ErrorType]bool{
	model.ErrorTimeout:     true,
	model.ErrorRateLimited: true,
	model.ErrorNetwork:     true,
}

// IsRetryable reports whether failures of the given type are worth retrying.
func IsRetryable(t model.ErrorType) bool {
	return retryable[t]
}

// Classify maps an extraction error to its taxonomy entry. A nil error
// classifies as UNKNOWN so callers never need a pre-check.
func Classify(err error) model.ErrorDetails {
	if err == nil {
		return model.ErrorDetails{
			Type:    model.ErrorUnknown,
			Message: "unknown failure",
		}
	}

	// Typed errors first: these carry more signal than message text.
	if errors.Is(err, context.DeadlineExceeded) {
		return details(model.ErrorTimeout, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return details(model.ErrorTimeout, err.Error())
		}
		return details(model.ErrorNetwork, err.Error())
	}

	return ClassifyMessage(err.Error())
}

// ClassifyMessage classifies a raw failure message by substring matching
// over the ordered pattern list.
func ClassifyMessage(msg string) model.ErrorDetails {
	lower := strings.ToLower(msg)
	for _, p := range patterns {
		for _, sub := range p.substrings {
			if strings.Contains(lower, sub) {
				return details(p.errType, msg)
			}
		}
	}
	return model.ErrorDetails{
		Type:    model.ErrorUnknown,
		Message: msg,
	}
}

func details(t model.ErrorType, msg string) model.ErrorDetails {
	return model.ErrorDetails{
		Type:      t,
		Message:   msg,
		Retryable: retryable[t],
	}
}
