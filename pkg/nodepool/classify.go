package nodepool

import (
	"context"
	"errors"
	"strings"
)

// errorClass is the semantic class of a failure, used to scale adaptive
// backoff delay
type errorClass int

const (
	classRateLimit errorClass = iota
	classStorageCapacity
	classTransientStorage
	classServerStatus
	classConnection
	classTimeout
	classNonRetryable
)

// String returns a human-readable class name
func (c errorClass) String() string {
	switch c {
	case classRateLimit:
		return "rate-limit"
	case classStorageCapacity:
		return "storage-capacity"
	case classTransientStorage:
		return "transient-storage"
	case classServerStatus:
		return "server-status"
	case classConnection:
		return "connection"
	case classTimeout:
		return "timeout"
	default:
		return "non-retryable"
	}
}

// classRule classifies an error message into a class, a retry decision and
// an adaptive delay factor
type classRule struct {
	class       errorClass
	retryable   bool
	delayFactor float64
	match       func(msg string) bool
}

// containsAny matches a lowercased message against any of the substrings
func containsAny(subs ...string) func(string) bool {
	return func(msg string) bool {
		for _, s := range subs {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

// classRules is the ordered classification table, evaluated first-match.
// Rate-limit and storage-capacity conditions take longer to clear server-side
// than plain connection trouble, so they carry larger delay factors. Anything
// unmatched is conservatively non-retryable so programming errors never loop.
var classRules = []classRule{
	{
		class:       classRateLimit,
		retryable:   true,
		delayFactor: 2.5,
		match:       containsAny("rate limit", "rate-limit", "too many requests", "429"),
	},
	{
		class:       classStorageCapacity,
		retryable:   true,
		delayFactor: 3.0,
		match:       containsAny("insufficient storage", "storage capacity", "no space", "allocation failed", "out of capacity"),
	},
	{
		class:       classTransientStorage,
		retryable:   true,
		delayFactor: 2.0,
		match:       containsAny("blob not found", "not certified", "certification pending"),
	},
	{
		class:       classServerStatus,
		retryable:   true,
		delayFactor: 1.5,
		match: containsAny(
			"408", "500", "502", "503", "504",
			"request timeout", "internal server error", "bad gateway",
			"service unavailable", "gateway timeout",
		),
	},
	{
		class:       classConnection,
		retryable:   true,
		delayFactor: 1.0,
		match: containsAny(
			"econnreset", "econnrefused", "econnaborted", "ehostunreach",
			"enetunreach", "epipe", "socket hang up",
			"connection reset", "connection refused", "connection closed",
			"network error", "unreachable",
		),
	},
	timeoutRule,
}

// timeoutRule also covers context.DeadlineExceeded regardless of message text
var timeoutRule = classRule{
	class:       classTimeout,
	retryable:   true,
	delayFactor: 1.0,
	match:       containsAny("etimedout", "timed out", "timeout", "deadline exceeded"),
}

// nonRetryableRule is the default verdict when no rule matches
var nonRetryableRule = classRule{
	class:       classNonRetryable,
	retryable:   false,
	delayFactor: 1.0,
}

// classify maps an error to its classification rule. context.DeadlineExceeded
// is treated as a timeout regardless of message text.
func classify(err error) classRule {
	if err == nil {
		return nonRetryableRule
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutRule
	}
	msg := strings.ToLower(err.Error())
	for _, r := range classRules {
		if r.match(msg) {
			return r
		}
	}
	return nonRetryableRule
}
