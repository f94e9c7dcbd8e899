package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

var throttlingCodes = map[string]bool{
	"ThrottlingException":                    true,
	"Throttling":                             true,
	"TooManyRequestsException":               true,
	"RequestLimitExceeded":                   true,
	"ProvisionedThroughputExceededException": true,
}

// IsThrottling reports whether err is a rate-limit rejection.
func IsThrottling(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if throttlingCodes[apiErr.ErrorCode()] {
			return true
		}
	}

	return strings.Contains(err.Error(), "ThrottlingException")
}

// IsTransient reports whether a failed call may succeed if repeated:
// throttling, server faults and errors that never reached the service.
// Context cancellation is not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsThrottling(err) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorFault() == smithy.FaultServer
	}

	return true
}
