// Package mock provides in-memory implementations of the AWS SDK client
// surfaces GARLC uses. Each mock records its inputs, counts calls and can be
// primed with errors to exercise failure paths.
package mock

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ThrottlingError returns an API error that the SDK would surface for a
// rate-limited request.
func ThrottlingError() error {
	return &smithy.GenericAPIError{
		Code:    "ThrottlingException",
		Message: "Rate exceeded",
		Fault:   smithy.FaultClient,
	}
}

// APIError returns a generic API error with the given code.
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: smithy.FaultClient}
}

// ErrBoom is a plain, non-API failure.
var ErrBoom = errors.New("boom")

// nextErr pops the head of a queued error list. Once the queue is drained the
// fallback is returned on every call.
func nextErr(queue *[]error, fallback error) error {
	if len(*queue) == 0 {
		return fallback
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func strPtr(s string) *string {
	return &s
}

func pageToken(i int) *string {
	return strPtr(fmt.Sprintf("page-%d", i))
}

func pageIndex(token *string) int {
	if token == nil {
		return 0
	}
	var i int
	if _, err := fmt.Sscanf(*token, "page-%d", &i); err != nil {
		return 0
	}
	return i
}
