package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"

	"github.com/irlrobot/garlc/pkg/aws/mock"
)

func TestIsThrottling(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "throttling exception", err: mock.ThrottlingError(), want: true},
		{name: "wrapped", err: fmt.Errorf("operation error SSM: SendCommand, %w", mock.ThrottlingError()), want: true},
		{name: "too many requests", err: mock.APIError("TooManyRequestsException", "slow down"), want: true},
		{name: "request limit", err: mock.APIError("RequestLimitExceeded", "slow down"), want: true},
		{name: "message only", err: errors.New("An error occurred (ThrottlingException) when calling SendCommand"), want: true},
		{name: "invalid instance", err: mock.APIError("InvalidInstanceId", "not managed"), want: false},
		{name: "plain error", err: mock.ErrBoom, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsThrottling(tt.err); got != tt.want {
				t.Errorf("IsThrottling(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	serverErr := &smithy.GenericAPIError{Code: "ServiceException", Message: "internal", Fault: smithy.FaultServer}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "throttled", err: mock.ThrottlingError(), want: true},
		{name: "server fault", err: serverErr, want: true},
		{name: "network", err: errors.New("dial tcp: i/o timeout"), want: true},
		{name: "client fault", err: mock.APIError("ResourceNotFoundException", "Function not found"), want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: fmt.Errorf("invoke: %w", context.DeadlineExceeded), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
