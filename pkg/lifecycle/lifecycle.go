package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
)

// ResultContinue lets the instance proceed to InService.
const ResultContinue = "CONTINUE"

// Action identifies one pending lifecycle transition.
type Action struct {
	HookName   string `json:"LifecycleHookName"`
	GroupName  string `json:"AutoScalingGroupName"`
	Token      string `json:"LifecycleActionToken"`
	InstanceID string `json:"EC2InstanceId"`
}

// ParseDetail decodes the detail of an "EC2 Instance-launch Lifecycle Action"
// event. Hook, group, token and instance are all required.
func ParseDetail(detail json.RawMessage) (*Action, error) {
	if len(detail) == 0 {
		return nil, fmt.Errorf("lifecycle event has no detail")
	}

	var a Action
	if err := json.Unmarshal(detail, &a); err != nil {
		return nil, fmt.Errorf("failed to decode lifecycle detail: %w", err)
	}

	switch {
	case a.HookName == "":
		return nil, fmt.Errorf("lifecycle detail missing LifecycleHookName")
	case a.GroupName == "":
		return nil, fmt.Errorf("lifecycle detail missing AutoScalingGroupName")
	case a.Token == "":
		return nil, fmt.Errorf("lifecycle detail missing LifecycleActionToken")
	case a.InstanceID == "":
		return nil, fmt.Errorf("lifecycle detail missing EC2InstanceId")
	}

	return &a, nil
}

// AutoScalingAPI is the subset of the Auto Scaling client used here.
type AutoScalingAPI interface {
	CompleteLifecycleAction(ctx context.Context, params *autoscaling.CompleteLifecycleActionInput, optFns ...func(*autoscaling.Options)) (*autoscaling.CompleteLifecycleActionOutput, error)
}

// Signaler completes lifecycle actions.
type Signaler struct {
	client AutoScalingAPI
	log    *log.Logger
}

// NewSignaler creates a Signaler. A nil logger uses the standard logger.
func NewSignaler(client AutoScalingAPI, logger *log.Logger) *Signaler {
	if logger == nil {
		logger = log.Default()
	}
	return &Signaler{client: client, log: logger}
}

// Continue unblocks the instance's launch transition. Errors are logged and
// reported as false.
func (s *Signaler) Continue(ctx context.Context, a *Action) bool {
	_, err := s.client.CompleteLifecycleAction(ctx, &autoscaling.CompleteLifecycleActionInput{
		LifecycleHookName:     aws.String(a.HookName),
		AutoScalingGroupName:  aws.String(a.GroupName),
		LifecycleActionToken:  aws.String(a.Token),
		LifecycleActionResult: aws.String(ResultContinue),
		InstanceId:            aws.String(a.InstanceID),
	})
	if err != nil {
		s.log.Printf("Failed to CompleteLifecycleAction for %s in %s: %v", a.InstanceID, a.GroupName, err)
		return false
	}

	s.log.Printf("Completed lifecycle action %s for %s (%s)", a.HookName, a.InstanceID, ResultContinue)
	return true
}
