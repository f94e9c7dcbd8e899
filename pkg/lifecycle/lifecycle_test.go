package lifecycle

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/irlrobot/garlc/pkg/aws/mock"
)

const sampleDetail = `{
	"LifecycleActionToken": "87654321-4321-4321-4321-210987654321",
	"AutoScalingGroupName": "garlc-asg",
	"LifecycleHookName": "garlc-launch-hook",
	"EC2InstanceId": "i-1234567890abcdef0",
	"LifecycleTransition": "autoscaling:EC2_INSTANCE_LAUNCHING"
}`

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestParseDetail(t *testing.T) {
	a, err := ParseDetail(json.RawMessage(sampleDetail))
	if err != nil {
		t.Fatalf("ParseDetail() error = %v", err)
	}

	if a.HookName != "garlc-launch-hook" {
		t.Errorf("HookName = %s, want garlc-launch-hook", a.HookName)
	}
	if a.GroupName != "garlc-asg" {
		t.Errorf("GroupName = %s, want garlc-asg", a.GroupName)
	}
	if a.InstanceID != "i-1234567890abcdef0" {
		t.Errorf("InstanceID = %s, want i-1234567890abcdef0", a.InstanceID)
	}
}

func TestParseDetailInvalid(t *testing.T) {
	tests := []struct {
		name   string
		detail string
	}{
		{name: "empty", detail: ""},
		{name: "not an object", detail: `"blah"`},
		{name: "missing hook", detail: `{"AutoScalingGroupName":"g","LifecycleActionToken":"t","EC2InstanceId":"i-1"}`},
		{name: "missing group", detail: `{"LifecycleHookName":"h","LifecycleActionToken":"t","EC2InstanceId":"i-1"}`},
		{name: "missing token", detail: `{"LifecycleHookName":"h","AutoScalingGroupName":"g","EC2InstanceId":"i-1"}`},
		{name: "missing instance", detail: `{"LifecycleHookName":"h","AutoScalingGroupName":"g","LifecycleActionToken":"t"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDetail(json.RawMessage(tt.detail)); err == nil {
				t.Error("ParseDetail() expected error, got nil")
			}
		})
	}
}

func TestContinue(t *testing.T) {
	client := mock.NewMockAutoScalingClient()
	s := NewSignaler(client, quietLogger())

	a, _ := ParseDetail(json.RawMessage(sampleDetail))
	if !s.Continue(context.Background(), a) {
		t.Fatal("Continue() = false, want true")
	}

	if len(client.Completed) != 1 {
		t.Fatalf("CompleteLifecycleAction calls = %d, want 1", len(client.Completed))
	}
	in := client.Completed[0]
	if *in.LifecycleActionResult != "CONTINUE" {
		t.Errorf("LifecycleActionResult = %s, want CONTINUE", *in.LifecycleActionResult)
	}
	if *in.LifecycleActionToken != a.Token {
		t.Errorf("LifecycleActionToken = %s, want %s", *in.LifecycleActionToken, a.Token)
	}
	if *in.LifecycleHookName != a.HookName || *in.AutoScalingGroupName != a.GroupName {
		t.Errorf("unexpected hook/group %s/%s", *in.LifecycleHookName, *in.AutoScalingGroupName)
	}
}

func TestContinueError(t *testing.T) {
	client := mock.NewMockAutoScalingClient()
	client.CompleteLifecycleActionErr = mock.APIError("ValidationError", "No active Lifecycle Action found")
	s := NewSignaler(client, quietLogger())

	if s.Continue(context.Background(), &Action{HookName: "h", GroupName: "g", Token: "t", InstanceID: "i-1"}) {
		t.Error("Continue() = true, want false on API error")
	}
}
