package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/irlrobot/garlc/pkg/aws/mock"
	"github.com/irlrobot/garlc/pkg/config"
	"github.com/irlrobot/garlc/pkg/ledger"
)

type mockClients struct {
	ssm      *mock.MockSSMClient
	lambda   *mock.MockLambdaClient
	ec2      *mock.MockEC2Client
	codepipe *mock.MockCodePipelineClient
	dynamo   *mock.MockDynamoDBClient
	clients  *Clients
}

func newMockClients() *mockClients {
	m := &mockClients{
		ssm:      mock.NewMockSSMClient(),
		lambda:   mock.NewMockLambdaClient(),
		ec2:      mock.NewMockEC2Client(),
		codepipe: mock.NewMockCodePipelineClient(),
		dynamo:   mock.NewMockDynamoDBClient(ledger.KeyName),
	}
	m.clients = &Clients{
		SSM:          m.ssm,
		Lambda:       m.lambda,
		EC2:          m.ec2,
		S3:           mock.NewMockS3Client(),
		CodePipeline: m.codepipe,
		AutoScaling:  mock.NewMockAutoScalingClient(),
		DynamoDB:     m.dynamo,
	}
	return m
}

func TestNewRuntimeRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 0
	if _, err := NewRuntime("trigger", cfg, newMockClients().clients, nil, io.Discard); err == nil {
		t.Error("NewRuntime() error = nil for zero chunk size")
	}
}

func TestRuntimeTriggerWiring(t *testing.T) {
	m := newMockClients()
	m.ec2.Pages = [][]ec2types.Reservation{{mock.Reservation(instanceIDs(5)...)}}

	cfg := config.Default()
	cfg.ChunkSize = 2
	cfg.JobsTable = "garlc-jobs"
	cfg.Dispatch.HelperFunction = "helper-fn"

	auditOut := &bytes.Buffer{}
	rt, err := NewRuntime("trigger-run-command", cfg, m.clients, log.New(io.Discard, "", 0), auditOut)
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}

	ok, err := rt.Trigger().Handle(context.Background(), pipelineEvent("cp-1"))
	if err != nil || !ok {
		t.Fatalf("Handle() = %v, %v", ok, err)
	}

	if *m.lambda.Inputs[0].FunctionName != "helper-fn" {
		t.Errorf("handoff target = %s, want helper-fn", *m.lambda.Inputs[0].FunctionName)
	}

	var payload struct {
		JobID string `json:"JobId"`
	}
	if err := json.Unmarshal(m.lambda.Inputs[0].Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	item, found := m.dynamo.Items[payload.JobID]
	if !found {
		t.Fatalf("ledger has no record for job %s", payload.JobID)
	}
	var rec ledger.Record
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		t.Fatalf("UnmarshalMap() error = %v", err)
	}
	if rec.Status != "RUNNING" || rec.Remaining != 2 || rec.PipelineJobID != "cp-1" {
		t.Errorf("ledger record = %+v", rec)
	}

	if !strings.Contains(auditOut.String(), `"function":"trigger-run-command"`) {
		t.Errorf("audit output missing function name: %s", auditOut.String())
	}

	samples, err := rt.Registry.Snapshot()
	if err != nil || len(samples) == 0 {
		t.Errorf("Snapshot() = %v, %v; want recorded samples", samples, err)
	}
}

func TestLambdaConfigSelfHandoff(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "garlc_runcommand_helper_v2")
	t.Setenv("GARLC_HELPER_FUNCTION", "configured")

	cfg, err := LambdaConfig(true)
	if err != nil {
		t.Fatalf("LambdaConfig() error = %v", err)
	}
	if cfg.Dispatch.HelperFunction != "garlc_runcommand_helper_v2" {
		t.Errorf("HelperFunction = %s, want the running function", cfg.Dispatch.HelperFunction)
	}

	cfg, err = LambdaConfig(false)
	if err != nil {
		t.Fatalf("LambdaConfig() error = %v", err)
	}
	if cfg.Dispatch.HelperFunction != "configured" {
		t.Errorf("HelperFunction = %s, want configured", cfg.Dispatch.HelperFunction)
	}
}
