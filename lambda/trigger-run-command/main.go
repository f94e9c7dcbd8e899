// Command trigger-run-command starts a deployment when CodePipeline reaches
// the GARLC action.
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/irlrobot/garlc/pkg/handlers"
)

const functionName = "trigger-run-command"

var trigger *handlers.Trigger

func init() {
	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}

	cfg, err := handlers.LambdaConfig(false)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	rt, err := handlers.NewRuntime(functionName, cfg, handlers.NewClients(awsCfg), log.Default(), os.Stdout)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	trigger = rt.Trigger()
}

func main() {
	lambda.Start(trigger.Handle)
}
