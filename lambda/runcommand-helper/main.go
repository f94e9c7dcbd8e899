// Command runcommand-helper dispatches the next chunks of a job handed off by
// the trigger or by a previous helper invocation.
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/irlrobot/garlc/pkg/handlers"
)

const functionName = "runcommand-helper"

var helper *handlers.Helper

func init() {
	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}

	cfg, err := handlers.LambdaConfig(true)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	rt, err := handlers.NewRuntime(functionName, cfg, handlers.NewClients(awsCfg), log.Default(), os.Stdout)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	helper = rt.Helper()
}

func main() {
	lambda.Start(helper.Handle)
}
