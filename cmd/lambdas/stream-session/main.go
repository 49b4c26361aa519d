package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/pedro-hbl/fraudshield-stream/internal/app"
	"github.com/pedro-hbl/fraudshield-stream/internal/config"
)

// Track cold start
var isColdStart = true

func init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Llongfile)

	log.Println("Lambda stream session function initialized")
}

// handleRequest is the Lambda handler function
func handleRequest(ctx context.Context, request app.SessionRequest) (app.SessionResponse, error) {
	startTime := time.Now()
	log.Printf("Received session request: %+v", request)

	response := app.SessionResponse{
		ArchiveType: request.ArchiveType,
		IsColdStart: isColdStart,
	}
	isColdStart = false

	if request.DurationMs <= 0 {
		response.ErrorMessage = "durationMs must be positive"
		return response, nil
	}

	base, err := config.Load("")
	if err != nil {
		response.ErrorMessage = err.Error()
		return response, nil
	}
	cfg, err := request.Config(base)
	if err != nil {
		errMsg := fmt.Sprintf("Invalid session configuration: %v", err)
		log.Println(errMsg)
		response.ErrorMessage = errMsg
		return response, nil
	}

	a, err := app.New(ctx, cfg, app.WithOutput(os.Stdout))
	if err != nil {
		errMsg := fmt.Sprintf("Failed to create session: %v", err)
		log.Println(errMsg)
		response.ErrorMessage = errMsg
		return response, nil
	}
	response.SessionID = a.Monitor.SessionID()

	runErr := a.RunFor(ctx, time.Duration(request.DurationMs)*time.Millisecond)
	transactions := len(a.Monitor.Transactions())
	result := a.Close()
	if runErr != nil {
		errMsg := fmt.Sprintf("Session failed: %v", runErr)
		log.Println(errMsg)
		response.ErrorMessage = errMsg
		return response, nil
	}

	response.Success = true
	response.Timestamp = time.Now()
	response.Transactions = transactions
	response.Archive = result.Archive
	if result.Session != nil {
		response.Counters = result.Session.Counters
		response.Metrics = result.Session.Summary
		response.DurationNs = result.Session.Duration.Nanoseconds()
	}

	log.Printf("Session completed in %v", time.Since(startTime))
	return response, nil
}

func main() {
	// Run as Lambda function if in AWS environment
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(handleRequest)
		return
	}

	log.Println("Running in local mode")

	request := app.SessionRequest{
		DurationMs:    10000,
		MinIntervalMs: 200,
		MaxIntervalMs: 500,
		ArchiveType:   os.Getenv("ARCHIVE_TYPE"),
		Parameters: map[string]interface{}{
			"db.endpoint": "http://localhost:8000",
			"db.region":   "us-east-1",
		},
	}

	response, err := handleRequest(context.Background(), request)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	jsonResponse, _ := json.MarshalIndent(response, "", "  ")
	fmt.Println(string(jsonResponse))
}
