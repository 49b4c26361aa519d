package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pedro-hbl/fraudshield-stream/internal/app"
	"github.com/pedro-hbl/fraudshield-stream/internal/metrics"
)

// invocationPath is where the Lambda runtime interface emulator accepts events
const invocationPath = "/2015-03-31/functions/function/invocations"

func invokeCmd() *cobra.Command {
	var (
		endpoint  string
		archives  string
		duration  time.Duration
		seed      int64
		outputDir string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Run headless sessions on the stream-session Lambda",
		Long: `Run one headless session per archive type on the stream-session Lambda
and save each response as JSON.

Examples:
  fraudshield invoke --endpoint http://localhost:9000 --archives dynamodb,immudb
  LAMBDA_ENDPOINT=http://localhost:9000 fraudshield invoke --duration 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if endpoint == "" {
				endpoint = os.Getenv("LAMBDA_ENDPOINT")
			}
			if endpoint == "" {
				return fmt.Errorf("lambda endpoint not specified: use --endpoint or LAMBDA_ENDPOINT")
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			client := &http.Client{Timeout: duration + time.Minute}
			var results []*app.SessionResponse
			for _, archiveType := range strings.Split(archives, ",") {
				request := app.SessionRequest{
					DurationMs:  duration.Milliseconds(),
					Seed:        seed,
					ArchiveType: strings.TrimSpace(archiveType),
				}
				log.Printf("Running session with archive %q using endpoint %s", request.ArchiveType, endpoint)

				resp, err := invokeSession(cmd.Context(), client, endpoint, request, verbose)
				if err != nil {
					return err
				}
				if err := saveResponse(outputDir, resp); err != nil {
					log.Printf("Failed to save response: %v", err)
				}
				results = append(results, resp)
			}

			printResponses(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Lambda endpoint URL")
	cmd.Flags().StringVar(&archives, "archives", "", "comma-separated archive types (empty runs without an archive)")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "session length")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "./results", "directory to store responses")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log request and response payloads")

	return cmd
}

// invokeSession posts one session request and decodes the response
func invokeSession(ctx context.Context, client *http.Client, endpoint string, request app.SessionRequest, verbose bool) (*app.SessionResponse, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	if verbose {
		log.Printf("Request payload: %s", payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(endpoint, "/")+invocationPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Lambda function: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if verbose {
		log.Printf("Response: %s", body)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lambda returned %s: %s", resp.Status, body)
	}

	var result app.SessionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.ArchiveType == "" {
		result.ArchiveType = request.ArchiveType
	}
	return &result, nil
}

func saveResponse(dir string, resp *app.SessionResponse) error {
	name := resp.ArchiveType
	if name == "" {
		name = "none"
	}
	path := filepath.Join(dir, fmt.Sprintf("session-%s-%s.json", name, time.Now().Format("20060102-150405")))

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	log.Printf("Result saved to %s", path)
	return nil
}

func printResponses(w io.Writer, results []*app.SessionResponse) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Archive", "Session", "Transactions", "Fraud", "Written", "Dropped", "Result"})

	for _, r := range results {
		archive := r.ArchiveType
		if archive == "" {
			archive = "-"
		}
		written, dropped := "-", "-"
		if r.Archive != nil {
			written = fmt.Sprint(r.Archive.Written)
			dropped = fmt.Sprint(r.Archive.Dropped)
		}
		result := "ok"
		if !r.Success {
			result = r.ErrorMessage
		}
		table.Append([]string{
			archive,
			r.SessionID,
			fmt.Sprint(r.Transactions),
			fmt.Sprint(r.Counters[metrics.CounterFraud]),
			written,
			dropped,
			result,
		})
	}
	table.Render()
}
