package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goclaw/livecheck/pkg/api/models"
	"github.com/goclaw/livecheck/pkg/api/response"
)

type sendOptions struct {
	server  string
	key     string
	value   string
	timeout time.Duration
}

func newSendCmd(_ *rootOptions) *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send CASE SIGNAL",
		Short: "Send a signal through a running livecheck server",
		Example: `  livecheck send checkout paid --key order-1042 --value '{"amount": 12}'
  livecheck send checkout shipped --key order-1042 --value '"ups"' --server http://livecheck:8080`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			resp, err := publish(ctx, http.DefaultClient, opts.server, args[0], args[1], opts.key, opts.value)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s/%s key=%s event=%s\n", resp.Case, resp.Signal, resp.Key, resp.EventID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.server, "server", "http://localhost:8080", "Base URL of the livecheck server")
	f.StringVarP(&opts.key, "key", "k", "", "Correlation key")
	f.StringVar(&opts.value, "value", "null", "JSON payload")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

// publish posts one event to the publish endpoint of server.
func publish(ctx context.Context, client *http.Client, server, caseName, signalName, key, value string) (*models.PublishResponse, error) {
	if !json.Valid([]byte(value)) {
		return nil, fmt.Errorf("value is not valid JSON: %s", value)
	}
	body, err := json.Marshal(models.PublishRequest{Key: key, Value: json.RawMessage(value)})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(server, "/") + "/api/v1/cases/" + url.PathEscape(caseName) +
		"/signals/" + url.PathEscape(signalName) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("publish: read response: %w", err)
	}

	if res.StatusCode != http.StatusAccepted {
		var apiErr response.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Code != "" {
			return nil, fmt.Errorf("publish: %s: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("publish: unexpected status %d", res.StatusCode)
	}

	var out models.PublishResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("publish: decode response: %w", err)
	}
	if out.EventID == "" {
		return nil, errors.New("publish: response has no event id")
	}
	return &out, nil
}
