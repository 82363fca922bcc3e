package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/msabramo/langchaingang/internal/httpclient"
	"github.com/msabramo/langchaingang/pkg/providers/common"
)

// readDocument reads the document to summarize from a local file, or
// fetches it when the argument is an http(s) URL.
func readDocument(ctx context.Context, nameOrURL string, timeout time.Duration) (string, error) {
	if strings.HasPrefix(nameOrURL, "http://") || strings.HasPrefix(nameOrURL, "https://") {
		hc := httpclient.New(httpclient.Config{Timeout: timeout, UserAgent: common.UserAgent})
		resp, err := hc.Get(ctx, nameOrURL)
		if err != nil {
			return "", fmt.Errorf("fetching document: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetching document: HTTP %d from %s", resp.StatusCode, nameOrURL)
		}
		return string(resp.Body), nil
	}

	data, err := os.ReadFile(nameOrURL)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return string(data), nil
}
