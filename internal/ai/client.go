// Package ai generates unified-diff fixes and commit messages through the
// Anthropic API. A malformed response is reported as an error so the engine
// counts it as a failed fix attempt, never a fatal one.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"

	"github.com/lucasnoah/preflight/internal/engine"
)

const (
	// DefaultModel is used when the config does not name one.
	DefaultModel = "claude-3-5-haiku-latest"

	defaultMaxTokens = 2048
	retryMaxElapsed  = 30 * time.Second
)

// errAPIKeyRequired is returned when no API key is available.
var errAPIKeyRequired = errors.New("API key required")

// Client calls the Anthropic API. Zero value is not valid; use NewClient.
type Client struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClient builds a Client. Env var ANTHROPIC_API_KEY takes precedence
// over the explicit apiKey. Model and maxTokens fall back to defaults when
// zero.
func NewClient(apiKey, model string, maxTokens int) (*Client, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or configure ai.api_key", errAPIKeyRequired)
	}
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
	}, nil
}

// RequestFix asks for a unified-diff patch repairing the failing step.
func (c *Client) RequestFix(ctx context.Context, req engine.FixRequest) (*engine.Patch, error) {
	text, err := c.call(ctx, buildFixPrompt(req))
	if err != nil {
		return nil, err
	}
	diff := ExtractDiff(text)
	if diff == "" {
		return nil, fmt.Errorf("response for %s step contained no unified diff", req.Step)
	}
	return &engine.Patch{
		Kind: engine.PatchKindUnifiedDiff,
		Diff: diff,
		Meta: &engine.PatchMeta{
			ProducedBy: string(c.model),
			Step:       string(req.Step),
		},
	}, nil
}

// CommitMessage generates a conventional commit message from the journal
// entries and the staged diff stat.
func (c *Client) CommitMessage(ctx context.Context, entries []string, diffStat string) (string, error) {
	var b strings.Builder
	b.WriteString("Write a concise git commit message (subject line plus optional body) for the following pending changes.\n")
	b.WriteString("Respond with the message only, no fences and no commentary.\n\nPending changes:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	if diffStat != "" {
		b.WriteString("\nStaged diff stat:\n")
		b.WriteString(diffStat)
		b.WriteString("\n")
	}
	text, err := c.call(ctx, b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func buildFixPrompt(req engine.FixRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The %s step of a pre-flight pipeline failed. Produce a minimal fix as a unified diff.\n\n", req.Step)
	b.WriteString("Requirements:\n")
	b.WriteString("- Paths must be repository-relative with the standard a/ and b/ prefixes.\n")
	b.WriteString("- Output only the diff, inside a ```diff fence.\n\n")
	if req.FilePath != "" {
		fmt.Fprintf(&b, "File: %s\n\n", req.FilePath)
	}
	b.WriteString("Error output:\n")
	b.WriteString(req.ErrorMessage)
	b.WriteString("\n")
	if req.CodeSnippet != "" {
		b.WriteString("\nRelevant code:\n")
		b.WriteString(req.CodeSnippet)
		b.WriteString("\n")
	}
	return b.String()
}

// call sends one prompt, retrying transient failures with exponential
// backoff. BackOff instances are stateful; a fresh one is built per call.
func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed

	var out string
	err := backoff.Retry(func() error {
		message, err := c.client.Messages.New(ctx, params)
		if err != nil {
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(message.Content) == 0 {
			return backoff.Permanent(fmt.Errorf("unexpected response format: no content blocks"))
		}
		content := message.Content[0]
		if content.Type != "text" {
			return backoff.Permanent(fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type))
		}
		out = content.Text
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	return out, nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
