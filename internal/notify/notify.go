// Package notify announces stored mutation proposals to reviewers.
// Delivery is best-effort; a notification failure never fails the cycle
// that produced the proposal.
package notify

import (
	"bytes"
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sitelore/evolvd/pkg/models"
)

// Config holds notification settings. An empty WebhookURL selects
// log-only notifications.
type Config struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default notification settings.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
	}
}

// Notifier announces a proposal that awaits review.
type Notifier interface {
	NotifyProposal(ctx context.Context, proposal *models.MutationProposal)
}

// New returns a webhook notifier when a URL is configured, otherwise a
// log-only notifier.
func New(cfg Config, logger zerolog.Logger) Notifier {
	if cfg.WebhookURL == "" {
		return NewLogNotifier(logger)
	}
	return NewWebhookNotifier(cfg, logger)
}

// LogNotifier records proposals in the service log only.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

// NotifyProposal logs the proposal summary.
func (n *LogNotifier) NotifyProposal(_ context.Context, proposal *models.MutationProposal) {
	n.logger.Info().
		Str("prompt_id", proposal.PromptID).
		Int("original_version", proposal.OriginalVersion).
		Int("new_version", proposal.NewVersion).
		Float64("success_rate", proposal.PerformanceSummary.SuccessRate).
		Float64("edit_rate", proposal.PerformanceSummary.EditRate).
		Msg("Mutation proposal awaiting review")
}

// WebhookNotifier POSTs a proposal summary to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg Config, logger zerolog.Logger) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &WebhookNotifier{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// proposalNotification is the webhook payload. It carries the summary,
// not the full prompt texts; reviewers fetch those from the API.
type proposalNotification struct {
	PromptID          string    `json:"promptId"`
	OriginalVersion   int       `json:"originalVersion"`
	NewVersion        int       `json:"newVersion"`
	SuccessRate       float64   `json:"successRate"`
	EditRate          float64   `json:"editRate"`
	TotalInteractions int       `json:"totalInteractions"`
	ProposedAt        time.Time `json:"proposedAt"`
}

// NotifyProposal delivers the summary. Errors are logged, never returned.
func (n *WebhookNotifier) NotifyProposal(ctx context.Context, proposal *models.MutationProposal) {
	payload := proposalNotification{
		PromptID:          proposal.PromptID,
		OriginalVersion:   proposal.OriginalVersion,
		NewVersion:        proposal.NewVersion,
		SuccessRate:       proposal.PerformanceSummary.SuccessRate,
		EditRate:          proposal.PerformanceSummary.EditRate,
		TotalInteractions: proposal.PerformanceSummary.TotalInteractions,
		ProposedAt:        proposal.ProposedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to encode proposal notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to build proposal notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn().Err(err).Str("prompt_id", proposal.PromptID).Msg("Proposal webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn().
			Int("status", resp.StatusCode).
			Str("prompt_id", proposal.PromptID).
			Msg("Proposal webhook returned an error status")
		return
	}

	n.logger.Debug().Str("prompt_id", proposal.PromptID).Msg("Proposal webhook delivered")
}
