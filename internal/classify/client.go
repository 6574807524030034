package classify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/faxfinity/faxsort/internal/fax"
)

// Config holds the classification service connection and retry policy.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	MaxAttempts       int
	RetryBackoff      time.Duration
	RequestsPerMinute int
	MaxPages          int
}

// Client sends rendered fax pages to a vision-capable chat completion
// endpoint and parses the structured answer. Transient failures are retried
// with exponential backoff up to MaxAttempts; a rate limiter spaces calls out
// because vision endpoints tend to throttle aggressively.
type Client struct {
	api         *openai.Client
	model       string
	ownName     string
	timeout     time.Duration
	backoff     time.Duration
	maxAttempts int
	maxPages    int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a classifier client. ownName is passed into the prompt so
// the model does not mistake the recipient for the sender.
func NewClient(cfg Config, ownName string, logger *zap.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	if cfg.RequestsPerMinute <= 0 {
		perSecond = rate.Inf
	}

	return &Client{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		ownName:     ownName,
		timeout:     cfg.Timeout,
		backoff:     cfg.RetryBackoff,
		maxAttempts: cfg.MaxAttempts,
		maxPages:    cfg.MaxPages,
		limiter:     rate.NewLimiter(perSecond, 1),
		logger:      logger,
	}
}

// Classify renders the backed-up document and asks the vision model for
// category, sender, patient and document date.
func (c *Client) Classify(ctx context.Context, backupPath string) (fax.Classification, error) {
	pages, err := RenderPages(backupPath, c.maxPages)
	if err != nil {
		return fax.Classification{}, err
	}

	// A fresh request ID per document keeps the model from dragging
	// context between consecutive faxes.
	requestID := uuid.NewString()[:8]
	req := c.buildRequest(pages, requestID)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.backoff << (attempt - 2)
			c.logger.Warn("Retrying classification",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return fax.Classification{}, fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fax.Classification{}, fmt.Errorf("%w: %v", ErrTransient, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateChatCompletion(callCtx, req)
		cancel()

		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return fax.Classification{}, fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
			}
			if !isTransient(err) {
				return fax.Classification{}, fmt.Errorf("classification request failed: %w", err)
			}
			continue
		}

		if len(resp.Choices) == 0 {
			return fax.Classification{}, fmt.Errorf("%w: empty response", ErrParse)
		}

		content := resp.Choices[0].Message.Content
		c.logger.Debug("Classification response received",
			zap.String("request_id", requestID),
			zap.Int("content_length", len(content)))

		result, err := ParseResponse(content, c.ownName)
		if err != nil {
			return fax.Classification{}, err
		}

		c.logger.Info("Document classified",
			zap.String("request_id", requestID),
			zap.String("category", result.Category),
			zap.String("sender", result.Sender),
			zap.String("patient", result.Patient))
		return result, nil
	}

	return fax.Classification{}, fmt.Errorf("%w: %d attempts failed, last error: %v",
		ErrTransient, c.maxAttempts, lastErr)
}

func (c *Client) buildRequest(pages [][]byte, requestID string) openai.ChatCompletionRequest {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: c.buildUserPrompt(requestID),
	}}
	for _, page := range pages {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(page)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   1024,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: c.buildSystemPrompt(requestID),
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
}

func (c *Client) buildSystemPrompt(requestID string) string {
	return fmt.Sprintf(
		"Du bist ein Fax-Analyse-Assistent für eine Arztpraxis. "+
			"Dies ist eine NEUE, UNABHÄNGIGE Analyse (ID: %s). "+
			"Vergiss alles aus vorherigen Analysen komplett. "+
			"Analysiere NUR die beigefügten Bilder. "+
			"Der Empfänger ist '%s' — dieser Name darf NIEMALS als Absender "+
			"oder Patient in deiner Antwort erscheinen. "+
			"Antworte AUSSCHLIESSLICH im JSON-Format. "+
			"Verwende KEINE Beispielnamen — nur das, was du tatsächlich im Dokument liest.",
		requestID, c.ownName)
}

func (c *Client) buildUserPrompt(requestID string) string {
	return fmt.Sprintf(
		"Analysiere dieses Fax-Dokument (ID: %s).\n\n"+
			"Lies das Dokument aufmerksam und identifiziere:\n\n"+
			"1. KATEGORIE — wähle die passendste:\n"+
			"   Arztbrief, Labor, Medikationsplan, Sturzprotokoll, Rezeptanforderung, "+
			"Bestellung, Werbung, Kommunikation, Überweisung, Befund\n"+
			"   Falls keine passt, erfinde eine kurze treffende Kategorie.\n\n"+
			"2. ABSENDER — wer hat das Fax gesendet?\n"+
			"   Lies den tatsächlichen Namen und ggf. Fachrichtung aus dem Dokument.\n"+
			"   Der Empfänger '%s' ist NICHT der Absender!\n\n"+
			"3. PATIENT — Nachname des Patienten, falls im Dokument erkennbar.\n\n"+
			"4. DATUM — das Dokumentdatum im Format JJJJ-MM-TT, falls erkennbar.\n\n"+
			"Antworte NUR mit diesem JSON, sonst nichts:\n"+
			`{"kategorie": "...", "absender": "...", "patient": "...", "datum": "..."}`,
		requestID, c.ownName)
}

// isTransient reports whether an API error is worth retrying: rate limits,
// server errors, and anything network-level (refused, reset, timed out).
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Per-call deadline expiry surfaces as context.DeadlineExceeded.
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, net.ErrClosed)
}
