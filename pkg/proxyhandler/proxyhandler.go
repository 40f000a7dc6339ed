// Package proxyhandler implements the authenticated chat-completions proxy:
// it selects a healthy channel, converts the canonical request into that
// channel's provider wire format, forwards it upstream, and converts the
// response (streamed or not) back to the canonical shape.
package proxyhandler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/channel"
	"github.com/Abraxas-365/manifesto/pkg/convert"
	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/iam"
	"github.com/Abraxas-365/manifesto/pkg/iam/auth"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

const maxRetries = 3

// Handler wires the channel manager and the conversion registry into one
// HTTP-facing chat-completions endpoint.
type Handler struct {
	manager    *channel.Manager
	converters *convert.Registry
	vault      *channel.Vault
	limiter    channel.RateLimiter
	httpClient *http.Client
}

func NewHandler(manager *channel.Manager, converters *convert.Registry, vault *channel.Vault, limiter channel.RateLimiter) *Handler {
	return &Handler{
		manager:    manager,
		converters: converters,
		vault:      vault,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ChatCompletions handles POST /v1/chat/completions. It retries up to
// maxRetries times against a fresh channel on any upstream or transport
// failure, excluding failed channels from the next attempt.
func (h *Handler) ChatCompletions(c *fiber.Ctx) error {
	authContext, ok := auth.FromContext(c)
	if !ok || authContext == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": iam.ErrUnauthorized().Error()})
	}

	var req convert.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Model == "" || len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "model and messages are required"})
	}

	ctx := c.Context()
	var excluded []string
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		ch, err := h.manager.Select(ctx, req.Model, authContext.TenantID, toChannelIDs(excluded))
		if err != nil {
			lastErr = err
			break
		}

		if h.limiter != nil && ch.MaxRequestsPerMin > 0 {
			allowed, rlErr := h.limiter.Allow(ctx, ch.ID, ch.MaxRequestsPerMin)
			if rlErr == nil && !allowed {
				excluded = append(excluded, ch.ID.String())
				continue
			}
		}

		if req.Stream {
			err = h.proxyStream(c, ch, req)
		} else {
			err = h.proxyOnce(c, ch, req)
		}
		if err == nil {
			return nil
		}

		lastErr = err
		excluded = append(excluded, ch.ID.String())
		logx.WithFields(logx.Fields{"channel_id": ch.ID.String(), "attempt": attempt, "error": err.Error()}).
			Warn("proxyhandler: upstream attempt failed, retrying on another channel")
	}

	if lastErr == nil {
		lastErr = channel.ErrNoHealthyChannel()
	}
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": lastErr.Error()})
}

func toChannelIDs(ids []string) []kernel.ChannelID {
	out := make([]kernel.ChannelID, len(ids))
	for i, id := range ids {
		out[i] = kernel.NewChannelID(id)
	}
	return out
}

func (h *Handler) proxyOnce(c *fiber.Ctx, ch *channel.Channel, req convert.ChatRequest) error {
	credential, err := h.vault.Open(ch.EncryptedCredential)
	if err != nil {
		return err
	}

	providerReq, err := h.converters.ToProviderRequest(ch.ID.String(), ch.ProviderType, req)
	if err != nil {
		return err
	}

	body, err := json.Marshal(providerReq.Params)
	if err != nil {
		return errx.Wrap(err, "failed to marshal provider request", errx.TypeInternal)
	}

	httpReq, err := h.buildUpstreamRequest(c.Context(), ch, credential, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := h.httpClient.Do(httpReq)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		h.manager.RecordResult(ch.ID, elapsed, false)
		return errx.Wrap(err, "upstream request failed", errx.TypeExternal)
	}
	defer resp.Body.Close()

	raw, err := decodeJSONBody(resp)
	if err != nil || resp.StatusCode >= 400 {
		h.manager.RecordResult(ch.ID, elapsed, false)
		if err != nil {
			return err
		}
		return fmt.Errorf("proxyhandler: upstream returned status %d", resp.StatusCode)
	}
	h.manager.RecordResult(ch.ID, elapsed, true)

	canonical, err := h.converters.FromProviderResponse(ch.ProviderType, raw)
	if err != nil {
		return err
	}
	return c.JSON(canonical)
}

func (h *Handler) buildUpstreamRequest(ctx context.Context, ch *channel.Channel, credential string, body []byte) (*http.Request, error) {
	url := strings.TrimRight(ch.BaseURL, "/") + providerPath(ch.ProviderType)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errx.Wrap(err, "failed to build upstream request", errx.TypeInternal)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	applyAuthHeader(httpReq, ch.ProviderType, credential)
	return httpReq, nil
}

func providerPath(providerType string) string {
	switch providerType {
	case "anthropic":
		return "/v1/messages"
	default:
		return "/v1/chat/completions"
	}
}

func applyAuthHeader(req *http.Request, providerType, credential string) {
	switch providerType {
	case "anthropic":
		req.Header.Set("x-api-key", credential)
		req.Header.Set("anthropic-version", "2023-06-01")
	default:
		req.Header.Set("Authorization", "Bearer "+credential)
	}
}

func decodeJSONBody(resp *http.Response) (map[string]any, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errx.Wrap(err, "failed to read upstream response", errx.TypeExternal)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errx.Wrap(err, "failed to decode upstream response", errx.TypeExternal).
			WithDetail("body", string(data))
	}
	return raw, nil
}

// sseDataPrefix is the line prefix providers use to frame SSE payloads.
const sseDataPrefix = "data: "

func (h *Handler) proxyStream(c *fiber.Ctx, ch *channel.Channel, req convert.ChatRequest) error {
	credential, err := h.vault.Open(ch.EncryptedCredential)
	if err != nil {
		return err
	}

	providerReq, err := h.converters.ToProviderRequest(ch.ID.String(), ch.ProviderType, req)
	if err != nil {
		return err
	}
	providerReq.Params["stream"] = true

	body, err := json.Marshal(providerReq.Params)
	if err != nil {
		return errx.Wrap(err, "failed to marshal provider request", errx.TypeInternal)
	}

	httpReq, err := h.buildUpstreamRequest(c.Context(), ch, credential, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		h.manager.RecordResult(ch.ID, float64(time.Since(start).Milliseconds()), false)
		return errx.Wrap(err, "upstream stream request failed", errx.TypeExternal)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		h.manager.RecordResult(ch.ID, float64(time.Since(start).Milliseconds()), false)
		return fmt.Errorf("proxyhandler: upstream returned status %d", resp.StatusCode)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	providerType := ch.ProviderType
	converters := h.converters
	manager := h.manager
	channelID := ch.ID

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer resp.Body.Close()
		firstByteSeen := false
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !firstByteSeen {
				manager.RecordResult(channelID, float64(time.Since(start).Milliseconds()), true)
				firstByteSeen = true
			}
			if !strings.HasPrefix(line, sseDataPrefix) {
				continue
			}
			payload := strings.TrimPrefix(line, sseDataPrefix)
			if payload == "[DONE]" {
				fmt.Fprintf(w, "data: [DONE]\n\n")
				w.Flush()
				break
			}

			var raw map[string]any
			if err := json.Unmarshal([]byte(payload), &raw); err != nil {
				continue
			}
			chunk, err := converters.FromProviderStreamChunk(providerType, raw)
			if err != nil || chunk == nil {
				continue
			}
			encoded, err := json.Marshal(chunk)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", encoded)
			if err := w.Flush(); err != nil {
				return
			}
		}
		if !firstByteSeen {
			manager.RecordResult(channelID, float64(time.Since(start).Milliseconds()), false)
		}
	})

	return nil
}
