package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"babelroom/domain"
	apperrors "babelroom/errors"
)

// HTTPProvider talks to a LibreTranslate-style translation backend over
// JSON. Every call is bounded by a per-call timeout and a small fixed
// attempt count; beyond that the key is left unresolved for a later
// explicit request.
type HTTPProvider struct {
	baseURL     string
	client      *http.Client
	callTimeout time.Duration
	maxAttempts int
	log         *slog.Logger
}

func NewHTTPProvider(log *slog.Logger, baseURL string, callTimeout time.Duration, maxAttempts int) *HTTPProvider {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &HTTPProvider{
		baseURL:     baseURL,
		client:      &http.Client{},
		callTimeout: callTimeout,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

type translateRequest struct {
	Text   string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target,omitempty"`
	Format string `json:"format"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

type translateAllResponse struct {
	Translations map[string]string `json:"translations"`
}

// Translate converts one text into one target language.
func (p *HTTPProvider) Translate(ctx context.Context, text string, source, target domain.Language) (string, error) {
	body, err := p.call(ctx, "/translate", translateRequest{
		Text:   text,
		Source: string(source),
		Target: string(target),
		Format: "text",
	})
	if err != nil {
		return "", err
	}
	var resp translateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", apperrors.ErrProviderUnavailable, err)
	}
	return resp.TranslatedText, nil
}

// TranslateAll converts one text into every supported language in a
// single round trip. Codes outside the supported set in the response
// are dropped at this boundary.
func (p *HTTPProvider) TranslateAll(ctx context.Context, text string, source domain.Language) (map[domain.Language]string, error) {
	body, err := p.call(ctx, "/translate/all", translateRequest{
		Text:   text,
		Source: string(source),
		Format: "text",
	})
	if err != nil {
		return nil, err
	}
	var resp translateAllResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", apperrors.ErrProviderUnavailable, err)
	}
	result := make(map[domain.Language]string, len(resp.Translations))
	for code, translated := range resp.Translations {
		lang, err := domain.ParseLanguage(code)
		if err != nil {
			p.log.Debug("Dropping unsupported language in provider response", "code", code)
			continue
		}
		result[lang] = translated
	}
	return result, nil
}

func (p *HTTPProvider) call(ctx context.Context, path string, req translateRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		body, err := p.once(ctx, path, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		p.log.Debug("Provider call failed",
			"path", path, "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

func (p *HTTPProvider) once(ctx context.Context, path string, payload []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrProviderUnavailable, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
