package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"go.uber.org/zap"

	"docassist/internal/domain"
	"docassist/internal/retry"
)

// OllamaClient builds an Ollama API client for host, falling back to OLLAMA_HOST.
func OllamaClient(host string) (*api.Client, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid ollama host %q: %v", domain.ErrConfiguration, host, err)
		}
		hostURL = u
	}
	return api.NewClient(hostURL, http.DefaultClient), nil
}

// Ollama generates text with a locally served model.
type Ollama struct {
	client      *api.Client
	model       string
	temperature float32
	timeout     time.Duration
	policy      retry.Policy
	log         *zap.Logger
}

func NewOllama(client *api.Client, model string, temperature float32, timeout time.Duration, log *zap.Logger) *Ollama {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ollama{client: client, model: model, temperature: temperature, timeout: timeout, policy: retry.Default, log: log}
}

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := retry.Do(ctx, o.policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		stream := false
		req := api.GenerateRequest{
			Model:  o.model,
			Prompt: prompt,
			Stream: &stream,
			Options: map[string]interface{}{
				"temperature": o.temperature,
			},
		}
		var responseBuilder strings.Builder
		err := o.client.Generate(callCtx, &req, func(resp api.GenerateResponse) error {
			_, err := responseBuilder.WriteString(resp.Response)
			return err
		})
		if err != nil {
			err = Classify("ollama generate", err)
			if domain.IsTransient(err) {
				o.log.Warn("ollama generate failed", zap.Error(err))
			}
			return err
		}
		out = responseBuilder.String()
		return nil
	})
	return out, err
}
