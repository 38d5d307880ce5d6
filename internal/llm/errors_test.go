package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"docassist/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"googleapi 429", &googleapi.Error{Code: http.StatusTooManyRequests}, domain.ErrRateLimited},
		{"googleapi 503", &googleapi.Error{Code: http.StatusServiceUnavailable}, domain.ErrServiceUnavailable},
		{"ollama 500", api.StatusError{StatusCode: 500, Status: "500 Internal Server Error"}, domain.ErrServiceUnavailable},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), domain.ErrRateLimited},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), domain.ErrServiceUnavailable},
		{"deadline", context.DeadlineExceeded, domain.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("svc", tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.True(t, domain.IsTransient(got))
		})
	}
}

func TestClassify_Permanent(t *testing.T) {
	assert.Nil(t, Classify("svc", nil))

	got := Classify("svc", &googleapi.Error{Code: http.StatusBadRequest})
	assert.False(t, domain.IsTransient(got))

	got = Classify("svc", errors.New("boom"))
	assert.EqualError(t, got, "svc: boom")

	assert.ErrorIs(t, Classify("svc", context.Canceled), context.Canceled)
	assert.False(t, domain.IsTransient(Classify("svc", context.Canceled)))
}
