package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/ollama/ollama/api"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"docassist/internal/domain"
)

// Classify wraps a client error from Gemini, Ollama or a gRPC backend in
// ErrRateLimited or ErrServiceUnavailable when the failure is transient.
// Other errors are wrapped with the service name only.
func Classify(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrServiceUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", domain.ErrServiceUnavailable, service, err)
	}
	if sentinel := sentinelFor(err); sentinel != nil {
		return fmt.Errorf("%w: %s: %v", sentinel, service, err)
	}
	return fmt.Errorf("%s: %w", service, err)
}

func sentinelFor(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fromHTTP(gerr.Code)
	}
	var aerr *apierror.APIError
	if errors.As(err, &aerr) {
		if code := aerr.HTTPCode(); code > 0 {
			return fromHTTP(code)
		}
		if st := aerr.GRPCStatus(); st != nil {
			return fromGRPC(st.Code())
		}
	}
	var serr api.StatusError
	if errors.As(err, &serr) {
		return fromHTTP(serr.StatusCode)
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return fromGRPC(st.Code())
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return domain.ErrServiceUnavailable
	}
	return nil
}

func fromHTTP(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case code >= 500, code == http.StatusRequestTimeout:
		return domain.ErrServiceUnavailable
	}
	return nil
}

func fromGRPC(code codes.Code) error {
	switch code {
	case codes.ResourceExhausted:
		return domain.ErrRateLimited
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
		return domain.ErrServiceUnavailable
	}
	return nil
}
