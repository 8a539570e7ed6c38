package sessions

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "time"

    xhttp "LoadCoach/pkg/http"
)

// HTTPServiceBase wraps the shared JSON client with a base URL and retries.
type HTTPServiceBase struct {
    baseURL  string
    client   *xhttp.Client
    attempts int
}

// NewHTTPServiceBase builds a client for baseURL. token, when set, is sent as a bearer token.
func NewHTTPServiceBase(baseURL, token string, timeout time.Duration, attempts int) *HTTPServiceBase {
    if timeout <= 0 {
        timeout = 3 * time.Second
    }
    opts := []xhttp.ClientOption{xhttp.WithTimeout(timeout)}
    if token != "" {
        opts = append(opts, xhttp.WithHeader("Authorization", "Bearer "+token))
    }
    return &HTTPServiceBase{
        baseURL:  baseURL,
        client:   xhttp.NewClient(opts...),
        attempts: attempts,
    }
}

// GetJSON issues a GET for path under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
    if b.client == nil || b.baseURL == "" {
        return fmt.Errorf("session http client not initialized")
    }
    err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
        Method:      http.MethodGet,
        URL:         b.baseURL + path,
        QueryParams: query,
    }, dest)
    if err != nil {
        return fmt.Errorf("get %s: %w", path, err)
    }
    return nil
}

// GetJSONWithRetry retries transport errors and 5xx answers; 4xx fail at once.
func (b *HTTPServiceBase) GetJSONWithRetry(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
    var err error
    for i := 1; ; i++ {
        err = b.GetJSON(ctx, path, query, dest)
        if err == nil || i >= b.attempts || !retryable(err) {
            return err
        }
        select {
        case <-time.After(time.Duration(i) * 50 * time.Millisecond):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
}

func retryable(err error) bool {
    var se *xhttp.StatusError
    if errors.As(err, &se) {
        return se.StatusCode >= 500
    }
    return !errors.Is(err, context.Canceled)
}
