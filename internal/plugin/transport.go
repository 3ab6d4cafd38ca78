package plugin

import (
	"net/http"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/dispatch"
)

// keyedTransport pins the loader's API key onto every request.
type keyedTransport struct {
	key  string
	next http.RoundTripper
}

func (t *keyedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(dispatch.WithAPIKey(req.Context(), t.key)))
}
