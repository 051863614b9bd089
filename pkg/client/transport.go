package client

import (
	"net/http"
)

// authTransport injects the session's bearer token into outgoing requests
// and retries exactly once after a silent refresh when the server rejects
// the token.
type authTransport struct {
	base      http.RoundTripper
	store     *Store
	refresher *Refresher
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.transport().RoundTrip(t.authorize(req))
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusUnauthorized && res.StatusCode != http.StatusForbidden {
		return res, nil
	}
	if req.Body != nil && req.GetBody == nil {
		return res, nil
	}

	if refreshErr := t.refresher.Refresh(req.Context()); refreshErr != nil {
		// The caller sees the original auth failure, not the refresh error.
		return res, nil
	}

	retry := t.authorize(req)
	if retry.GetBody != nil {
		body, err := retry.GetBody()
		if err != nil {
			return res, nil
		}
		retry.Body = body
	}
	res.Body.Close()
	return t.transport().RoundTrip(retry)
}

func (t *authTransport) transport() http.RoundTripper {
	if t.base != nil {
		return t.base
	}
	return http.DefaultTransport
}

// authorize clones the request with the current access token. A request that
// already carries an Authorization header is forwarded untouched.
func (t *authTransport) authorize(req *http.Request) *http.Request {
	if req.Header.Get("Authorization") != "" {
		return req
	}
	token := t.store.Get().AccessToken
	if token == "" {
		return req
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return clone
}
