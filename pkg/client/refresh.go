package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/singleflight"
)

type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID          string `json:"id,omitempty"`
		FullName    string `json:"full_name,omitempty"`
		Role        string `json:"role,omitempty"`
		IndexNumber string `json:"index_number,omitempty"`
		StudentID   string `json:"student_id,omitempty"`
		StudentName string `json:"student_name,omitempty"`
	} `json:"user"`
}

// Refresher performs silent session refresh. Concurrent callers share one
// in-flight refresh round-trip.
type Refresher struct {
	baseURL string
	http    *http.Client
	store   *Store
	vault   *Vault
	group   singleflight.Group
}

// NewRefresher builds a refresher. The http client must carry a cookie jar
// for the standard flow to work.
func NewRefresher(baseURL string, httpClient *http.Client, store *Store, vault *Vault) *Refresher {
	return &Refresher{baseURL: baseURL, http: httpClient, store: store, vault: vault}
}

// Refresh attempts one silent refresh using whichever credential the vault
// resolves. On failure the guardian token is discarded and the session left
// signed out.
func (r *Refresher) Refresh(ctx context.Context) error {
	_, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		return nil, r.refreshOnce(ctx)
	})
	return err
}

// RestoreOnStart settles the session on startup: a session that already has
// a token needs no network, otherwise one refresh is attempted. Either way
// Loading flips false exactly once.
func (r *Refresher) RestoreOnStart(ctx context.Context) error {
	defer r.store.Settle()

	if r.store.Get().AccessToken != "" {
		return nil
	}
	return r.Refresh(ctx)
}

func (r *Refresher) refreshOnce(ctx context.Context) error {
	var err error
	switch cred := r.vault.Credential().(type) {
	case GuardianCredential:
		err = r.refreshGuardian(ctx, cred.Token)
	case StandardCredential:
		err = r.refreshStandard(ctx)
	default:
		err = fmt.Errorf("unknown credential type %T", cred)
	}

	if err != nil {
		_ = r.vault.SetGuardianToken("")
		r.store.Set(func(sess *Session) {
			sess.User = nil
			sess.Guardian = nil
			sess.AccessToken = ""
		})
	}
	return err
}

func (r *Refresher) refreshStandard(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/auth/refresh", nil)
	if err != nil {
		return err
	}

	payload, err := r.doSessionRequest(req)
	if err != nil {
		return err
	}

	r.store.Set(func(sess *Session) {
		sess.User = &Principal{
			ID:          payload.User.ID,
			FullName:    payload.User.FullName,
			Role:        payload.User.Role,
			IndexNumber: payload.User.IndexNumber,
		}
		sess.Guardian = nil
		sess.AccessToken = payload.AccessToken
	})
	return nil
}

func (r *Refresher) refreshGuardian(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/guardian/refresh", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	payload, err := r.doSessionRequest(req)
	if err != nil {
		return err
	}

	if err := r.vault.SetGuardianToken(payload.RefreshToken); err != nil {
		return fmt.Errorf("persist rotated guardian token: %w", err)
	}
	r.store.Set(func(sess *Session) {
		sess.User = nil
		sess.Guardian = &GuardianLink{
			StudentID:   payload.User.StudentID,
			StudentName: payload.User.StudentName,
		}
		sess.AccessToken = payload.AccessToken
	})
	return nil
}

func (r *Refresher) doSessionRequest(req *http.Request) (*sessionPayload, error) {
	res, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh rejected: %s", res.Status)
	}

	var envelope struct {
		Data sessionPayload `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if envelope.Data.AccessToken == "" {
		return nil, fmt.Errorf("refresh response missing access token")
	}
	return &envelope.Data, nil
}
