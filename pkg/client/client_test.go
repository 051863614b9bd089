package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(baseURL, filepath.Join(t.TempDir(), "vault.json"))
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
}

func TestRestoreOnStartWithoutSessionSettlesSignedOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var mu sync.Mutex
	var loadingFlips int
	prev := true
	cancel := c.Subscribe(func(sess Session) {
		mu.Lock()
		defer mu.Unlock()
		if prev && !sess.Loading {
			loadingFlips++
		}
		prev = sess.Loading
	})
	defer cancel()

	require.True(t, c.Session().Loading)
	require.Error(t, c.RestoreOnStart(context.Background()))

	sess := c.Session()
	assert.False(t, sess.Loading)
	assert.Nil(t, sess.User)
	assert.Nil(t, sess.Guardian)
	assert.Empty(t, sess.AccessToken)

	// Further refresh failures never flip Loading again.
	require.Error(t, c.refresher.Refresh(context.Background()))
	c.store.Settle()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, loadingFlips)
}

func TestGuardWaitsWhileLoading(t *testing.T) {
	loading := Session{Loading: true}
	routes := []Route{
		{Path: "/planner", Roles: []string{"Student"}},
		{Path: "/guardian/queue", Guardian: true},
		{Path: "/admin/users", Roles: []string{"Admin"}},
	}
	for _, route := range routes {
		assert.Equal(t, Wait, Decide(loading, route).Verdict, route.Path)
	}

	// Public routes pass regardless.
	assert.Equal(t, Allow, Decide(loading, Route{Path: "/login", Public: true}).Verdict)
}

func TestGuardDecisions(t *testing.T) {
	student := Session{
		User:        &Principal{ID: "u1", Role: "Student"},
		AccessToken: "tok",
	}
	guardian := Session{
		Guardian:    &GuardianLink{StudentID: "s1", StudentName: "Ama"},
		AccessToken: "tok",
	}
	anonymous := Session{}

	tests := []struct {
		name    string
		sess    Session
		route   Route
		verdict Verdict
	}{
		{"student on student route", student, Route{Path: "/planner", Roles: []string{"Student"}}, Allow},
		{"student on admin route", student, Route{Path: "/users", Roles: []string{"Admin"}}, RedirectUnauthorized},
		{"guardian on guardian route", guardian, Route{Path: "/queue", Guardian: true}, Allow},
		{"guardian on role route", guardian, Route{Path: "/planner", Roles: []string{"Student"}}, RedirectUnauthorized},
		{"anonymous on guardian route", anonymous, Route{Path: "/queue", Guardian: true}, RedirectLogin},
		{"anonymous on role route", anonymous, Route{Path: "/planner", Roles: []string{"Student"}}, RedirectLogin},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(tc.sess, tc.route)
			assert.Equal(t, tc.verdict, decision.Verdict)
			assert.Equal(t, tc.route.Path, decision.From)
		})
	}
}

func TestReviewPlannerDeclineRequiresComment(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeEnvelope(w, http.StatusOK, Planner{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.store.Set(func(s *Session) { s.AccessToken = "tok" })

	_, err := c.ReviewPlanner(context.Background(), "p1", false, "   ")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "COMMENT_REQUIRED", apiErr.Code)
	assert.Zero(t, atomic.LoadInt32(&requests), "no request may be issued for a blank decline")
}

// fakePlannerServer holds one planner and applies the same transition rules
// the API enforces.
type fakePlannerServer struct {
	mu           sync.Mutex
	planner      *Planner
	refreshCount int32
	accessToken  string
}

func (f *fakePlannerServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.refreshCount, 1)
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"access_token": f.accessToken,
			"expires_in":   900,
			"user":         map[string]string{"id": "u1", "full_name": "Kofi Mensah", "role": "Student"},
		})
	})

	mux.HandleFunc("/api/student/daily-planner", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if f.planner == nil {
				writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "no planner for that date")
				return
			}
			writeEnvelope(w, http.StatusOK, f.planner)
		case http.MethodPut:
			var content PlannerContent
			if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
				writeAPIError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			if f.planner != nil && !editable(f.planner.Status) {
				writeAPIError(w, http.StatusConflict, "PLANNER_LOCKED", "planner is awaiting review")
				return
			}
			date, _ := time.Parse("2006-01-02", content.Date)
			if f.planner == nil {
				f.planner = &Planner{ID: "p1", StudentID: "s1", Date: date}
			}
			f.planner.Status = "Pending"
			f.planner.TodaysGoal = content.TodaysGoal
			f.planner.SelfReflection = content.SelfReflection
			writeEnvelope(w, http.StatusOK, f.planner)
		}
	})

	mux.HandleFunc("/api/student/daily-planner/p1/recall", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.planner == nil || f.planner.Status != "Pending" {
			writeAPIError(w, http.StatusConflict, "INVALID_TRANSITION", "only a pending planner can be recalled")
			return
		}
		f.planner.Status = "RecalledByStudent"
		writeEnvelope(w, http.StatusOK, f.planner)
	})

	mux.HandleFunc("/api/guardian/approve-planner/p1", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.planner == nil || f.planner.Status != "Pending" {
			writeAPIError(w, http.StatusConflict, "INVALID_TRANSITION", "planner is not awaiting a signature")
			return
		}
		var body struct {
			Signature string `json:"signature"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.planner.Status = "GuardianApproved"
		f.planner.GuardianSignature = &body.Signature
		writeEnvelope(w, http.StatusOK, f.planner)
	})

	mux.HandleFunc("/api/teacher/review-planner/p1", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.planner == nil || f.planner.Status != "GuardianApproved" {
			writeAPIError(w, http.StatusConflict, "INVALID_TRANSITION", "planner is not awaiting review")
			return
		}
		var body struct {
			Approve bool   `json:"approve"`
			Comment string `json:"comment"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Approve {
			f.planner.Status = "TeacherApproved"
		} else {
			f.planner.Status = "TeacherDeclined"
			f.planner.TeacherDeclineComment = &body.Comment
		}
		writeEnvelope(w, http.StatusOK, f.planner)
	})

	return mux
}

func editable(status string) bool {
	switch status {
	case "", "Pending", "RecalledByStudent", "TeacherDeclined":
		return true
	default:
		return false
	}
}

func TestGuardianApproveIsIdempotentlyRejected(t *testing.T) {
	fake := &fakePlannerServer{planner: &Planner{ID: "p1", StudentID: "s1", Status: "Pending"}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.store.Set(func(s *Session) { s.AccessToken = "tok" })

	planner, err := c.ApprovePlanner(context.Background(), "p1", "G. Mensah")
	require.NoError(t, err)
	assert.Equal(t, "GuardianApproved", planner.Status)
	require.NotNil(t, planner.GuardianSignature)
	assert.Equal(t, "G. Mensah", *planner.GuardianSignature)

	// A second approval conflicts and leaves the planner unchanged.
	_, err = c.ApprovePlanner(context.Background(), "p1", "G. Mensah")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "GuardianApproved", fake.planner.Status)
}

func TestPlannerRecallRoundTrip(t *testing.T) {
	fake := &fakePlannerServer{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.store.Set(func(s *Session) { s.AccessToken = "tok" })
	ctx := context.Background()

	planner, err := c.SavePlanner(ctx, PlannerContent{Date: "2024-05-01", TodaysGoal: "finish chapter 4"})
	require.NoError(t, err)
	assert.Equal(t, "Pending", planner.Status)

	planner, err = c.RecallPlanner(ctx, planner.ID)
	require.NoError(t, err)
	assert.Equal(t, "RecalledByStudent", planner.Status)

	planner, err = c.SavePlanner(ctx, PlannerContent{Date: "2024-05-01", TodaysGoal: "finish chapter 5"})
	require.NoError(t, err)
	assert.Equal(t, "Pending", planner.Status)
	assert.Equal(t, "finish chapter 5", planner.TodaysGoal)
}

func TestPlannerFullApprovalFlow(t *testing.T) {
	fake := &fakePlannerServer{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.store.Set(func(s *Session) { s.AccessToken = "tok" })
	ctx := context.Background()

	_, err := c.SavePlanner(ctx, PlannerContent{Date: "2024-05-01", TodaysGoal: "revise fractions"})
	require.NoError(t, err)

	planner, err := c.ApprovePlanner(ctx, "p1", "A. Owusu")
	require.NoError(t, err)
	assert.Equal(t, "GuardianApproved", planner.Status)

	// The planner is locked against edits until the teacher decides.
	_, err = c.SavePlanner(ctx, PlannerContent{Date: "2024-05-01", TodaysGoal: "changed my mind"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PLANNER_LOCKED", apiErr.Code)

	planner, err = c.ReviewPlanner(ctx, "p1", false, "add your reading list")
	require.NoError(t, err)
	assert.Equal(t, "TeacherDeclined", planner.Status)
	require.NotNil(t, planner.TeacherDeclineComment)
	assert.Equal(t, "add your reading list", *planner.TeacherDeclineComment)

	// Declined planners are editable again and resubmission restarts the flow.
	planner, err = c.SavePlanner(ctx, PlannerContent{Date: "2024-05-01", TodaysGoal: "revise fractions", SelfReflection: "added reading list"})
	require.NoError(t, err)
	assert.Equal(t, "Pending", planner.Status)
}

func TestConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	const fresh = "fresh-token"
	var refreshes int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		time.Sleep(50 * time.Millisecond)
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"access_token": fresh,
			"expires_in":   900,
			"user":         map[string]string{"id": "u1", "full_name": "Kofi Mensah", "role": "Student"},
		})
	})
	mux.HandleFunc("/api/student/daily-planner/history", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.Header.Get("Authorization"), fresh) {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token expired")
			return
		}
		writeEnvelope(w, http.StatusOK, []Planner{{ID: "p1", Status: "Pending"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.store.Set(func(s *Session) { s.AccessToken = "stale-token" })

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.PlannerHistory(context.Background(), 5)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes), "concurrent expired requests must share one refresh")
	assert.Equal(t, fresh, c.Session().AccessToken)
}

func TestGuardianRefreshRotatesVaultToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/guardian/refresh", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"access_token":  "guardian-access",
			"refresh_token": "rotated-token",
			"expires_in":    900,
			"user":          map[string]string{"student_id": "s1", "student_name": "Ama Mensah"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.vault.SetGuardianToken("old-token"))

	require.NoError(t, c.RestoreOnStart(context.Background()))

	assert.Equal(t, "Bearer old-token", gotAuth)
	assert.Equal(t, "rotated-token", c.vault.GuardianToken())

	sess := c.Session()
	assert.False(t, sess.Loading)
	assert.Nil(t, sess.User)
	require.NotNil(t, sess.Guardian)
	assert.Equal(t, "s1", sess.Guardian.StudentID)
	assert.Equal(t, "guardian-access", sess.AccessToken)
}

func TestGuardianRefreshFailureClearsVaultToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "refresh token revoked")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.vault.SetGuardianToken("revoked-token"))

	require.Error(t, c.RestoreOnStart(context.Background()))

	assert.Empty(t, c.vault.GuardianToken())
	sess := c.Session()
	assert.False(t, sess.Loading)
	assert.Nil(t, sess.User)
	assert.Nil(t, sess.Guardian)
	assert.Empty(t, sess.AccessToken)
}
