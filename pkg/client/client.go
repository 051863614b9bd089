package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Planner mirrors the server-side daily planner document.
type Planner struct {
	ID                    string            `json:"id"`
	StudentID             string            `json:"student_id"`
	Date                  time.Time         `json:"date"`
	Status                string            `json:"status"`
	Weather               string            `json:"weather"`
	TodaysGoal            string            `json:"todays_goal"`
	StudyGoal             string            `json:"study_goal"`
	TotalStudyTime        string            `json:"total_study_time"`
	BreakTime             string            `json:"break_time"`
	SleepHours            string            `json:"sleep_hours"`
	ReadingList           []ReadingEntry    `json:"reading_list"`
	TodoList              []TodoEntry       `json:"todo_list"`
	LessonPlans           []LessonPlanEntry `json:"lesson_plans"`
	AssignmentsExams      string            `json:"assignments_exams"`
	SelfReflection        string            `json:"self_reflection"`
	EvaluationScale       int               `json:"evaluation_scale"`
	GuardianSignature     *string           `json:"guardian_signature,omitempty"`
	GuardianApprovedAt    *time.Time        `json:"guardian_approved_at,omitempty"`
	TeacherDeclineComment *string           `json:"teacher_decline_comment,omitempty"`
	TeacherReviewedBy     *string           `json:"teacher_reviewed_by,omitempty"`
	TeacherReviewedAt     *time.Time        `json:"teacher_reviewed_at,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// ReadingEntry is one row of the planner's reading list.
type ReadingEntry struct {
	Time  string `json:"time"`
	Topic string `json:"topic"`
}

// TodoEntry is one row of the planner's todo list.
type TodoEntry struct {
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// LessonPlanEntry is one per-subject row of the planner's lesson plan.
type LessonPlanEntry struct {
	SubjectName  string `json:"subject_name"`
	IsCustom     bool   `json:"is_custom"`
	NotStudied   bool   `json:"not_studied"`
	Homework     string `json:"homework"`
	TodaysLesson string `json:"todays_lesson"`
}

// PlannerContent carries the student-authored fields of a planner save.
type PlannerContent struct {
	Date             string            `json:"date"`
	Weather          string            `json:"weather"`
	TodaysGoal       string            `json:"todays_goal"`
	StudyGoal        string            `json:"study_goal"`
	TotalStudyTime   string            `json:"total_study_time"`
	BreakTime        string            `json:"break_time"`
	SleepHours       string            `json:"sleep_hours"`
	ReadingList      []ReadingEntry    `json:"reading_list"`
	TodoList         []TodoEntry       `json:"todo_list"`
	LessonPlans      []LessonPlanEntry `json:"lesson_plans"`
	AssignmentsExams string            `json:"assignments_exams"`
	SelfReflection   string            `json:"self_reflection"`
	EvaluationScale  int               `json:"evaluation_scale"`
}

// PlannerSummary is one entry in a guardian or teacher work queue.
type PlannerSummary struct {
	Planner
	StudentName  string  `json:"student_name"`
	StudentIndex *string `json:"student_index,omitempty"`
}

// APIError is a structured error returned by the server.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// Client is the SDK entry point. All session state lives in the Store and
// Vault; every mutating call applies the server's response and nothing else.
type Client struct {
	baseURL   string
	http      *http.Client
	store     *Store
	vault     *Vault
	refresher *Refresher
}

// New builds a client against baseURL with session state persisted through
// the vault at vaultPath.
func New(baseURL, vaultPath string) (*Client, error) {
	vault, err := OpenVault(vaultPath)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	store := NewStore()
	plain := &http.Client{Jar: jar, Timeout: 30 * time.Second}
	refresher := NewRefresher(baseURL, plain, store, vault)

	authed := &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
		Transport: &authTransport{
			store:     store,
			refresher: refresher,
		},
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      authed,
		store:     store,
		vault:     vault,
		refresher: refresher,
	}, nil
}

// Session returns the current session snapshot.
func (c *Client) Session() Session { return c.store.Get() }

// Subscribe registers fn for session changes and returns a cancel func.
func (c *Client) Subscribe(fn func(Session)) func() { return c.store.Subscribe(fn) }

// RestoreOnStart settles the session, refreshing silently when possible.
func (c *Client) RestoreOnStart(ctx context.Context) error {
	return c.refresher.RestoreOnStart(ctx)
}

// Login authenticates a standard user by email or index number. The rotated
// refresh token arrives as an http-only cookie and stays in the jar.
func (c *Client) Login(ctx context.Context, identifier, password string) error {
	var payload sessionPayload
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"identifier": identifier, "password": password}, &payload)
	if err != nil {
		return err
	}

	c.store.Set(func(sess *Session) {
		sess.User = &Principal{
			ID:          payload.User.ID,
			FullName:    payload.User.FullName,
			Role:        payload.User.Role,
			IndexNumber: payload.User.IndexNumber,
		}
		sess.Guardian = nil
		sess.AccessToken = payload.AccessToken
	})
	c.store.Settle()
	return nil
}

// GuardianLogin authenticates with a student index number and access code.
// The returned refresh token is persisted in the vault.
func (c *Client) GuardianLogin(ctx context.Context, indexNumber, accessCode string) error {
	var payload sessionPayload
	err := c.do(ctx, http.MethodPost, "/api/guardian/login",
		map[string]string{"index_number": indexNumber, "access_code": accessCode}, &payload)
	if err != nil {
		return err
	}

	if err := c.vault.SetGuardianToken(payload.RefreshToken); err != nil {
		return fmt.Errorf("persist guardian token: %w", err)
	}
	c.store.Set(func(sess *Session) {
		sess.User = nil
		sess.Guardian = &GuardianLink{
			StudentID:   payload.User.StudentID,
			StudentName: payload.User.StudentName,
		}
		sess.AccessToken = payload.AccessToken
	})
	c.store.Settle()
	return nil
}

// Logout revokes the active session server-side and clears local state.
// Local state is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	var err error
	if c.store.Get().Guardian != nil {
		err = c.guardianLogout(ctx)
	} else {
		err = c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	}

	_ = c.vault.SetGuardianToken("")
	c.store.Set(func(sess *Session) {
		sess.User = nil
		sess.Guardian = nil
		sess.AccessToken = ""
	})
	return err
}

// guardianLogout revokes the guardian refresh token. The token itself is
// the bearer credential, not the short-lived access token.
func (c *Client) guardianLogout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/guardian/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.vault.GuardianToken())

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		return fmt.Errorf("guardian logout rejected: %s", res.Status)
	}
	return nil
}

// PlannerForDate fetches the student's planner for the given day. A nil
// planner with nil error means none exists yet.
func (c *Client) PlannerForDate(ctx context.Context, date time.Time) (*Planner, error) {
	path := "/api/student/daily-planner?date=" + date.UTC().Format("2006-01-02")
	var planner *Planner
	if err := c.do(ctx, http.MethodGet, path, nil, &planner); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return planner, nil
}

// SavePlanner creates or updates the planner for the day named in content.
// The server decides whether the planner is still editable.
func (c *Client) SavePlanner(ctx context.Context, content PlannerContent) (*Planner, error) {
	var planner Planner
	if err := c.do(ctx, http.MethodPut, "/api/student/daily-planner", content, &planner); err != nil {
		return nil, err
	}
	return &planner, nil
}

// RecallPlanner pulls a pending planner back for editing.
func (c *Client) RecallPlanner(ctx context.Context, plannerID string) (*Planner, error) {
	var planner Planner
	path := "/api/student/daily-planner/" + url.PathEscape(plannerID) + "/recall"
	if err := c.do(ctx, http.MethodPost, path, nil, &planner); err != nil {
		return nil, err
	}
	return &planner, nil
}

// PlannerHistory lists the student's recent planners, newest first.
func (c *Client) PlannerHistory(ctx context.Context, limit int) ([]Planner, error) {
	path := "/api/student/daily-planner/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var planners []Planner
	if err := c.do(ctx, http.MethodGet, path, nil, &planners); err != nil {
		return nil, err
	}
	return planners, nil
}

// PendingPlanners lists the linked student's planners awaiting the
// guardian's signature.
func (c *Client) PendingPlanners(ctx context.Context) ([]PlannerSummary, error) {
	var planners []PlannerSummary
	if err := c.do(ctx, http.MethodGet, "/api/guardian/pending-planners", nil, &planners); err != nil {
		return nil, err
	}
	return planners, nil
}

// GuardianPlannerDetail fetches one planner for the guardian review screen.
func (c *Client) GuardianPlannerDetail(ctx context.Context, plannerID string) (*PlannerSummary, error) {
	var detail PlannerSummary
	path := "/api/guardian/planner-details/" + url.PathEscape(plannerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ApprovePlanner signs a pending planner as the guardian.
func (c *Client) ApprovePlanner(ctx context.Context, plannerID, signature string) (*Planner, error) {
	var planner Planner
	path := "/api/guardian/approve-planner/" + url.PathEscape(plannerID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"signature": signature}, &planner); err != nil {
		return nil, err
	}
	return &planner, nil
}

// ReviewQueue lists guardian-approved planners awaiting the teacher.
func (c *Client) ReviewQueue(ctx context.Context) ([]PlannerSummary, error) {
	var planners []PlannerSummary
	if err := c.do(ctx, http.MethodGet, "/api/teacher/guardian-approved-planners", nil, &planners); err != nil {
		return nil, err
	}
	return planners, nil
}

// TeacherPlannerDetail fetches one planner for the teacher review screen.
func (c *Client) TeacherPlannerDetail(ctx context.Context, plannerID string) (*PlannerSummary, error) {
	var detail PlannerSummary
	path := "/api/teacher/planner-details/" + url.PathEscape(plannerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ReviewPlanner records the teacher's verdict. A decline with a blank
// comment is rejected before any request is made.
func (c *Client) ReviewPlanner(ctx context.Context, plannerID string, approve bool, comment string) (*Planner, error) {
	if !approve && strings.TrimSpace(comment) == "" {
		return nil, &APIError{
			Code:       "COMMENT_REQUIRED",
			Message:    "a decline must include a comment for the student",
			StatusCode: http.StatusBadRequest,
		}
	}

	var planner Planner
	path := "/api/teacher/review-planner/" + url.PathEscape(plannerID)
	body := map[string]interface{}{"approve": approve, "comment": comment}
	if err := c.do(ctx, http.MethodPost, path, body, &planner); err != nil {
		return nil, err
	}
	return &planner, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		if env.Error != nil {
			env.Error.StatusCode = res.StatusCode
			return env.Error
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
