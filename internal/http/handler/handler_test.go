package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vepbot/internal/contacts"
	"vepbot/internal/jobs"
	"vepbot/internal/templates"
)

type mockJobStore struct {
	MockCreate     func(ctx context.Context, j *jobs.Job) error
	MockGet        func(ctx context.Context, id uint64) (*jobs.Job, error)
	MockList       func(ctx context.Context, status *jobs.Status, limit int) ([]jobs.Job, error)
	MockDelete     func(ctx context.Context, id uint64) error
	MockDeliveries func(ctx context.Context, jobID uint64) ([]jobs.Delivery, error)
}

func (m *mockJobStore) Create(ctx context.Context, j *jobs.Job) error { return m.MockCreate(ctx, j) }
func (m *mockJobStore) Get(ctx context.Context, id uint64) (*jobs.Job, error) {
	return m.MockGet(ctx, id)
}
func (m *mockJobStore) List(ctx context.Context, status *jobs.Status, limit int) ([]jobs.Job, error) {
	return m.MockList(ctx, status, limit)
}
func (m *mockJobStore) Delete(ctx context.Context, id uint64) error { return m.MockDelete(ctx, id) }
func (m *mockJobStore) ListDeliveries(ctx context.Context, jobID uint64) ([]jobs.Delivery, error) {
	return m.MockDeliveries(ctx, jobID)
}

func jobRouter(h *JobHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/jobs", h.Create)
	r.Get("/jobs", h.List)
	r.Get("/jobs/{id}", h.Get)
	r.Delete("/jobs/{id}", h.Delete)
	r.Get("/jobs/{id}/deliveries", h.Deliveries)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var art = time.FixedZone("ART", -3*60*60)

func TestJobHandler_Create(t *testing.T) {
	var created jobs.Job
	h := &JobHandler{Loc: art, Jobs: &mockJobStore{MockCreate: func(_ context.Context, j *jobs.Job) error {
		j.ID = 11
		created = *j
		return nil
	}}}

	body := `{
		"category": "monotributo",
		"folder": "2026-10",
		"execution_time": "2026-10-20T09:30:00-03:00",
		"users": [{"id": 1, "name": "Ana", "phone": "5491111111111", "cuit": "20111111112", "sent": true}]
	}`
	rec := serve(jobRouter(h), http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, jobs.CategoryMonotributo, created.Category)
	assert.Equal(t, jobs.StatusPending, created.Status)
	assert.Equal(t, time.Date(2026, 10, 20, 9, 30, 0, 0, time.UTC), created.ExecutionTime)
	assert.False(t, created.Users[0].Sent)
}

func TestJobHandler_CreateWallClock(t *testing.T) {
	var created jobs.Job
	h := &JobHandler{Loc: art, Jobs: &mockJobStore{MockCreate: func(_ context.Context, j *jobs.Job) error {
		created = *j
		return nil
	}}}

	body := `{"category":"DOMESTICA","folder":"f","execution_time":"2026-10-20 18:00","users":[{"id":1,"phone":"1"}]}`
	rec := serve(jobRouter(h), http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 18, created.ExecutionTime.Hour())
}

func TestJobHandler_CreateRejects(t *testing.T) {
	h := &JobHandler{Loc: art, Jobs: &mockJobStore{MockCreate: func(context.Context, *jobs.Job) error {
		t.Error("must not persist")
		return nil
	}}}

	cases := map[string]string{
		"bad category":   `{"category":"IVA","folder":"f","execution_time":"2026-10-20 18:00","users":[{"id":1,"phone":"1"}]}`,
		"duplicate id":   `{"category":"DOMESTICA","folder":"f","execution_time":"2026-10-20 18:00","users":[{"id":1,"phone":"1"},{"id":1,"phone":"2"}]}`,
		"no folder":      `{"category":"DOMESTICA","execution_time":"2026-10-20 18:00","users":[{"id":1,"phone":"1"}]}`,
		"bad time":       `{"category":"DOMESTICA","folder":"f","execution_time":"tomorrow","users":[{"id":1,"phone":"1"}]}`,
		"malformed json": `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(jobRouter(h), http.MethodPost, "/jobs", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestJobHandler_CreateWithoutRecipients(t *testing.T) {
	var created jobs.Job
	h := &JobHandler{Loc: art, Jobs: &mockJobStore{MockCreate: func(_ context.Context, j *jobs.Job) error {
		created = *j
		return nil
	}}}

	body := `{"category":"AUTONOMOS","folder":"f","execution_time":"2026-10-20 18:00","users":[]}`
	rec := serve(jobRouter(h), http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, created.Users)
}

func TestJobHandler_Delete(t *testing.T) {
	h := &JobHandler{Jobs: &mockJobStore{MockDelete: func(_ context.Context, id uint64) error {
		switch id {
		case 1:
			return nil
		case 2:
			return errors.Wrap(jobs.ErrJobRunning, "delete")
		default:
			return jobs.ErrNotFound
		}
	}}}
	r := jobRouter(h)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/jobs/1", "").Code)
	assert.Equal(t, http.StatusConflict, serve(r, http.MethodDelete, "/jobs/2", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, "/jobs/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodDelete, "/jobs/x", "").Code)
}

func TestJobHandler_ListFiltersByStatus(t *testing.T) {
	var got *jobs.Status
	h := &JobHandler{Jobs: &mockJobStore{MockList: func(_ context.Context, status *jobs.Status, _ int) ([]jobs.Job, error) {
		got = status
		return nil, nil
	}}}
	r := jobRouter(h)

	rec := serve(r, http.MethodGet, "/jobs?status=error", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, jobs.StatusError, *got)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/jobs?status=DONE", "").Code)
}

func TestJobHandler_Deliveries(t *testing.T) {
	msg := "send failed"
	h := &JobHandler{Jobs: &mockJobStore{
		MockGet: func(_ context.Context, id uint64) (*jobs.Job, error) {
			if id != 5 {
				return nil, jobs.ErrNotFound
			}
			return &jobs.Job{ID: 5}, nil
		},
		MockDeliveries: func(context.Context, uint64) ([]jobs.Delivery, error) {
			return []jobs.Delivery{{ID: 1, JobID: 5, RecipientID: 2, Sent: false, Error: &msg}}, nil
		},
	}}
	r := jobRouter(h)

	rec := serve(r, http.MethodGet, "/jobs/5/deliveries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		JobID uint64          `json:"job_id"`
		Items []jobs.Delivery `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "send failed", *out.Items[0].Error)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/jobs/6/deliveries", "").Code)
}

type mockTemplateStore struct {
	rows     []templates.Template
	upserted map[string]string
}

func (m *mockTemplateStore) List(context.Context) ([]templates.Template, error) { return m.rows, nil }
func (m *mockTemplateStore) Upsert(_ context.Context, category, text string) error {
	if m.upserted == nil {
		m.upserted = map[string]string{}
	}
	m.upserted[category] = text
	return nil
}

func TestTemplateHandler(t *testing.T) {
	store := &mockTemplateStore{rows: []templates.Template{{Category: "AUTONOMOS", Text: "custom {nombre}"}}}
	h := &TemplateHandler{Store: store}
	r := chi.NewRouter()
	r.Get("/templates", h.List)
	r.Put("/templates/{category}", h.Put)

	rec := serve(r, http.MethodGet, "/templates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Items []templateDTO `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Items, len(jobs.Categories))
	for _, it := range out.Items {
		if it.Category == "AUTONOMOS" {
			assert.True(t, it.Stored)
			assert.Equal(t, "custom {nombre}", it.Text)
		} else {
			assert.False(t, it.Stored)
			assert.NotEmpty(t, it.Text)
		}
	}

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPut, "/templates/domestica", `{"text":"hola"}`).Code)
	assert.Equal(t, "hola", store.upserted["DOMESTICA"])
	// blank text is stored and blocks the category
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPut, "/templates/monotributo", `{"text":""}`).Code)
	text, ok := store.upserted["MONOTRIBUTO"]
	assert.True(t, ok)
	assert.Empty(t, text)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPut, "/templates/domestica", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPut, "/templates/iva", `{"text":"x"}`).Code)
}

type mockContactStore struct {
	MockCreate func(ctx context.Context, c *contacts.Contact) error
}

func (m *mockContactStore) Create(ctx context.Context, c *contacts.Contact) error {
	return m.MockCreate(ctx, c)
}
func (m *mockContactStore) List(context.Context) ([]contacts.Contact, error) { return nil, nil }

func TestContactHandler(t *testing.T) {
	h := &ContactHandler{Store: &mockContactStore{MockCreate: func(_ context.Context, c *contacts.Contact) error {
		if c.Phone == "" {
			return errors.Wrap(contacts.ErrInvalid, "phone")
		}
		c.ID = 3
		return nil
	}}}

	rec := serve(http.HandlerFunc(h.Create), http.MethodPost, "/contacts", `{"name":"Ana","phone":"5491111111111"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":3`)

	rec = serve(http.HandlerFunc(h.Create), http.MethodPost, "/contacts", `{"name":"Ana"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(http.HandlerFunc(h.List), http.MethodGet, "/contacts", "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

type mockRunner struct {
	MockRunOnce func(ctx context.Context) (*jobs.Report, error)
}

func (m *mockRunner) RunOnce(ctx context.Context) (*jobs.Report, error) { return m.MockRunOnce(ctx) }

type mockCounter map[jobs.Status]int64

func (m mockCounter) CountByStatus(context.Context) (map[jobs.Status]int64, error) { return m, nil }

func TestSchedulerHandler(t *testing.T) {
	h := &SchedulerHandler{
		Runner: &mockRunner{MockRunOnce: func(context.Context) (*jobs.Report, error) {
			return &jobs.Report{RunID: "r1", Selected: 1, Jobs: []jobs.JobReport{{JobID: 4, Status: jobs.StatusFinished, Sent: 2}}}, nil
		}},
		Stats: mockCounter{jobs.StatusPending: 2, jobs.StatusError: 1},
	}

	rec := serve(http.HandlerFunc(h.Run), http.MethodPost, "/scheduler/run", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report jobs.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "r1", report.RunID)
	assert.Equal(t, 2, report.Jobs[0].Sent)

	rec = serve(http.HandlerFunc(h.Counts), http.MethodGet, "/scheduler/stats", "")
	assert.JSONEq(t, `{"PENDING":2,"ERROR":1}`, rec.Body.String())
}

func TestSchedulerHandler_RunOutlivesCaller(t *testing.T) {
	var passErr error
	h := &SchedulerHandler{Runner: &mockRunner{MockRunOnce: func(ctx context.Context) (*jobs.Report, error) {
		passErr = ctx.Err()
		return &jobs.Report{RunID: "r3"}, nil
	}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/scheduler/run", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Run(rec, req)

	assert.NoError(t, passErr)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSchedulerHandler_RunFailure(t *testing.T) {
	h := &SchedulerHandler{Runner: &mockRunner{MockRunOnce: func(context.Context) (*jobs.Report, error) {
		return &jobs.Report{RunID: "r2"}, errors.New("listing pending jobs: connection refused")
	}}}

	rec := serve(http.HandlerFunc(h.Run), http.MethodPost, "/scheduler/run", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), `"run_id":"r2"`)
}

func TestAuthHandler_RegistrationDisabled(t *testing.T) {
	h := &AuthHandler{}
	rec := serve(http.HandlerFunc(h.Register), http.MethodPost, "/auth/register", `{"email":"a@b.c","password":"12345678"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
