package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raccoon/internal/db"
	"raccoon/internal/entities"
	apperrors "raccoon/internal/errors"
	"raccoon/internal/logger"
	"raccoon/internal/repository"
)

type fakeService struct {
	rows       map[uuid.UUID]db.Reservation
	createErr  error
	validToken string
	lastFilter repository.ReservationFilter
	lastPage   repository.Page
	lastPatch  db.ReservationPatch
}

func newFakeService() *fakeService {
	return &fakeService{rows: map[uuid.UUID]db.Reservation{}}
}

func (f *fakeService) Create(ctx context.Context, res *db.Reservation) (uuid.UUID, error) {
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	res.ID = uuid.New()
	res.Status = db.StatusPending
	f.rows[res.ID] = *res
	return res.ID, nil
}

func (f *fakeService) Decline(ctx context.Context, token string) (uuid.UUID, error) {
	if token != f.validToken {
		return uuid.Nil, apperrors.ErrInvalidToken
	}
	for id, r := range f.rows {
		r.Status = db.StatusDeclined
		f.rows[id] = r
		return id, nil
	}
	return uuid.Nil, apperrors.ErrInvalidToken
}

func (f *fakeService) List(ctx context.Context, fl repository.ReservationFilter, p repository.Page) ([]db.Reservation, int, error) {
	f.lastFilter, f.lastPage = fl, p
	if err := p.Validate(); err != nil {
		return nil, 0, err
	}
	out := []db.Reservation{}
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (f *fakeService) Get(ctx context.Context, id uuid.UUID) (*db.Reservation, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &r, nil
}

func (f *fakeService) Update(ctx context.Context, id uuid.UUID, patch db.ReservationPatch) (*db.Reservation, error) {
	f.lastPatch = patch
	r, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.ClearNote {
		r.Notes = nil
	} else if patch.Notes != nil {
		r.Notes = patch.Notes
	}
	f.rows[id] = r
	return &r, nil
}

func (f *fakeService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeContact struct {
	got []entities.ContactMessage
	err error
}

func (c *fakeContact) SendContactEmail(ctx context.Context, msg entities.ContactMessage) error {
	if c.err != nil {
		return c.err
	}
	c.got = append(c.got, msg)
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func newTestRouter(svc *fakeService, contact *fakeContact, ping error) http.Handler {
	return NewRouter(Handlers{
		Reservations: NewUserReservationHandler(svc),
		Admin:        NewAdminHandler(svc),
		Contact:      NewContactHandler(contact),
		Health:       HealthHandler(fakePinger{err: ping}),
	}, RouterOptions{Prefix: "/api", AllowedOrigins: []string{"*"}})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "response is not a JSON object:\n%s", rec.Body.String())
	}
	return rec, out
}

const validBooking = `{
	"name": "Иван Петров",
	"email": "ivan@example.com",
	"phone": "+359888123456",
	"address": "ул. Витоша 1",
	"flat_type": "Двустаен",
	"subscription": "Еднократно",
	"activities": ["Прозорци"],
	"total_price": 120,
	"date": "2025-06-01",
	"time": "10:00",
	"service_type": "Основно почистване"
}`

func TestCreateReservation(t *testing.T) {
	logger.Silence()
	svc := newFakeService()
	rec, body := do(t, newTestRouter(svc, &fakeContact{}, nil), http.MethodPost, "/api/reservations", validBooking)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "success", body["status"])
	id, err := uuid.Parse(body["reservation_id"].(string))
	require.NoError(t, err, "reservation_id")
	assert.Equal(t, 120, svc.rows[id].TotalPrice)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader), "missing X-Request-ID header")
}

func TestCreateReservationValidation(t *testing.T) {
	logger.Silence()
	h := newTestRouter(newFakeService(), &fakeContact{}, nil)

	cases := map[string]struct {
		body   string
		fields []string
	}{
		"missing fields": {`{"name": "Иван"}`, []string{"email", "phone", "address", "total_price", "date", "time"}},
		"bad email":      {strings.Replace(validBooking, "ivan@example.com", "not-an-email", 1), []string{"email"}},
		"negative price": {strings.Replace(validBooking, "120", "-5", 1), []string{"total_price"}},
		"bad date":       {strings.Replace(validBooking, "2025-06-01", "01.06.2025", 1), []string{"date"}},
		"bad time":       {strings.Replace(validBooking, `"10:00"`, `"25:99"`, 1), []string{"time"}},
		"empty activity": {strings.Replace(validBooking, `["Прозорци"]`, `[""]`, 1), []string{"activities[0]"}},
		"malformed json": {`{"name": `, []string{"body"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodPost, "/api/reservations", tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.Equal(t, "validation failed", body["error"])
			fields, _ := body["fields"].(map[string]any)
			for _, f := range tc.fields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestCreateReservationAcceptsSeconds(t *testing.T) {
	logger.Silence()
	body := strings.Replace(validBooking, `"10:00"`, `"10:00:00"`, 1)
	rec, _ := do(t, newTestRouter(newFakeService(), &fakeContact{}, nil), http.MethodPost, "/api/reservations", body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCreateReservationDatabaseError(t *testing.T) {
	logger.Silence()
	svc := newFakeService()
	svc.createErr = &apperrors.PersistenceError{Op: "create reservation", Err: errors.New("connection reset")}
	rec, body := do(t, newTestRouter(svc, &fakeContact{}, nil), http.MethodPost, "/api/reservations", validBooking)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Database error", body["error"], "internals must not leak")
}

func TestOversizedBodiesAreRejected(t *testing.T) {
	logger.Silence()
	svc, h, id := seeded(t)
	huge := `{"name": "` + strings.Repeat("а", maxRequestBody) + `"}`

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/reservations"},
		{http.MethodPost, "/api/contact"},
		{http.MethodPatch, "/api/admin/reservations/" + id.String()},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec, body := do(t, h, tc.method, tc.path, huge)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, "validation failed", body["error"])
			fields, _ := body["fields"].(map[string]any)
			assert.Contains(t, fields["body"], "must not exceed")
		})
	}
	assert.Len(t, svc.rows, 1, "oversized booking must not be stored")
}

func TestDeclineReservation(t *testing.T) {
	logger.Silence()
	svc := newFakeService()
	svc.validToken = "good"
	h := newTestRouter(svc, &fakeContact{}, nil)
	do(t, h, http.MethodPost, "/api/reservations", validBooking)

	for _, path := range []string{"/api/reservations/decline?token=bad", "/api/reservations/decline"} {
		rec, body := do(t, h, http.MethodGet, path, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "Invalid or expired token", body["error"], path)
	}

	rec, body := do(t, h, http.MethodGet, "/api/reservations/decline?token=good", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "declined", body["status"])
	assert.NotEmpty(t, body["reservation_id"])
}

func TestListReservationsEnvelope(t *testing.T) {
	logger.Silence()
	svc := newFakeService()
	h := newTestRouter(svc, &fakeContact{}, nil)

	rec, body := do(t, h, http.MethodGet, "/api/admin/reservations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := body["data"].([]any)
	require.True(t, ok, "data = %#v, want an array", body["data"])
	assert.Empty(t, data)
	assert.Equal(t, float64(0), body["total"])
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, float64(10), body["per_page"])

	do(t, h, http.MethodPost, "/api/reservations", validBooking)
	rec, body = do(t, h, http.MethodGet,
		"/api/admin/reservations?name=%D0%B8%D0%B2&status=pending&date_from=2025-01-01&page=1&per_page=5&sort=-date", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(5), body["per_page"])
	assert.Equal(t, repository.ReservationFilter{Name: "ив", Status: "pending", DateFrom: "2025-01-01"}, svc.lastFilter)
	assert.Equal(t, "-date", svc.lastPage.Sort)
}

func TestListReservationsBadPaging(t *testing.T) {
	logger.Silence()
	h := newTestRouter(newFakeService(), &fakeContact{}, nil)
	for _, q := range []string{"per_page=0", "per_page=101", "page=0", "page=abc"} {
		rec, _ := do(t, h, http.MethodGet, "/api/admin/reservations?"+q, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, q)
	}
}

func seeded(t *testing.T) (*fakeService, http.Handler, uuid.UUID) {
	t.Helper()
	svc := newFakeService()
	h := newTestRouter(svc, &fakeContact{}, nil)
	_, body := do(t, h, http.MethodPost, "/api/reservations", validBooking)
	id, err := uuid.Parse(body["reservation_id"].(string))
	require.NoError(t, err, "seed")
	return svc, h, id
}

func TestGetReservation(t *testing.T) {
	logger.Silence()
	_, h, id := seeded(t)

	rec, body := do(t, h, http.MethodGet, "/api/admin/reservations/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, id.String(), body["id"])
	assert.Equal(t, "Иван Петров", body["name"])
	assert.Equal(t, "pending", body["status"])

	for _, path := range []string{"/api/admin/reservations/" + uuid.NewString(), "/api/admin/reservations/42"} {
		rec, body = do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Reservation not found", body["error"], path)
	}
}

func TestUpdateReservation(t *testing.T) {
	logger.Silence()
	svc, h, id := seeded(t)
	path := "/api/admin/reservations/" + id.String()

	rec, body := do(t, h, http.MethodPatch, path, `{"status": "confirmed", "notes": "ключ при съседа"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "ключ при съседа", body["notes"])

	rec, body = do(t, h, http.MethodPatch, path, `{"notes": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.lastPatch.ClearNote, "notes not cleared: patch=%+v", svc.lastPatch)
	assert.Nil(t, body["notes"])
	assert.Equal(t, "confirmed", body["status"], "absent status must be left unchanged")
}

func TestUpdateReservationRejects(t *testing.T) {
	logger.Silence()
	_, h, id := seeded(t)
	path := "/api/admin/reservations/" + id.String()

	cases := map[string]struct {
		path   string
		body   string
		status int
	}{
		"empty body":    {path, "", http.StatusUnprocessableEntity},
		"empty object":  {path, "{}", http.StatusUnprocessableEntity},
		"unknown keys":  {path, `{"colour": "red"}`, http.StatusUnprocessableEntity},
		"bad status":    {path, `{"status": "archived"}`, http.StatusUnprocessableEntity},
		"null name":     {path, `{"name": null}`, http.StatusUnprocessableEntity},
		"bad date":      {path, `{"date": "tomorrow"}`, http.StatusUnprocessableEntity},
		"not an object": {path, `["status"]`, http.StatusUnprocessableEntity},
		"unknown id":    {"/api/admin/reservations/" + uuid.NewString(), `{"status": "confirmed"}`, http.StatusNotFound},
		"malformed id":  {"/api/admin/reservations/42", `{"status": "confirmed"}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, _ := do(t, h, http.MethodPatch, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}

	_, body := do(t, h, http.MethodPatch, path, "{}")
	assert.Equal(t, "request body cannot be empty", body["error"])
}

func TestDeleteReservationTwice(t *testing.T) {
	logger.Silence()
	_, h, id := seeded(t)
	path := "/api/admin/reservations/" + id.String()

	rec, body := do(t, h, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deleted", body["status"])
	assert.Equal(t, id.String(), body["reservation_id"])

	rec, _ = do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "second delete")
}

func TestContact(t *testing.T) {
	logger.Silence()
	contact := &fakeContact{}
	h := newTestRouter(newFakeService(), contact, nil)

	rec, body := do(t, h, http.MethodPost, "/api/contact", `{"name": "Мария", "email": "maria@example.com", "message": "Здравейте"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sent", body["status"])
	require.Len(t, contact.got, 1)

	rec, body = do(t, h, http.MethodPost, "/api/contact", `{"name": "Мария", "email": "nope"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields, _ := body["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "message")

	contact.err = &apperrors.TransportError{Channel: "smtp", Err: errors.New("connection refused")}
	rec, body = do(t, h, http.MethodPost, "/api/contact", `{"name": "a", "email": "a@b.co", "message": "m"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "connection refused")
}

func TestHealth(t *testing.T) {
	logger.Silence()
	rec, body := do(t, newTestRouter(newFakeService(), &fakeContact{}, nil), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = do(t, newTestRouter(newFakeService(), &fakeContact{}, errors.New("down")), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database unavailable", body["error"])
}

func TestUnknownRoute(t *testing.T) {
	logger.Silence()
	rec, body := do(t, newTestRouter(newFakeService(), &fakeContact{}, nil), http.MethodGet, "/api/nowhere", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", body["error"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRateLimiter(t *testing.T) {
	logger.Silence()
	mw, err := NewRateLimiter("2-M", "")
	require.NoError(t, err)
	h := NewRouter(Handlers{
		Reservations: NewUserReservationHandler(newFakeService()),
		Admin:        NewAdminHandler(newFakeService()),
		Contact:      NewContactHandler(&fakeContact{}),
		Health:       HealthHandler(fakePinger{}),
	}, RouterOptions{Prefix: "/api", AllowedOrigins: []string{"*"}, PublicLimiter: mw})

	var (
		rec  *httptest.ResponseRecorder
		body map[string]any
	)
	for i := 0; i < 3; i++ {
		rec, body = do(t, h, http.MethodPost, "/api/reservations", validBooking)
	}
	require.Equal(t, http.StatusTooManyRequests, rec.Code, "third request")
	assert.Equal(t, "Too many requests", body["error"])

	rec, _ = do(t, h, http.MethodGet, "/api/admin/reservations", "")
	assert.Equal(t, http.StatusOK, rec.Code, "admin endpoint must not be limited")

	_, err = NewRateLimiter("lots", "")
	assert.Error(t, err, "malformed rate")
}
