package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	app "github.com/freetime-planner/freetime/internal/app"
	"github.com/freetime-planner/freetime/internal/app/storage/memory"
	"github.com/freetime-planner/freetime/pkg/testutil"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func newClient(t *testing.T) *apiClient {
	t.Helper()
	application := app.New(app.Stores{}, nil)
	return &apiClient{t: t, handler: NewHandler(application, nil)}
}

func (c *apiClient) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func idPath(prefix string, id int64, suffix ...string) string {
	path := prefix + "/" + strconv.FormatInt(id, 10)
	for _, s := range suffix {
		path += "/" + s
	}
	return path
}

func TestIdeaScenario(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/ideas", map[string]any{
		"title":    "Hike",
		"category": "outdoor",
		"tags":     []string{"nature"},
	}, "X-User-ID", "7")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	body := resp.Body.String()
	id := gjson.Get(body, "id").Int()
	assert.Positive(t, id)
	assert.Equal(t, int64(7), gjson.Get(body, "user_id").Int())
	assert.Equal(t, "Hike", gjson.Get(body, "title").String())
	assert.Equal(t, "outdoor", gjson.Get(body, "category").String())
	assert.Equal(t, `["nature"]`, gjson.Get(body, "tags").Raw)

	resp = c.do(http.MethodGet, "/ideas", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Hike", gjson.Get(resp.Body.String(), "#(id=="+strconv.FormatInt(id, 10)+").title").String())

	resp = c.do(http.MethodDelete, idPath("/ideas", id), nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = c.do(http.MethodGet, idPath("/ideas", id), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NotEmpty(t, gjson.Get(resp.Body.String(), "error").String())

	resp = c.do(http.MethodDelete, idPath("/ideas", id), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestIdeaValidationAndHeaders(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/ideas", map[string]any{"title": "Hike", "category": "outdoor"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodPost, "/ideas", map[string]any{"title": "Hike", "category": "outdoor"}, "X-User-ID", "abc")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodPost, "/ideas", map[string]any{"title": "", "category": "outdoor"}, "X-User-ID", "1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodPost, "/ideas", map[string]any{"title": "Hike", "category": "outdoor", "rating": 5}, "X-User-ID", "1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodPost, "/ideas", "{not json", "X-User-ID", "1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodPost, "/ideas", `{"title":"a","category":"b"}{"x":1}`, "X-User-ID", "1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, gjson.Get(resp.Body.String(), "error").String(), "single JSON value")

	resp = c.do(http.MethodPost, "/ideas", `{"title":"a","category":"b"} trailing`, "X-User-ID", "1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodGet, "/ideas", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(0), gjson.Get(resp.Body.String(), "#").Int())

	resp = c.do(http.MethodPost, "/ideas", "{\"title\":\"a\",\"category\":\"b\"}\n  ", "X-User-ID", "1")
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = c.do(http.MethodPut, "/ideas/99", map[string]any{"title": "Ghost", "category": "none"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = c.do(http.MethodPatch, "/ideas/1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestIdeaQueries(t *testing.T) {
	c := newClient(t)
	create := func(title, category string, tags ...string) {
		resp := c.do(http.MethodPost, "/ideas", map[string]any{"title": title, "category": category, "tags": tags}, "X-User-ID", "1")
		require.Equal(t, http.StatusCreated, resp.Code)
	}
	create("Hike", "outdoor", "nature")
	create("Picnic", "outdoor", "nature", "food")
	create("Chess", "indoor")

	resp := c.do(http.MethodGet, "/ideas/category/outdoor", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(2), gjson.Get(resp.Body.String(), "#").Int())

	resp = c.do(http.MethodGet, "/ideas/tags?tag=nature&tag=food", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `["Picnic"]`, gjson.Get(resp.Body.String(), "#.title").Raw)

	resp = c.do(http.MethodGet, "/ideas/random?category=indoor", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Chess", gjson.Get(resp.Body.String(), "title").String())

	resp = c.do(http.MethodGet, "/ideas/random?category=outdoor&tag=food", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Picnic", gjson.Get(resp.Body.String(), "title").String())

	resp = c.do(http.MethodGet, "/ideas/random?category=space", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = c.do(http.MethodGet, "/users/1/ideas", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(3), gjson.Get(resp.Body.String(), "#").Int())
}

func TestProfilesAndFollows(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/profiles", map[string]any{"username": "alice", "bio": "hiker"})
	require.Equal(t, http.StatusCreated, resp.Code)
	alice := gjson.Get(resp.Body.String(), "id").Int()
	assert.Equal(t, "[]", gjson.Get(resp.Body.String(), "idea_ids").Raw)

	resp = c.do(http.MethodPost, "/profiles", map[string]any{"username": "bob"})
	require.Equal(t, http.StatusCreated, resp.Code)
	bob := gjson.Get(resp.Body.String(), "id").Int()
	assert.Equal(t, gjson.Null, gjson.Get(resp.Body.String(), "bio").Type)

	resp = c.do(http.MethodPost, "/profiles", map[string]any{"username": "alice"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = c.do(http.MethodPost, "/ideas", map[string]any{"title": "Hike", "category": "outdoor"}, "X-User-ID", strconv.FormatInt(alice, 10))
	require.Equal(t, http.StatusCreated, resp.Code)
	ideaID := gjson.Get(resp.Body.String(), "id").Int()

	resp = c.do(http.MethodGet, "/profiles/by-username/alice", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, ideaID, gjson.Get(resp.Body.String(), "idea_ids.0").Int())

	resp = c.do(http.MethodGet, idPath("/profiles", alice, "ideas"), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "["+strconv.FormatInt(ideaID, 10)+"]", strings.TrimSpace(resp.Body.String()))

	followPath := idPath("/profiles", alice, "following", strconv.FormatInt(bob, 10))
	resp = c.do(http.MethodPut, followPath, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, gjson.Get(resp.Body.String(), "changed").Bool())

	resp = c.do(http.MethodPut, followPath, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, gjson.Get(resp.Body.String(), "changed").Bool())

	resp = c.do(http.MethodPut, idPath("/profiles", alice, "following", strconv.FormatInt(alice, 10)), nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodPut, idPath("/profiles", alice, "following", "999"), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = c.do(http.MethodGet, idPath("/profiles", bob, "followers"), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, alice, gjson.Get(resp.Body.String(), "0").Int())

	resp = c.do(http.MethodDelete, followPath, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, gjson.Get(resp.Body.String(), "changed").Bool())

	resp = c.do(http.MethodPut, idPath("/profiles", bob), map[string]any{"username": "robert"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "robert", gjson.Get(resp.Body.String(), "username").String())

	resp = c.do(http.MethodDelete, idPath("/profiles", bob), nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = c.do(http.MethodGet, idPath("/profiles", bob), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestWeeklyPlans(t *testing.T) {
	c := newClient(t)

	payload := map[string]any{"week_start_date": "2024-06-03", "week_end_date": "2024-06-09", "ideas_ids": []int{1, 2}}
	resp := c.do(http.MethodPost, "/users/5/plans", payload)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	planID := gjson.Get(resp.Body.String(), "id").Int()
	assert.Equal(t, "[1,2]", gjson.Get(resp.Body.String(), "ideas_ids").Raw)

	resp = c.do(http.MethodPost, "/users/5/plans", payload)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = c.do(http.MethodPost, "/users/5/plans", map[string]any{"week_start_date": "2024-06-09", "week_end_date": "2024-06-03"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodPost, "/users/5/plans", map[string]any{"week_start_date": "2024-06-10", "week_end_date": "2024-06-16"})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = c.do(http.MethodGet, "/users/5/plan", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "2024-06-10", gjson.Get(resp.Body.String(), "week_start_date").String())
	assert.Equal(t, "[]", gjson.Get(resp.Body.String(), "ideas_ids").Raw)

	resp = c.do(http.MethodGet, "/users/5/plans", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `["2024-06-03","2024-06-10"]`, gjson.Get(resp.Body.String(), "#.week_start_date").Raw)

	resp = c.do(http.MethodGet, "/users/6/plan", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = c.do(http.MethodPut, idPath("/plans", planID), map[string]any{"week_start_date": "2024-06-03", "week_end_date": "2024-06-09", "ideas_ids": []int{3}})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "[3]", gjson.Get(resp.Body.String(), "ideas_ids").Raw)

	resp = c.do(http.MethodDelete, idPath("/plans", planID), nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = c.do(http.MethodGet, idPath("/plans", planID), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestInvitations(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/invitations", map[string]any{
		"inviter_id":    1,
		"invitee_email": "bob@example.com",
		"message":       "join us",
		"event_id":      12,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	first := gjson.Get(resp.Body.String(), "id").Int()
	assert.Equal(t, "pending", gjson.Get(resp.Body.String(), "status").String())

	resp = c.do(http.MethodPost, "/invitations", map[string]any{"inviter_id": 2, "invitee_email": "carol@example.com"})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.False(t, gjson.Get(resp.Body.String(), "event_id").Exists())

	resp = c.do(http.MethodPost, "/invitations", map[string]any{"inviter_id": 1, "invitee_email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodPatch, idPath("/invitations", first, "status"), map[string]any{"status": "Accepted"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "accepted", gjson.Get(resp.Body.String(), "status").String())

	resp = c.do(http.MethodPatch, "/invitations/999/status", map[string]any{"status": "accepted"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = c.do(http.MethodGet, "/invitations?status=pending", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `["carol@example.com"]`, gjson.Get(resp.Body.String(), "#.invitee_email").Raw)

	resp = c.do(http.MethodGet, "/invitations?event_id=12", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(1), gjson.Get(resp.Body.String(), "#").Int())

	resp = c.do(http.MethodGet, "/invitations?inviter_id=1&status=pending", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "[]", strings.TrimSpace(resp.Body.String()))

	resp = c.do(http.MethodGet, "/invitations?inviter_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = c.do(http.MethodDelete, idPath("/invitations", first), nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = c.do(http.MethodGet, idPath("/invitations", first), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestStorageFailureIsInternalError(t *testing.T) {
	ideas := testutil.NewFailingIdeaStore(memory.New())
	application := app.New(app.Stores{Ideas: ideas}, nil)
	c := &apiClient{t: t, handler: NewHandler(application, nil)}

	ideas.Fail(nil)
	resp := c.do(http.MethodGet, "/ideas", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "internal server error", gjson.Get(resp.Body.String(), "error").String())
}

func TestOperationalEndpoints(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", gjson.Get(resp.Body.String(), "status").String())

	resp = c.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "freetime_http_requests_total")

	resp = c.do(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
