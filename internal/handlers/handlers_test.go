package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metagate/internal/embed"
	"github.com/conduit-lang/metagate/internal/metadata"
	"github.com/conduit-lang/metagate/internal/metadata/metadatatest"
	"github.com/conduit-lang/metagate/internal/paths"
	"github.com/conduit-lang/metagate/internal/rpc"
	"github.com/conduit-lang/metagate/internal/rpc/rpctest"
	"github.com/conduit-lang/metagate/internal/serialize"
	webcontext "github.com/conduit-lang/metagate/internal/web/context"
	"github.com/conduit-lang/metagate/internal/web/middleware"
	"github.com/conduit-lang/metagate/internal/web/request"
	"github.com/conduit-lang/metagate/internal/web/response"
)

const docURL = "http://docs.test"

type harness struct {
	t           *testing.T
	ix          *metadata.Index
	gen         *Generator
	translator  *response.Translator
	services    *rpc.Registry
	serializers *serialize.Registry
	fakes       map[string]*rpctest.Fake
	principal   webcontext.Principal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ix := metadatatest.Index()
	serializers, err := serialize.NewRegistry(ix, paths.NewBuilder(ix), "http://test")
	require.NoError(t, err)

	fakes := map[string]*rpctest.Fake{}
	clients := map[string]rpc.Client{}
	for _, m := range ix.Models("v1") {
		fakes[m.ModelName] = rpctest.New()
		clients[m.ModelName] = fakes[m.ModelName]
	}
	services := rpc.NewStaticRegistry(clients)
	translator := response.NewTranslator(docURL)
	return &harness{
		t:           t,
		ix:          ix,
		gen:         NewGenerator(translator, embed.NewResolver(services, serializers, ix)),
		translator:  translator,
		services:    services,
		serializers: serializers,
		fakes:       fakes,
	}
}

func (h *harness) factory(model string, listing bool) *request.Factory {
	meta := metadatatest.Model(h.ix, model)
	service, _ := h.services.Service(model)
	serializer, _ := h.serializers.Lookup("v1", model)
	return request.NewFactory(meta, service, serializer, request.Settings{
		ExcludeQueryString: []string{"token"},
		Claims:             []string{"userId"},
	}, listing)
}

// do routes one request through handler mounted at pattern
func (h *harness) do(method, pattern string, handler http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	mux := chi.NewRouter()
	mux.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := webcontext.SetRequestID(r.Context(), "req-1")
			if h.principal != nil {
				ctx = webcontext.SetPrincipal(ctx, h.principal)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	mux.With(middleware.JSONBody(h.translator, 0)).Method(method, pattern, handler)

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestList(t *testing.T) {
	h := newHarness(t)
	h.fakes["user"].Respond("list", 0, []interface{}{
		map[string]interface{}{"id": "1", "name": "Ann", "password": "x"},
		map[string]interface{}{"id": "2", "name": "Bob"},
	})

	rec := h.do(http.MethodGet, "/v1/users", h.gen.List(h.factory("user", true)), "/v1/users?limit=2&name=A&token=t", "")

	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec).([]interface{})
	require.Len(t, list, 2)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "Ann", first["name"])
	assert.NotContains(t, first, "password")

	call, _ := h.fakes["user"].Last("list")
	assert.Equal(t, rpc.Payload{"limit": 2, "offset": 0, "name": "A"}, call.Payload)
	assert.Equal(t, "req-1", call.Headers[request.RequestIDHeader])
}

func TestList_EmptyPayload(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/v1/users", h.gen.List(h.factory("user", true)), "/v1/users", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestList_ErrorEnvelope(t *testing.T) {
	h := newHarness(t)
	h.fakes["user"].Fail("list", rpc.NewError(500, "user message", "dev message"))

	rec := h.do(http.MethodGet, "/v1/users", h.gen.List(h.factory("user", true)), "/v1/users", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{
		"code": "api_error",
		"userMessage": "user message",
		"developerMessage": "dev message",
		"validationErrors": [],
		"documentationUrl": "http://docs.test"
	}`, rec.Body.String())
}

func TestGet_ValidationErrorEnvelope(t *testing.T) {
	h := newHarness(t)
	err := rpc.NewError(422, "fix it", "bad field")
	err.ValidationErrors = []interface{}{map[string]interface{}{"field": "name"}}
	h.fakes["user"].Fail("get", err)

	rec := h.do(http.MethodGet, "/v1/users/{id}", h.gen.Get(h.factory("user", false)), "/v1/users/1", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec).(map[string]interface{})
	assert.Equal(t, "invalid_request_error", body["code"])
	assert.Len(t, body["validationErrors"], 1)
}

func TestCollectionCount(t *testing.T) {
	h := newHarness(t)
	h.fakes["user"].Respond("count", 0, json.Number("7"))

	rec := h.do(http.MethodGet, "/v1/users/count", h.gen.CollectionCount(h.factory("user", true)), "/v1/users/count?limit=3&name=A", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count": 7}`, rec.Body.String())
	call, _ := h.fakes["user"].Last("count")
	assert.Equal(t, rpc.Payload{"name": "A"}, call.Payload)
}

func TestGet_EmbedsResourceRelation(t *testing.T) {
	h := newHarness(t)
	h.fakes["task"].Respond("get", 0, map[string]interface{}{"id": "1", "userId": "99"})
	h.fakes["user"].Respond("batch", 0, []interface{}{
		map[string]interface{}{"id": "99", "data": map[string]interface{}{"id": "99"}},
	})

	rec := h.do(http.MethodGet, "/v1/tasks/{id}", h.gen.Get(h.factory("task", false)), "/v1/tasks/1?embeds=user", "")

	require.Equal(t, http.StatusOK, rec.Code)
	batch, ok := h.fakes["user"].Last("batch")
	require.True(t, ok)
	assert.Equal(t, rpc.Payload{"id": []interface{}{"99"}}, batch.Payload)

	body := decode(t, rec).(map[string]interface{})
	assert.Equal(t, "1", body["id"])
	assert.Equal(t, "99", body["userId"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "99", user["id"])
	assert.Equal(t, "http://test/v1/users/99", user["_links"].(map[string]interface{})["self"])
	assert.Equal(t, "http://test/v1/tasks/1", body["_links"].(map[string]interface{})["self"])
}

func TestGet_SingletonUsesClaim(t *testing.T) {
	h := newHarness(t)
	h.principal = webcontext.Principal{"userId": "1"}
	h.fakes["profile"].Respond("get", 0, map[string]interface{}{"id": "1", "name": "Me"})

	rec := h.do(http.MethodGet, "/v1/me", h.gen.Get(h.factory("profile", false)), "/v1/me?id=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	call, ok := h.fakes["profile"].Last("get")
	require.True(t, ok)
	assert.Equal(t, "1", call.Payload["id"])
	assert.Equal(t, "1", call.Headers["userId"])
}

func TestGet_AnonymousSingletonIgnoresQueryID(t *testing.T) {
	h := newHarness(t)
	h.fakes["profile"].Respond("get", 0, map[string]interface{}{"id": "2", "name": "Someone else"})

	rec := h.do(http.MethodGet, "/v1/me", h.gen.Get(h.factory("profile", false)), "/v1/me?id=2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	call, ok := h.fakes["profile"].Last("get")
	require.True(t, ok)
	assert.NotContains(t, call.Payload, "id")
}

func TestCreate_WhitelistsBodyAndParamsWin(t *testing.T) {
	h := newHarness(t)
	h.fakes["role"].Respond("create", 201, map[string]interface{}{"id": "5", "name": "admin", "userId": "7"})

	rec := h.do(http.MethodPost, "/v1/users/{userId}/roles", h.gen.Create(h.factory("role", false)),
		"/v1/users/7/roles", `{"name":"admin","userId":"8","secret":true}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	call, _ := h.fakes["role"].Last("create")
	assert.Equal(t, rpc.Payload{"name": "admin", "userId": "7"}, call.Payload)
	assert.Equal(t, "admin", decode(t, rec).(map[string]interface{})["name"])
}

func TestCreate_DefaultStatus(t *testing.T) {
	h := newHarness(t)
	h.fakes["user"].Respond("create", 0, map[string]interface{}{"id": "5"})

	rec := h.do(http.MethodPost, "/v1/users", h.gen.Create(h.factory("user", false)), "/v1/users", `{"name":"x"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreate_MalformedBody(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/v1/users", h.gen.Create(h.factory("user", false)), "/v1/users", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec).(map[string]interface{})
	assert.Equal(t, "invalid_request_error", body["code"])
	assert.Equal(t, response.MalformedBodyDeveloperMessage, body["developerMessage"])
	assert.Empty(t, h.fakes["user"].Calls())
}

func TestUpdate_PathIDWins(t *testing.T) {
	h := newHarness(t)
	h.fakes["user"].Respond("update", 0, map[string]interface{}{"id": "3", "name": "new"})

	rec := h.do(http.MethodPut, "/v1/users/{id}", h.gen.Update(h.factory("user", false)), "/v1/users/3", `{"id":"4","name":"new"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	call, _ := h.fakes["user"].Last("update")
	assert.Equal(t, rpc.Payload{"id": "3", "name": "new"}, call.Payload)
}

func TestUpdate_NoContent(t *testing.T) {
	h := newHarness(t)
	h.fakes["user"].Respond("update", 204, nil)

	rec := h.do(http.MethodPut, "/v1/users/{id}", h.gen.Update(h.factory("user", false)), "/v1/users/3", `{"name":"new"}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   int
		empty  bool
	}{
		{"no content", 204, http.StatusNoContent, true},
		{"accepted", 202, http.StatusAccepted, false},
		{"unspecified", 0, http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.fakes["user"].Respond("remove", tt.status, map[string]interface{}{"id": "3"})

			rec := h.do(http.MethodDelete, "/v1/users/{id}", h.gen.Remove(h.factory("user", false)), "/v1/users/3?name=x", "")

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.empty, rec.Body.Len() == 0)
			call, _ := h.fakes["user"].Last("remove")
			assert.Equal(t, rpc.Payload{"id": "3"}, call.Payload, "only path params are forwarded")
		})
	}
}

func TestRelationList(t *testing.T) {
	h := newHarness(t)
	h.fakes["role"].Respond("list", 0, []interface{}{
		map[string]interface{}{"id": "10", "name": "admin", "userId": "3"},
	})
	user := metadatatest.Model(h.ix, "user")

	rec := h.do(http.MethodGet, "/v1/users/{id}/roles", h.gen.RelationList(user.Relation("roles"), user, h.factory("role", true)),
		"/v1/users/3/roles?offset=1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	call, _ := h.fakes["role"].Last("list")
	assert.Equal(t, rpc.Payload{"limit": 10, "offset": 1, "userId": "3"}, call.Payload)
	list := decode(t, rec).([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "http://test/v1/users/3/roles/10", list[0].(map[string]interface{})["_links"].(map[string]interface{})["self"])
}

func TestRelationList_CallerBoundOwner(t *testing.T) {
	h := newHarness(t)
	h.principal = webcontext.Principal{"userId": "42"}
	profile := metadatatest.Model(h.ix, "profile")

	rec := h.do(http.MethodGet, "/v1/me/tasks", h.gen.RelationList(profile.Relation("tasks"), profile, h.factory("task", true)),
		"/v1/me/tasks", "")

	require.Equal(t, http.StatusOK, rec.Code)
	call, _ := h.fakes["task"].Last("list")
	assert.Equal(t, "42", call.Payload["userId"])
	assert.NotContains(t, call.Payload, "id")
}

func TestRelationCount(t *testing.T) {
	h := newHarness(t)
	h.fakes["role"].Respond("count", 0, json.Number("2"))
	user := metadatatest.Model(h.ix, "user")

	rec := h.do(http.MethodGet, "/v1/users/{id}/roles/count", h.gen.RelationCount(user.Relation("roles"), user, h.factory("role", false)),
		"/v1/users/3/roles/count?limit=4", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count": 2}`, rec.Body.String())
	call, _ := h.fakes["role"].Last("count")
	assert.Equal(t, rpc.Payload{"userId": "3"}, call.Payload)
}

func TestAction_NoContentSkipsSerializer(t *testing.T) {
	h := newHarness(t)
	h.fakes["user"].Respond("deactivate", 204, nil)
	user := metadatatest.Model(h.ix, "user")
	action := user.CustomActions()[0]
	require.Equal(t, "deactivate", action.Verb)

	rec := h.do(http.MethodDelete, "/v1/users/{id}/active", h.gen.Action(action, h.factory("user", false)), "/v1/users/1/active", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	call, _ := h.fakes["user"].Last("deactivate")
	assert.Equal(t, rpc.Payload{"id": "1"}, call.Payload)
}

func TestAction_AllowListAndArrayResult(t *testing.T) {
	h := newHarness(t)
	h.fakes["user"].Respond("search", 0, []interface{}{
		map[string]interface{}{"id": "1", "name": "Ann"},
		map[string]interface{}{"id": "2", "name": "Bob"},
	})
	user := metadatatest.Model(h.ix, "user")
	action := user.CustomActions()[1]
	require.Equal(t, "search", action.Verb)

	rec := h.do(http.MethodPost, "/v1/users/search", h.gen.Action(action, h.factory("user", false)),
		"/v1/users/search", `{"query":"a","name":"ignored"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	call, _ := h.fakes["user"].Last("search")
	assert.Equal(t, rpc.Payload{"query": "a"}, call.Payload)
	assert.Len(t, decode(t, rec), 2)
}

func TestAction_TransportFailure(t *testing.T) {
	h := newHarness(t)
	h.fakes["user"].Fail("search", &rpc.TransportError{Model: "user", Err: io.ErrUnexpectedEOF})
	user := metadatatest.Model(h.ix, "user")

	rec := h.do(http.MethodPost, "/v1/users/search", h.gen.Action(user.CustomActions()[1], h.factory("user", false)),
		"/v1/users/search", `{}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "api_error", decode(t, rec).(map[string]interface{})["code"])
}
