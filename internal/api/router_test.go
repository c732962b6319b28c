package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gwi.com/photo-search-assistant/internal/auth"
	"gwi.com/photo-search-assistant/internal/config"
	"gwi.com/photo-search-assistant/internal/core"
	"gwi.com/photo-search-assistant/internal/store"
	"gwi.com/photo-search-assistant/internal/utils"
)

type testAPI struct {
	t      *testing.T
	router http.Handler
	token  string
}

// newTestAPI wires the real services with no model key and no catalog
// endpoint, so every turn exercises the fallback paths.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = config.Config{JWTSecret: "test-secret", SessionTTL: 1}
	t.Cleanup(func() { config.AppConfig = prev })

	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	llm := core.NewLLMService()
	conversations := store.NewConversationStore(db)
	prefs := store.NewPreferenceStore(db)
	composer := core.NewComposeService(llm)
	search := core.NewSearchService(core.SearchConfig{})
	randomizer := core.NewRandomizeService(llm)
	keywords := core.NewKeywordService(prefs, search, randomizer)
	chat := core.NewChatService(conversations, prefs, composer, search, keywords, 0)

	api := &testAPI{t: t, router: NewRouter(NewAPIHandler(Services{
		Sessions:   db,
		Prefs:      prefs,
		Chat:       chat,
		Composer:   composer,
		Search:     search,
		Randomizer: randomizer,
		Keywords:   keywords,
	}))}

	rec := api.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Token)
	api.token = created.Token
	return api
}

func (a *testAPI) request(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	return a.request(method, path, a.token, body)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec := a.request(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSessionAuth(t *testing.T) {
	a := newTestAPI(t)

	assert.Equal(t, http.StatusUnauthorized, a.request(http.MethodGet, "/api/conversation", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.request(http.MethodGet, "/api/conversation", "garbage", nil).Code)

	ghost, err := auth.GenerateJWT("no-such-session")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, a.request(http.MethodGet, "/api/conversation", ghost, nil).Code)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/conversation", nil).Code)
}

func TestConversationFlow(t *testing.T) {
	a := newTestAPI(t)

	conv := decode[store.Conversation](t, a.do(http.MethodGet, "/api/conversation", nil))
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, store.WelcomeMessageID, conv.Messages[0].ID)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/conversation/revisit", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/conversation/messages", PostMessageRequest{Content: "  "}).Code)

	rec := a.do(http.MethodPost, "/api/conversation/messages", PostMessageRequest{Content: "dog cute outside"})
	require.Equal(t, http.StatusOK, rec.Code)
	turn := decode[core.TurnResult](t, rec)
	assert.Equal(t, "dog cute outside", turn.Directive.SearchQuery)
	assert.Len(t, turn.Directive.Suggestions, 3)
	require.Len(t, turn.Search.Results, 4)
	assert.Contains(t, turn.Search.Results[0].Title, "dog cute outside")
	assert.False(t, turn.Search.HasMore)

	rec = a.do(http.MethodPost, "/api/conversation/revisit", RevisitRequest{Page: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	revisit := decode[SearchResponseBody](t, rec)
	assert.Equal(t, "dog cute outside", revisit.Query)
	assert.Equal(t, 2, revisit.Page)

	conv = decode[store.Conversation](t, a.do(http.MethodGet, "/api/conversation", nil))
	assert.Len(t, conv.Messages, 5)

	keywords := decode[store.KeywordState](t, a.do(http.MethodGet, "/api/keywords", nil))
	assert.Equal(t, []string{"dog", "cute", "outside"}, keywords.Keywords)

	conv = decode[store.Conversation](t, a.do(http.MethodDelete, "/api/conversation", nil))
	assert.Len(t, conv.Messages, 1)
}

func TestConversationProjectContext(t *testing.T) {
	a := newTestAPI(t)

	long := ProjectContextRequest{Text: strings.Repeat("x", MaxProjectContextLength+1)}
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/api/conversation/project-context", long).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/api/conversation/project-context", ProjectContextRequest{}).Code)

	rec := a.do(http.MethodPut, "/api/conversation/project-context", ProjectContextRequest{Text: "Rustic bakery rebrand"})
	require.Equal(t, http.StatusOK, rec.Code)
	turn := decode[core.TurnResult](t, rec)
	require.NotEmpty(t, turn.Messages)
	assert.True(t, strings.HasPrefix(turn.Messages[0].Text, "Context saved!"))
	assert.Equal(t, "creative inspiration", turn.Directive.SearchQuery)

	stored := decode[map[string]*string](t, a.do(http.MethodGet, "/api/preferences/project-context", nil))
	require.NotNil(t, stored["text"])
	assert.Equal(t, "Rustic bakery rebrand", *stored["text"])

	rec = a.do(http.MethodDelete, "/api/conversation/project-context", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msg := decode[store.Message](t, rec)
	assert.True(t, strings.HasPrefix(msg.Text, "Context cleared."))

	stored = decode[map[string]*string](t, a.do(http.MethodGet, "/api/preferences/project-context", nil))
	assert.Nil(t, stored["text"])
}

func TestPreferences(t *testing.T) {
	a := newTestAPI(t)

	styles := decode[store.StylePreferences](t, a.do(http.MethodGet, "/api/preferences/styles", nil))
	assert.Equal(t, store.DefaultStyles(), styles)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/api/preferences/styles", map[string]string{"searchStyle": "wild"}).Code)

	rec := a.do(http.MethodPut, "/api/preferences/styles", map[string]string{"searchStyle": "creative"})
	require.Equal(t, http.StatusOK, rec.Code)
	styles = decode[store.StylePreferences](t, rec)
	assert.Equal(t, store.SearchCreative, styles.SearchStyle)
	assert.Equal(t, store.ResponseConversational, styles.ResponseStyle)

	rec = a.do(http.MethodPut, "/api/preferences/project-context", ProjectContextRequest{Text: "Travel blog"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/api/preferences/project-context", nil).Code)
	long := ProjectContextRequest{Text: strings.Repeat("é", MaxProjectContextLength+1)}
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/api/preferences/project-context", long).Code)
}

func TestSavedItems(t *testing.T) {
	a := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/saved-items", store.SavedItem{Title: "no id"}).Code)

	items := decode[[]store.SavedItem](t, a.do(http.MethodPost, "/api/saved-items", store.SavedItem{ID: "p1", Title: "One"}))
	require.Len(t, items, 1)
	items = decode[[]store.SavedItem](t, a.do(http.MethodPost, "/api/saved-items", store.SavedItem{ID: "p1", Title: "Again"}))
	require.Len(t, items, 1)
	assert.Equal(t, "One", items[0].Title)

	items = decode[[]store.SavedItem](t, a.do(http.MethodDelete, "/api/saved-items/p1", nil))
	assert.Empty(t, items)
	items = decode[[]store.SavedItem](t, a.do(http.MethodGet, "/api/saved-items", nil))
	assert.Empty(t, items)
}

func TestKeywordSurface(t *testing.T) {
	a := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/keywords", KeywordEditRequest{}).Code)

	update := decode[core.KeywordUpdate](t, a.do(http.MethodPost, "/api/keywords", KeywordEditRequest{Text: "red bike, city"}))
	assert.Equal(t, []string{"red", "bike", "city"}, update.State.Keywords)
	require.NotNil(t, update.Search)
	assert.Len(t, update.Search.Results, 4)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodDelete, "/api/keywords/9", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodDelete, "/api/keywords/abc", nil).Code)

	update = decode[core.KeywordUpdate](t, a.do(http.MethodDelete, "/api/keywords/0", nil))
	assert.Equal(t, []string{"bike", "city"}, update.State.Keywords)

	update = decode[core.KeywordUpdate](t, a.do(http.MethodPost, "/api/keywords/randomize", nil))
	assert.Equal(t, "artistic bike, city", update.Query)

	state := decode[store.KeywordState](t, a.do(http.MethodPost, "/api/keywords/restore", nil))
	assert.Equal(t, []string{"artistic", "bike", "city"}, state.Keywords)
}

func TestStatelessPipeline(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/compose", map[string]any{
		"messages":    []store.Message{{Kind: store.KindUser, Text: "misty forest"}},
		"searchStyle": "creative",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	directive := decode[core.Directive](t, rec)
	assert.Equal(t, "misty forest", directive.SearchQuery)
	assert.Len(t, directive.Suggestions, 3)
	assert.Equal(t, "photos", directive.Filters[store.FilterCategory])

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/compose", map[string]any{"responseStyle": "loud"}).Code)

	search := decode[SearchResponseBody](t, a.do(http.MethodPost, "/api/search", SearchRequest{Query: "dog cute outside"}))
	assert.Len(t, search.Results, 4)
	assert.False(t, search.HasMore)
	assert.Equal(t, 1, search.Page)
	assert.Equal(t, "photos", search.Filters[store.FilterCategory])

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/randomize-keywords", RandomizeRequest{}).Code)
	variations := decode[map[string]any](t, a.do(http.MethodPost, "/api/randomize-keywords", RandomizeRequest{Keywords: "dog cute outside"}))
	assert.Equal(t, []any{"dog stunning outside", "artistic dog cute outside"}, variations["variations"])
	assert.Equal(t, "dog cute outside", variations["originalKeywords"])

	detected := decode[map[string][]utils.DetectedFilter](t, a.do(http.MethodPost, "/api/filters/detect", DetectFiltersRequest{Query: "labrador playing in golden hour light"}))
	require.NotEmpty(t, detected["filters"])
	assert.Equal(t, "Labrador Retriever", detected["filters"][0].PreSelected)

	parsed := decode[map[string]any](t, a.do(http.MethodPost, "/api/keywords/parse", ParseKeywordsRequest{Text: "black and white, stock photo of cats"}))
	assert.Equal(t, "black and white, of, cats", parsed["formatted"])

	assert.Equal(t, http.StatusBadRequest, a.request(http.MethodPost, "/api/search", a.token, nil).Code)
}

func TestClearSession(t *testing.T) {
	a := newTestAPI(t)
	a.do(http.MethodPost, "/api/conversation/messages", PostMessageRequest{Content: "sunset"})
	a.do(http.MethodPut, "/api/preferences/styles", map[string]string{"responseStyle": "direct"})

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/api/session", nil).Code)

	conv := decode[store.Conversation](t, a.do(http.MethodGet, "/api/conversation", nil))
	assert.Len(t, conv.Messages, 1)
	styles := decode[store.StylePreferences](t, a.do(http.MethodGet, "/api/preferences/styles", nil))
	assert.Equal(t, store.DefaultStyles(), styles)
}

func TestOptionalBodies(t *testing.T) {
	a := newTestAPI(t)
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/keywords", KeywordEditRequest{Text: "sunny meadow"}).Code)

	// An empty chunked body carries no Content-Length.
	req := httptest.NewRequest(http.MethodPost, "/api/keywords/randomize", strings.NewReader(""))
	req.ContentLength = -1
	req.Header.Set("Authorization", "Bearer "+a.token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/keywords/randomize", strings.NewReader("{broken"))
	req.ContentLength = -1
	req.Header.Set("Authorization", "Bearer "+a.token)
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
