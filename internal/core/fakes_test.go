package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gwi.com/photo-search-assistant/internal/store"
)

// fakeModel stands in for the Gemini client in tests.
type fakeModel struct {
	text       string
	err        error
	variations []string
	varErr     error

	// onGenerate runs inside GenerateText before it returns.
	onGenerate func()

	textCalls      int
	variationCalls int
	lastSystem     string
	lastUser       string
}

func (f *fakeModel) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.textCalls++
	f.lastSystem, f.lastUser = systemPrompt, userPrompt
	if f.onGenerate != nil {
		f.onGenerate()
	}
	return f.text, f.err
}

func (f *fakeModel) GenerateVariations(ctx context.Context, systemPrompt, userPrompt string) ([]string, error) {
	f.variationCalls++
	return f.variations, f.varErr
}

type testEnv struct {
	db            *store.SQLiteStore
	conversations *store.ConversationStore
	prefs         *store.PreferenceStore
	model         *fakeModel
	search        *SearchService
	keywords      *KeywordService
	chat          *ChatService
	sessionID     string
}

// newTestEnv wires the services over an in-memory database. The catalog is
// unconfigured unless endpoint is set.
func newTestEnv(t *testing.T, endpoint string) *testEnv {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	session, err := db.CreateSession()
	require.NoError(t, err)

	env := &testEnv{
		db:            db,
		conversations: store.NewConversationStore(db),
		prefs:         store.NewPreferenceStore(db),
		model:         &fakeModel{},
		search:        NewSearchService(SearchConfig{Endpoint: endpoint}),
		sessionID:     session.ID,
	}
	env.keywords = NewKeywordService(env.prefs, env.search, NewRandomizeService(env.model))
	env.chat = NewChatService(env.conversations, env.prefs, NewComposeService(env.model), env.search, env.keywords, 0)
	return env
}
