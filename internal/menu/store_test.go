package menu

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetAfterAnySequenceEqualsDefaults(t *testing.T) {
	sequences := [][][]Option{
		{{Title("Stores")}},
		{{Title("Stores"), NewAction("/dashboard/stores/new", true)}, {DeleteAction("/x", false)}},
		{{Search("/dashboard/products", "tv")}, {FilterSidebar("?filters=1", true), Share("/s")}, {Actions(Action{Kind: ActionDivider})}},
		{},
	}
	for i, seq := range sequences {
		store := NewStore()
		for _, opts := range seq {
			require.NoError(t, store.SetMenuProps(opts...), "sequence %d", i)
		}
		require.NoError(t, store.SetMenuProps())
		assert.Equal(t, Defaults(), store.Current(), "sequence %d", i)
	}
}

func TestReleasedPageDoesNotLeakIntoNextPage(t *testing.T) {
	store := NewStore()
	release, err := store.Publish(Title("Warranties"), DeleteAction("/dashboard/warranties/3/delete", true))
	require.NoError(t, err)
	assert.Equal(t, "Warranties", store.Current().Title)
	release()

	_, err = store.Publish(NewAction("/dashboard/brands/new", true))
	require.NoError(t, err)
	cfg := store.Current()
	assert.Equal(t, DefaultTitle, cfg.Title)
	assert.False(t, cfg.DeleteAction.Visible)
	assert.True(t, cfg.NewAction.Visible)
}

func TestMergeKeepsPreviousAndDefaults(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SetMenuProps(Title("Stores"), Search("/dashboard/stores", "")))
	require.NoError(t, store.SetMenuProps(NewAction("/dashboard/stores/new", false)))

	cfg := store.Current()
	assert.Equal(t, "Stores", cfg.Title, "previous value survives")
	assert.True(t, cfg.Search.Visible)
	assert.Equal(t, "Search...", cfg.Search.Placeholder, "untouched key keeps default")
	assert.True(t, cfg.NewAction.Visible)
	assert.False(t, cfg.NewAction.Enabled)
	assert.False(t, cfg.NewAction.Active())
	assert.Equal(t, "New", cfg.NewAction.Label)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SetMenuProps(Title("Brands")))
	before := store.Version()

	err := store.SetMenuProps(Title("Broken"), Actions(Action{Kind: ActionMenuButton, Label: "More"}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, "Brands", store.Current().Title)
	assert.Equal(t, before, store.Version())

	release, err := store.Publish(Actions(Action{Kind: "bogus"}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	release()
}

func TestCurrentIsDeepCopy(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SetMenuProps(Actions(Action{
		Kind:  ActionMenuButton,
		Label: "Export",
		Items: []MenuItem{{Label: "CSV", Href: "/export.csv"}},
	})))
	cfg := store.Current()
	cfg.Actions[0].Items[0].Label = "mutated"
	cfg.Title = "mutated"
	assert.Equal(t, "CSV", store.Current().Actions[0].Items[0].Label)
	assert.Equal(t, DefaultTitle, store.Current().Title)
}

func TestSubscribeAndVersion(t *testing.T) {
	store := NewStore()
	var seen []uint64
	cancel := store.Subscribe(func(cfg Config, version uint64) { seen = append(seen, version) })

	release, err := store.Publish(Title("Units"))
	require.NoError(t, err)
	release()
	release()
	cancel()
	require.NoError(t, store.SetMenuProps(Title("Taxes")))

	assert.Equal(t, []uint64{1, 2}, seen)
	assert.Equal(t, uint64(3), store.Version())
}

func TestValidateActionKinds(t *testing.T) {
	valid := Config{Actions: []Action{
		{Kind: ActionButton, Label: "Import"},
		{Kind: ActionIconButton, Icon: "refresh", Tooltip: "Refresh"},
		{Kind: ActionMenuButton, Label: "More", Items: []MenuItem{{Label: "Archive", Href: "/a", Method: "POST"}}},
		{Kind: ActionDivider},
		{Kind: ActionCustom, HTML: `<span class="badge">Beta</span>`},
	}}
	assert.NoError(t, valid.Validate())

	invalid := []Action{
		{Kind: ActionButton},
		{Kind: ActionIconButton},
		{Kind: ActionMenuButton},
		{Kind: ActionCustom},
		{Kind: "link"},
	}
	for _, a := range invalid {
		assert.ErrorIs(t, Config{Actions: []Action{a}}.Validate(), ErrInvalidConfig, a.Kind)
	}
}

func TestMiddlewareGivesEachRequestItsOwnStore(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	var stores []*Store
	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := FromContext(r.Context())
		stores = append(stores, store)
		_, _ = store.Publish(Title("Products"))
	}))

	for range 2 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard/products", nil))
	}
	require.Len(t, stores, 2)
	assert.NotSame(t, stores[0], stores[1])
	assert.Contains(t, buf.String(), "title=Products")

	assert.Equal(t, Defaults(), FromContext(context.Background()).Current())
}
