package ui

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/vitrine/internal/catalog"
	"github.com/five82/vitrine/internal/devserver"
	"github.com/five82/vitrine/internal/listing"
	"github.com/five82/vitrine/internal/mutation"
	"github.com/five82/vitrine/internal/prefs"
	"github.com/five82/vitrine/internal/query"
)

type harness struct {
	srv       *devserver.Server
	ts        *httptest.Server
	coord     *mutation.Coordinator
	notes     *mutation.ChanNotifier
	prefsPath string
}

func newHarness(t *testing.T, products int, opts devserver.Options) (Model, *harness) {
	t.Helper()
	store := devserver.NewStore(time.Now)
	store.Seed(products)
	srv := devserver.New(store, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := catalog.NewClient(catalog.Options{BaseURL: ts.URL})
	require.NoError(t, err)

	syncer := listing.New(client)
	notes := mutation.NewChanNotifier(8)
	coord := mutation.NewCoordinator(syncer, client, mutation.Options{Notifier: notes})
	h := &harness{
		srv:       srv,
		ts:        ts,
		coord:     coord,
		notes:     notes,
		prefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	}

	m := New(Options{
		Sync:          syncer,
		Coordinator:   coord,
		Notifications: notes.C(),
		Query:         query.New(50),
		APIURL:        ts.URL,
		PrefsPath:     h.prefsPath,
		Prefs:         prefs.Prefs{Theme: "Nightfox"},
	})
	m, _ = update(m, tea.WindowSizeMsg{Width: 160, Height: 40})
	m, cmd := update(m, refreshMsg{seq: 0})
	return settle(t, m, cmd), h
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = update(m, keyMsg(k))
	}
	return m, cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// settle runs a sync command and feeds its result back into the model.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	res, ok := cmd().(syncResultMsg)
	require.True(t, ok, "expected a sync result")
	m, _ = update(m, res)
	return m
}

// deliver runs a command that emits a single message and applies it.
func deliver(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	return update(m, cmd())
}

func nextNote(t *testing.T, h *harness) mutation.Notification {
	t.Helper()
	select {
	case n := <-h.notes.C():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no notification arrived")
		return mutation.Notification{}
	}
}

func TestModel_InitialSyncFillsTable(t *testing.T) {
	m, _ := newHarness(t, 120, devserver.Options{})

	require.Equal(t, listing.StatusLoaded, m.snapshot.Status)
	assert.Len(t, m.snapshot.Records, 50)
	assert.EqualValues(t, 120, m.snapshot.TotalCount)
	assert.Len(t, m.table.Rows(), 50)

	view := m.View()
	assert.Contains(t, view, "1/3")
	assert.Contains(t, view, "120")
}

func TestModel_PagingStartsLoadingThenApplies(t *testing.T) {
	m, _ := newHarness(t, 120, devserver.Options{})

	m, cmd := press(m, "n")
	assert.Equal(t, listing.StatusLoading, m.snapshot.Status)
	assert.Empty(t, m.snapshot.Records)

	m = settle(t, m, cmd)
	assert.Equal(t, 2, m.snapshot.Query.Page())
	assert.EqualValues(t, 51, m.snapshot.Records[0].ID)

	m, cmd = press(m, "n")
	m = settle(t, m, cmd)
	assert.Equal(t, 3, m.snapshot.Query.Page())
	assert.Len(t, m.snapshot.Records, 20)

	_, cmd = press(m, "n")
	assert.Nil(t, cmd, "no page after the last one")
}

func TestModel_StaleResultIsDropped(t *testing.T) {
	m, _ := newHarness(t, 120, devserver.Options{})

	m, pageCmd := press(m, "n")
	m, filterCmd := update(m, filtersAppliedMsg{query: m.snapshot.Query.SetFilter(query.KeyTitle, "mesa")})

	m = settle(t, m, filterCmd)
	m = settle(t, m, pageCmd)

	assert.Equal(t, "mesa", m.snapshot.Query.Filter(query.KeyTitle))
	assert.Equal(t, 1, m.snapshot.Query.Page())
	for _, p := range m.snapshot.Records {
		assert.Contains(t, strings.ToLower(p.Title), "mesa")
	}
}

func TestModel_DeleteIsOptimisticAndConfirmed(t *testing.T) {
	m, h := newHarness(t, 120, devserver.Options{})

	m, _ = press(m, "j")
	target, ok := m.selectedProduct()
	require.True(t, ok)

	m, _ = press(m, "d")
	require.IsType(t, confirmDelete{}, m.modal)

	m, cmd := press(m, "y")
	assert.Nil(t, m.modal)
	m, _ = deliver(t, m, cmd)

	assert.Equal(t, -1, m.snapshot.IndexOf(target.ID))
	assert.EqualValues(t, 119, m.snapshot.TotalCount)

	h.coord.Wait()
	m, _ = update(m, notificationMsg(nextNote(t, h)))
	assert.Contains(t, m.View(), "Product deleted successfully")
	assert.Equal(t, 119, h.srv.Store().Len())
}

func TestModel_FailedDeleteRestoresRow(t *testing.T) {
	m, h := newHarness(t, 120, devserver.Options{FailDeletes: true})
	target, ok := m.selectedProduct()
	require.True(t, ok)

	m, _ = press(m, "d")
	m, cmd := press(m, "y")
	m, _ = deliver(t, m, cmd)
	require.EqualValues(t, 119, m.snapshot.TotalCount)

	h.coord.Wait()
	note := nextNote(t, h)
	assert.Equal(t, mutation.KindError, note.Kind)

	m, _ = update(m, notificationMsg(note))
	assert.Equal(t, 0, m.snapshot.IndexOf(target.ID))
	assert.EqualValues(t, 120, m.snapshot.TotalCount)
	assert.Contains(t, m.View(), "Failed to delete product")
}

func TestModel_DeclinedDeleteChangesNothing(t *testing.T) {
	m, h := newHarness(t, 120, devserver.Options{})
	before := m.snapshot.Revision

	m, _ = press(m, "d")
	m, cmd := press(m, "n")
	assert.Nil(t, cmd)
	assert.Nil(t, m.modal)
	assert.Equal(t, before, m.snapshot.Revision)
	assert.Equal(t, 0, h.coord.InFlight())
}

func TestModel_FilterFormRejectsInvalidValues(t *testing.T) {
	m, _ := newHarness(t, 30, devserver.Options{})

	m, _ = press(m, "F")
	require.IsType(t, &filterDialog{}, m.modal)

	var tabs []string
	for _, k := range query.Keys() {
		if k == query.KeyMinPrice {
			break
		}
		tabs = append(tabs, "tab")
	}
	m, _ = press(m, tabs...)
	m, _ = press(m, "a", "b", "c")
	m, cmd := press(m, "enter")

	assert.Nil(t, cmd)
	dialog, ok := m.modal.(*filterDialog)
	require.True(t, ok, "dialog stays open on invalid input")
	assert.NotEmpty(t, dialog.form.err)

	m, _ = press(m, "esc")
	assert.Nil(t, m.modal)
	assert.Equal(t, listing.StatusLoaded, m.snapshot.Status)
}

func TestModel_SearchAppliesTitleAndRemembersIt(t *testing.T) {
	m, h := newHarness(t, 60, devserver.Options{})

	m, _ = press(m, "/")
	m, _ = press(m, "m", "e", "s", "a")
	m, cmd := press(m, "enter")
	m, cmd = deliver(t, m, cmd)
	m = settle(t, m, cmd)

	require.NotEmpty(t, m.snapshot.Records)
	for _, p := range m.snapshot.Records {
		assert.Contains(t, strings.ToLower(p.Title), "mesa")
	}

	saved, err := prefs.Load(h.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, "mesa", saved.Filters["title"])

	m, cmd = press(m, "x")
	m = settle(t, m, cmd)
	assert.True(t, m.snapshot.Query.Filters().IsZero())
	assert.EqualValues(t, 60, m.snapshot.TotalCount)
}

func TestModel_CreateResyncsOnSuccess(t *testing.T) {
	m, h := newHarness(t, 30, devserver.Options{})

	m, _ = press(m, "c")
	require.IsType(t, &createDialog{}, m.modal)
	m, _ = press(m, "L", "a", "m", "p", "tab", "h", "t", "t", "p", ":", "/", "/", "x", "tab", "1", "5")
	m, cmd := press(m, "enter")
	m, _ = deliver(t, m, cmd)

	h.coord.Wait()
	note := nextNote(t, h)
	require.Equal(t, mutation.KindSuccess, note.Kind, note.Message)
	assert.Equal(t, 31, h.srv.Store().Len())

	m, _ = update(m, notificationMsg(note))
	assert.Equal(t, listing.StatusLoading, m.snapshot.Status, "a successful create re-syncs")
}

func TestModel_SyncErrorShowsRetryHint(t *testing.T) {
	m, h := newHarness(t, 30, devserver.Options{})
	h.ts.Close()

	m, cmd := press(m, "r")
	m = settle(t, m, cmd)

	assert.Equal(t, listing.StatusError, m.snapshot.Status)
	assert.Empty(t, m.snapshot.Records)
	assert.Equal(t, 1, m.failures)
	assert.Contains(t, m.View(), "Press r to retry")
}

func TestModel_ThemeCycleIsSaved(t *testing.T) {
	m, h := newHarness(t, 10, devserver.Options{})

	m, _ = press(m, "T")
	assert.Equal(t, "Kanagawa", m.theme.Name)

	saved, err := prefs.Load(h.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, "Kanagawa", saved.Theme)
}

func TestModel_LogViewShowsTail(t *testing.T) {
	m, _ := newHarness(t, 10, devserver.Options{})
	m.logFile = filepath.Join(t.TempDir(), "vitrine.log")
	line := `{"level":"warn","ts":"2024-06-01T12:30:45.123Z","msg":"sync failed","generation":2}`
	require.NoError(t, os.WriteFile(m.logFile, []byte(line+"\n"), 0o644))

	m, cmd := press(m, "L")
	m, _ = deliver(t, m, cmd)
	require.IsType(t, &logDialog{}, m.modal)
	assert.Contains(t, m.View(), "sync failed")

	m, _ = press(m, "esc")
	assert.Nil(t, m.modal)
}
