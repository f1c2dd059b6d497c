package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/vitrine/internal/listing"
	"github.com/five82/vitrine/internal/logger"
	"github.com/five82/vitrine/internal/mutation"
	"github.com/five82/vitrine/internal/prefs"
	"github.com/five82/vitrine/internal/query"
)

// Options configures the UI.
type Options struct {
	Context       context.Context
	Sync          *listing.Synchronizer
	Coordinator   *mutation.Coordinator
	Notifications <-chan mutation.Notification
	Query         query.State
	APIURL        string
	LogFile       string

	ThemeName       string
	PrefsPath       string
	Prefs           prefs.Prefs
	RefreshInterval time.Duration
	Logger          logger.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx          context.Context
	sync         *listing.Synchronizer
	coord        *mutation.Coordinator
	notes        <-chan mutation.Notification
	log          logger.Logger
	apiURL       string
	logFile      string
	prefsPath    string
	prefs        prefs.Prefs
	refreshEvery time.Duration
	initial      query.State

	// UI state
	keys     keyMap
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	modal    Modal

	// Data state
	snapshot   listing.Snapshot
	failures   int
	refreshSeq int

	// Widgets
	table   table.Model
	spinner spinner.Model
	pager   paginator.Model
	help    help.Model

	toasts   []toast
	toastSeq int
}

// syncResultMsg carries a finished fetch back to the update loop, which
// decides whether it is still current.
type syncResultMsg struct{ result listing.Result }

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = opts.Prefs.Theme
	}
	theme := GetTheme(themeName)

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	pager := paginator.New()
	pager.Type = paginator.Arabic
	pager.ArabicFormat = "%d/%d"

	return Model{
		ctx:          ctx,
		sync:         opts.Sync,
		coord:        opts.Coordinator,
		notes:        opts.Notifications,
		log:          log,
		apiURL:       opts.APIURL,
		logFile:      opts.LogFile,
		prefsPath:    prefsPath,
		prefs:        opts.Prefs,
		refreshEvery: opts.RefreshInterval,
		initial:      opts.Query,
		keys:         DefaultKeyMap(),
		theme:        theme,
		snapshot:     opts.Sync.Snapshot(),
		table:        newProductTable(theme),
		spinner:      sp,
		pager:        pager,
		help:         newHelp(theme),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.spinner.Tick,
		// refreshSeq starts at zero, so this tick triggers the first sync.
		func() tea.Msg { return refreshMsg{seq: 0} },
		waitForNotification(m.notes),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		if msg.seq != m.refreshSeq {
			return m, nil
		}
		q := m.snapshot.Query
		if m.snapshot.Status == listing.StatusIdle {
			q = m.initial
		}
		return m, m.startSync(q)

	case syncResultMsg:
		return m.handleSyncResult(msg.result)

	case notificationMsg:
		return m.handleNotification(mutation.Notification(msg))

	case logLoadedMsg:
		if msg.err != nil {
			return m, m.localError("Cannot read log: " + msg.err.Error())
		}
		m.modal = newLogDialog(m.logFile, msg.entries, m.theme, m.width, m.height)
		return m, nil

	case toastExpiredMsg:
		m.dropToast(msg.id)
		return m, nil

	case deleteConfirmedMsg:
		return m.handleDelete(msg.id)

	case filtersAppliedMsg:
		return m, m.applyQuery(msg.query)

	case createSubmittedMsg:
		if _, err := m.coord.RequestCreate(m.ctx, msg.input); err != nil {
			return m, m.localError("Failed to create product: " + err.Error())
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	b.WriteString(m.renderToasts())
	return b.String()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	snap := m.snapshot
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Logs):
		if m.logFile == "" {
			return m, m.localError("Logging to a file is disabled")
		}
		return m, loadLogCmd(m.logFile)

	case key.Matches(msg, m.keys.CycleTheme):
		m.setTheme(GetTheme(NextTheme(m.theme.Name)))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()

	case key.Matches(msg, m.keys.Up):
		m.table.MoveUp(1)
	case key.Matches(msg, m.keys.Down):
		m.table.MoveDown(1)
	case key.Matches(msg, m.keys.Top):
		m.table.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.table.GotoBottom()

	case key.Matches(msg, m.keys.NextPage):
		if snap.Status != listing.StatusLoaded {
			return m, nil
		}
		next := snap.Query.NextPage(int(snap.TotalCount))
		if next.Page() == snap.Query.Page() {
			return m, nil
		}
		return m, m.startSync(next)

	case key.Matches(msg, m.keys.PrevPage):
		if snap.Query.Page() <= 1 || snap.Status == listing.StatusLoading {
			return m, nil
		}
		return m, m.startSync(snap.Query.PrevPage())

	case key.Matches(msg, m.keys.Refresh):
		return m, m.startSync(snap.Query)

	case key.Matches(msg, m.keys.Search):
		m.modal = newSearchDialog(snap.Query)
	case key.Matches(msg, m.keys.Filters):
		m.modal = newFilterDialog(snap.Query)
	case key.Matches(msg, m.keys.ClearFilters):
		if snap.Query.Filters().IsZero() {
			return m, nil
		}
		return m, m.applyQuery(snap.Query.ClearFilters())

	case key.Matches(msg, m.keys.Delete):
		p, ok := m.selectedProduct()
		if !ok {
			return m, nil
		}
		if m.coord.IsPending(p.ID) {
			return m, m.localError(fmt.Sprintf("Delete of product %d is already in progress", p.ID))
		}
		m.modal = confirmDelete{product: p}

	case key.Matches(msg, m.keys.Create):
		m.modal = newCreateDialog()
	}

	return m, nil
}

// startSync begins a new generation for q. The loading snapshot is shown
// right away; the fetch runs as a command.
func (m *Model) startSync(q query.State) tea.Cmd {
	ticket := m.sync.Begin(q)
	m.snapshot = m.sync.Snapshot()
	m.refreshSeq++
	m.refreshTable()

	ctx, sync := m.ctx, m.sync
	return func() tea.Msg {
		return syncResultMsg{result: sync.Fetch(ctx, ticket)}
	}
}

func (m Model) handleSyncResult(r listing.Result) (tea.Model, tea.Cmd) {
	snap, applied := m.sync.Apply(r)
	if !applied {
		return m, nil
	}
	m.snapshot = snap
	if snap.Status == listing.StatusError {
		m.failures++
	} else {
		m.failures = 0
	}
	m.refreshTable()
	return m, m.nextRefresh()
}

func (m Model) handleDelete(id int64) (tea.Model, tea.Cmd) {
	_, snap, err := m.coord.RequestDelete(m.ctx, id, m.snapshot, mutation.Confirmed)
	m.snapshot = snap
	m.refreshTable()
	if err == nil {
		return m, nil
	}

	m.log.Debug("delete request refused", logger.Int64("product_id", id), logger.Error(err))
	switch {
	case errors.Is(err, mutation.ErrAlreadyPending):
		return m, m.localError(fmt.Sprintf("Delete of product %d is already in progress", id))
	case errors.Is(err, mutation.ErrStaleSnapshot), errors.Is(err, mutation.ErrNotFound):
		return m, m.localError("The list changed before the delete started; try again")
	}
	return m, m.localError("Failed to delete product: " + err.Error())
}

func (m Model) handleNotification(n mutation.Notification) (tea.Model, tea.Cmd) {
	// A failed delete may have restored rows.
	m.snapshot = m.sync.Snapshot()
	m.refreshTable()

	cmds := []tea.Cmd{m.pushToast(n), waitForNotification(m.notes)}
	if n.Op == mutation.OpCreate && n.Kind == mutation.KindSuccess {
		cmds = append(cmds, m.startSync(m.snapshot.Query))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) applyQuery(q query.State) tea.Cmd {
	m.prefs = m.prefs.WithQuery(q)
	m.savePrefs()
	m.table.GotoTop()
	return m.startSync(q)
}

func (m *Model) setTheme(theme Theme) {
	m.theme = theme
	m.table.SetStyles(tableStyles(theme))
	m.help = newHelp(theme)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.log.Warn("save prefs failed", logger.String("path", m.prefsPath), logger.Error(err))
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
