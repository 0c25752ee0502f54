package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/tourchat/internal/conversation"
	"github.com/matheus3301/tourchat/internal/core"
	"github.com/matheus3301/tourchat/internal/messaging"
	"github.com/matheus3301/tourchat/internal/status"
	"github.com/matheus3301/tourchat/internal/tui/keys"
	"github.com/matheus3301/tourchat/internal/tui/model"
	"github.com/matheus3301/tourchat/internal/tui/ui"
	"github.com/matheus3301/tourchat/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const (
	pageConversations = "conversations"
	pageThread        = "thread"
	pageProfile       = "profile"
	pageHelp          = "help"
)

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	main      *tview.Flex
	pages     *ui.Pages
	prompt    *ui.Prompt
	flashBar  *ui.FlashBar
	statusBar *views.StatusBar
	info      *ui.SessionInfo
	crumbs    *ui.Crumbs
	list      *views.ConversationList
	thread    *views.MessageThread
	profileV  *views.ProfileView
	help      *views.HelpView
	registry  *keys.Registry
	theme     *ui.Theme

	core    *core.Core
	vm      *model.ViewModel
	session string
	user    string
	started time.Time
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewApp creates the TUI application over a started core.
func NewApp(c *core.Core, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     ui.NewPages(),
		prompt:    ui.NewPrompt(theme),
		flashBar:  ui.NewFlashBar(theme),
		statusBar: views.NewStatusBar(theme),
		info:      ui.NewSessionInfo(theme),
		crumbs:    ui.NewCrumbs(theme),
		list:      views.NewConversationList(theme),
		thread:    views.NewMessageThread(theme),
		profileV:  views.NewProfileView(theme),
		help:      views.NewHelpView(theme),
		registry:  keys.NewRegistry(),
		theme:     theme,
		core:      c,
		vm:        model.NewViewModel(c.Index, c.Store, c.Scheduler, c.Resolver, c.Bus, nil),
		logger:    c.Logger.Named("tui"),
		session:   sessionName,
		user:      c.Self.Name,
		started:   time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	if a.user == "" {
		a.user = c.Self.UserID
	}
	a.crumbs.SetLabel(a.crumbLabel)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit", Visible: true,
		Handler: a.back,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "?:help", Visible: true,
		Handler: a.showHelp,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Description: "::command", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptCommand, "") },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'R',
		Description: "R:reload", Visible: true,
		Handler: a.reload,
	})
	a.registry.AddGlobal(&keys.Action{
		Key:         tcell.KeyCtrlR,
		Description: "ctrl-r:refresh",
		Handler:     a.refreshNow,
	})
	a.registry.AddGlobal(&keys.Action{
		Key:         tcell.KeyEscape,
		Description: "esc:back",
		Handler:     a.back,
	})

	a.registry.AddView(pageConversations, &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Description: "/:filter", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptFilter, a.vm.Filter()) },
	})
	a.registry.AddView(pageConversations, &keys.Action{
		Key: tcell.KeyRune, Rune: 'p',
		Description: "p:profile", Visible: true,
		Handler: func() {
			if c, ok := a.list.Selected(); ok {
				a.showProfile(c)
			}
		},
	})
	a.registry.AddView(pageConversations, &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit",
		Handler:     a.app.Stop,
	})

	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Description: "i:compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r',
		Description: "r:retry failed", Visible: true,
		Handler: a.retryFailed,
	})
	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'p',
		Description: "p:profile", Visible: true,
		Handler: func() {
			if c, ok := a.vm.Active(); ok {
				a.showProfile(c)
			}
		},
	})
	a.registry.AddView(pageThread, &keys.Action{
		Key:         tcell.KeyEscape,
		Description: "esc:back", Visible: true,
		Handler: a.back,
	})
}

func (a *App) setupCallbacks() {
	a.list.SetSelectedFunc(func(row, col int) {
		if c, ok := a.list.Selected(); ok {
			a.openConversation(c)
		}
	})

	a.thread.SetOnSend(a.send)

	a.prompt.SetOnChange(a.vm.SetFilter)
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		if mode == ui.PromptCommand {
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(func(mode ui.PromptMode) {
		if mode == ui.PromptFilter {
			a.vm.SetFilter("")
		}
		a.hidePrompt()
	})

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		a.statusBar.SetHints(a.registry.Hints(a.pages.Current()))
	})
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageConversations, a.list, true, false)
	a.pages.AddPage(pageThread, a.thread, true, false)
	a.pages.AddPage(pageProfile, a.profileV, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)
	a.pages.Reset(pageConversations)

	a.main = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.info, 5, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.main, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		focused := a.app.GetFocus()

		// The composer keeps every key except Esc, which returns to the thread.
		if focused == a.thread.Composer() {
			if event.Key() == tcell.KeyEscape {
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			return event
		}
		// Let text input widgets handle all keys normally.
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		if a.registry.HandleEvent(a.pages.Current(), event) {
			return nil
		}
		return event
	})
}

func (a *App) activatePrompt(mode ui.PromptMode, text string) {
	a.prompt.Activate(mode, text)
	a.main.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.main.ResizeItem(a.prompt, 0, 0)
	a.focusPage()
}

func (a *App) focusPage() {
	switch a.pages.Current() {
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	case pageProfile:
		a.app.SetFocus(a.profileV)
	case pageHelp:
		a.app.SetFocus(a.help)
	default:
		a.app.SetFocus(a.list)
	}
}

// back pops the current page, closing the thread when leaving it.
func (a *App) back() {
	switch a.pages.Current() {
	case pageConversations:
		if a.vm.Filter() != "" {
			a.vm.SetFilter("")
		}
		return
	case pageThread:
		a.vm.Close()
	}
	a.pages.Pop()
	a.focusPage()
	a.render()
}

func (a *App) openConversation(c conversation.Conversation) {
	a.thread.SetConversation(c)
	a.thread.ShowStatus("Loading messages...")
	a.pages.Push(pageThread)
	a.app.SetFocus(a.thread.Messages())

	go func() {
		if err := a.vm.Open(a.ctx, c.ID); err != nil {
			a.flashErr("Could not load messages", err)
		}
	}()
}

func (a *App) send(text string) {
	go func() {
		_, err := a.vm.Send(a.ctx, text)
		switch {
		case err == nil:
		case errors.Is(err, messaging.ErrEmptyMessage):
		case errors.Is(err, messaging.ErrSendInFlight):
			a.vm.Flash.Set(model.Warn, "Wait for the previous message to go out", 5*time.Second)
			a.app.QueueUpdateDraw(func() { a.thread.SetDraft(text) })
		default:
			a.flashErr("Message not sent", err)
		}
	}()
}

func (a *App) retryFailed() {
	text, err := a.vm.RetryLastFailed()
	if err != nil {
		if errors.Is(err, messaging.ErrNotFound) {
			a.vm.Flash.Set(model.Info, "No failed message to retry", 3*time.Second)
		} else {
			a.flashErr("Retry failed", err)
		}
		a.render()
		return
	}
	a.thread.SetDraft(text)
	a.app.SetFocus(a.thread.Composer())
}

func (a *App) showProfile(c conversation.Conversation) {
	a.profileV.ShowLoading(c)
	a.pages.Push(pageProfile)
	a.app.SetFocus(a.profileV)

	go func() {
		p, err := a.core.Profiles.Get(a.ctx, c.ParticipantID)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.profileV.ShowError(err)
				return
			}
			a.profileV.Update(c, p)
		})
	}()
}

func (a *App) showHelp() {
	a.help.Update([]views.HelpSection{
		{Title: "Conversation List", Keys: append([]string{"enter:open"}, a.registry.Hints(pageConversations)...)},
		{Title: "Message Thread", Keys: append(a.registry.Hints(pageThread), "enter:send (in composer)", "esc:leave composer")},
		{Title: "Commands (: mode)", Keys: []string{
			"open <name>:open the first matching conversation",
			"filter <text>:filter the conversation list",
			"profile:show the open participant",
			"reload:retry failed loads",
			"clear:drop cached profiles",
			"quit:exit",
		}},
	})
	a.pages.Push(pageHelp)
	a.app.SetFocus(a.help)
}

func (a *App) reload() {
	go func() {
		if err := a.vm.Reload(a.ctx); err != nil {
			a.flashErr("Reload failed", err)
			return
		}
		a.vm.Flash.Set(model.Info, "Reloaded", 2*time.Second)
	}()
}

func (a *App) refreshNow() {
	go func() {
		if err := a.vm.Focus(a.ctx); err != nil {
			a.logger.Debug("refresh failed", zap.Error(err))
		}
	}()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Canonical() {
	case "quit":
		a.app.Stop()
	case "help":
		a.showHelp()
	case "reload":
		a.reload()
	case "filter":
		a.vm.SetFilter(cmd.Args)
	case "open":
		matches := conversation.Filter(a.core.Index.Snapshot(), cmd.Args)
		if len(matches) == 0 {
			a.vm.Flash.Set(model.Warn, fmt.Sprintf("No conversation matches %q", cmd.Args), 5*time.Second)
			return
		}
		if a.pages.Current() != pageConversations {
			a.pages.Reset(pageConversations)
		}
		a.openConversation(matches[0])
	case "profile":
		if c, ok := a.vm.Active(); ok {
			a.showProfile(c)
		} else if c, ok := a.list.Selected(); ok {
			a.showProfile(c)
		}
	case "clear-cache":
		n := a.core.Cache.ClearAll(a.ctx)
		a.vm.Flash.Set(model.Info, fmt.Sprintf("Cleared %d cached entries", n), 3*time.Second)
	default:
		a.vm.Flash.Set(model.Warn, fmt.Sprintf("Unknown command %q", cmd.Name), 3*time.Second)
	}
}

// crumbLabel names the thread crumb after the open participant.
func (a *App) crumbLabel(page string) string {
	if page != pageThread {
		return page
	}
	c, ok := a.vm.Active()
	if !ok {
		return page
	}
	if c.ParticipantName != "" {
		return c.ParticipantName
	}
	return c.ParticipantID
}

func (a *App) flashErr(prefix string, err error) {
	a.logger.Warn(strings.ToLower(prefix), zap.Error(err))
	a.vm.Flash.Set(model.Err, prefix+": "+err.Error(), 8*time.Second)
}

// render redraws every view from the view model. Runs on the UI goroutine.
func (a *App) render() {
	listState, listErr := a.vm.ListState()
	switch {
	case a.vm.Loaded():
		a.list.Update(a.vm.Conversations(), a.vm.ConversationCount(), a.vm.Filter())
	case listState == status.Failed:
		a.list.ShowStatus(fmt.Sprintf("Could not load conversations: %v. Press R to retry.", listErr), a.theme.FlashErrColor)
	default:
		a.list.ShowStatus("Loading conversations...", a.theme.FgColor)
	}

	state := listState
	if c, ok := a.vm.Active(); ok && a.pages.Contains(pageThread) {
		threadState, threadErr := a.vm.ThreadState()
		rows := a.vm.Thread()
		a.thread.SetConversation(c)
		switch {
		case threadState == status.Failed && len(rows) == 0:
			a.thread.ShowStatus(fmt.Sprintf("Could not load messages: %v. Press R to retry.", threadErr))
		case threadState == status.Loading && len(rows) == 0:
			a.thread.ShowStatus("Loading messages...")
		default:
			a.thread.Update(rows)
		}
		state = threadState
	}

	a.info.Update(&ui.SessionData{
		Session:       a.session,
		User:          a.user,
		State:         state,
		Conversations: a.vm.ConversationCount(),
		Unread:        a.vm.TotalUnread(),
		Uptime:        time.Since(a.started),
	})
	a.crumbs.Update(a.pages.Stack())
	a.statusBar.Tick()
	a.flashBar.Update(a.vm.Flash)
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	go a.vm.Watch(a.ctx)
	go a.refreshLoop()
	go func() {
		if err := a.vm.MountList(a.ctx); err != nil {
			a.flashErr("Could not load conversations", err)
		}
	}()

	a.statusBar.SetHints(a.registry.Hints(pageConversations))
	a.render()
	err := a.app.Run()
	a.cancel()
	return err
}

// refreshLoop redraws on every view model signal, and once a second so the
// flash bar and clock expire.
func (a *App) refreshLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.vm.RefreshCh():
		case <-ticker.C:
		case <-a.ctx.Done():
			return
		}
		a.app.QueueUpdateDraw(a.render)
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
