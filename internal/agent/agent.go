package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-tracker/internal/agent/client"
	"github.com/jonathan/job-tracker/internal/agent/debounce"
	"github.com/jonathan/job-tracker/internal/agent/detect"
	"github.com/jonathan/job-tracker/internal/agent/fetch"
	"github.com/jonathan/job-tracker/internal/agent/notify"
	"github.com/jonathan/job-tracker/internal/agent/state"
	"github.com/jonathan/job-tracker/internal/agent/tabs"
	"github.com/jonathan/job-tracker/internal/types"
)

// rescanConcurrency bounds parallel page fetches during a rescan.
const rescanConcurrency = 4

// API is the backend surface the agent needs. *client.Client satisfies it.
type API interface {
	Login(ctx context.Context, username, password string) (*types.User, error)
	Logout() error
	LoggedIn() (bool, string)
	SaveCompany(ctx context.Context, req types.SaveApplicationRequest) (*types.Application, bool, error)
}

// Config holds the agent's dependencies.
type Config struct {
	State    *state.Store
	API      API
	Notifier notify.Notifier

	// FetchPage overrides page fetching; nil uses fetch.Page.
	FetchPage func(ctx context.Context, url string) (*goquery.Document, error)
}

// Agent dispatches extension messages to the tab machine, the detector, the
// debounce ledger, and the backend API.
type Agent struct {
	tabs      *tabs.Machine
	detector  *detect.Detector
	ledger    *debounce.Ledger
	api       API
	notifier  notify.Notifier
	fetchPage func(ctx context.Context, url string) (*goquery.Document, error)
}

// New creates an agent and rehydrates tab state from the checkpoint store.
func New(cfg Config) (*Agent, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("agent requires an API client")
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	fetchPage := cfg.FetchPage
	if fetchPage == nil {
		fetchPage = func(ctx context.Context, url string) (*goquery.Document, error) {
			return fetch.Page(ctx, url, nil)
		}
	}

	var checkpointer tabs.Checkpointer
	if cfg.State != nil {
		checkpointer = cfg.State
	}

	a := &Agent{
		tabs:      tabs.New(checkpointer),
		detector:  detect.New(),
		ledger:    debounce.New(debounce.DefaultWindow),
		api:       cfg.API,
		notifier:  notifier,
		fetchPage: fetchPage,
	}

	if cfg.State != nil {
		recs, err := cfg.State.Tabs()
		if err != nil {
			return nil, fmt.Errorf("load tab checkpoints: %w", err)
		}
		if err := a.tabs.Rehydrate(recs); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Close stops the tab machine.
func (a *Agent) Close() {
	a.tabs.Close()
}

// Run reads frames from in and writes responses to out until EOF or context
// cancellation. Messages are handled in order; per-tab transitions never
// race because the tab machine serializes them.
func (a *Agent) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := ReadFrame(in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		resp := a.Handle(ctx, req)
		resp.ID = req.ID
		if err := WriteFrame(out, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// Handle processes one extension message.
func (a *Agent) Handle(ctx context.Context, req *Request) *Response {
	switch req.Action {
	case ActionEnableTracking:
		return a.handleEnableTracking(req)
	case ActionStopTracking:
		return a.errWrap(a.tabs.StopTracking(req.TabID), "tracking stopped")
	case ActionToggleTracking:
		return a.handleToggle(req)
	case ActionTrackingStatus:
		return a.handleStatus(req)
	case ActionDeclinePrompt:
		return a.errWrap(a.tabs.Decline(req.TabID), "prompt declined")
	case ActionNavigate:
		return a.handleNavigate(req)
	case ActionJobText:
		return a.handleJobText(ctx, req)
	case ActionTabClosed:
		return a.errWrap(a.tabs.Remove(req.TabID), "tab removed")
	case ActionApplyClicked:
		return a.handleApplyClicked(ctx, req)
	case ActionSaveCompany:
		return a.handleSaveCompany(ctx, req)
	case ActionCheckAuth:
		loggedIn, username := a.api.LoggedIn()
		return &Response{Success: true, Data: map[string]any{"loggedIn": loggedIn, "username": username}}
	case ActionLogin:
		return a.handleLogin(ctx, req)
	case ActionLogout:
		if err := a.api.Logout(); err != nil {
			return &Response{Message: err.Error()}
		}
		return &Response{Success: true, Message: "logged out"}
	case ActionRescan:
		return a.handleRescan(ctx)
	default:
		return &Response{Message: fmt.Sprintf("unknown action: %s", req.Action)}
	}
}

func (a *Agent) errWrap(err error, okMsg string) *Response {
	if err != nil {
		return &Response{Message: err.Error()}
	}
	return &Response{Success: true, Message: okMsg}
}

func (a *Agent) handleEnableTracking(req *Request) *Response {
	tab, known, err := a.tabs.Status(req.TabID)
	if err != nil {
		return &Response{Message: err.Error()}
	}
	if known && tab.Tracking {
		return &Response{Success: true, Message: "already tracking"}
	}
	return a.errWrap(a.tabs.StartTracking(req.TabID, req.URL), "tracking started")
}

// handleNavigate records the navigation and reports whether tracking is
// still on, so the content side knows to rebind its observers after a
// same-URL soft reload. The reply also flags URLs that look like job
// postings; the content side uses that to decide whether a soft navigation
// should re-prompt for tracking.
func (a *Agent) handleNavigate(req *Request) *Response {
	if err := a.tabs.Navigate(req.TabID, req.URL); err != nil {
		return &Response{Message: err.Error()}
	}
	tab, known, err := a.tabs.Status(req.TabID)
	if err != nil {
		return &Response{Message: err.Error()}
	}
	tracking := known && tab.Tracking
	return &Response{Success: true, Message: "navigation recorded", Data: map[string]any{
		"tracking": tracking,
		"jobPage":  fetch.LooksLikeJobPage(req.URL),
	}}
}

// handleJobText fetches the tab's page and returns the job posting text,
// trimmed with platform-specific content selectors. The extension feeds it
// to the resume analysis endpoint.
func (a *Agent) handleJobText(ctx context.Context, req *Request) *Response {
	pageURL := req.URL
	if pageURL == "" {
		tab, known, err := a.tabs.Status(req.TabID)
		if err != nil {
			return &Response{Message: err.Error()}
		}
		if !known || tab.URL == "" {
			return &Response{Message: "no URL for tab"}
		}
		pageURL = tab.URL
	}

	doc, err := a.fetchPage(ctx, pageURL)
	if err != nil {
		return &Response{Message: fmt.Sprintf("fetch failed: %v", err)}
	}

	platform := fetch.DetectPlatform(pageURL)
	return &Response{Success: true, Data: map[string]any{
		"text":     fetch.JobText(doc, platform),
		"platform": string(platform),
	}}
}

func (a *Agent) handleToggle(req *Request) *Response {
	tracking, err := a.tabs.Toggle(req.TabID)
	if err != nil {
		return &Response{Message: err.Error()}
	}
	return &Response{Success: true, Data: map[string]any{"tracking": tracking}}
}

func (a *Agent) handleStatus(req *Request) *Response {
	tab, known, err := a.tabs.Status(req.TabID)
	if err != nil {
		return &Response{Message: err.Error()}
	}
	if !known {
		return &Response{Success: true, Data: map[string]any{"tracking": false}}
	}
	return &Response{Success: true, Data: map[string]any{
		"tracking": tab.Tracking,
		"company":  tab.Company,
		"declined": tab.Declined,
		"url":      tab.URL,
	}}
}

// handleApplyClicked turns a click on a tracked tab into a save. The tab's
// URL at click time attributes SPA in-page navigations correctly.
func (a *Agent) handleApplyClicked(ctx context.Context, req *Request) *Response {
	tab, known, err := a.tabs.Status(req.TabID)
	if err != nil {
		return &Response{Message: err.Error()}
	}
	if !known || !tab.Tracking {
		return &Response{Success: true, Message: "tab not tracked, click ignored"}
	}
	if req.Interaction == nil || !detect.IsApplyControl(*req.Interaction) {
		return &Response{Success: true, Message: "not an apply control, click ignored"}
	}

	pageURL := req.URL
	if pageURL == "" {
		pageURL = tab.URL
	}

	company := tab.Company
	if company == "" {
		doc, err := a.fetchPage(ctx, pageURL)
		if err != nil {
			log.Printf("[agent] page fetch failed for tab %d: %v", req.TabID, err)
		} else {
			company = a.detector.Company(doc)
		}
	}
	if company == "" {
		// Best-effort heuristic: a miss is silently ignored
		return &Response{Success: true, Message: "no company detected, click ignored"}
	}

	_ = a.tabs.SetCompany(req.TabID, company)
	return a.save(ctx, company, pageURL, "")
}

func (a *Agent) handleSaveCompany(ctx context.Context, req *Request) *Response {
	if strings.TrimSpace(req.Company) == "" {
		return &Response{Message: "company name is required"}
	}
	return a.save(ctx, req.Company, req.URL, req.Notes)
}

// save runs the debounce-gated, at-most-once submission flow.
func (a *Agent) save(ctx context.Context, company, url, notes string) *Response {
	if !a.ledger.ShouldSubmit(debounce.Key(company, url)) {
		a.notifier.Notify(notify.OutcomeDuplicate, company)
		return &Response{Success: true, Message: "already tracked moments ago", Data: map[string]any{"duplicate": true}}
	}

	record, isNew, err := a.api.SaveCompany(ctx, types.SaveApplicationRequest{
		Name:  company,
		URL:   url,
		Notes: notes,
	})
	if errors.Is(err, client.ErrAuthRequired) {
		a.notifier.Notify(notify.OutcomeAuthRequired, company)
		return &Response{Message: "authentication required"}
	}
	if err != nil {
		a.notifier.Notify(notify.OutcomeFailed, company)
		return &Response{Message: err.Error()}
	}

	if isNew {
		a.notifier.Notify(notify.OutcomeSaved, company)
	} else {
		a.notifier.Notify(notify.OutcomeUpdated, company)
	}
	return &Response{Success: true, Data: map[string]any{"record": record, "isNew": isNew}}
}

func (a *Agent) handleLogin(ctx context.Context, req *Request) *Response {
	user, err := a.api.Login(ctx, req.Username, req.Password)
	if err != nil {
		return &Response{Message: err.Error()}
	}
	return &Response{Success: true, Data: map[string]any{"user": user}}
}

// handleRescan refreshes company detection for every tracked tab by
// re-fetching its page. Fetches run concurrently, bounded, and a failure on
// one tab does not stop the others.
func (a *Agent) handleRescan(ctx context.Context) *Response {
	snapshot, err := a.tabs.Snapshot()
	if err != nil {
		return &Response{Message: err.Error()}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rescanConcurrency)

	var scanned int
	for _, tab := range snapshot {
		if !tab.Tracking || tab.URL == "" {
			continue
		}
		scanned++
		g.Go(func() error {
			doc, err := a.fetchPage(ctx, tab.URL)
			if err != nil {
				log.Printf("[agent] rescan fetch failed for tab %d: %v", tab.ID, err)
				return nil
			}
			if company := a.detector.Company(doc); company != "" {
				_ = a.tabs.SetCompany(tab.ID, company)
			}
			return nil
		})
	}
	_ = g.Wait()

	return &Response{Success: true, Data: map[string]any{"scanned": scanned}}
}
