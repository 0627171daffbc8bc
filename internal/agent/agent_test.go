package agent

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-tracker/internal/agent/client"
	"github.com/jonathan/job-tracker/internal/agent/detect"
	"github.com/jonathan/job-tracker/internal/agent/notify"
	"github.com/jonathan/job-tracker/internal/types"
)

// fakeAPI records SaveCompany calls.
type fakeAPI struct {
	mu        sync.Mutex
	saves     []types.SaveApplicationRequest
	saveErr   error
	loggedIn  bool
	username  string
	loginErr  error
	isNewNext bool
}

func (f *fakeAPI) Login(_ context.Context, username, _ string) (*types.User, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.loggedIn, f.username = true, username
	return &types.User{Username: username}, nil
}

func (f *fakeAPI) Logout() error {
	f.loggedIn = false
	return nil
}

func (f *fakeAPI) LoggedIn() (bool, string) { return f.loggedIn, f.username }

func (f *fakeAPI) SaveCompany(_ context.Context, req types.SaveApplicationRequest) (*types.Application, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, false, f.saveErr
	}
	f.saves = append(f.saves, req)
	return &types.Application{Name: req.Name, URL: req.URL}, f.isNewNext, nil
}

func (f *fakeAPI) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

// recordingNotifier captures outcomes.
type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []notify.Outcome
}

func (n *recordingNotifier) Notify(outcome notify.Outcome, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
}

func (n *recordingNotifier) last() notify.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.outcomes) == 0 {
		return ""
	}
	return n.outcomes[len(n.outcomes)-1]
}

func pageWithCompany(t *testing.T, company string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><h1>Apply to ` + company + `</h1></body></html>`))
	require.NoError(t, err)
	return doc
}

func newTestAgent(t *testing.T, api *fakeAPI, notifier *recordingNotifier) *Agent {
	t.Helper()
	a, err := New(Config{
		API:      api,
		Notifier: notifier,
		FetchPage: func(_ context.Context, _ string) (*goquery.Document, error) {
			return pageWithCompany(t, "Acme"), nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestSaveCompanyFlow(t *testing.T) {
	api := &fakeAPI{isNewNext: true}
	notifier := &recordingNotifier{}
	a := newTestAgent(t, api, notifier)

	resp := a.Handle(context.Background(), &Request{
		Action:  ActionSaveCompany,
		Company: "Acme",
		URL:     "https://acme.com/jobs/1",
	})
	require.True(t, resp.Success)
	assert.Equal(t, 1, api.saveCount())
	assert.Equal(t, notify.OutcomeSaved, notifier.last())
}

func TestSaveCompanyDebounced(t *testing.T) {
	api := &fakeAPI{}
	notifier := &recordingNotifier{}
	a := newTestAgent(t, api, notifier)

	req := &Request{Action: ActionSaveCompany, Company: "Acme", URL: "https://acme.com/jobs/1"}

	// Two identical saves within the window: exactly one outbound request
	resp := a.Handle(context.Background(), req)
	require.True(t, resp.Success)
	resp = a.Handle(context.Background(), req)
	require.True(t, resp.Success)

	assert.Equal(t, 1, api.saveCount())
	assert.Equal(t, notify.OutcomeDuplicate, notifier.last())

	// A different posting is not suppressed
	a.Handle(context.Background(), &Request{Action: ActionSaveCompany, Company: "Acme", URL: "https://acme.com/jobs/2"})
	assert.Equal(t, 2, api.saveCount())
}

func TestSaveCompanyAuthRequired(t *testing.T) {
	api := &fakeAPI{saveErr: client.ErrAuthRequired}
	notifier := &recordingNotifier{}
	a := newTestAgent(t, api, notifier)

	resp := a.Handle(context.Background(), &Request{Action: ActionSaveCompany, Company: "Acme"})
	assert.False(t, resp.Success)
	assert.Equal(t, "authentication required", resp.Message)
	assert.Equal(t, notify.OutcomeAuthRequired, notifier.last())
}

func TestSaveCompanyRequiresName(t *testing.T) {
	a := newTestAgent(t, &fakeAPI{}, &recordingNotifier{})

	resp := a.Handle(context.Background(), &Request{Action: ActionSaveCompany, Company: "   "})
	assert.False(t, resp.Success)
}

func TestStartTrackingIdempotent(t *testing.T) {
	a := newTestAgent(t, &fakeAPI{}, &recordingNotifier{})

	resp := a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 1, URL: "https://acme.com"})
	require.True(t, resp.Success)
	assert.Equal(t, "tracking started", resp.Message)

	resp = a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 1, URL: "https://acme.com"})
	require.True(t, resp.Success)
	assert.Equal(t, "already tracking", resp.Message)
}

func TestTrackingStatus(t *testing.T) {
	a := newTestAgent(t, &fakeAPI{}, &recordingNotifier{})

	resp := a.Handle(context.Background(), &Request{Action: ActionTrackingStatus, TabID: 1})
	require.True(t, resp.Success)
	assert.Equal(t, false, resp.Data.(map[string]any)["tracking"])

	a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 1, URL: "https://acme.com"})

	resp = a.Handle(context.Background(), &Request{Action: ActionTrackingStatus, TabID: 1})
	assert.Equal(t, true, resp.Data.(map[string]any)["tracking"])
}

func TestNavigateStopsTrackingOnNewURL(t *testing.T) {
	a := newTestAgent(t, &fakeAPI{}, &recordingNotifier{})

	a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 1, URL: "https://acme.com/jobs/1"})

	resp := a.Handle(context.Background(), &Request{Action: ActionNavigate, TabID: 1, URL: "https://acme.com/jobs/2"})
	require.True(t, resp.Success)
	assert.Equal(t, false, resp.Data.(map[string]any)["tracking"])
}

func TestNavigateSameURLReportsTrackingStillOn(t *testing.T) {
	a := newTestAgent(t, &fakeAPI{}, &recordingNotifier{})

	a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 1, URL: "https://acme.com/jobs/1"})

	resp := a.Handle(context.Background(), &Request{Action: ActionNavigate, TabID: 1, URL: "https://acme.com/jobs/1"})
	require.True(t, resp.Success)
	assert.Equal(t, true, resp.Data.(map[string]any)["tracking"])
}

func TestNavigateFlagsJobPages(t *testing.T) {
	a := newTestAgent(t, &fakeAPI{}, &recordingNotifier{})

	resp := a.Handle(context.Background(), &Request{Action: ActionNavigate, TabID: 1, URL: "https://boards.greenhouse.io/acme/jobs/123"})
	require.True(t, resp.Success)
	assert.Equal(t, true, resp.Data.(map[string]any)["jobPage"])

	resp = a.Handle(context.Background(), &Request{Action: ActionNavigate, TabID: 1, URL: "https://example.com/blog/post"})
	require.True(t, resp.Success)
	assert.Equal(t, false, resp.Data.(map[string]any)["jobPage"])
}

func TestGetJobText(t *testing.T) {
	a, err := New(Config{
		API: &fakeAPI{},
		FetchPage: func(_ context.Context, _ string) (*goquery.Document, error) {
			doc, derr := goquery.NewDocumentFromReader(strings.NewReader(
				`<html><body><nav>Menu</nav><div class="job-description">Build Go services</div></body></html>`))
			require.NoError(t, derr)
			return doc, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	resp := a.Handle(context.Background(), &Request{Action: ActionJobText, TabID: 1, URL: "https://acme.com/careers/1"})
	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "Build Go services", data["text"])
	assert.Equal(t, "unknown", data["platform"])
}

func TestGetJobTextFallsBackToTabURL(t *testing.T) {
	a := newTestAgent(t, &fakeAPI{}, &recordingNotifier{})

	resp := a.Handle(context.Background(), &Request{Action: ActionJobText, TabID: 7})
	assert.False(t, resp.Success, "unknown tab with no URL has nothing to fetch")

	a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 7, URL: "https://acme.com/jobs/1"})
	resp = a.Handle(context.Background(), &Request{Action: ActionJobText, TabID: 7})
	require.True(t, resp.Success)
	assert.Contains(t, resp.Data.(map[string]any)["text"], "Apply to Acme")
}

func TestApplyClickedOnTrackedTab(t *testing.T) {
	api := &fakeAPI{isNewNext: true}
	notifier := &recordingNotifier{}
	a := newTestAgent(t, api, notifier)

	a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 1, URL: "https://acme.com/jobs/1"})

	resp := a.Handle(context.Background(), &Request{
		Action:      ActionApplyClicked,
		TabID:       1,
		URL:         "https://acme.com/jobs/1",
		Interaction: &detect.Interaction{TagName: "button", Text: "Apply Now"},
	})
	require.True(t, resp.Success)
	require.Equal(t, 1, api.saveCount())
	assert.Equal(t, "Acme", api.saves[0].Name)
	assert.Equal(t, "https://acme.com/jobs/1", api.saves[0].URL)
}

func TestApplyClickedIgnoredOnUntrackedTab(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAgent(t, api, &recordingNotifier{})

	resp := a.Handle(context.Background(), &Request{
		Action:      ActionApplyClicked,
		TabID:       99,
		Interaction: &detect.Interaction{TagName: "button", Text: "Apply"},
	})
	require.True(t, resp.Success)
	assert.Zero(t, api.saveCount())
}

func TestApplyClickedIgnoresNonApplyControls(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAgent(t, api, &recordingNotifier{})

	a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 1, URL: "https://acme.com"})
	resp := a.Handle(context.Background(), &Request{
		Action:      ActionApplyClicked,
		TabID:       1,
		Interaction: &detect.Interaction{TagName: "button", Text: "Save job"},
	})
	require.True(t, resp.Success)
	assert.Zero(t, api.saveCount())
}

func TestLoginLogoutCheckAuth(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAgent(t, api, &recordingNotifier{})

	resp := a.Handle(context.Background(), &Request{Action: ActionCheckAuth})
	assert.Equal(t, false, resp.Data.(map[string]any)["loggedIn"])

	resp = a.Handle(context.Background(), &Request{Action: ActionLogin, Username: "alice", Password: "pw"})
	require.True(t, resp.Success)

	resp = a.Handle(context.Background(), &Request{Action: ActionCheckAuth})
	assert.Equal(t, true, resp.Data.(map[string]any)["loggedIn"])

	resp = a.Handle(context.Background(), &Request{Action: ActionLogout})
	require.True(t, resp.Success)

	resp = a.Handle(context.Background(), &Request{Action: ActionCheckAuth})
	assert.Equal(t, false, resp.Data.(map[string]any)["loggedIn"])
}

func TestUnknownAction(t *testing.T) {
	a := newTestAgent(t, &fakeAPI{}, &recordingNotifier{})

	resp := a.Handle(context.Background(), &Request{Action: "teleport"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "unknown action")
}

func TestRescanUpdatesTrackedTabs(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAgent(t, api, &recordingNotifier{})

	a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 1, URL: "https://acme.com/jobs/1"})
	a.Handle(context.Background(), &Request{Action: ActionEnableTracking, TabID: 2, URL: "https://acme.com/jobs/2"})

	resp := a.Handle(context.Background(), &Request{Action: ActionRescan})
	require.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.(map[string]any)["scanned"])

	status := a.Handle(context.Background(), &Request{Action: ActionTrackingStatus, TabID: 1})
	assert.Equal(t, "Acme", status.Data.(map[string]any)["company"])
}

func TestRunProcessesFrames(t *testing.T) {
	api := &fakeAPI{isNewNext: true}
	a := newTestAgent(t, api, &recordingNotifier{})

	var in bytes.Buffer
	writeRequest := func(req *Request) {
		payload, err := reqPayload(req)
		require.NoError(t, err)
		in.Write(payload)
	}
	writeRequest(&Request{ID: 1, Action: ActionEnableTracking, TabID: 1, URL: "https://acme.com"})
	writeRequest(&Request{ID: 2, Action: ActionSaveCompany, Company: "Acme", URL: "https://acme.com"})

	var out bytes.Buffer
	require.NoError(t, a.Run(context.Background(), &in, &out))

	first, err := readResponse(&out)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.True(t, first.Success)

	second, err := readResponse(&out)
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)
	assert.True(t, second.Success)

	assert.Equal(t, 1, api.saveCount())
}
