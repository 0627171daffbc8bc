// Package tabs tracks per-tab state for the browser tracking agent: whether
// tracking is enabled, the detected company, and whether the user declined
// the save prompt on the current page.
package tabs

import (
	"errors"
	"log"

	"github.com/jonathan/job-tracker/internal/agent/state"
)

// ErrClosed is returned by operations on a stopped machine.
var ErrClosed = errors.New("tab machine is closed")

// Tab is the state of one browser tab.
type Tab struct {
	ID       int
	URL      string
	Company  string
	Tracking bool
	Declined bool
}

// Checkpointer persists tab state across agent restarts. *state.Store
// satisfies it.
type Checkpointer interface {
	PutTab(rec state.TabRecord) error
	DeleteTab(id int) error
	ClearTabs() error
}

type command struct {
	apply func(tabs map[int]*Tab) any
	reply chan any
}

// Machine serializes all tab state changes through a single goroutine, so
// concurrent browser events never race on the tab map.
type Machine struct {
	cmds  chan command
	done  chan struct{}
	store Checkpointer
}

// New creates a machine and starts its command loop. A nil store disables
// checkpointing.
func New(store Checkpointer) *Machine {
	m := &Machine{
		cmds:  make(chan command),
		done:  make(chan struct{}),
		store: store,
	}
	go m.run()
	return m
}

func (m *Machine) run() {
	tabs := make(map[int]*Tab)
	for {
		select {
		case cmd := <-m.cmds:
			cmd.reply <- cmd.apply(tabs)
		case <-m.done:
			return
		}
	}
}

// Close stops the command loop. Pending operations fail with ErrClosed.
func (m *Machine) Close() {
	close(m.done)
}

// do runs fn inside the command loop and returns its result.
func (m *Machine) do(fn func(tabs map[int]*Tab) any) (any, error) {
	select {
	case <-m.done:
		return nil, ErrClosed
	default:
	}

	cmd := command{apply: fn, reply: make(chan any, 1)}
	select {
	case m.cmds <- cmd:
		return <-cmd.reply, nil
	case <-m.done:
		return nil, ErrClosed
	}
}

// checkpoint persists one tab's state, logging rather than failing on
// storage errors.
func (m *Machine) checkpoint(t *Tab) {
	if m.store == nil {
		return
	}
	err := m.store.PutTab(state.TabRecord{
		ID:       t.ID,
		URL:      t.URL,
		Company:  t.Company,
		Tracking: t.Tracking,
		Declined: t.Declined,
	})
	if err != nil {
		log.Printf("[tabs] checkpoint failed for tab %d: %v", t.ID, err)
	}
}

// Rehydrate restores tab state from checkpoints. Typically called once at
// startup before browser events arrive.
func (m *Machine) Rehydrate(recs []state.TabRecord) error {
	_, err := m.do(func(tabs map[int]*Tab) any {
		for _, rec := range recs {
			tabs[rec.ID] = &Tab{
				ID:       rec.ID,
				URL:      rec.URL,
				Company:  rec.Company,
				Tracking: rec.Tracking,
				Declined: rec.Declined,
			}
		}
		return nil
	})
	return err
}

// StartTracking enables tracking on a tab, creating it if unknown. Any
// previous decline on the tab is cleared.
func (m *Machine) StartTracking(id int, url string) error {
	_, err := m.do(func(tabs map[int]*Tab) any {
		t, ok := tabs[id]
		if !ok {
			t = &Tab{ID: id}
			tabs[id] = t
		}
		t.URL = url
		t.Tracking = true
		t.Declined = false
		m.checkpoint(t)
		return nil
	})
	return err
}

// StopTracking disables tracking on a tab. Unknown tabs are ignored.
func (m *Machine) StopTracking(id int) error {
	_, err := m.do(func(tabs map[int]*Tab) any {
		if t, ok := tabs[id]; ok {
			t.Tracking = false
			m.checkpoint(t)
		}
		return nil
	})
	return err
}

// Toggle flips tracking on a tab and returns the new state. An unknown tab
// is created with tracking enabled.
func (m *Machine) Toggle(id int) (bool, error) {
	res, err := m.do(func(tabs map[int]*Tab) any {
		t, ok := tabs[id]
		if !ok {
			t = &Tab{ID: id}
			tabs[id] = t
		}
		t.Tracking = !t.Tracking
		if t.Tracking {
			t.Declined = false
		}
		m.checkpoint(t)
		return t.Tracking
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// Navigate records a tab moving to a new URL. Moving to a different URL
// drops the tab back to idle and clears the page state (company, declined
// prompt). A navigation that completes on the same URL is a soft reload:
// tracking stays on so observers can rebind.
func (m *Machine) Navigate(id int, url string) error {
	_, err := m.do(func(tabs map[int]*Tab) any {
		t, ok := tabs[id]
		if !ok {
			t = &Tab{ID: id}
			tabs[id] = t
		}
		if t.URL != url {
			t.URL = url
			t.Tracking = false
			t.Company = ""
			t.Declined = false
			m.checkpoint(t)
		}
		return nil
	})
	return err
}

// SetCompany records the company detected on a tab's current page.
func (m *Machine) SetCompany(id int, company string) error {
	_, err := m.do(func(tabs map[int]*Tab) any {
		t, ok := tabs[id]
		if !ok {
			t = &Tab{ID: id}
			tabs[id] = t
		}
		t.Company = company
		m.checkpoint(t)
		return nil
	})
	return err
}

// Decline records that the user dismissed the save prompt on this page; the
// tab will not prompt again until it navigates.
func (m *Machine) Decline(id int) error {
	_, err := m.do(func(tabs map[int]*Tab) any {
		if t, ok := tabs[id]; ok {
			t.Declined = true
			m.checkpoint(t)
		}
		return nil
	})
	return err
}

// Remove drops a tab (on tab close) and deletes its checkpoint.
func (m *Machine) Remove(id int) error {
	_, err := m.do(func(tabs map[int]*Tab) any {
		if _, ok := tabs[id]; ok {
			delete(tabs, id)
			if m.store != nil {
				if err := m.store.DeleteTab(id); err != nil {
					log.Printf("[tabs] checkpoint delete failed for tab %d: %v", id, err)
				}
			}
		}
		return nil
	})
	return err
}

// Status returns a tab's state and whether the tab is known.
func (m *Machine) Status(id int) (Tab, bool, error) {
	res, err := m.do(func(tabs map[int]*Tab) any {
		if t, ok := tabs[id]; ok {
			return *t
		}
		return nil
	})
	if err != nil {
		return Tab{}, false, err
	}
	if res == nil {
		return Tab{}, false, nil
	}
	return res.(Tab), true, nil
}

// Snapshot returns a copy of every known tab.
func (m *Machine) Snapshot() ([]Tab, error) {
	res, err := m.do(func(tabs map[int]*Tab) any {
		out := make([]Tab, 0, len(tabs))
		for _, t := range tabs {
			out = append(out, *t)
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	return res.([]Tab), nil
}
