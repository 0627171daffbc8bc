// Package agent implements the native messaging host that connects the
// browser extension to the job tracker API. Messages are length-prefixed
// JSON frames over stdin/stdout, the Chrome native messaging wire format.
package agent

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jonathan/job-tracker/internal/agent/detect"
)

// maxFrameSize caps inbound frames; Chrome itself limits native messages to
// 4GB out, 1MB in, so anything larger is a protocol violation.
const maxFrameSize = 1 << 20

// Message actions understood by the host.
const (
	ActionEnableTracking = "enableTracking"
	ActionStopTracking   = "stopTracking"
	ActionToggleTracking = "toggleTracking"
	ActionTrackingStatus = "getTrackingStatus"
	ActionDeclinePrompt  = "declinePrompt"
	ActionNavigate       = "navigate"
	ActionJobText        = "getJobText"
	ActionTabClosed      = "tabClosed"
	ActionApplyClicked   = "applyClicked"
	ActionSaveCompany    = "saveCompany"
	ActionCheckAuth      = "checkAuth"
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionRescan         = "rescan"
)

// Request is one inbound extension message.
type Request struct {
	ID     int    `json:"id,omitempty"`
	Action string `json:"action"`

	TabID int    `json:"tabId,omitempty"`
	URL   string `json:"url,omitempty"`

	// saveCompany fields
	Company string `json:"company,omitempty"`
	Notes   string `json:"notes,omitempty"`

	// applyClicked payload
	Interaction *detect.Interaction `json:"interaction,omitempty"`

	// login credentials
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Response is one outbound host message.
type Response struct {
	ID      int    `json:"id,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ReadFrame reads one length-prefixed JSON frame.
func ReadFrame(r io.Reader) (*Request, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &req, nil
}

// WriteFrame writes one length-prefixed JSON frame.
func WriteFrame(w io.Writer, resp *Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}
