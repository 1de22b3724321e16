// Package client is a minimal client for the http-recorder intake API,
// intended for proxy adapters that run out of process.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client { return &Client{BaseURL: baseURL, HTTP: http.DefaultClient} }

// FlowRecord mirrors the intake wire format. Bodies are raw bytes and travel
// base64-encoded; leave Content nil when no body was captured.
type FlowRecord struct {
	ClientAddr string       `json:"client_addr"`
	ServerAddr string       `json:"server_addr,omitempty"`
	Request    FlowRequest  `json:"request"`
	Response   FlowResponse `json:"response"`
}

type FlowRequest struct {
	TimestampStart float64     `json:"timestamp_start"`
	HTTPVersion    string      `json:"http_version"`
	Method         string      `json:"method"`
	URL            string      `json:"url"`
	Headers        [][2]string `json:"headers"`
	Content        []byte      `json:"content,omitempty"`
}

type FlowResponse struct {
	TimestampEnd float64     `json:"timestamp_end"`
	HTTPVersion  string      `json:"http_version"`
	StatusCode   int         `json:"status_code"`
	Headers      [][2]string `json:"headers"`
	Content      []byte      `json:"content,omitempty"`
}

type Status struct {
	Active    bool   `json:"active"`
	SessionID string `json:"session_id,omitempty"`
	Entries   uint32 `json:"entries"`
}

// Record submits one flow and returns the index the recorder assigned to it.
func (c *Client) Record(flow FlowRecord) (uint32, error) {
	body, err := json.Marshal(flow)
	if err != nil {
		return 0, err
	}
	resp, err := c.HTTP.Post(c.BaseURL+"/api/record", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, apiErr("record", resp)
	}
	var out struct {
		Index uint32 `json:"index"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Index, nil
}

// Finish finalizes the current session.
func (c *Client) Finish() error {
	resp, err := c.HTTP.Post(c.BaseURL+"/api/finish", "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiErr("finish", resp)
	}
	return nil
}

func (c *Client) Status() (Status, error) {
	resp, err := c.HTTP.Get(c.BaseURL + "/api/status")
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Status{}, apiErr("status", resp)
	}
	var out Status
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Status{}, err
	}
	return out, nil
}

func apiErr(op string, resp *http.Response) error {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error.Code != "" {
		return fmt.Errorf("%s: %s: %s", op, body.Error.Code, body.Error.Message)
	}
	return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
}
