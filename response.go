package sidecarssr

import (
	"encoding/json"
	"strings"
)

// Page is the Inertia page object (component, props, url, version, ...). It is
// sent to the SSR function unchanged.
type Page map[string]any

func (p Page) stringField(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Component is the page component name, or "" when absent.
func (p Page) Component() string { return p.stringField("component") }

// URL is the page URL, or "" when absent.
func (p Page) URL() string { return p.stringField("url") }

// Version is the asset version, or "" when absent.
func (p Page) Version() string { return p.stringField("version") }

// Response is a server-rendered page: markup for the document head and the
// app root.
type Response struct {
	Head string `json:"head"`
	Body string `json:"body"`
}

// renderBody is the JSON contract of the SSR function. Pointers distinguish
// missing keys from empty values.
type renderBody struct {
	Head *[]string `json:"head"`
	Body *string   `json:"body"`
}

func decodeResponse(payload []byte) (*Response, error) {
	var raw renderBody
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &MalformedResponseError{Reason: "body is not a render result", Err: err}
	}
	if raw.Head == nil {
		return nil, &MalformedResponseError{Reason: `missing "head"`}
	}
	if raw.Body == nil {
		return nil, &MalformedResponseError{Reason: `missing "body"`}
	}
	return &Response{
		Head: strings.Join(*raw.Head, "\n"),
		Body: *raw.Body,
	}, nil
}
