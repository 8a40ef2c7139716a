package notifs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// maxFieldValue is Discord's limit for an embed field value, less room for
// the code fence around it.
const maxFieldValue = 1024 - 16

type Provider interface {
	SendMessage(ctx context.Context, title string, desc string, msgKey string, msgValue string) error
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Footer struct {
	Text    string `json:"text"`
	IconUrl string `json:"icon_url,omitempty"`
}

type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Url         string  `json:"url,omitempty"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields"`
	Footer      Footer  `json:"footer,omitempty"`
}

type message struct {
	Embed   []Embed `json:"embeds"`
	Content string  `json:"content,omitempty"`
}

type Discord struct {
	webhook string
	client  *http.Client
}

func NewDiscord(webhook string) *Discord {
	return &Discord{webhook: webhook, client: &http.Client{Timeout: 10 * time.Second}}
}

// SendMessage posts one embed per chunk of msgValue, splitting long values on
// line boundaries.
func (d *Discord) SendMessage(ctx context.Context, title string, desc string, msgKey string, msgValue string) error {
	for _, chunk := range split(msgValue, maxFieldValue) {
		msg := message{Embed: []Embed{{
			Title:       fmt.Sprintf(":books: %s", title),
			Description: fmt.Sprintf(":cyclone: **%s**", desc),
			Color:       3447003,
			Footer:      Footer{Text: "apidock"},
			Fields: []Field{{
				Name:  fmt.Sprintf(":dart: **%s**", msgKey),
				Value: fmt.Sprintf("```\n%s\n```", chunk),
			}},
		}}}
		if err := d.send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (d *Discord) send(ctx context.Context, msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshalling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weird status code from discord: %s: %s", resp.Status, b)
	}
	return nil
}

func split(s string, limit int) []string {
	if len(s) <= limit {
		return []string{s}
	}

	var out []string
	for len(s) > limit {
		cut := strings.LastIndexByte(s[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		out = append(out, s[:cut])
		s = strings.TrimPrefix(s[cut:], "\n")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
