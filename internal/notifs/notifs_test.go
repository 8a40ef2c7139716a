package notifs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hook struct {
	mu       sync.Mutex
	messages []message
	status   int
}

func (h *hook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var m message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	h.messages = append(h.messages, m)
	h.mu.Unlock()
	if h.status != 0 {
		w.WriteHeader(h.status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func TestImportNotifPostsEmbed(t *testing.T) {
	h := &hook{}
	srv := httptest.NewServer(h)
	defer srv.Close()

	n := NewNotif(srv.URL, nil)
	n.ImportNotif(context.Background(), "shop", "http://specs/petstore.json", []string{"listPets", "getPet"}, []string{"Login"})

	require.Len(t, h.messages, 1)
	e := h.messages[0].Embed[0]
	assert.Contains(t, e.Title, "API Import")
	assert.Contains(t, e.Description, "2 APIs imported into shop, 1 skipped")
	require.Len(t, e.Fields, 1)
	assert.Contains(t, e.Fields[0].Value, "listPets\ngetPet")
	assert.Contains(t, e.Fields[0].Value, "Login")
}

func TestLongValuesAreSplit(t *testing.T) {
	h := &hook{}
	srv := httptest.NewServer(h)
	defer srv.Close()

	lines := make([]string, 300)
	for i := range lines {
		lines[i] = "endpoint-name"
	}
	err := NewDiscord(srv.URL).SendMessage(context.Background(), "t", "d", "k", strings.Join(lines, "\n"))
	require.NoError(t, err)

	require.Greater(t, len(h.messages), 1)
	for _, m := range h.messages {
		assert.LessOrEqual(t, len(m.Embed[0].Fields[0].Value), 1024)
	}
}

func TestSplitWithoutNewlines(t *testing.T) {
	parts := split(strings.Repeat("x", 25), 10)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, parts)
}

func TestSplitKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 7)
	parts := split(s, 5)
	assert.Equal(t, []string{"éé", "éé", "éé", "é"}, parts)
	for _, p := range parts {
		assert.True(t, utf8.ValidString(p), p)
	}
	assert.Equal(t, s, strings.Join(parts, ""))
}

func TestRejectedDelivery(t *testing.T) {
	h := &hook{status: http.StatusTooManyRequests}
	srv := httptest.NewServer(h)
	defer srv.Close()

	err := NewDiscord(srv.URL).SendMessage(context.Background(), "t", "d", "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	// the notifier swallows delivery failures
	NewNotif(srv.URL, nil).ErrNotif(context.Background(), "import failed", errors.New("boom"))
}

func TestNoWebhookIsQuiet(t *testing.T) {
	n := NewNotif("", nil)
	n.ExportNotif(context.Background(), "shop", "x.md")
	assert.Nil(t, n.(*Notif).provider)
}
