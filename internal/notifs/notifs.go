package notifs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ArCaneSec/apidock/internal/logging"
)

type Notify interface {
	ImportNotif(ctx context.Context, project string, source string, created []string, skipped []string)
	ErrNotif(ctx context.Context, details string, err error)
	ExportNotif(ctx context.Context, project string, file string)
}

type Notif struct {
	provider Provider
	log      *slog.Logger
}

// NewNotif sends through Discord when a webhook is configured and only logs
// otherwise.
func NewNotif(webhook string, log *slog.Logger) Notify {
	if log == nil {
		log = logging.Nop()
	}
	n := &Notif{log: log.With("component", "notifs")}
	if webhook != "" {
		n.provider = NewDiscord(webhook)
	}
	return n
}

func (n *Notif) ImportNotif(ctx context.Context, project string, source string, created []string, skipped []string) {
	n.log.InfoContext(ctx, "import finished", "project", project, "source", source, "created", len(created), "skipped", len(skipped))

	desc := fmt.Sprintf("%d APIs imported into %s, %d skipped", len(created), project, len(skipped))
	value := strings.Join(created, "\n")
	if len(skipped) > 0 {
		value += "\n\nskipped (name taken):\n" + strings.Join(skipped, "\n")
	}
	n.send(ctx, "API Import", desc, "source: "+source, value)
}

func (n *Notif) ErrNotif(ctx context.Context, detail string, err error) {
	n.log.ErrorContext(ctx, detail, "error", err)
	n.send(ctx, "Failure", detail, "error", err.Error())
}

func (n *Notif) ExportNotif(ctx context.Context, project string, file string) {
	n.log.InfoContext(ctx, "export written", "project", project, "file", file)
	n.send(ctx, "Export", "catalogue of "+project+" exported", "file", file)
}

func (n *Notif) send(ctx context.Context, title, desc, key, value string) {
	if n.provider == nil {
		return
	}
	if err := n.provider.SendMessage(ctx, title, desc, key, value); err != nil {
		n.log.WarnContext(ctx, "notification not delivered", "title", title, "error", err)
	}
}
