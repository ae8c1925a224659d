package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/who0xac/reconify/pkg/orchestrator"
)

// send delivers a desktop notification
var send = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Message builds the notification title and body for a finished run
func Message(summary *orchestrator.Summary) (title, body string) {
	title = fmt.Sprintf("Reconify: %s", summary.Project)
	switch {
	case summary.Interrupted:
		body = "Run interrupted"
	case len(summary.Errors) > 0:
		body = fmt.Sprintf("%s run finished with %d errors", summary.Mode, len(summary.Errors))
	default:
		body = fmt.Sprintf("%s run finished", summary.Mode)
	}
	if summary.DryRun {
		body += " (dry run)"
	}
	return title, body
}

// RunFinished notifies the desktop that a run is over
func RunFinished(summary *orchestrator.Summary) error {
	title, body := Message(summary)
	if err := send(title, body); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
