package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/set-night/cardpost/internal/config"
	"github.com/set-night/cardpost/internal/domain"
	"github.com/set-night/cardpost/internal/service"
)

// RunNotifier posts run outcomes to an operations chat. A nil notifier is a
// no-op, so callers need not check whether notifications are configured.
type RunNotifier struct {
	sender Sender
	cfg    *config.Config
}

func NewRunNotifier(s Sender, cfg *config.Config) *RunNotifier {
	return &RunNotifier{sender: s, cfg: cfg}
}

func (n *RunNotifier) RunCompleted(ctx context.Context, s *service.RunSummary) {
	if n == nil || s == nil {
		return
	}
	icon := "✅"
	if s.Rejected > 0 {
		icon = "⚠️"
	}
	n.send(ctx, n.cfg.NotifyTopicRun, fmt.Sprintf("%s *Posting run completed*\n\n%s", icon, formatSummary(s)))
}

func (n *RunNotifier) RunFailed(ctx context.Context, s *service.RunSummary, err error) {
	if n == nil || err == nil {
		return
	}
	msg := fmt.Sprintf("❌ *Posting run failed*\n\n*Error:* `%s`\n*Time:* %s",
		EscapeMarkdown(err.Error()), time.Now().UTC().Format("2006-01-02 15:04:05"))
	if s != nil {
		msg += "\n\n" + formatSummary(s)
	}
	n.send(ctx, n.cfg.NotifyTopicError, msg)
}

func (n *RunNotifier) send(ctx context.Context, topicID int, msg string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.NotifyTimeout)
	defer cancel()

	if err := SendLongMessage(ctx, n.sender, n.cfg.NotifyChatID, topicID, msg); err != nil {
		slog.Error("failed to send telegram notification", "topic", topicID, "error", err)
	}
}

func formatSummary(s *service.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Run:* `%s`\n", s.RunID)
	fmt.Fprintf(&b, "*Read:* %d\n", s.Read)
	fmt.Fprintf(&b, "*Posted:* %d\n", s.Posted)
	fmt.Fprintf(&b, "*Rejected:* %d (skipped %d)\n", s.Rejected, s.Skipped)
	fmt.Fprintf(&b, "*Chunks:* %d (retries %d)\n", s.Chunks, s.Retries)
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "*Duration:* %s\n", s.Elapsed().Round(time.Millisecond))
	}

	if len(s.RejectedByCode) > 0 {
		codes := make([]domain.FailureCode, 0, len(s.RejectedByCode))
		for code := range s.RejectedByCode {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

		b.WriteString("\n*Rejections:*\n")
		for _, code := range codes {
			fmt.Fprintf(&b, "• %s (%d): %d\n", EscapeMarkdown(code.String()), int(code), s.RejectedByCode[code])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
