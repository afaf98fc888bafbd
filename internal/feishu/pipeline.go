package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neilzhangpro/moltbot-feishu/internal/audit"
	"github.com/neilzhangpro/moltbot-feishu/internal/bus"
	"github.com/neilzhangpro/moltbot-feishu/internal/command"
	"github.com/neilzhangpro/moltbot-feishu/internal/config"
)

// activityRecorder is the timeline surface the pipeline needs.
type activityRecorder interface {
	RecordInbound(accountID, chatID, eventType, traceID string) error
	RecordOutbound(accountID, chatID, traceID string) error
}

// Pipeline normalizes inbound events for one account and routes them to the
// command engine or the responder. All handlers run on router goroutines;
// dropping a message means returning without side effects beyond logging.
type Pipeline struct {
	account   *config.Account
	messenger Messenger
	commands  *command.Executor
	responder bus.Responder
	activity  activityRecorder
	auditor   *audit.Publisher
	status    bus.StatusSink
}

// NewPipeline wires the ingestion pipeline for one account. activity, auditor,
// and status may be nil.
func NewPipeline(account *config.Account, messenger Messenger, commands *command.Executor, responder bus.Responder, activity activityRecorder, auditor *audit.Publisher, status bus.StatusSink) *Pipeline {
	return &Pipeline{
		account:   account,
		messenger: messenger,
		commands:  commands,
		responder: responder,
		activity:  activity,
		auditor:   auditor,
		status:    status,
	}
}

// Handlers returns the router handler set backed by this pipeline.
func (p *Pipeline) Handlers() Handlers {
	return Handlers{
		Message:         p.HandleMessage,
		P2PChatEntered:  p.HandleP2PChatEntered,
		MemberAdded:     p.HandleMemberAdded,
		FileChanged:     p.HandleFileChanged,
		CalendarChanged: p.HandleCalendarChanged,
	}
}

// HandleMessage runs one inbound message through the full ingestion sequence:
// validate, filter to plain text, apply the direct-message policy, record the
// event, then dispatch to the command engine or the responder.
func (p *Pipeline) HandleMessage(ctx context.Context, msg *MessageEvent) {
	if msg == nil || !msg.HasSender || msg.MessageID == "" {
		slog.Debug("Message missing sender or payload, dropped", "account", p.account.ID)
		return
	}
	if msg.MessageType != "text" {
		slog.Debug("Non-text message dropped", "account", p.account.ID, "message_type", msg.MessageType)
		return
	}
	body := strings.TrimSpace(extractTextBody(msg.Content))
	if body == "" {
		slog.Debug("Blank message dropped", "account", p.account.ID, "message_id", msg.MessageID)
		return
	}

	senderID := msg.SenderOpenID
	if senderID == "" {
		senderID = msg.SenderUserID
	}
	if senderID == "" {
		senderID = "unknown"
	}

	isGroup := msg.ChatType != "p2p"
	if !isGroup && !p.account.SenderAllowed(senderID) {
		slog.Info("Direct message blocked by policy", "account", p.account.ID, "sender", senderID, "policy", p.account.DmPolicy)
		return
	}

	traceID := uuid.NewString()
	p.recordInbound(ctx, msg.ChatID, senderID, "message_receive", traceID)

	if isGroup {
		if cmd := command.Parse(body, msg.MentionedUserIDs); cmd != nil {
			p.runCommand(ctx, cmd, msg, senderID, traceID)
			return
		}
	}
	p.respond(ctx, msg, senderID, body, isGroup, traceID)
}

// runCommand executes an administrative command and replies with its result.
func (p *Pipeline) runCommand(ctx context.Context, cmd *command.Parsed, msg *MessageEvent, senderID, traceID string) {
	res := p.commands.Execute(ctx, cmd, command.Invocation{ChatID: msg.ChatID, SenderID: senderID})
	slog.Info("Command executed", "account", p.account.ID, "command", cmd.Type, "success", res.Success, "trace_id", traceID)
	if res.Message == "" {
		return
	}
	if _, err := p.messenger.ReplyText(ctx, msg.MessageID, res.Message); err != nil {
		slog.Warn("Command reply failed", "account", p.account.ID, "message_id", msg.MessageID, "error", err)
		return
	}
	p.recordOutbound(msg.ChatID, traceID)
}

// respond hands the message to the reply collaborator and waits for it to
// drain. Delivery replies to the originating message; blank payloads are
// skipped and send failures do not abort the turn.
func (p *Pipeline) respond(ctx context.Context, msg *MessageEvent, senderID, body string, isGroup bool, traceID string) {
	defer p.responder.MarkIdle()

	chatType := bus.ChatTypeDirect
	if isGroup {
		chatType = bus.ChatTypeGroup
	}
	inbound := &bus.InboundContext{
		Provider:  "feishu",
		Surface:   string(chatType),
		From:      senderID,
		To:        msg.ChatID,
		ChatType:  chatType,
		ReplyToID: msg.MessageID,
		Body:      body,
		AccountID: p.account.ID,
	}
	deliver := func(ctx context.Context, text string) error {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if _, err := p.messenger.ReplyText(ctx, msg.MessageID, text); err != nil {
			slog.Warn("Reply send failed", "account", p.account.ID, "message_id", msg.MessageID, "error", err)
			return nil
		}
		p.recordOutbound(msg.ChatID, traceID)
		return nil
	}

	if err := p.responder.Respond(ctx, inbound, deliver); err != nil {
		slog.Error("Responder dispatch failed", "account", p.account.ID, "trace_id", traceID, "error", err)
		return
	}
	if err := p.responder.WaitIdle(ctx); err != nil {
		slog.Warn("Responder did not drain", "account", p.account.ID, "trace_id", traceID, "error", err)
	}
}

// HandleP2PChatEntered greets a user opening a direct chat with the bot.
func (p *Pipeline) HandleP2PChatEntered(ctx context.Context, chatID string) {
	text := strings.TrimSpace(p.account.WelcomeText)
	if text == "" || chatID == "" {
		return
	}
	traceID := uuid.NewString()
	p.recordInbound(ctx, chatID, "", "p2p_chat_entered", traceID)
	if _, err := p.messenger.SendText(ctx, chatID, text); err != nil {
		slog.Warn("Welcome send failed", "account", p.account.ID, "chat", chatID, "error", err)
		return
	}
	p.recordOutbound(chatID, traceID)
}

// HandleMemberAdded greets users added to a group the bot is in.
func (p *Pipeline) HandleMemberAdded(ctx context.Context, chatID string, userIDs, names []string) {
	if chatID == "" || len(names) == 0 {
		return
	}
	traceID := uuid.NewString()
	p.recordInbound(ctx, chatID, "", "member_added", traceID)

	var shown []string
	for i, name := range names {
		label := strings.TrimSpace(name)
		if label == "" && i < len(userIDs) {
			label = userIDs[i]
		}
		if label != "" {
			shown = append(shown, label)
		}
	}
	if len(shown) == 0 {
		return
	}
	text := fmt.Sprintf("欢迎 %s 加入群聊！", strings.Join(shown, "、"))
	if _, err := p.messenger.SendText(ctx, chatID, text); err != nil {
		slog.Warn("Group welcome send failed", "account", p.account.ID, "chat", chatID, "error", err)
		return
	}
	p.recordOutbound(chatID, traceID)
}

// HandleFileChanged broadcasts a drive-file change notice to every chat the
// bot participates in.
func (p *Pipeline) HandleFileChanged(ctx context.Context, kind EventKind, raw json.RawMessage) {
	traceID := uuid.NewString()
	p.recordInbound(ctx, "", "", string(kind), traceID)

	var verb string
	switch kind {
	case KindFileCreated:
		verb = "创建"
	case KindFileDeleted:
		verb = "删除"
	default:
		verb = "编辑"
	}
	name := fileNameFromPayload(raw)
	text := fmt.Sprintf("云文档变更: 文件「%s」已被%s", name, verb)

	result := Broadcast(ctx, p.messenger, text)
	slog.Info("Drive change broadcast", "account", p.account.ID, "kind", kind,
		"success", result.SuccessCount, "failed", result.FailedCount, "trace_id", traceID)
	for _, e := range result.Errors {
		slog.Warn("Broadcast delivery failed", "account", p.account.ID, "detail", e)
	}
	if result.SuccessCount > 0 {
		p.recordOutbound("", traceID)
	}
}

// HandleCalendarChanged records calendar change events. No outbound action.
func (p *Pipeline) HandleCalendarChanged(ctx context.Context, kind EventKind, raw json.RawMessage) {
	traceID := uuid.NewString()
	p.recordInbound(ctx, "", "", string(kind), traceID)
	slog.Info("Calendar change received", "account", p.account.ID, "kind", kind, "trace_id", traceID)
}

func fileNameFromPayload(raw json.RawMessage) string {
	var parsed struct {
		Event struct {
			FileToken string `json:"file_token"`
			FileType  string `json:"file_type"`
		} `json:"event"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Event.FileToken != "" {
		return parsed.Event.FileToken
	}
	return "未知文件"
}

func (p *Pipeline) recordInbound(ctx context.Context, chatID, senderID, eventType, traceID string) {
	now := time.Now()
	if p.status != nil {
		p.status(p.account.ID, bus.StatusPatch{LastInboundAt: &now})
	}
	if p.activity != nil {
		if err := p.activity.RecordInbound(p.account.ID, chatID, eventType, traceID); err != nil {
			slog.Warn("Inbound activity record failed", "account", p.account.ID, "error", err)
		}
	}
	if p.auditor.Enabled() {
		p.auditor.Publish(ctx, audit.Record{
			AccountID: p.account.ID,
			ChatID:    chatID,
			SenderID:  senderID,
			EventType: eventType,
			TraceID:   traceID,
			Timestamp: now,
		})
	}
}

func (p *Pipeline) recordOutbound(chatID, traceID string) {
	now := time.Now()
	if p.status != nil {
		p.status(p.account.ID, bus.StatusPatch{LastOutboundAt: &now})
	}
	if p.activity != nil {
		if err := p.activity.RecordOutbound(p.account.ID, chatID, traceID); err != nil {
			slog.Warn("Outbound activity record failed", "account", p.account.ID, "error", err)
		}
	}
}
