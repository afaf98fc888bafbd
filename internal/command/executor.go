package command

import (
	"context"
	"fmt"
	"strings"
)

// maxListedMembers caps the member listing output.
const maxListedMembers = 50

// Result is the user-facing outcome of one executed command. Execution never
// returns an error to the caller; failures are expressed here.
type Result struct {
	Success bool
	Message string
}

// ChatInfo is the group metadata needed for permission checks.
type ChatInfo struct {
	OwnerID string
}

// Member is one group member.
type Member struct {
	ID   string
	Name string
}

// MemberChange reports the outcome of a bulk membership mutation. InvalidIDs
// lists ids the platform rejected as invalid or already in the target state.
type MemberChange struct {
	InvalidIDs []string
}

// GroupAPI is the group-management surface of the transport. Implementations
// handle pagination internally and convert transport failures to errors.
type GroupAPI interface {
	ChatInfo(ctx context.Context, chatID string) (*ChatInfo, error)
	ChatAdmins(ctx context.Context, chatID string) ([]string, error)
	AddMembers(ctx context.Context, chatID string, userIDs []string) (*MemberChange, error)
	RemoveMembers(ctx context.Context, chatID string, userIDs []string) (*MemberChange, error)
	ListMembers(ctx context.Context, chatID string) ([]Member, error)
	UpdateAnnouncement(ctx context.Context, chatID, text string) error
}

// Invocation identifies who invoked a command and where.
type Invocation struct {
	ChatID   string
	SenderID string
}

// Executor permission-gates and executes the administrative commands.
type Executor struct {
	api GroupAPI
}

// NewExecutor creates an executor over the given group API.
func NewExecutor(api GroupAPI) *Executor {
	return &Executor{api: api}
}

// Execute runs one parsed command and always produces a result, never an
// error. Permission denial and transport failures are reported in the result.
func (e *Executor) Execute(ctx context.Context, cmd *Parsed, inv Invocation) Result {
	switch cmd.Type {
	case TypeAnnouncement:
		return e.gated(ctx, inv, func() Result { return e.announce(ctx, cmd, inv) })
	case TypeAddMember:
		return e.gated(ctx, inv, func() Result { return e.addMembers(ctx, cmd, inv) })
	case TypeRemoveMember:
		return e.gated(ctx, inv, func() Result { return e.removeMembers(ctx, cmd, inv) })
	case TypeListMembers:
		return e.listMembers(ctx, inv)
	default:
		return Result{Success: false, Message: "未知命令"}
	}
}

// gated runs action only when the sender is the chat owner or a chat
// administrator. A failed permission check is reported as such, never as a
// silent allow, and the action is never attempted for unauthorized senders.
func (e *Executor) gated(ctx context.Context, inv Invocation, action func() Result) Result {
	allowed, err := e.senderIsAdmin(ctx, inv)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("权限检查失败: %v", err)}
	}
	if !allowed {
		return Result{Success: false, Message: "只有群主或群管理员可以执行该操作"}
	}
	return action()
}

func (e *Executor) senderIsAdmin(ctx context.Context, inv Invocation) (bool, error) {
	info, err := e.api.ChatInfo(ctx, inv.ChatID)
	if err != nil {
		return false, fmt.Errorf("chat info: %w", err)
	}
	if info != nil && info.OwnerID != "" && info.OwnerID == inv.SenderID {
		return true, nil
	}
	admins, err := e.api.ChatAdmins(ctx, inv.ChatID)
	if err != nil {
		return false, fmt.Errorf("chat admins: %w", err)
	}
	for _, id := range admins {
		if id == inv.SenderID {
			return true, nil
		}
	}
	return false, nil
}

func (e *Executor) announce(ctx context.Context, cmd *Parsed, inv Invocation) Result {
	if strings.TrimSpace(cmd.Args) == "" {
		return Result{Success: false, Message: "用法: /公告 <内容>"}
	}
	if err := e.api.UpdateAnnouncement(ctx, inv.ChatID, cmd.Args); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("更新群公告失败: %v", err)}
	}
	return Result{Success: true, Message: "群公告已更新"}
}

func (e *Executor) addMembers(ctx context.Context, cmd *Parsed, inv Invocation) Result {
	if len(cmd.MentionedUserIDs) == 0 {
		return Result{Success: false, Message: "用法: /添加 @成员"}
	}
	change, err := e.api.AddMembers(ctx, inv.ChatID, cmd.MentionedUserIDs)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("添加成员失败: %v", err)}
	}
	msg := fmt.Sprintf("已添加 %d 位成员", len(cmd.MentionedUserIDs))
	if change != nil && len(change.InvalidIDs) > 0 {
		msg += fmt.Sprintf("（无效或已在群内: %s）", strings.Join(change.InvalidIDs, ", "))
	}
	return Result{Success: true, Message: msg}
}

func (e *Executor) removeMembers(ctx context.Context, cmd *Parsed, inv Invocation) Result {
	if len(cmd.MentionedUserIDs) == 0 {
		return Result{Success: false, Message: "用法: /移除 @成员"}
	}
	change, err := e.api.RemoveMembers(ctx, inv.ChatID, cmd.MentionedUserIDs)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("移除成员失败: %v", err)}
	}
	msg := fmt.Sprintf("已移除 %d 位成员", len(cmd.MentionedUserIDs))
	if change != nil && len(change.InvalidIDs) > 0 {
		msg += fmt.Sprintf("（无效或不在群内: %s）", strings.Join(change.InvalidIDs, ", "))
	}
	return Result{Success: true, Message: msg}
}

// listMembers has no permission gate: any member may list the group.
func (e *Executor) listMembers(ctx context.Context, inv Invocation) Result {
	members, err := e.api.ListMembers(ctx, inv.ChatID)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("获取成员列表失败: %v", err)}
	}
	if len(members) == 0 {
		return Result{Success: true, Message: "群内暂无成员"}
	}
	var sb strings.Builder
	sb.WriteString("群成员:\n")
	for i, m := range members {
		if i >= maxListedMembers {
			break
		}
		name := strings.TrimSpace(m.Name)
		if name == "" {
			name = m.ID
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
	}
	fmt.Fprintf(&sb, "共 %d 人", len(members))
	return Result{Success: true, Message: sb.String()}
}
