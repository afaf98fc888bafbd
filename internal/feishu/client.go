package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/neilzhangpro/moltbot-feishu/internal/command"
)

const pageSize = 100

// Client adapts the Lark open-platform SDK to the Messenger and GroupAPI
// surfaces.
type Client struct {
	sdk *lark.Client
}

// NewClient builds an API client for one application. baseDomain may be empty
// for the default open platform endpoint.
func NewClient(appID, appSecret, baseDomain string) *Client {
	var opts []lark.ClientOptionFunc
	if baseDomain != "" {
		opts = append(opts, lark.WithOpenBaseUrl(baseDomain))
	}
	return &Client{sdk: lark.NewClient(appID, appSecret, opts...)}
}

// SendText creates a text message in chatID and returns the new message id.
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(textContent(text)).
			Build()).
		Build()
	resp, err := c.sdk.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("send message: code %d: %s", resp.Code, resp.Msg)
	}
	return deref(resp.Data.MessageId), nil
}

// ReplyText replies to messageID and returns the new message id.
func (c *Client) ReplyText(ctx context.Context, messageID, text string) (string, error) {
	req := larkim.NewReplyMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewReplyMessageReqBodyBuilder().
			MsgType(larkim.MsgTypeText).
			Content(textContent(text)).
			Build()).
		Build()
	resp, err := c.sdk.Im.Message.Reply(ctx, req)
	if err != nil {
		return "", fmt.Errorf("reply message: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("reply message: code %d: %s", resp.Code, resp.Msg)
	}
	return deref(resp.Data.MessageId), nil
}

// ListChats pages through every chat the bot participates in.
func (c *Client) ListChats(ctx context.Context) ([]string, error) {
	var (
		chatIDs   []string
		pageToken string
	)
	for {
		builder := larkim.NewListChatReqBuilder().PageSize(pageSize)
		if pageToken != "" {
			builder = builder.PageToken(pageToken)
		}
		resp, err := c.sdk.Im.Chat.List(ctx, builder.Build())
		if err != nil {
			return nil, fmt.Errorf("list chats: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("list chats: code %d: %s", resp.Code, resp.Msg)
		}
		for _, item := range resp.Data.Items {
			if item == nil {
				continue
			}
			if id := deref(item.ChatId); id != "" {
				chatIDs = append(chatIDs, id)
			}
		}
		if resp.Data.HasMore == nil || !*resp.Data.HasMore {
			return chatIDs, nil
		}
		pageToken = deref(resp.Data.PageToken)
		if pageToken == "" {
			return chatIDs, nil
		}
	}
}

// ChatInfo fetches group metadata for the permission gate.
func (c *Client) ChatInfo(ctx context.Context, chatID string) (*command.ChatInfo, error) {
	req := larkim.NewGetChatReqBuilder().ChatId(chatID).Build()
	resp, err := c.sdk.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat: code %d: %s", resp.Code, resp.Msg)
	}
	return &command.ChatInfo{OwnerID: deref(resp.Data.OwnerId)}, nil
}

// ChatAdmins lists group administrator ids. The SDK carries no typed binding
// for the managers endpoint, so this goes through the raw request API.
func (c *Client) ChatAdmins(ctx context.Context, chatID string) ([]string, error) {
	path := fmt.Sprintf("/open-apis/im/v1/chats/%s/managers", chatID)
	apiResp, err := c.sdk.Get(ctx, path, nil, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return nil, fmt.Errorf("list chat managers: %w", err)
	}
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Managers []struct {
				ManagerID string `json:"manager_id"`
			} `json:"managers"`
		} `json:"data"`
	}
	if err := json.Unmarshal(apiResp.RawBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat managers: %w", err)
	}
	if parsed.Code != 0 {
		return nil, fmt.Errorf("list chat managers: code %d: %s", parsed.Code, parsed.Msg)
	}
	var ids []string
	for _, m := range parsed.Data.Managers {
		if m.ManagerID != "" {
			ids = append(ids, m.ManagerID)
		}
	}
	return ids, nil
}

// AddMembers invites users to a group by open id.
func (c *Client) AddMembers(ctx context.Context, chatID string, userIDs []string) (*command.MemberChange, error) {
	req := larkim.NewCreateChatMembersReqBuilder().
		ChatId(chatID).
		MemberIdType("open_id").
		Body(larkim.NewCreateChatMembersReqBodyBuilder().
			IdList(userIDs).
			Build()).
		Build()
	resp, err := c.sdk.Im.ChatMembers.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("add members: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("add members: code %d: %s", resp.Code, resp.Msg)
	}
	change := &command.MemberChange{}
	change.InvalidIDs = append(change.InvalidIDs, resp.Data.InvalidIdList...)
	change.InvalidIDs = append(change.InvalidIDs, resp.Data.NotExistedIdList...)
	return change, nil
}

// RemoveMembers removes users from a group by open id.
func (c *Client) RemoveMembers(ctx context.Context, chatID string, userIDs []string) (*command.MemberChange, error) {
	req := larkim.NewDeleteChatMembersReqBuilder().
		ChatId(chatID).
		MemberIdType("open_id").
		Body(larkim.NewDeleteChatMembersReqBodyBuilder().
			IdList(userIDs).
			Build()).
		Build()
	resp, err := c.sdk.Im.ChatMembers.Delete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("remove members: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("remove members: code %d: %s", resp.Code, resp.Msg)
	}
	return &command.MemberChange{InvalidIDs: resp.Data.InvalidIdList}, nil
}

// ListMembers pages through the full group membership.
func (c *Client) ListMembers(ctx context.Context, chatID string) ([]command.Member, error) {
	var (
		members   []command.Member
		pageToken string
	)
	for {
		builder := larkim.NewGetChatMembersReqBuilder().
			ChatId(chatID).
			MemberIdType("open_id").
			PageSize(pageSize)
		if pageToken != "" {
			builder = builder.PageToken(pageToken)
		}
		resp, err := c.sdk.Im.ChatMembers.Get(ctx, builder.Build())
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("list members: code %d: %s", resp.Code, resp.Msg)
		}
		for _, item := range resp.Data.Items {
			if item == nil {
				continue
			}
			members = append(members, command.Member{
				ID:   deref(item.MemberId),
				Name: deref(item.Name),
			})
		}
		if resp.Data.HasMore == nil || !*resp.Data.HasMore {
			return members, nil
		}
		pageToken = deref(resp.Data.PageToken)
		if pageToken == "" {
			return members, nil
		}
	}
}

// UpdateAnnouncement replaces the group announcement with text. The platform
// stores announcements in two representations: a revisioned plain body and a
// block-structured document. Both are handled here so callers see a single
// operation.
func (c *Client) UpdateAnnouncement(ctx context.Context, chatID, text string) error {
	current, err := c.getAnnouncement(ctx, chatID)
	if err != nil {
		return err
	}
	if current.isBlockDocument() {
		return c.updateBlockAnnouncement(ctx, chatID, text)
	}
	return c.updatePlainAnnouncement(ctx, chatID, current.Revision, text)
}

type announcementState struct {
	Content  string
	Revision string
}

// isBlockDocument reports whether the stored content is a block-structured
// document rather than revisioned plain text.
func (a announcementState) isBlockDocument() bool {
	var probe struct {
		Blocks json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal([]byte(a.Content), &probe); err != nil {
		return false
	}
	return len(probe.Blocks) > 0
}

func (c *Client) getAnnouncement(ctx context.Context, chatID string) (*announcementState, error) {
	path := fmt.Sprintf("/open-apis/im/v1/chats/%s/announcement", chatID)
	apiResp, err := c.sdk.Get(ctx, path, nil, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Content  string `json:"content"`
			Revision string `json:"revision"`
		} `json:"data"`
	}
	if err := json.Unmarshal(apiResp.RawBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode announcement: %w", err)
	}
	if parsed.Code != 0 {
		return nil, fmt.Errorf("get announcement: code %d: %s", parsed.Code, parsed.Msg)
	}
	return &announcementState{Content: parsed.Data.Content, Revision: parsed.Data.Revision}, nil
}

func (c *Client) updatePlainAnnouncement(ctx context.Context, chatID, revision, text string) error {
	request, err := json.Marshal(map[string]any{
		"requestType": "ReplaceAllTextRequestType",
		"replaceAllTextRequest": map[string]any{
			"text": text,
		},
	})
	if err != nil {
		return fmt.Errorf("encode announcement request: %w", err)
	}
	body := map[string]any{
		"revision": revision,
		"requests": []string{string(request)},
	}
	path := fmt.Sprintf("/open-apis/im/v1/chats/%s/announcement", chatID)
	apiResp, err := c.sdk.Patch(ctx, path, body, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return fmt.Errorf("patch announcement: %w", err)
	}
	return checkRawResponse(apiResp.RawBody, "patch announcement")
}

func (c *Client) updateBlockAnnouncement(ctx context.Context, chatID, text string) error {
	body := map[string]any{
		"markdown": text,
	}
	path := fmt.Sprintf("/open-apis/docx/v1/chats/%s/announcement/convert", chatID)
	apiResp, err := c.sdk.Post(ctx, path, body, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return fmt.Errorf("replace announcement document: %w", err)
	}
	return checkRawResponse(apiResp.RawBody, "replace announcement document")
}

func checkRawResponse(rawBody []byte, op string) error {
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	if parsed.Code != 0 {
		return fmt.Errorf("%s: code %d: %s", op, parsed.Code, parsed.Msg)
	}
	return nil
}

// FetchBotInfo queries the bot identity of this application.
func (c *Client) FetchBotInfo(ctx context.Context) (BotInfo, error) {
	apiResp, err := c.sdk.Get(ctx, "/open-apis/bot/v3/info", nil, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return BotInfo{}, fmt.Errorf("get bot info: %w", err)
	}
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.Unmarshal(apiResp.RawBody, &parsed); err != nil {
		return BotInfo{}, fmt.Errorf("decode bot info: %w", err)
	}
	if parsed.Code != 0 {
		return BotInfo{}, fmt.Errorf("get bot info: code %d: %s", parsed.Code, parsed.Msg)
	}
	return BotInfo{OpenID: parsed.Bot.OpenID, AppName: parsed.Bot.AppName}, nil
}

const clientCacheSize = 32

// ClientCache memoizes API clients and bot identities per application id so
// restarts and multi-account setups reuse warm token state.
type ClientCache struct {
	clients *lru.Cache[string, *Client]
	bots    *lru.Cache[string, BotInfo]
}

// NewClientCache builds the cache. Size is fixed; eviction only matters when
// accounts churn.
func NewClientCache() (*ClientCache, error) {
	clients, err := lru.New[string, *Client](clientCacheSize)
	if err != nil {
		return nil, err
	}
	bots, err := lru.New[string, BotInfo](clientCacheSize)
	if err != nil {
		return nil, err
	}
	return &ClientCache{clients: clients, bots: bots}, nil
}

// Client returns the cached API client for the credentials, building one on
// first use.
func (cc *ClientCache) Client(appID, appSecret, baseDomain string) *Client {
	if c, ok := cc.clients.Get(appID); ok {
		return c
	}
	c := NewClient(appID, appSecret, baseDomain)
	cc.clients.Add(appID, c)
	return c
}

// BotInfo returns the cached bot identity for appID, fetching it on first use.
func (cc *ClientCache) BotInfo(ctx context.Context, client *Client, appID string) (BotInfo, error) {
	if info, ok := cc.bots.Get(appID); ok {
		return info, nil
	}
	info, err := client.FetchBotInfo(ctx)
	if err != nil {
		return BotInfo{}, err
	}
	if strings.TrimSpace(info.OpenID) != "" {
		cc.bots.Add(appID, info)
	}
	return info, nil
}

// Clear drops cached state for appID. Used when credentials change.
func (cc *ClientCache) Clear(appID string) {
	cc.clients.Remove(appID)
	cc.bots.Remove(appID)
}

// Purge drops all cached clients and identities.
func (cc *ClientCache) Purge() {
	cc.clients.Purge()
	cc.bots.Purge()
}
