// Package command implements the in-chat group administration commands.
package command

import "strings"

// Type identifies one of the recognized administrative commands.
type Type string

const (
	TypeAnnouncement Type = "announcement"
	TypeAddMember    Type = "add_member"
	TypeRemoveMember Type = "remove_member"
	TypeListMembers  Type = "list_members"
)

// Parsed is one recognized command extracted from a text message.
type Parsed struct {
	Type             Type
	Args             string
	MentionedUserIDs []string
}

// prefixTable lists the literal prefixes per command type, in
// category-then-alias order. The first match wins. Matching is a plain
// string-prefix test anchored at position 0 of the trimmed text, not
// tokenized: "/公告世界" parses with args "世界".
var prefixTable = []struct {
	cmdType  Type
	prefixes []string
}{
	{TypeAnnouncement, []string{"/公告", "/announcement", "/announce"}},
	{TypeAddMember, []string{"/添加", "/add"}},
	{TypeRemoveMember, []string{"/移除", "/remove"}},
	{TypeListMembers, []string{"/成员", "/members"}},
}

// Parse recognizes a command at the start of text. mentionedUserIDs is the
// full list of resolvable mention ids from the message, regardless of where
// they appear in the text. Returns nil for ordinary messages.
func Parse(text string, mentionedUserIDs []string) *Parsed {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	for _, entry := range prefixTable {
		for _, prefix := range entry.prefixes {
			if strings.HasPrefix(trimmed, prefix) {
				return &Parsed{
					Type:             entry.cmdType,
					Args:             strings.TrimSpace(strings.TrimPrefix(trimmed, prefix)),
					MentionedUserIDs: mentionedUserIDs,
				}
			}
		}
	}
	return nil
}
