package command

import "testing"

func TestParseAnnouncementChinesePrefix(t *testing.T) {
	cmd := Parse("/公告 text", nil)
	if cmd == nil {
		t.Fatal("expected a parsed command")
	}
	if cmd.Type != TypeAnnouncement {
		t.Fatalf("expected announcement, got %q", cmd.Type)
	}
	if cmd.Args != "text" {
		t.Fatalf("expected args %q, got %q", "text", cmd.Args)
	}
}

func TestParseRequiresSlashPrefix(t *testing.T) {
	if cmd := Parse("公告内容", nil); cmd != nil {
		t.Fatalf("bare word should not parse, got %+v", cmd)
	}
}

func TestParsePrefixMustAnchorAtStart(t *testing.T) {
	if cmd := Parse("请/公告 x", nil); cmd != nil {
		t.Fatalf("mid-sentence command token should not parse, got %+v", cmd)
	}
}

func TestParseListMembersEnglishAlias(t *testing.T) {
	cmd := Parse("/members", nil)
	if cmd == nil || cmd.Type != TypeListMembers {
		t.Fatalf("expected list_members, got %+v", cmd)
	}
	if cmd.Args != "" {
		t.Fatalf("expected empty args, got %q", cmd.Args)
	}
}

func TestParseNoWordBoundaryRequired(t *testing.T) {
	// Prefix matching is a plain string-prefix test, not tokenized.
	cmd := Parse("/公告世界", nil)
	if cmd == nil || cmd.Type != TypeAnnouncement {
		t.Fatalf("expected announcement, got %+v", cmd)
	}
	if cmd.Args != "世界" {
		t.Fatalf("expected args %q, got %q", "世界", cmd.Args)
	}
}

func TestParseSurroundingWhitespaceTrimmed(t *testing.T) {
	cmd := Parse("  /add @u  ", []string{"ou_1"})
	if cmd == nil || cmd.Type != TypeAddMember {
		t.Fatalf("expected add_member, got %+v", cmd)
	}
	if cmd.Args != "@u" {
		t.Fatalf("expected trimmed args, got %q", cmd.Args)
	}
	if len(cmd.MentionedUserIDs) != 1 || cmd.MentionedUserIDs[0] != "ou_1" {
		t.Fatalf("mentions not carried through: %v", cmd.MentionedUserIDs)
	}
}

func TestParseRemoveAliases(t *testing.T) {
	for _, text := range []string{"/移除 @a", "/remove @a"} {
		cmd := Parse(text, nil)
		if cmd == nil || cmd.Type != TypeRemoveMember {
			t.Fatalf("%q: expected remove_member, got %+v", text, cmd)
		}
	}
}

func TestParseOrdinaryMessage(t *testing.T) {
	if cmd := Parse("hello there", nil); cmd != nil {
		t.Fatalf("ordinary message should not parse, got %+v", cmd)
	}
	if cmd := Parse("", nil); cmd != nil {
		t.Fatalf("empty message should not parse, got %+v", cmd)
	}
}
