package config

import (
	"fmt"
	"strings"
)

// DefaultAccountID names the account described by the top-level Feishu fields.
const DefaultAccountID = "default"

// Account is one resolved credential set: per-account values merged over the
// top-level defaults. This is the handle the connection manager works with.
type Account struct {
	ID          string
	AppID       string
	AppSecret   string
	Enabled     bool
	DmPolicy    DmPolicy
	AllowFrom   []string
	WelcomeText string
}

// AccountIDs lists all configured account ids, default first.
func AccountIDs(cfg FeishuConfig) []string {
	ids := []string{DefaultAccountID}
	for _, acct := range cfg.Accounts {
		if id := strings.TrimSpace(acct.ID); id != "" && !strings.EqualFold(id, DefaultAccountID) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ResolveAccount returns the resolved account record for accountID. An empty
// accountID resolves to the default account.
func ResolveAccount(cfg FeishuConfig, accountID string) (*Account, error) {
	id := strings.TrimSpace(accountID)
	if id == "" {
		id = DefaultAccountID
	}
	base := &Account{
		ID:          DefaultAccountID,
		AppID:       cfg.AppID,
		AppSecret:   cfg.AppSecret,
		Enabled:     cfg.Enabled,
		DmPolicy:    cfg.DmPolicy,
		AllowFrom:   cfg.AllowFrom,
		WelcomeText: cfg.WelcomeText,
	}
	if base.DmPolicy == "" {
		base.DmPolicy = DmPolicyOpen
	}
	if strings.EqualFold(id, DefaultAccountID) {
		return base, nil
	}
	for _, acct := range cfg.Accounts {
		if !strings.EqualFold(strings.TrimSpace(acct.ID), id) {
			continue
		}
		res := &Account{
			ID:          id,
			AppID:       strings.TrimSpace(acct.AppID),
			AppSecret:   strings.TrimSpace(acct.AppSecret),
			Enabled:     base.Enabled,
			DmPolicy:    acct.DmPolicy,
			AllowFrom:   acct.AllowFrom,
			WelcomeText: acct.WelcomeText,
		}
		if res.AppID == "" {
			res.AppID = base.AppID
		}
		if res.AppSecret == "" {
			res.AppSecret = base.AppSecret
		}
		if acct.Enabled != nil {
			res.Enabled = *acct.Enabled
		}
		if res.DmPolicy == "" {
			res.DmPolicy = base.DmPolicy
		}
		if len(res.AllowFrom) == 0 {
			res.AllowFrom = base.AllowFrom
		}
		if strings.TrimSpace(res.WelcomeText) == "" {
			res.WelcomeText = base.WelcomeText
		}
		return res, nil
	}
	return nil, fmt.Errorf("feishu account %q not configured", id)
}

// senderIDPrefixes are literal identifier-namespace prefixes stripped before
// allow-list comparison.
var senderIDPrefixes = []string{"feishu:", "lark:", "open_id:"}

// NormalizeSenderID strips known identifier-namespace prefixes
// case-insensitively and trims whitespace.
func NormalizeSenderID(id string) string {
	out := strings.TrimSpace(id)
	for _, prefix := range senderIDPrefixes {
		if len(out) >= len(prefix) && strings.EqualFold(out[:len(prefix)], prefix) {
			out = out[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(out)
}

// SenderAllowed reports whether senderID passes the account's direct-message
// policy. Group messages are not gated here.
func (a *Account) SenderAllowed(senderID string) bool {
	switch a.DmPolicy {
	case DmPolicyDeny:
		return false
	case DmPolicyAllowlist:
		want := NormalizeSenderID(senderID)
		for _, entry := range a.AllowFrom {
			if strings.EqualFold(NormalizeSenderID(entry), want) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
