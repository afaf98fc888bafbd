// Package config provides configuration types and loading for moltbot.
package config

// Config is the root configuration struct.
type Config struct {
	Feishu    FeishuConfig    `json:"feishu"`
	Responder ResponderConfig `json:"responder"`
	Audit     AuditConfig     `json:"audit"`
	Storage   StorageConfig   `json:"storage"`
}

// ---------------------------------------------------------------------------
// Feishu – accounts and transport
// ---------------------------------------------------------------------------

// DmPolicy controls how direct messages are handled.
type DmPolicy string

const (
	// DmPolicyOpen accepts direct messages from anyone.
	DmPolicyOpen DmPolicy = "open"
	// DmPolicyAllowlist accepts direct messages from allow-listed senders only.
	DmPolicyAllowlist DmPolicy = "allowlist"
	// DmPolicyDeny drops all direct messages.
	DmPolicyDeny DmPolicy = "deny"
)

// FeishuConfig configures the Feishu transport. The top-level fields describe
// the default account; Accounts adds further credential sets that inherit
// unset values from the defaults.
type FeishuConfig struct {
	Enabled     bool                  `json:"enabled" envconfig:"FEISHU_ENABLED"`
	AppID       string                `json:"appId" envconfig:"FEISHU_APP_ID"`
	AppSecret   string                `json:"appSecret" envconfig:"FEISHU_APP_SECRET"`
	BaseDomain  string                `json:"baseDomain,omitempty" envconfig:"FEISHU_BASE_DOMAIN"`
	DmPolicy    DmPolicy              `json:"dmPolicy,omitempty" envconfig:"FEISHU_DM_POLICY"`
	AllowFrom   []string              `json:"allowFrom,omitempty"`
	WelcomeText string                `json:"welcomeText,omitempty" envconfig:"FEISHU_WELCOME_TEXT"`
	Accounts    []FeishuAccountConfig `json:"accounts,omitempty"`
}

// FeishuAccountConfig is one additional credential set under the Feishu
// transport. Zero values inherit from the top-level defaults.
type FeishuAccountConfig struct {
	ID          string   `json:"id"`
	Enabled     *bool    `json:"enabled,omitempty"`
	AppID       string   `json:"appId,omitempty"`
	AppSecret   string   `json:"appSecret,omitempty"`
	DmPolicy    DmPolicy `json:"dmPolicy,omitempty"`
	AllowFrom   []string `json:"allowFrom,omitempty"`
	WelcomeText string   `json:"welcomeText,omitempty"`
}

// ---------------------------------------------------------------------------
// Responder – reply dispatch
// ---------------------------------------------------------------------------

// ResponderConfig configures the reply-dispatch collaborator.
type ResponderConfig struct {
	APIKey       string `json:"apiKey,omitempty" envconfig:"OPENAI_API_KEY"`
	APIBase      string `json:"apiBase,omitempty" envconfig:"OPENAI_API_BASE"`
	Model        string `json:"model,omitempty" envconfig:"RESPONDER_MODEL"`
	SystemPrompt string `json:"systemPrompt,omitempty" envconfig:"RESPONDER_SYSTEM_PROMPT"`
}

// ---------------------------------------------------------------------------
// Audit – Kafka event mirror
// ---------------------------------------------------------------------------

// AuditConfig configures the optional Kafka mirror of inbound events.
// Empty brokers disable the mirror.
type AuditConfig struct {
	Brokers string `json:"brokers,omitempty" envconfig:"AUDIT_KAFKA_BROKERS"`
	Topic   string `json:"topic,omitempty" envconfig:"AUDIT_KAFKA_TOPIC"`
}

// ---------------------------------------------------------------------------
// Storage – local state
// ---------------------------------------------------------------------------

// StorageConfig groups filesystem state settings.
type StorageConfig struct {
	// ActivityDBPath is the sqlite file recording inbound/outbound activity.
	// Defaults to ~/.moltbot/activity.db.
	ActivityDBPath string `json:"activityDbPath,omitempty" envconfig:"ACTIVITY_DB_PATH"`
}
