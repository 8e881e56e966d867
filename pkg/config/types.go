// Package config loads and validates the kernel's runtime configuration from
// environment variables (and an optional .env file), mirroring the recognized
// options enumerated in spec.md §6.
package config

import "time"

// AuthMode controls how the HTTP Guard authenticates requests.
type AuthMode string

const (
	AuthModeLocal  AuthMode = "local"
	AuthModeStrict AuthMode = "strict"
)

// AuthConfig configures the bearer-token Guard.
type AuthConfig struct {
	Mode         AuthMode
	DataDir      string
	SessionToken string // ASTRA_SESSION_TOKEN, optional seed for bootstrap
}

// BrainConfig configures the LLM Brain Router (spec.md §4.4).
type BrainConfig struct {
	BaseURL            string
	BaseChatModel      string
	FastChatModel      string // optional; empty disables fast tier
	ComplexChatModel   string // optional; empty disables complex tier
	CodeModel          string
	BaseTimeout        time.Duration
	TierTimeout        time.Duration
	GraceTimeout       time.Duration // short timeout for base-model fallback retry
	DefaultContextSize int
	DefaultPredict     int

	FastCharCap     int
	FastWordCap     int
	ComplexCharCap  int
	ComplexWordCap  int
	ComplexCuesRU   []string
	FastExcludeCues []string

	MaxConcurrency        int
	ChatPriorityExtraSlots int

	BudgetPerRun  int
	BudgetPerStep int

	CacheRedisAddr string // optional; empty = in-process cache

	QAMode bool
}

// ChatLoopConfig configures the Chat Loop (spec.md §4.8).
type ChatLoopConfig struct {
	Temperature       float64
	TopP              float64
	RepeatPenalty     float64
	NumPredict        int
	OwnerDirectMode   bool
	FastPathEnabled   bool
	AutoWebResearch   bool
	MaxResearchRounds int
	MaxSources        int
	MaxPages          int
	ResearchDepth     string
}

// ExecutorConfig configures the Computer Executor (spec.md §4.11).
type ExecutorConfig struct {
	MaxMicroSteps      int
	MaxNoProgress      int
	MaxTotalTimeS      int
	WaitAfterActMS     int
	PollIntervalMS     int
	WaitTimeoutMS      int
	ScreenshotWidth    int
	ScreenshotQuality  int
	DryRun             bool
	BridgeAddr         string // HTTP base URL of the desktop bridge process
}

// RunEngineConfig configures the Run Engine's scheduling loop (spec.md §4.10).
type RunEngineConfig struct {
	StepRetryBudget    int // transient-error retries per step before it fails
	SchedulerPollMS    int // ready-set re-scan interval for each run's background worker
	ApprovalPollMS     int // approval-wait poll interval (spec.md §5: "~500 ms")
	SweepIntervalSec   int // cron interval for the approval-expiry sweep / orphaned-task reap
}

// MemoryConfig configures the Memory Interpreter and persona prompt budgets.
type MemoryConfig struct {
	MaxContentChars   int
	PersonaBlockCap   int
	ChatPromptTotalCap int
	EpisodicDBPath    string
	MaxEpisodes       int
}

// PrivacyConfig configures the Privacy Router (spec.md §4.3).
type PrivacyConfig struct {
	PerItemCharCap      int
	AllowFinancialFiles bool
}

// Config aggregates every recognized environment option.
type Config struct {
	Auth      AuthConfig
	Brain     BrainConfig
	Chat      ChatLoopConfig
	Executor  ExecutorConfig
	RunEngine RunEngineConfig
	Memory    MemoryConfig
	Privacy   PrivacyConfig

	DataDir     string
	DatabaseURL string
	ListenAddr  string
}
