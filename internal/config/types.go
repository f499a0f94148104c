package config

// Config is the top-level configuration structure parsed from preflight YAML.
type Config struct {
	Preflight Preflight `yaml:"preflight"`
}

// Preflight defines the full pipeline: step commands, retry budget and AI
// settings.
type Preflight struct {
	Steps          Steps `yaml:"steps"`
	MaxFixAttempts int   `yaml:"max_fix_attempts"`
	AbortOnFailure bool  `yaml:"abort_on_failure"`
	AutoPush       bool  `yaml:"auto_push"`
	AI             AI    `yaml:"ai"`
}

// Steps holds the three fixed-order validation steps.
type Steps struct {
	Format    StepCommand `yaml:"format"`
	Typecheck StepCommand `yaml:"typecheck"`
	Tests     StepCommand `yaml:"tests"`
}

// StepCommand configures one step. An empty Command skips the step. The
// dry-run variant is used in dry-run mode when the normal command would
// mutate the tree; DryRunSkipReason explains a dry-run skip when no
// non-mutating variant is derivable.
type StepCommand struct {
	Command          string `yaml:"command"`
	DryRunCommand    string `yaml:"dry_run_command"`
	DryRunSkipReason string `yaml:"dry_run_skip_reason"`
}

// AI configures the patch/commit-message generation client.
type AI struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	APIKey    string `yaml:"api_key"`
	Disabled  bool   `yaml:"disabled"`
}
