package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tzrikka/unapprove/pkg/files"
)

// ErrConfiguration is returned for missing or malformed settings,
// before any network access. It is always fatal.
var ErrConfiguration = errors.New("configuration error")

// Config is the configuration of a single run, read once at startup.
type Config struct {
	Token     string
	APIURL    string
	ServerURL string

	Owner    string
	Repo     string
	PRNumber int

	TeamPrefix     string
	CodeOwnersFile string
	TargetBranch   string
	// ChangedFiles is nil if the changed files should be listed with the GitHub API.
	ChangedFiles []string
	IgnoreFiles  []string

	DryRun         bool
	MaxConcurrency int
	ReportCSV      string
}

// Metrics is the configuration of the OpenTelemetry metrics exporter.
type Metrics struct {
	Disabled    bool
	Endpoint    string
	Timeout     time.Duration
	Compression string
}

// FromCommand reads the configuration of a run from the CLI flags.
// If a PR is required (i.e. not in webhook mode), the repository
// and the PR number must be specified too.
func FromCommand(cmd *cli.Command, requirePR bool) (Config, error) {
	c := Config{
		Token:          cmd.String("github-token"),
		APIURL:         cmd.String("github-api-url"),
		ServerURL:      cmd.String("github-server-url"),
		PRNumber:       cmd.Int("pr-number"),
		TeamPrefix:     cmd.String("team-prefix"),
		CodeOwnersFile: cmd.String("codeowners-file"),
		TargetBranch:   cmd.String("target-branch"),
		ChangedFiles:   SplitLines(cmd.String("changed-files")),
		IgnoreFiles:    cmd.StringSlice("ignore-files"),
		DryRun:         IsDryRun(cmd.String("dry-run")),
		MaxConcurrency: cmd.Int("max-concurrency"),
		ReportCSV:      cmd.String("report-csv"),
	}

	if len(c.IgnoreFiles) == 0 {
		c.IgnoreFiles = nil
	}

	if repo := cmd.String("github-repository"); repo != "" || requirePR {
		var err error
		if c.Owner, c.Repo, err = SplitRepository(repo); err != nil {
			return Config{}, err
		}
	}

	if err := c.Validate(requirePR); err != nil {
		return Config{}, err
	}
	return c, nil
}

// MetricsFromCommand reads the configuration of the metrics exporter from the CLI flags.
func MetricsFromCommand(cmd *cli.Command) Metrics {
	return Metrics{
		Disabled:    cmd.Bool("otlp-disabled"),
		Endpoint:    cmd.String("otlp-endpoint"),
		Timeout:     time.Duration(cmd.Int64("otlp-timeout-ms")) * time.Millisecond,
		Compression: cmd.String("otlp-compression"),
	}
}

// Validate checks the configuration, and fills in defaults for empty optional settings.
func (c *Config) Validate(requirePR bool) error {
	if c.Token == "" {
		return fmt.Errorf("%w: GitHub token is required", ErrConfiguration)
	}

	if requirePR {
		if c.Owner == "" || c.Repo == "" {
			return fmt.Errorf("%w: GitHub repository is required", ErrConfiguration)
		}
		if c.PRNumber <= 0 {
			return fmt.Errorf("%w: PR number is required", ErrConfiguration)
		}
	}

	if err := files.ValidateIgnorePatterns(c.IgnoreFiles); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if c.TeamPrefix == "" {
		c.TeamPrefix = DefaultTeamPrefix
	}
	if c.CodeOwnersFile == "" {
		c.CodeOwnersFile = DefaultCodeOwnersFile
	}
	if c.TargetBranch == "" {
		c.TargetBranch = DefaultTargetBranch
	}
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultConcurrency
	}

	return nil
}

// ForPR returns a copy of the configuration, for a specific PR.
// Changed files are always listed with the GitHub API in this case.
func (c Config) ForPR(owner, repo string, number int) Config {
	c.Owner, c.Repo, c.PRNumber = owner, repo, number
	c.ChangedFiles = nil
	return c
}
