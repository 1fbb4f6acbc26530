package config

import (
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/unapprove/internal/logger"
	"github.com/tzrikka/xdg"
)

const (
	DirName        = "unapprove"
	ConfigFileName = "config.toml"

	DefaultOTLPEndpoint = "https://localhost:4318"
	DefaultOTLPTimeout  = 10000 // 10 seconds.

	DefaultTeamPrefix     = "@"
	DefaultCodeOwnersFile = "CODEOWNERS"
	DefaultTargetBranch   = "main"
	DefaultServerURL      = "https://github.com"
	DefaultConcurrency    = 8

	DefaultWebhookAddress = ":8080"
	WebhookRunTimeout     = 5 * time.Minute
)

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, _ := xdg.FindConfigFile(DirName, ConfigFileName)
	if path != "" {
		return altsrc.StringSourcer(path)
	}

	path, err := xdg.CreateFile(xdg.ConfigHome, DirName, ConfigFileName)
	if err != nil {
		logger.Fatal("failed to create config file", err)
	}
	return altsrc.StringSourcer(path)
}

// Flags defines CLI flags to configure a run. These flags are usually set
// using environment variables (e.g. in a GitHub Actions workflow),
// or the application's configuration file.
func Flags() []cli.Flag {
	path := configFile()

	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "dev",
			Usage: "debug logging, in a human-readable format",
		},
		&cli.BoolFlag{
			Name:  "pretty-log",
			Usage: "human-readable console logging, instead of JSON",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("PRETTY_LOG"),
				toml.TOML("log.pretty", path),
			),
		},

		// GitHub.
		&cli.StringFlag{
			Name:  "github-token",
			Usage: "GitHub API token",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("GITHUB_TOKEN"),
				toml.TOML("github.token", path),
			),
		},
		&cli.StringFlag{
			Name:  "github-api-url",
			Usage: "GitHub API base URL (for GitHub Enterprise Server)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("GITHUB_API_URL"),
				toml.TOML("github.api_url", path),
			),
		},
		&cli.StringFlag{
			Name:  "github-server-url",
			Usage: "GitHub web URL, for commit links in dismissal messages",
			Value: DefaultServerURL,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("GITHUB_SERVER_URL"),
				toml.TOML("github.server_url", path),
			),
		},
		&cli.StringFlag{
			Name:  "github-repository",
			Usage: `GitHub repository, in the format "owner/repo"`,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("GITHUB_REPOSITORY"),
			),
		},
		&cli.IntFlag{
			Name:  "pr-number",
			Usage: "GitHub pull request number",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("PR_NUMBER"),
			),
		},

		// Ownership and dismissals.
		&cli.StringFlag{
			Name:  "team-prefix",
			Usage: "prefix of team owners in the CODEOWNERS file",
			Value: DefaultTeamPrefix,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TEAM_START_WITH"),
				toml.TOML("codeowners.team_prefix", path),
			),
		},
		&cli.StringFlag{
			Name:  "codeowners-file",
			Usage: "path to the CODEOWNERS file in the repository",
			Value: DefaultCodeOwnersFile,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("CODEOWNERS_FILE"),
				toml.TOML("codeowners.file", path),
			),
		},
		&cli.StringFlag{
			Name:  "target-branch",
			Usage: "branch to read the CODEOWNERS file from",
			Value: DefaultTargetBranch,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TARGET_BRANCH"),
				toml.TOML("codeowners.target_branch", path),
			),
		},
		&cli.StringFlag{
			Name:  "changed-files",
			Usage: "newline-separated list of the PR's changed files, instead of listing them with the GitHub API",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("CHANGED_FILES"),
			),
		},
		&cli.StringSliceFlag{
			Name:  "ignore-files",
			Usage: `glob patterns of changed files to ignore (e.g. "**/*.lock")`,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("IGNORE_FILES"),
				toml.TOML("codeowners.ignore_files", path),
			),
		},
		&cli.StringFlag{
			Name:  "dry-run",
			Usage: `only report decisions, unless this is exactly "false"`,
			Value: "true",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DRY_RUN"),
				toml.TOML("dismissals.dry_run", path),
			),
		},
		&cli.IntFlag{
			Name:  "max-concurrency",
			Usage: "maximum number of parallel GitHub API lookups",
			Value: DefaultConcurrency,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("MAX_CONCURRENCY"),
				toml.TOML("github.max_concurrency", path),
			),
		},
		&cli.StringFlag{
			Name:  "report-csv",
			Usage: "optional CSV file to append decisions to",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("REPORT_CSV"),
				toml.TOML("report.csv_file", path),
			),
			TakesFile: true,
		},

		// https://github.com/open-telemetry/opentelemetry-go/blob/main/exporters/otlp/otlpmetric/otlpmetrichttp/doc.go
		&cli.BoolFlag{
			Name:  "otlp-disabled",
			Usage: "Disable exporting OTLP metrics",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("OTEL_EXPORTER_OTLP_DISABLED"),
				toml.TOML("otlp.disabled", path),
			),
		},
		&cli.StringFlag{
			Name:  "otlp-endpoint",
			Usage: "OTLP endpoint using HTTP",
			Value: DefaultOTLPEndpoint,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("OTEL_EXPORTER_OTLP_ENDPOINT"),
				toml.TOML("otlp.endpoint", path),
			),
		},
		&cli.Int64Flag{
			Name:  "otlp-timeout-ms",
			Usage: "OTLP batch export timeout in milliseconds",
			Value: DefaultOTLPTimeout,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("OTEL_EXPORTER_OTLP_TIMEOUT_MS"),
				toml.TOML("otlp.timeout_ms", path),
			),
		},
		&cli.StringFlag{
			Name:  "otlp-compression",
			Usage: "OTLP compression method (e.g. gzip)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("OTEL_EXPORTER_OTLP_COMPRESSION"),
				toml.TOML("otlp.compression", path),
			),
		},
	}
}

// ServeFlags defines additional CLI flags for the webhook server.
func ServeFlags() []cli.Flag {
	path := configFile()

	return []cli.Flag{
		&cli.StringFlag{
			Name:  "webhook-addr",
			Usage: "address for the webhook HTTP server to listen on",
			Value: DefaultWebhookAddress,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WEBHOOK_ADDR"),
				toml.TOML("webhook.address", path),
			),
		},
		&cli.StringFlag{
			Name:  "webhook-secret",
			Usage: "GitHub webhook secret, to verify payload signatures",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WEBHOOK_SECRET"),
				toml.TOML("webhook.secret", path),
			),
			Required: true,
		},
	}
}
