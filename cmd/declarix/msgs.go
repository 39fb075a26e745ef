package declarix

import (
	"embed"
	"strings"
)

//go:embed topics/*.md
var topicFiles embed.FS

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "A declarative single-host configuration reconciler"
	MsgLinkShort       = "Link, mirror and copy declared files"
	MsgInstallShort    = "Install declared packages"
	MsgServicesShort   = "Enable declared services"
	MsgApplyShort      = "Install packages, link files and enable services"
	MsgStatusShort     = "List tracked entities"
	MsgWatchShort      = "Re-run link whenever sources change"
	MsgConfigShort     = "Print the effective configuration"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgWatching      = "Watching %d source roots and %s\n"
	MsgNothingStatus = "Nothing tracked."
	MsgVersionFormat = "declarix version %s\n  commit: %s\n  built:  %s\n"

	// Error messages
	MsgErrLink     = "failed to link: %w"
	MsgErrInstall  = "failed to install packages: %w"
	MsgErrServices = "failed to reconcile services: %w"
	MsgErrApply    = "failed to apply: %w"
	MsgErrStatus   = "failed to read status: %w"
	MsgErrWatch    = "failed to watch: %w"
	MsgErrConfig   = "failed to load configuration: %w"

	// Flag descriptions
	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig  = "Configuration file (default $XDG_CONFIG_HOME/declarix/declarix.toml)"
	MsgFlagNoColor = "Disable colored output"
	MsgFlagSet     = "Override a configuration key, e.g. --set store.driver=bolt"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/link-long.txt
	msgLinkLongRaw string
	MsgLinkLong    = strings.TrimSpace(msgLinkLongRaw)

	//go:embed msgs/link-example.txt
	msgLinkExampleRaw string
	MsgLinkExample    = strings.TrimRight(msgLinkExampleRaw, "\n")

	//go:embed msgs/install-long.txt
	msgInstallLongRaw string
	MsgInstallLong    = strings.TrimSpace(msgInstallLongRaw)

	//go:embed msgs/services-long.txt
	msgServicesLongRaw string
	MsgServicesLong    = strings.TrimSpace(msgServicesLongRaw)

	//go:embed msgs/apply-long.txt
	msgApplyLongRaw string
	MsgApplyLong    = strings.TrimSpace(msgApplyLongRaw)

	//go:embed msgs/status-long.txt
	msgStatusLongRaw string
	MsgStatusLong    = strings.TrimSpace(msgStatusLongRaw)

	//go:embed msgs/status-example.txt
	msgStatusExampleRaw string
	MsgStatusExample    = strings.TrimRight(msgStatusExampleRaw, "\n")

	//go:embed msgs/watch-long.txt
	msgWatchLongRaw string
	MsgWatchLong    = strings.TrimSpace(msgWatchLongRaw)

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
