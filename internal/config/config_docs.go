package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "notify.status_changes")
// to their [FieldDoc] entries. The genconfig tool uses this map to annotate the
// generated config.default.toml with inline comments and alternative examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Steam ─────────────────────────────────────────────────────
	"steam": {
		Comment: "Steam Web API access. Get a key at https://steamcommunity.com/dev/apikey\nKeep the key out of this file: put STEAM_API_KEY=... in .env next to it.",
	},
	"steam.api_key": {
		Alternatives: []string{
			`api_key = "XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"`,
		},
	},
	"steam.steam_id": {
		Comment: "SteamID64 of the tracked account. The command-line argument wins.\nUse `steamwatch resolve <profile url>` to look one up.",
		Alternatives: []string{
			`steam_id = "76561197960287930"`,
		},
	},
	"steam.base_url": {
		Comment: "Web API endpoint override (testing only).",
	},

	// ── Intervals ─────────────────────────────────────────────────
	"intervals.check_seconds": {
		Comment: "Polling interval while the account is offline.",
	},
	"intervals.active_check_seconds": {
		Comment: "Polling interval while the account is online, away or busy.\nSIGTRAP raises it and SIGABRT lowers it by active_step_seconds.",
	},
	"intervals.active_step_seconds": {},
	"intervals.alive_seconds": {
		Comment: "Log an \"alive\" line this often while the account stays offline. 0 disables it.",
	},

	// ── Session ───────────────────────────────────────────────────
	"session.offline_interrupt_seconds": {
		Comment: "Offline gaps up to this long are treated as a continuation of the\nprevious online session instead of a new one.",
	},
	"session.away_after_seconds": {
		Comment: "Inactivity thresholds used by the Steam client. They are only used to\nestimate when the account was last really active; leave them unless Valve\nchanges the client.",
	},
	"session.snooze_after_seconds": {},

	// ── Notify ────────────────────────────────────────────────────
	"notify.active_inactive": {
		Comment: "E-mail when the account goes online or offline (toggle with SIGUSR1).",
	},
	"notify.activity_changes": {
		Comment: "E-mail when a game starts, stops or changes (toggle with SIGUSR2).",
	},
	"notify.status_changes": {
		Comment: "E-mail on every status change, including away and snooze (toggle with SIGCONT).",
	},
	"notify.errors": {
		Comment: "E-mail when the API key is rejected.",
	},
	"notify.ignore_activities": {
		Comment: "Game names that never trigger activity e-mails. Glob patterns.",
		Alternatives: []string{
			`ignore_activities = ["Wallpaper Engine*", "Spacewar"]`,
		},
	},

	// ── SMTP ──────────────────────────────────────────────────────
	"smtp": {
		Comment: "Outgoing mail. Leave host empty to disable e-mail entirely.\nPut SMTP_PASSWORD=... in .env rather than here.",
	},
	"smtp.host": {
		Alternatives: []string{
			`host = "smtp.example.com"`,
		},
	},
	"smtp.port": {},
	"smtp.security": {
		Comment: "Connection security. Options: \"starttls\", \"tls\", \"none\"\n  starttls: plain connection upgraded with STARTTLS (usually port 587)\n  tls:      implicit TLS from the first byte (usually port 465)\n  none:     no encryption (local relays only)",
		Alternatives: []string{
			`security = "tls"`,
		},
	},
	"smtp.user": {},
	"smtp.password": {},
	"smtp.from": {
		Alternatives: []string{
			`from = "steamwatch <steamwatch@example.com>"`,
		},
	},
	"smtp.to": {
		Alternatives: []string{
			`to = "you@example.com"`,
		},
	},

	// ── CSV ───────────────────────────────────────────────────────
	"csv.enabled": {
		Comment: "Append every status and game change to a CSV file.",
	},
	"csv.file": {
		Comment: "CSV path. Relative paths are inside the data directory.\nDefault: steamwatch_<steamid>.csv",
		Alternatives: []string{
			`file = "history.csv"`,
		},
	},

	// ── Log ───────────────────────────────────────────────────────
	"log": {
		Comment: "Logging configuration. The log file is steamwatch_<steamid>.log in the data directory.",
	},
	"log.level": {
		Comment: "Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate the log file after this many megabytes.",
	},
	"log.disabled": {
		Comment: "Disable the log file (same as --disable-logging).",
	},
}
