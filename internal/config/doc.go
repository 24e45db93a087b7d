// Package config provides configuration loading and state paths for labctl.
//
// # Configuration Sources
//
// Settings are resolved in this order, later sources winning:
//
//   - Built-in defaults (Default)
//   - A .env file in the working directory, loaded into the process
//     environment without overriding variables that are already set
//   - The TOML config file, $XDG_CONFIG_HOME/labctl/config.toml by default
//   - LABCTL_* environment variables
//
// A config file looks like:
//
//	api_url = "https://labs.example.com/api"
//	theme = "light"
//	admin_poll_interval = "10s"
//	end_session_on_complete = true
//
// # State Directory
//
// Client-side state lives under the state directory (Paths): the bearer
// token, the completed-labs list, the address file naming the current
// session, per-session action logs and the TUI log file. Names derived from
// server data are joined with filepath-securejoin so a crafted session id
// cannot escape the directory.
package config
