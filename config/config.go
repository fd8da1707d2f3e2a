package config

type Command string

type Function string

// Commands and functions are registered under the plugin prefix, so the user
// sees e.g. :AutosaveToggle and Autosave_State(). All take an optional buffer
// number; 0 or absent means the current buffer.
const (
	CommandEnable  Command = "Enable"
	CommandDisable Command = "Disable"
	CommandToggle  Command = "Toggle"
)

const (
	// FunctionState returns the buffer's last computed autosave state as a
	// string ("" if never classified); intended for statusline use.
	FunctionState Function = "_State"

	// FunctionEnabled returns 1 if autosave is enabled for the buffer.
	FunctionEnabled Function = "_Enabled"
)

// Vim global variables read once at plugin startup.
const (
	// GlobalIdleTimeoutMS is the idle time after which CursorHold fires,
	// applied to &updatetime. Default 500.
	GlobalIdleTimeoutMS = "g:autosave_idle_timeout_ms"

	// GlobalReadStaleOnFocus controls whether &autoread is switched on so
	// files changed outside the editor are re-read on focus. Default 1.
	GlobalReadStaleOnFocus = "g:autosave_read_stale_on_focus"

	// GlobalWriteOnWindowSwitch controls whether leaving a window or losing
	// editor focus also triggers a save. Default 1.
	GlobalWriteOnWindowSwitch = "g:autosave_write_on_window_switch"

	// GlobalExcludedPrefixes is a list of path prefixes never autosaved, in
	// addition to the built-in virtual-scheme and slow-filesystem defaults.
	GlobalExcludedPrefixes = "g:autosave_excluded_prefixes"

	// GlobalExcludedFiletypes is a list of filetypes never autosaved, in
	// addition to the built-in commit-message default.
	GlobalExcludedFiletypes = "g:autosave_excluded_filetypes"
)
