// Command timelapse-passwd manages the web client password stored in the
// timelapse server's YAML configuration file.
//
// Usage:
//
//	timelapse-passwd <command> [config.yaml]
//
// Commands:
//
//	hash            Prompt for a password and print its bcrypt hash. The
//	                hash can be used as the PASSWORD_HASH environment
//	                variable.
//
//	set <file>      Prompt for a password and store its bcrypt hash as
//	                password_hash in the configuration file, removing any
//	                plain-text password entry. Other keys and comments are
//	                preserved and the file is replaced atomically.
//
//	status <file>   Report how the password in the configuration file is
//	                configured.
//
// The server must be restarted to pick up a changed password.
package main
