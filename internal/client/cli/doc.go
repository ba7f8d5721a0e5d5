// Package cli implements the interactive gophauth shell.
//
// The shell keeps one session at a time. It restores the previous session
// from the local state database on start, and offers:
//
//	register   create an account
//	login      start a session
//	whoami     show the current account
//	refresh    rotate the token pair
//	passwd     change the password
//	logout     end the session
//	help       list commands
//	exit       leave (also: quit)
//
// Passwords are read from the terminal without echo and wiped after use.
package cli
