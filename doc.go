/*
Package warden is a tool for supervising long-running child processes:
it streams their output into a logging pipeline line-by-line, enforces
health conditions against them, and terminates them with a
graceful-then-forceful signal escalation.

# Architecture and Organization

The warden binary is built from the "main/warden.go" package, with a
command that resembles the following:

	go build -o warden main/warden.go

The command line interface uses the urfave/cli package, with the
implementation of entry points in the "operations" package. The core
supervision logic is in the "subprocess" package.
*/
package warden
