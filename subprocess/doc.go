/*
Package subprocess provides supervision of long-running child
processes.

Overview

A Supervisor owns exactly one child process: it spawns the process
with its output streams merged into a single non-blocking pipe,
forwards that output line-by-line into a grip logging pipeline,
evaluates pluggable health conditions on a throttle, and terminates
the process using a graceful-then-forceful signal escalation (SIGTERM,
then SIGKILL after a configurable patience interval).

Supervisors are advanced by repeatedly calling Step, which performs at
most one line read and one exit poll per call and never blocks. The
RunGroup function runs any number of supervisors under a single
cooperative loop, with a notion of "essential" members whose exit
terminates the whole group.

The Condition interface defines the health-check contract consumed by
supervisors; concrete conditions are supplied by callers, and the
package never inspects their underlying types.
*/
package subprocess

// This file is documentation only.
