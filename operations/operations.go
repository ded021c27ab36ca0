/*
Package operations contains the integration between the core warden
functionality and the user-exposed interfaces.

The public functions in this package return cli.Command objects that
are registered into the command line application built in
"main/warden.go". Additionally, there are a number of private
functions that integrate between components (configuration parsing,
supervisor construction, signal handling, etc.)

In general the core supervision logic lives in the subprocess package;
this package only assembles supervisors from user input and hands them
to the supervision loop.
*/
package operations

// This file is documentation only.
