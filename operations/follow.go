package operations

import (
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/papertrail/go-tail/follower"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Follow constructs the command object that tails a file and forwards
// its lines into the logging pipeline, for feeding a process' own log
// files through the same destinations as supervised output.
func Follow() cli.Command {
	return cli.Command{
		Name:  "follow",
		Usage: "tail a (single) file and forward new lines to the logging pipeline",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "file",
				Usage: "specify a file to watch for changes",
			},
		},
		Before: mergeBeforeFuncs(
			requireStringFlag("file"),
			requireFileExists("file", false),
		),
		Action: func(c *cli.Context) error {
			fn := c.String("file")

			if err := followFile(fn); err != nil {
				return errors.Wrapf(err, "following file %s", fn)
			}
			return nil
		},
	}
}

func followFile(fn string) error {
	logger := grip.NewJournaler("warden.follow")
	if err := logger.SetSender(grip.GetSender()); err != nil {
		return errors.Wrap(err, "configuring follow logger")
	}
	lvl := logger.GetSender().Level().Default

	tail, err := follower.New(fn, follower.Config{
		Reopen: true,
	})
	if err != nil {
		return errors.Wrapf(err, "setting up file follower of '%s'", fn)
	}
	defer tail.Close()

	if err = tail.Err(); err != nil {
		return errors.Wrapf(err, "starting up file follower of '%s'", fn)
	}

	for line := range tail.Lines() {
		logger.Log(lvl, message.NewDefaultMessage(lvl, line.String()))
	}

	return errors.Wrapf(tail.Err(), "watching file '%s'", fn)
}
