package operations

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/recovery"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/wardenhq/warden/subprocess"
)

// Supervise constructs the command object that runs a cohort of
// processes under supervision until they all finish, an essential
// member exits, or the host is signaled.
func Supervise() cli.Command {
	return cli.Command{
		Name:    "supervise",
		Aliases: []string{"group"},
		Usage:   "run a group of processes under supervision",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "config",
				Usage: "path of a yaml file defining the processes to supervise",
			},
			cli.StringSliceFlag{
				Name:  "exec",
				Usage: "a command to supervise; may be specified more than once",
			},
			cli.StringSliceFlag{
				Name: "essential",
				Usage: "name of a process whose exit stops the whole group; " +
					"may be specified more than once",
			},
		},
		Before: mergeBeforeFuncs(
			requireAnyFlag("config", "exec"),
			requireFileExists("config", true),
		),
		Action: func(c *cli.Context) error {
			defs, err := collectDefinitions(c)
			if err != nil {
				return errors.WithStack(err)
			}

			members, essential, err := buildGroup(defs, c.StringSlice("essential"))
			if err != nil {
				return errors.WithStack(err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go handleSignals(ctx, cancel)

			// anything still running when the loop returns,
			// e.g. after a panic recovery, gets cleaned up
			// with the registry.
			defer subprocess.DefaultRegistry().Close()

			subprocess.RunGroup(ctx, members, essential)

			return nil
		},
	}
}

// Run constructs the command object that runs a single command under
// supervision until it finishes.
func Run() cli.Command {
	return cli.Command{
		Name:  "run",
		Usage: "run a single command under supervision until it finishes",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "exec",
				Usage: "the command to run, quoted as a single argument",
			},
			cli.StringFlag{
				Name:  "name",
				Usage: "a friendly name used to refer to the process in log messages",
			},
			cli.StringFlag{
				Name:  "patience",
				Usage: "how long to wait after a SIGTERM before sending SIGKILL (e.g. '90s')",
			},
		},
		Before: requireStringFlag("exec"),
		Action: func(c *cli.Context) error {
			def := &ProcessDefinition{
				Name:     c.String("name"),
				Command:  c.String("exec"),
				Patience: c.String("patience"),
			}
			if err := def.Validate(); err != nil {
				return errors.WithStack(err)
			}

			super, err := def.Supervisor()
			if err != nil {
				return errors.WithStack(err)
			}
			defer super.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go handleSignals(ctx, cancel)

			return errors.Wrap(super.Start(ctx, true), "supervising command")
		},
	}
}

func collectDefinitions(c *cli.Context) ([]*ProcessDefinition, error) {
	var defs []*ProcessDefinition

	if fn := c.String("config"); fn != "" {
		conf, err := ReadSuperviseConfig(fn)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		defs = conf.Processes
	}

	for _, command := range c.StringSlice("exec") {
		def := &ProcessDefinition{Command: command}
		if err := def.Validate(); err != nil {
			return nil, errors.Wrapf(err, "invalid command '%s'", command)
		}
		defs = append(defs, def)
	}

	return defs, nil
}

func buildGroup(defs []*ProcessDefinition, essentialNames []string) ([]*subprocess.Supervisor, []*subprocess.Supervisor, error) {
	essentialSet := make(map[string]bool, len(essentialNames))
	for _, name := range essentialNames {
		essentialSet[name] = true
	}

	var members, essential []*subprocess.Supervisor
	for _, def := range defs {
		super, err := def.Supervisor()
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}

		members = append(members, super)
		if def.Essential || essentialSet[def.Name] {
			essential = append(essential, super)
		}
	}

	return members, essential, nil
}

// handleSignals cancels the supervision context when the host process
// is asked to shut down, which stops every supervised process through
// the normal escalation protocol.
func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	defer recovery.LogStackTraceAndContinue("warden signal handler")

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
	case sig := <-sigChan:
		grip.Infof("received signal %s, stopping supervised processes", sig)
		cancel()
	}
}
