package operations

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/wardenhq/warden"
)

type versionInfo struct {
	Warden string `json:"warden"`
}

func (v versionInfo) String() string {
	return strings.Join([]string{
		"Warden Version Info:",
		"\n\t", "Build: ", v.Warden,
	}, "")
}

// Version constructs the command object that prints build version
// information.
func Version() cli.Command {
	return cli.Command{
		Name:  "version",
		Usage: "prints version information",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "json",
				Usage: "specify this option to output data as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			info := versionInfo{
				Warden: warden.BuildRevision,
			}

			if c.Bool("json") {
				out, err := json.MarshalIndent(info, "", "   ")
				if err != nil {
					return errors.Wrap(err, "marshaling version info")
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Println(info)
			return nil
		},
	}
}
