package operations

import (
	"io/ioutil"
	"time"

	shlex "github.com/anmitsu/go-shlex"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/wardenhq/warden/subprocess"
	yaml "gopkg.in/yaml.v2"
)

// SuperviseConfig provides the schema for supervision configuration
// files: a cohort of processes to run together, with a subset marked
// essential.
type SuperviseConfig struct {
	Processes []*ProcessDefinition `bson:"processes" json:"processes" yaml:"processes"`
}

// ProcessDefinition describes a single supervised process in a
// configuration file.
type ProcessDefinition struct {
	Name      string            `bson:"name" json:"name" yaml:"name"`
	Command   string            `bson:"command" json:"command" yaml:"command"`
	Env       map[string]string `bson:"env,omitempty" json:"env,omitempty" yaml:"env,omitempty"`
	Essential bool              `bson:"essential" json:"essential" yaml:"essential"`
	Patience  string            `bson:"patience,omitempty" json:"patience,omitempty" yaml:"patience,omitempty"`

	patience time.Duration
}

// ReadSuperviseConfig parses and validates a configuration file.
func ReadSuperviseConfig(fn string) (*SuperviseConfig, error) {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", fn)
	}

	conf := &SuperviseConfig{}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", fn)
	}

	if err := conf.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", fn)
	}

	grip.Infof("loaded supervision config with %d process(es) from %s", len(conf.Processes), fn)

	return conf, nil
}

// Validate checks every process definition and ensures names are
// usable as essential-member references.
func (c *SuperviseConfig) Validate() error {
	catcher := grip.NewBasicCatcher()

	if len(c.Processes) == 0 {
		catcher.Add(errors.New("config defines no processes"))
	}

	seen := map[string]bool{}
	for idx, def := range c.Processes {
		catcher.Add(errors.Wrapf(def.Validate(), "process #%d", idx))

		if def.Name != "" {
			if seen[def.Name] {
				catcher.Add(errors.Errorf("duplicate process name '%s'", def.Name))
			}
			seen[def.Name] = true
		}
	}

	return catcher.Resolve()
}

// Validate checks a single definition, parsing the patience interval
// and defaulting the name to the command's binary.
func (d *ProcessDefinition) Validate() error {
	catcher := grip.NewBasicCatcher()

	if d.Command == "" {
		catcher.Add(errors.New("must specify a command"))
	}

	if d.Name == "" {
		if args, err := shlex.Split(d.Command, true); err == nil && len(args) > 0 {
			d.Name = args[0]
		}
	}

	if d.Patience != "" {
		dur, err := time.ParseDuration(d.Patience)
		if err != nil {
			catcher.Add(errors.Wrapf(err, "parsing patience interval '%s'", d.Patience))
		} else {
			d.patience = dur
		}
	}

	return catcher.Resolve()
}

// Supervisor constructs the supervisor described by this definition.
func (d *ProcessDefinition) Supervisor() (*subprocess.Supervisor, error) {
	args, err := shlex.Split(d.Command, true)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing command '%s'", d.Command)
	}

	super, err := subprocess.NewSupervisor(subprocess.Options{
		Command:         args,
		Env:             d.Env,
		FriendlyName:    d.Name,
		SigtermPatience: d.patience,
	})

	return super, errors.Wrapf(err, "building supervisor for '%s'", d.Name)
}
