package operations

import (
	"testing"

	"github.com/mongodb/grip"
	"github.com/stretchr/testify/suite"
)

func init() {
	grip.SetName("warden.operations.test")
}

// CommandsSuite provides a group of tests of the entry points and
// command wrappers for the command-line interface to warden.
type CommandsSuite struct {
	suite.Suite
}

func TestCommandsSuite(t *testing.T) {
	suite.Run(t, new(CommandsSuite))
}

func (s *CommandsSuite) TestSuperviseCommandObjectAttributes() {
	cmd := Supervise()
	s.Equal("supervise", cmd.Name)
	s.Contains(cmd.Aliases, "group")
	s.Len(cmd.Flags, 3)
	s.NotNil(cmd.Before)
	s.NotNil(cmd.Action)
}

func (s *CommandsSuite) TestRunCommandObjectAttributes() {
	cmd := Run()
	s.Equal("run", cmd.Name)
	s.Len(cmd.Flags, 3)
	s.NotNil(cmd.Before)
	s.NotNil(cmd.Action)
}

func (s *CommandsSuite) TestFollowCommandObjectAttributes() {
	cmd := Follow()
	s.Equal("follow", cmd.Name)
	s.Len(cmd.Flags, 1)
	s.NotNil(cmd.Before)
	s.NotNil(cmd.Action)
}

func (s *CommandsSuite) TestVersionCommandObjectAttributes() {
	cmd := Version()
	s.Equal("version", cmd.Name)
	s.Len(cmd.Flags, 1)
	s.NotNil(cmd.Action)
}

func (s *CommandsSuite) TestVersionInfoStringForm() {
	info := versionInfo{Warden: "abc123"}
	s.Contains(info.String(), "abc123")
}

func (s *CommandsSuite) TestBuildGroupMarksEssentialMembers() {
	defs := []*ProcessDefinition{
		{Name: "scheduler", Command: "sleep 60", Essential: true},
		{Name: "worker", Command: "sleep 60"},
		{Name: "monitor", Command: "sleep 60"},
	}
	for _, def := range defs {
		s.NoError(def.Validate())
	}

	members, essential, err := buildGroup(defs, []string{"monitor"})
	s.NoError(err)
	s.Len(members, 3)
	s.Len(essential, 2)
	s.Equal("scheduler", essential[0].Name())
	s.Equal("monitor", essential[1].Name())
}

func (s *CommandsSuite) TestBuildGroupPropagatesConstructionErrors() {
	defs := []*ProcessDefinition{{Name: "broken", Command: ""}}

	members, essential, err := buildGroup(defs, nil)
	s.Error(err)
	s.Nil(members)
	s.Nil(essential)
}
