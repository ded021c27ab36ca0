package operations

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	tmpDir  string
	require *require.Assertions
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupSuite() {
	s.require = s.Require()
}

func (s *ConfigSuite) SetupTest() {
	tmpDir, err := ioutil.TempDir("", "warden-config-test-")
	s.require.NoError(err)
	s.tmpDir = tmpDir
}

func (s *ConfigSuite) TearDownTest() {
	s.require.NoError(os.RemoveAll(s.tmpDir))
}

func (s *ConfigSuite) writeConfig(content string) string {
	fn := filepath.Join(s.tmpDir, "supervise.yaml")
	s.require.NoError(ioutil.WriteFile(fn, []byte(content), 0644))
	return fn
}

func (s *ConfigSuite) TestReadValidConfig() {
	fn := s.writeConfig(`
processes:
  - name: scheduler
    command: "svcd scheduler"
    essential: true
    patience: 2m
    env:
      SVCD_HOME: /usr/local/svcd
  - name: worker
    command: "svcd worker --queue default"
`)

	conf, err := ReadSuperviseConfig(fn)
	s.require.NoError(err)
	s.require.Len(conf.Processes, 2)

	scheduler := conf.Processes[0]
	s.Equal("scheduler", scheduler.Name)
	s.True(scheduler.Essential)
	s.Equal(2*time.Minute, scheduler.patience)
	s.Equal("/usr/local/svcd", scheduler.Env["SVCD_HOME"])

	worker := conf.Processes[1]
	s.Equal("worker", worker.Name)
	s.False(worker.Essential)
	s.Zero(worker.patience)
}

func (s *ConfigSuite) TestReadConfigErrorCases() {
	for name, content := range map[string]string{
		"empty":            "",
		"noProcesses":      "processes: []",
		"missingCommand":   "processes:\n  - name: foo\n",
		"invalidPatience":  "processes:\n  - command: sleep\n    patience: sometime\n",
		"duplicateNames":   "processes:\n  - name: a\n    command: sleep\n  - name: a\n    command: sleep\n",
		"malformedContent": "processes: {{{",
	} {
		fn := s.writeConfig(content)
		_, err := ReadSuperviseConfig(fn)
		s.Error(err, name)
	}
}

func (s *ConfigSuite) TestReadConfigMissingFile() {
	_, err := ReadSuperviseConfig(filepath.Join(s.tmpDir, "does-not-exist.yaml"))
	s.Error(err)
}

func (s *ConfigSuite) TestDefinitionNameDefaultsToBinary() {
	def := &ProcessDefinition{Command: "svcd worker --queue default"}
	s.NoError(def.Validate())
	s.Equal("svcd", def.Name)
}

func (s *ConfigSuite) TestDefinitionResolvesToSupervisor() {
	def := &ProcessDefinition{Name: "echoer", Command: `sh -c "echo hi"`}
	s.require.NoError(def.Validate())

	super, err := def.Supervisor()
	s.require.NoError(err)
	s.Equal("echoer", super.Name())
}

func (s *ConfigSuite) TestDefinitionWithUnparsableCommand() {
	def := &ProcessDefinition{Name: "bad", Command: `sh -c "unterminated`}
	s.NoError(def.Validate())

	_, err := def.Supervisor()
	s.Error(err)
}
