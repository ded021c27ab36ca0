package main

import (
	"testing"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/stretchr/testify/suite"
)

// MainSuite is a collection of tests that exercise the top-level
// configuration of the program.
type MainSuite struct {
	suite.Suite
}

func TestMainSuite(t *testing.T) {
	suite.Run(t, new(MainSuite))
}

func (s *MainSuite) TestLoggingSetupConfiguresNameAndThreshold() {
	err := loggingSetup("test", "debug")
	s.NoError(err)
	s.Equal("test", grip.Name())
	s.Equal(level.Debug, grip.GetSender().Level().Threshold)
}

func (s *MainSuite) TestAppBuilderFunctionSetsCorrectProperties() {
	app := buildApp()

	s.Equal("warden", app.Name)

	// the exact number will change, but should be >0
	s.NotEqual(len(app.Commands), 0)

	// The app should have some top level flags, and the first
	// flag should be the logging-level configuration.
	s.NotZero(app.Flags)
	s.Equal(app.Flags[0].GetName(), "level")

	// we do logging set up here, so it needs to be set
	s.NotZero(app.Before)
}
