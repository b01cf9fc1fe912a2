package sweep_test

import (
	"bytes"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/mlgruby/homelab/sweep"
)

type Suite struct {
	suite.Suite
}

func TestSuite(t *testing.T) {
	suite.Run(t, new(Suite))
}

func (suite *Suite) TestSetsDefaultFields() {
	logger := sweep.SetupLogging(false, "json", "banana=boo")

	entry := logger.(*log.Entry)

	suite.Equal(log.Fields{"banana": "boo"}, entry.Data)
	suite.Equal(log.InfoLevel, entry.Logger.Level)
	suite.Equal(os.Stdout, entry.Logger.Out)
	suite.Equal(&log.JSONFormatter{}, entry.Logger.Formatter)
}

func (suite *Suite) TestDebugRaisesLevel() {
	logger := sweep.SetupLogging(true, "plain", "")

	entry := logger.(*log.Entry)

	suite.Equal(log.DebugLevel, entry.Logger.Level)
}

func (suite *Suite) TestEmptyFieldListIsFine() {
	logger := sweep.SetupLogging(false, "plain", "")

	entry := logger.(*log.Entry)

	suite.Empty(entry.Data)
}

func (suite *Suite) TestJSONOutput() {
	logger := sweep.SetupLogging(false, "json", "banana=boo")

	buf := new(bytes.Buffer)
	logger.(*log.Entry).Logger.Out = buf

	logger.Info("hello, world!")

	suite.Contains(buf.String(), "\"msg\":\"hello, world!\"")
	suite.Contains(buf.String(), "\"banana\":\"boo\"")
}
