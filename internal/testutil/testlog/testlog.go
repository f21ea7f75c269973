package testlog

import (
	"testing"

	"github.com/brinklayer/membrane/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	t.Logf("test=%s", t.Name())
}
