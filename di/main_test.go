package di

import (
	"os"
	"testing"

	"github.com/KOMKZ/go-yogan-hooks/logger"
)

func TestMain(m *testing.M) {
	logger.InitManager(logger.ManagerConfig{Level: "debug"})
	os.Exit(m.Run())
}
