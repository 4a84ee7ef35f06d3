package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterruptWrapsConsoleWrites(t *testing.T) {
	var cleared, restored int
	SetInterrupt(func() func() {
		cleared++
		return func() { restored++ }
	})
	defer SetInterrupt(nil)

	Print("a")
	Debugf("%d", 1)
	Error("b")
	PrintStatusLog("status")

	assert.Equal(t, 3, cleared)
	assert.Equal(t, 3, restored)
}

func TestCallerFileName(t *testing.T) {
	var name string
	func() { name = GetCallerFileName(true) }()
	assert.Contains(t, name, "log_test@")
}
