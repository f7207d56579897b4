package util

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/storage-manager/pkg/errors"
)

func mockOutput() (*bytes.Buffer, *int, func()) {
	var out bytes.Buffer
	exitCode := -1
	stdout = &out
	stderr = &out
	exit = func(code int) { exitCode = code }
	return &out, &exitCode, func() {
		stdout = os.Stdout
		stderr = os.Stderr
		exit = os.Exit
	}
}

func TestHandleFatalError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expOut string
	}{
		{
			name:   "Friendly",
			err:    errors.WithContext(errors.NewFriendlyError("Is $USER set?"), "resolve layout"),
			expOut: "Is $USER set?\n",
		},
		{
			name:   "Unfriendly",
			err:    errors.WithContext(errors.New("permission denied"), "create local root"),
			expOut: "Error: create local root: permission denied\n",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out, exitCode, reset := mockOutput()
			defer reset()

			HandleFatalError(test.err)
			assert.Equal(t, test.expOut, out.String())
			assert.Equal(t, 1, *exitCode)
		})
	}
}

func TestHandlePanic(t *testing.T) {
	out, _, reset := mockOutput()
	defer reset()

	assert.PanicsWithValue(t, "boom", func() {
		defer HandlePanic()
		panic("boom")
	})
	assert.Contains(t, out.String(), "storage-manager crashed unexpectedly: boom")
}
