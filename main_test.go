package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(f func()) string {
	var buf bytes.Buffer
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan bool)
	go func() {
		_, _ = io.Copy(&buf, r)
		done <- true
	}()

	f()
	_ = w.Close()
	os.Stdout = oldStdout
	<-done

	return buf.String()
}

func callMain(args ...string) (int, string) {
	oldArgs, oldExit := os.Args, exit
	defer func() { os.Args, exit = oldArgs, oldExit }()

	exitCode := -1
	exit = func(code int) { exitCode = code }
	os.Args = append([]string{"quill"}, args...)

	output := captureOutput(main)
	return exitCode, output
}

func TestMain(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedExit   int
		expectedOutput string
	}{
		{
			name:           "no arguments prints usage",
			args:           nil,
			expectedExit:   0,
			expectedOutput: "Usage:",
		},
		{
			name:           "help lists commands",
			args:           []string{"--help"},
			expectedExit:   0,
			expectedOutput: "serve",
		},
		{
			name:           "version command",
			args:           []string{"version"},
			expectedExit:   0,
			expectedOutput: "quill version dev",
		},
		{
			name:         "unknown command",
			args:         []string{"unknown"},
			expectedExit: 1,
		},
		{
			name:         "serve rejects arguments",
			args:         []string{"serve", "public"},
			expectedExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCode, output := callMain(tt.args...)
			assert.Equal(t, tt.expectedExit, exitCode)
			assert.Contains(t, output, tt.expectedOutput)
		})
	}
}
