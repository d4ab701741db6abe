package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipcrm/napkin/internal/history"
)

func TestOutputFormatterJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.JSON(map[string]int{"snapshots": 3}))

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data["snapshots"])
}

func TestOutputFormatterErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]int{"index": 9, "count": 4}
	require.NoError(t, f.Error("RANGE", "invalid snapshot index", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RANGE", resp.Error.Code)
	assert.Equal(t, "invalid snapshot index", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
	assert.Nil(t, resp.Data)
}

func TestOutputFormatterErrorText(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, f.Error("E_FAILURE", "snapshot failed", map[string]string{"file": "board.json"}))
			assert.Contains(t, buf.String(), "Error [E_FAILURE]: snapshot failed")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatterVerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	f.VerboseLog("verifying session %s", "board")
	assert.Empty(t, out.String())
	assert.Equal(t, "verifying session board\n", errOut.String())

	f = &OutputFormatter{Format: "text", Writer: out, Verbose: true}
	f.VerboseLog("running %s", "a.yaml")
	assert.Equal(t, "running a.yaml\n", out.String())

	out.Reset()
	f = &OutputFormatter{Format: "text", Writer: out}
	f.VerboseLog("hidden")
	assert.Empty(t, out.String())
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := WrapExitError(ExitCommandError, "failed to open database", cause)

	assert.Equal(t, "failed to open database: disk I/O error", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad flag", NewExitError(ExitCommandError, "bad flag").Error())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "verify", errors.New("x"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner"))))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "RANGE", ErrorCode(WrapExitError(ExitCommandError, "index", history.NewRangeError(5, 2))))
	assert.Equal(t, "INVARIANT_VIOLATION", ErrorCode(history.NewInvariantError(0, 1, "oldest snapshot is not a baseline")))
	assert.Equal(t, "E_COMMAND", ErrorCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, "E_FAILURE", ErrorCode(errors.New("boom")))
}

func TestReport(t *testing.T) {
	t.Run("text goes to stderr", func(t *testing.T) {
		out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
		cmd := NewRootCommand()
		cmd.SetOut(out)
		cmd.SetErr(errOut)

		code := report(cmd, NewExitError(ExitCommandError, "failed to open database"))
		assert.Equal(t, ExitCommandError, code)
		assert.Empty(t, out.String())
		assert.Equal(t, "Error: failed to open database\n", errOut.String())
	})

	t.Run("json envelope", func(t *testing.T) {
		out := &bytes.Buffer{}
		cmd := NewRootCommand()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		require.NoError(t, cmd.PersistentFlags().Set("format", "json"))

		code := report(cmd, WrapExitError(ExitCommandError, "invalid snapshot index", history.NewRangeError(7, 2)))
		assert.Equal(t, ExitCommandError, code)

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "RANGE", resp.Error.Code)
	})

	t.Run("already reported", func(t *testing.T) {
		out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
		cmd := NewRootCommand()
		cmd.SetOut(out)
		cmd.SetErr(errOut)

		code := report(cmd, reportedFailure("1 scenario(s) failed"))
		assert.Equal(t, ExitFailure, code)
		assert.Empty(t, out.String())
		assert.Empty(t, errOut.String())
	})

	t.Run("success", func(t *testing.T) {
		assert.Equal(t, ExitSuccess, report(NewRootCommand(), nil))
	})
}
