package errors

import (
	"bytes"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", stderrors.New("boom"), ExitGeneral},
		{"validation", ValidationError("bad").Build(), ExitUsage},
		{"verification", VerificationError("checks failed").Build(), ExitChecksFailed},
		{"config", ConfigError("missing").Build(), ExitConfig},
		{"build", BuildError("exit 1").Build(), ExitBuild},
		{"filesystem", FileSystemError("glob").Build(), ExitBuild},
		{"store", StoreError("sqlite").Build(), ExitRuntime},
		{"internal", InternalError("bug").Build(), ExitInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, a.ExitCodeFor(tc.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	loud := NewCLIErrorAdapter(true, nil)
	err := WrapError(stderrors.New("exit status 2"), CategoryBuild, "site build failed").Build()

	require.Equal(t, "Error: site build failed (use -v for details)", quiet.FormatError(err))
	require.Contains(t, loud.FormatError(err), "exit status 2")
	require.Equal(t, "Error: boom", quiet.FormatError(stderrors.New("boom")))
	require.Empty(t, quiet.FormatError(nil))
}

func TestCLIErrorAdapter_ReportWritesMessage(t *testing.T) {
	var logs, out bytes.Buffer
	a := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	a.out = &out

	code := a.Report(BuildError("site build failed").WithContext("exit_code", 1).Build())

	require.Equal(t, ExitBuild, code)
	require.Contains(t, out.String(), "site build failed")
	require.Contains(t, logs.String(), "category=build")
	require.Contains(t, logs.String(), "exit_code=1")
}
