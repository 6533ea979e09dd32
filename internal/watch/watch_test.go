package watch

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docverify/internal/testutil/testutils"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

func fixture(t *testing.T) (*testutils.SiteFixture, *testutils.FakeBuilder) {
	t.Helper()
	fx := testutils.NewSiteFixture(t).Doc("intro.md", "intro", "# Intro\n")
	b := &testutils.FakeBuilder{Produce: func() error {
		fx.OutputFile("docs/intro.html", "<h1>Intro</h1>")
		return nil
	}}
	return fx, b
}

func TestRunner_SkipsUnchangedScheduledRuns(t *testing.T) {
	fx, b := fixture(t)
	r := NewRunner(verifier.New(fx.Cfg, b))
	ctx := context.Background()

	r.runOnce(ctx, ReasonStartup)
	require.Equal(t, 1, b.Calls)
	require.NotNil(t, r.Last())
	require.True(t, r.Last().Passed())

	r.runOnce(ctx, ReasonSchedule)
	require.Equal(t, 1, b.Calls, "unchanged inputs must not rebuild on schedule")

	r.runOnce(ctx, ReasonChange)
	require.Equal(t, 2, b.Calls, "explicit changes always rebuild")

	fx.Doc("intro.md", "intro", "# Changed\n")
	r.runOnce(ctx, ReasonSchedule)
	require.Equal(t, 3, b.Calls)
	require.Equal(t, 3, r.Runs())
}

func TestRunner_TriggerCoalesces(t *testing.T) {
	fx, b := fixture(t)
	r := NewRunner(verifier.New(fx.Cfg, b))

	require.True(t, r.Trigger(ReasonChange))
	require.False(t, r.Trigger(ReasonChange))

	ctx, cancel := context.WithCancel(context.Background())
	go r.Loop(ctx)
	require.Eventually(t, func() bool { return r.Runs() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-r.Done()
}

func TestFileWatcher_DebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	ignored := filepath.Join(dir, "build")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o750))
	require.NoError(t, os.MkdirAll(ignored, 0o750))

	var calls atomic.Int32
	fw, err := NewFileWatcher([]string{dir, filepath.Join(dir, "missing")}, []string{ignored}, 100*time.Millisecond, func() { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))
	defer func() { _ = fw.Stop() }()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "a.md"), []byte{byte('a' + i)}, 0o600))
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(ignored, "out.html"), []byte("x"), 0o600))
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())

	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())
}

func TestFileWatcher_Ignored(t *testing.T) {
	fw := &FileWatcher{ignore: []string{"/a/build"}}
	require.True(t, fw.ignored("/a/build"))
	require.True(t, fw.ignored("/a/build/x/y.html"))
	require.False(t, fw.ignored("/a/builder/x"))
	require.False(t, fw.ignored("/a/docs/x.md"))
}

func TestWatchDirs(t *testing.T) {
	fx := testutils.NewSiteFixture(t)
	require.Equal(t, []string{
		filepath.Join(fx.Root, "docs"),
		filepath.Join(fx.Root, "website", "static", "css"),
	}, WatchDirs(fx.Cfg))
}

func TestService_RunServesStatus(t *testing.T) {
	fx, b := fixture(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	fx.Cfg.Watch.Addr = addr
	fx.Cfg.Watch.Interval = time.Hour
	svc, err := NewService(fx.Cfg, verifier.New(fx.Cfg, b), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/status")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)
	require.Equal(t, 1, svc.Runner().Runs())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch service did not stop")
	}
}
