package testenv

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"testing"

	"github.com/samzhu/scim/logger"
)

// ExitInterrupted is returned through os.Exit when a signal ends the run.
const ExitInterrupted = 130

var (
	currentMu sync.RWMutex
	current   *Environment
)

// Main runs the tests of a package inside one shared environment:
//
//	func TestMain(m *testing.M) {
//	    os.Exit(testenv.Main(m))
//	}
//
// The environment is started before m.Run and stopped after it, and also
// when the process receives SIGINT or SIGTERM. Tests reach it through
// Current. A failed start or teardown turns a passing run into exit code 1.
func Main(m *testing.M, opts ...Option) int {
	return defaultHooks().run(m, opts...)
}

// runner is the part of *testing.M that Main drives.
type runner interface {
	Run() int
}

// mainHooks are the process-level effects of Main.
type mainHooks struct {
	newEnv func(Config, ...Option) (*Environment, error)
	notify func(chan<- os.Signal)
	stop   func(chan<- os.Signal)
	exit   func(int)
	stderr io.Writer
}

func defaultHooks() mainHooks {
	return mainHooks{
		newEnv: New,
		notify: func(c chan<- os.Signal) { signal.Notify(c, os.Interrupt, syscall.SIGTERM) },
		stop:   func(c chan<- os.Signal) { signal.Stop(c) },
		exit:   os.Exit,
		stderr: os.Stderr,
	}
}

func (h mainHooks) run(m runner, opts ...Option) int {
	o := buildOptions(opts)

	var cfg Config
	if o.cfg != nil {
		cfg = *o.cfg
	} else {
		loaded, err := LoadConfig(o.loaderOpts...)
		if err != nil {
			fmt.Fprintf(h.stderr, "testenv: load config: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	env, err := h.newEnv(cfg, opts...)
	if err != nil {
		fmt.Fprintf(h.stderr, "testenv: %v\n", err)
		return 1
	}

	sigs := make(chan os.Signal, 1)
	h.notify(sigs)
	defer h.stop(sigs)

	finished := make(chan struct{})
	done := make(chan struct{})
	defer func() {
		close(finished)
		<-done
	}()
	go func() {
		defer close(done)
		select {
		case sig := <-sigs:
			env.log.Warn("signal received, tearing down", logger.Fields("signal", sig.String()))
			if err := env.Stop(context.Background()); err != nil {
				fmt.Fprintf(h.stderr, "testenv: teardown: %v\n", err)
			}
			h.exit(ExitInterrupted)
		case <-finished:
		}
	}()

	if err := env.Start(context.Background()); err != nil {
		fmt.Fprintf(h.stderr, "testenv: start: %v\n", err)
		return 1
	}

	setCurrent(env)
	code := m.Run()
	setCurrent(nil)

	if err := env.Stop(context.Background()); err != nil {
		fmt.Fprintf(h.stderr, "testenv: teardown: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

func setCurrent(env *Environment) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = env
}

// Current returns the environment started by Main. It fails the test when
// the package has no TestMain calling Main.
func Current(tb testing.TB) *Environment {
	tb.Helper()
	currentMu.RLock()
	defer currentMu.RUnlock()
	if current == nil {
		tb.Fatal("testenv: no shared environment; call testenv.Main from TestMain")
	}
	return current
}

// Setup starts an environment owned by a single test and stops it in
// tb.Cleanup.
func Setup(tb testing.TB, cfg Config, opts ...Option) *Environment {
	tb.Helper()

	env, err := New(cfg, opts...)
	if err != nil {
		tb.Fatalf("testenv: %v", err)
	}
	tb.Cleanup(func() {
		if err := env.Stop(context.Background()); err != nil {
			tb.Errorf("testenv: teardown: %v", err)
		}
	})
	if err := env.Start(context.Background()); err != nil {
		tb.Fatalf("testenv: start: %v", err)
	}
	return env
}
