package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Package browser owns the headless rendering engine shared by all sources in a run.

var (
	// ErrEngineStart marks a failure to launch the rendering engine.
	ErrEngineStart = errors.New("rendering engine start failed")
	// ErrEngineClosed is returned by Acquire after Release.
	ErrEngineClosed = errors.New("rendering engine released")
)

// RenderRequest describes one page load.
type RenderRequest struct {
	URL          string
	WaitSelector string
	Timeout      time.Duration
}

// Browser is a running engine instance. Render must be safe for concurrent use;
// every call gets its own isolated browsing context.
type Browser interface {
	Render(ctx context.Context, req RenderRequest) (string, error)
	Close() error
}

// Launcher starts a Browser. The context bounds the lifetime of the process.
type Launcher func(ctx context.Context) (Browser, error)

// Logger defines the logging surface the engine relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

// Engine hands out a single lazily started Browser. Concurrent Acquire calls
// during startup share the same launch; a failed launch is not retried.
type Engine struct {
	base   context.Context
	launch Launcher
	log    Logger
	group  singleflight.Group

	mu       sync.Mutex
	instance Browser
	startErr error
	released bool
}

// NewEngine builds an engine backed by a local Chrome installation.
func NewEngine(ctx context.Context, opts Options, log Logger) *Engine {
	return NewEngineWithLauncher(ctx, ChromeLauncher(opts), log)
}

// NewEngineWithLauncher builds an engine around a custom launcher.
func NewEngineWithLauncher(ctx context.Context, launch Launcher, log Logger) *Engine {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = noopLogger{}
	}
	return &Engine{base: ctx, launch: launch, log: log}
}

// Acquire returns the running browser, starting it on first use.
func (e *Engine) Acquire(ctx context.Context) (Browser, error) {
	if e == nil || e.launch == nil {
		return nil, fmt.Errorf("%w: engine is not initialized", ErrEngineStart)
	}
	if b, done, err := e.current(); done {
		return b, err
	}

	ch := e.group.DoChan("engine", func() (any, error) {
		if b, done, err := e.current(); done {
			return b, err
		}

		started := time.Now()
		b, err := e.launch(e.base)

		e.mu.Lock()
		defer e.mu.Unlock()
		if err != nil {
			e.startErr = fmt.Errorf("%w: %w", ErrEngineStart, err)
			e.log.ErrorObj("rendering engine start failed", "error", err.Error())
			return nil, e.startErr
		}
		if e.released {
			_ = b.Close()
			return nil, ErrEngineClosed
		}
		e.instance = b
		e.log.InfoObj("rendering engine started", "engine_meta", map[string]any{
			"startup_ms": time.Since(started).Milliseconds(),
		})
		return b, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Browser), nil
	}
}

func (e *Engine) current() (Browser, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.released:
		return nil, true, ErrEngineClosed
	case e.startErr != nil:
		return nil, true, e.startErr
	case e.instance != nil:
		return e.instance, true, nil
	}
	return nil, false, nil
}

// Release shuts the browser down. It is safe to call when the engine never
// started, and only the first call has an effect.
func (e *Engine) Release() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return nil
	}
	e.released = true
	b := e.instance
	e.instance = nil
	e.mu.Unlock()

	if b == nil {
		return nil
	}
	if err := b.Close(); err != nil {
		e.log.ErrorObj("rendering engine close failed", "error", err.Error())
		return fmt.Errorf("close rendering engine: %w", err)
	}
	e.log.InfoObj("rendering engine released", "engine_meta", map[string]any{"closed": true})
	return nil
}
