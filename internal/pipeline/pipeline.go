// Package pipeline owns the path from raw signal to built session: a
// bounded FIFO queue on the producer side, one consumer goroutine, and
// the engine stages fanned out per signal.
package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"contextos/internal/adapters"
	"contextos/internal/agent"
	"contextos/internal/config"
	"contextos/internal/logging"
	"contextos/internal/types"
)

// SessionSink receives built sessions. The presentation layer sits
// behind this boundary.
type SessionSink interface {
	HandleSession(session *types.Session)
}

// Pipeline routes signals through the engine to the sink.
type Pipeline struct {
	queue       chan types.Signal
	enqueueWait time.Duration
	sink        SessionSink
	dispatcher  *adapters.Dispatcher

	mu     sync.RWMutex
	engine *Engine

	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a Pipeline. The dispatcher may be nil when no adapters
// are used (signals arrive via RouteSignal directly).
func New(cfg config.PipelineConfig, engine *Engine, sink SessionSink, dispatcher *adapters.Dispatcher) *Pipeline {
	size := cfg.QueueSize
	if size < 1 {
		size = 10
	}
	return &Pipeline{
		queue:       make(chan types.Signal, size),
		enqueueWait: cfg.EnqueueWait(),
		sink:        sink,
		dispatcher:  dispatcher,
		engine:      engine,
		done:        make(chan struct{}),
	}
}

// Start launches the consumer and the enabled adapters.
func (p *Pipeline) Start(ctx context.Context) error {
	var startErr error
	p.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		p.cancel = cancel

		go p.consume(runCtx)

		if p.dispatcher != nil {
			startErr = p.dispatcher.Start(runCtx, p.RouteSignal)
		}
		logging.Get(logging.CategoryPipeline).Infow("pipeline started", "queue_size", cap(p.queue))
	})
	return startErr
}

// Stop halts adapters and the consumer. Signals still in the queue are
// discarded.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		if p.dispatcher != nil {
			p.dispatcher.Stop()
		}
		if p.cancel != nil {
			p.cancel()
		}
		<-p.done
		logging.Get(logging.CategoryPipeline).Infow("pipeline stopped")
	})
}

// RouteSignal enqueues a signal for processing. The producer waits at
// most the configured enqueue timeout on a full queue; past that the
// signal is dropped with a warning. A producer is never blocked
// indefinitely.
func (p *Pipeline) RouteSignal(signal types.Signal) {
	log := logging.Get(logging.CategoryPipeline)

	select {
	case p.queue <- signal:
		log.Debugw("signal queued", "signal", signal.Metadata.UUID, "source", signal.Source)
		return
	default:
	}

	timer := time.NewTimer(p.enqueueWait)
	defer timer.Stop()

	select {
	case p.queue <- signal:
		log.Debugw("signal queued after wait", "signal", signal.Metadata.UUID, "source", signal.Source)
	case <-timer.C:
		log.Warnw("queue full, signal dropped",
			"signal", signal.Metadata.UUID,
			"source", signal.Source,
			"capacity", cap(p.queue))
	}
}

// Reload swaps the engine stages without disturbing the queue or any
// session already handed to the sink. The signal being processed when
// the swap lands finishes on the old engine.
func (p *Pipeline) Reload(engine *Engine) {
	p.mu.Lock()
	p.engine = engine
	p.mu.Unlock()
	logging.Get(logging.CategoryPipeline).Infow("engine reloaded")
}

// Dispatcher exposes adapter management.
func (p *Pipeline) Dispatcher() *adapters.Dispatcher {
	return p.dispatcher
}

func (p *Pipeline) currentEngine() *Engine {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine
}

// consume drains the queue sequentially. One signal is fully processed
// before the next is taken; concurrency lives inside a signal, not
// across signals.
func (p *Pipeline) consume(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-p.queue:
			p.process(ctx, signal)
		}
	}
}

// process runs one signal through detect, the classify/execute fan-out,
// format and build, then hands the session to the sink.
func (p *Pipeline) process(ctx context.Context, signal types.Signal) {
	log := logging.Get(logging.CategoryPipeline)
	engine := p.currentEngine()

	detected := engine.Detector.Detect(ctx, signal)
	if detected == nil {
		log.Debugw("signal produced no intent", "signal", signal.Metadata.UUID)
		return
	}

	// Classification and execution are independent; run them in
	// parallel and join before formatting.
	var result *agent.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		engine.Classifier.Classify(gctx, detected)
		return nil
	})
	g.Go(func() error {
		var err error
		result, err = engine.Agent.Execute(gctx, detected)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Errorw("signal processing failed",
			"signal", signal.Metadata.UUID,
			"target", detected.Target,
			"error", err)
		return
	}

	content := engine.Formatter.Format(result, detected)
	session, err := engine.Builder.Build(content)
	if err != nil {
		log.Errorw("session build failed", "signal", signal.Metadata.UUID, "error", err)
		return
	}

	log.Infow("signal processed",
		"signal", signal.Metadata.UUID,
		"session", session.Metadata.UUID,
		"level", session.Level,
		"iterations", result.Iterations)
	p.sink.HandleSession(session)
}
