// Package generation drives child generation for outline nodes: it streams model output
// through the parser, merges parsed children into the store and refreshes stale subtrees.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"outliner/internal/domain"
	"outliner/internal/domain/models/outline"
	domainllm "outliner/internal/domain/services/llm"
	"outliner/internal/metrics"
	"outliner/internal/service/llm/parser"
	serviceOutline "outliner/internal/service/outline"
)

const (
	// MorePrompt asks for additional children of an already generated node.
	MorePrompt = "Please generate additional children for this topic."

	// distinctFormat appends existing child texts so the model avoids repeating them.
	distinctFormat = "%s Please generate more children different from the existing ones: [%s]"

	// missingKeyMessage is the user-facing text when no credential is configured.
	missingKeyMessage = "API key missing"
)

// GeneratorFunc returns the child generator to use for the next request.
// It is called once per generation so credential or model changes apply immediately.
type GeneratorFunc func(ctx context.Context) (domainllm.ChildGenerator, error)

// Options configures an Orchestrator.
type Options struct {
	Notifier Notifier
	Logger   *slog.Logger
	// Timeout bounds a single generation. Zero means no timeout.
	Timeout time.Duration
}

// Orchestrator owns the per-node controllers of one store.
//
// At most one generation runs per node; generations on different nodes run concurrently and
// their merges interleave through the store.
type Orchestrator struct {
	store      *serviceOutline.Store
	generators GeneratorFunc
	notifier   Notifier
	logger     *slog.Logger
	timeout    time.Duration

	ctx    context.Context // parent of background generations
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	controllers map[string]*Controller
	inFlight    map[string]bool
	stale       map[string]bool // nodes edited after their children were generated
	unlisten    func()
}

// NewOrchestrator creates an orchestrator for store. Call Attach to start reacting to
// expansion and edits.
func NewOrchestrator(store *serviceOutline.Store, generators GeneratorFunc, opts Options) *Orchestrator {
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:       store,
		generators:  generators,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		timeout:     opts.Timeout,
		ctx:         ctx,
		cancel:      cancel,
		controllers: make(map[string]*Controller),
		inFlight:    make(map[string]bool),
		stale:       make(map[string]bool),
	}
}

// Attach subscribes the reactor to the store. Calling it twice has no effect.
func (o *Orchestrator) Attach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unlisten != nil {
		return
	}
	o.unlisten = o.store.Listen(o.Observe)
}

// Close detaches the reactor, cancels running generations and waits for them to stop.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	unlisten := o.unlisten
	o.unlisten = nil
	o.mu.Unlock()

	if unlisten != nil {
		unlisten()
	}
	o.cancel()
	o.wg.Wait()
}

// Wait blocks until every background generation has finished, including refreshes they trigger.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Store returns the store the orchestrator writes to.
func (o *Orchestrator) Store() *serviceOutline.Store {
	return o.store
}

// Node returns the controller for path, creating it on first use.
func (o *Orchestrator) Node(path string) *Controller {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.controllers[path]
	if !ok {
		c = &Controller{o: o, path: path}
		o.controllers[path] = c
	}
	return c
}

// IsLoading reports whether a generation for path is in flight.
func (o *Orchestrator) IsLoading(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[path]
}

// Loading returns the paths with a generation in flight.
func (o *Orchestrator) Loading() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	paths := make([]string, 0, len(o.inFlight))
	for p := range o.inFlight {
		paths = append(paths, p)
	}
	return paths
}

func (o *Orchestrator) isStale(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stale[path]
}

// acquire marks path in flight. It returns false when a generation is already running there.
func (o *Orchestrator) acquire(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[path] {
		return false
	}
	o.inFlight[path] = true
	metrics.GenerationsInFlight.Inc()
	return true
}

func (o *Orchestrator) release(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[path] {
		delete(o.inFlight, path)
		metrics.GenerationsInFlight.Dec()
	}
}

// request is one generation, captured against the state at its start.
type request struct {
	path       string
	prompt     string
	context    string
	startIndex int
	startText  string
}

// prepare builds the request for path from the current state.
func (o *Orchestrator) prepare(path, extraPrompt string, appending bool) (request, error) {
	state, _ := o.store.Snapshot()
	start, err := outline.GenerationStartIndex(state, path, appending)
	if err != nil {
		return request{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	prompt := strings.TrimSpace(extraPrompt)
	childPaths := outline.ChildPaths(state, path)
	if appending || len(childPaths) > 0 {
		texts := make([]string, 0, len(childPaths))
		for _, cp := range childPaths {
			if rec, ok := state[cp]; ok && rec.Text != "" {
				texts = append(texts, rec.Text)
			}
		}
		prompt = strings.TrimSpace(fmt.Sprintf(distinctFormat, prompt, strings.Join(texts, ", ")))
	}

	lineage := outline.FullLineage(state, path)
	if path != outline.RootPath {
		if intent := o.store.RootIntent(); intent != "" {
			lineage += " (Intent: " + intent + ")"
		}
	}

	return request{
		path:       path,
		prompt:     prompt,
		context:    lineage,
		startIndex: start,
		startText:  state[path].Text,
	}, nil
}

// generate runs one generation for path. The caller must hold the in-flight mark for path;
// generate releases it before returning.
func (o *Orchestrator) generate(ctx context.Context, path, extraPrompt string, appending bool) error {
	req, err := o.prepare(path, extraPrompt, appending)
	if err != nil {
		o.release(path)
		o.logger.Warn("generation not started", "path", path, "error", err)
		o.notify(Notification{Type: NotificationFailed, Path: path, Message: err.Error()})
		return err
	}
	err = o.stream(ctx, req)
	o.release(path)

	if err == nil {
		o.afterCompletion(req)
	}
	return err
}

// stream opens the transport and merges parsed children as they arrive.
func (o *Orchestrator) stream(ctx context.Context, req request) error {
	logger := o.logger.With("path", req.path)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	// 1. Resolve the transport (no request is opened without a credential)
	gen, err := o.generators(ctx)
	if err != nil {
		message := err.Error()
		if errors.Is(err, domain.ErrMissingCredential) {
			message = missingKeyMessage
		}
		logger.Warn("generation not started", "error", err)
		metrics.GenerationsTotal.WithLabelValues("none", "rejected").Inc()
		o.notify(Notification{Type: NotificationFailed, Path: req.path, Message: message})
		return err
	}
	provider := gen.Provider()
	logger = logger.With("provider", provider)

	o.notify(Notification{Type: NotificationStarted, Path: req.path, Provider: provider})
	logger.Info("generation started",
		"start_index", req.startIndex,
		"context", req.context,
	)
	started := time.Now()

	// 2. Open the stream
	chunks, err := gen.GenerateChildren(ctx, req.prompt, req.context)
	if err != nil {
		return o.fail(logger, req.path, provider, err)
	}

	// 3. Parse the growing buffer on every chunk and merge new children
	acc := parser.NewAccumulator(req.path, req.startIndex)
	merged := 0
	var streamErr error
	for chunk := range chunks {
		if chunk.Err != nil {
			if streamErr == nil {
				streamErr = chunk.Err
			}
			continue
		}
		if streamErr != nil {
			continue
		}
		nodes := acc.Write(chunk.Text)
		if len(nodes) == 0 {
			continue
		}
		o.store.Update(func(current outline.TreeState) (outline.Action, bool) {
			return outline.MergeRemoteChildren(serviceOutline.BuildMergePatch(nodes, current)), true
		})
		merged += len(nodes)
		logger.Debug("merged children", "count", len(nodes), "total", merged)
	}
	if streamErr != nil {
		return o.fail(logger, req.path, provider, streamErr)
	}
	if err := ctx.Err(); err != nil {
		return o.fail(logger, req.path, provider, err)
	}

	// 4. Mark the node generated, even when the output held no children
	o.store.Dispatch(outline.SetGenerated(req.path, true))
	if req.path == outline.RootPath {
		result := acc.Result()
		o.store.SetRootIntent(result.Intent)
	}

	metrics.GenerationsTotal.WithLabelValues(provider, "success").Inc()
	metrics.GenerationDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
	metrics.NodesMerged.Observe(float64(merged))
	logger.Info("generation completed", "children", merged, "duration", time.Since(started))
	o.notify(Notification{Type: NotificationCompleted, Path: req.path, Provider: provider, Nodes: merged})
	return nil
}

// fail records a transport failure. Children merged before the failure are kept.
func (o *Orchestrator) fail(logger *slog.Logger, path, provider string, err error) error {
	var transportErr *domain.TransportError
	if !errors.As(err, &transportErr) {
		err = &domain.TransportError{Provider: provider, Err: err}
	}
	logger.Error("generation failed", "error", err)
	metrics.GenerationsTotal.WithLabelValues(provider, "error").Inc()
	o.notify(Notification{Type: NotificationFailed, Path: path, Provider: provider, Message: err.Error()})
	return err
}

// afterCompletion settles the node's stale mark. Children generated for the current text are
// fresh; an edit made while streaming leaves them belonging to the old text, so the node is
// stale and refreshed if still expanded.
func (o *Orchestrator) afterCompletion(req request) {
	rec, ok := o.store.Record(req.path)
	if !ok {
		return
	}

	stale := rec.Text != req.startText
	o.mu.Lock()
	if stale {
		o.stale[req.path] = true
	} else {
		delete(o.stale, req.path)
	}
	o.mu.Unlock()

	if stale && rec.IsExpanded {
		o.scheduleRefresh(req.path, rec.Text)
	}
}

func (o *Orchestrator) notify(n Notification) {
	n.Time = time.Now()
	o.notifier.Notify(n)
}

// start acquires path and runs the generation in the background.
func (o *Orchestrator) start(path, extraPrompt string, appending bool) error {
	if !o.acquire(path) {
		return domain.ErrGenerationInFlight
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_ = o.generate(o.ctx, path, extraPrompt, appending)
	}()
	return nil
}

// scheduleRefresh deletes the children of path and generates them again, in the background.
// Nothing happens if path is already generating or its text no longer equals text.
func (o *Orchestrator) scheduleRefresh(path, text string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.refresh(o.ctx, path, text)
	}()
}

func (o *Orchestrator) refresh(ctx context.Context, path, text string) {
	if !o.acquire(path) {
		// The running generation re-checks staleness when it completes.
		return
	}

	rec, ok := o.store.Record(path)
	if !ok || rec.Text != text || !rec.IsExpanded {
		o.release(path)
		return
	}

	o.logger.Info("refreshing stale children", "path", path)
	o.store.Dispatch(outline.DeleteChildren(path))
	o.mu.Lock()
	delete(o.stale, path)
	o.mu.Unlock()

	_ = o.generate(ctx, path, "", false)
}
