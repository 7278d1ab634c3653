// Package service is the entry point for callers of the node store. It
// normalizes and validates input, then delegates to the tree package, and
// wraps every operation in logging, metrics and a trace span.
//
// Validation happens before any lookup, so InvalidInput takes precedence
// over ParentNotFound and NodeNotFound.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/nodetree/internal/observability"
	"github.com/roach88/nodetree/internal/tree"
)

const tracerName = "github.com/roach88/nodetree/internal/service"

// Service exposes CreateNode, AddProperty and GetSubtree over one backend.
//
// Thread-safety: safe for concurrent use if the backend is.
type Service struct {
	nodes     *tree.NodeStore
	props     *tree.PropertyStore
	assembler *tree.Assembler

	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

type options struct {
	logger       *slog.Logger
	metrics      *observability.Metrics
	tracer       trace.Tracer
	ids          tree.IDGenerator
	assemblerOps []tree.AssemblerOption
}

// Option configures a Service.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records operation metrics. Default: none.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracerProvider sets where spans go. Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp.Tracer(tracerName) }
}

// WithIDs overrides the UUIDv7 id generator.
func WithIDs(ids tree.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// WithAssemblerOptions passes options through to tree.NewAssembler.
func WithAssemblerOptions(opts ...tree.AssemblerOption) Option {
	return func(o *options) { o.assemblerOps = append(o.assemblerOps, opts...) }
}

// New wires the node store, property store and assembler over backend.
func New(backend tree.Backend, opts ...Option) *Service {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	nodes := tree.NewNodeStore(backend, o.ids)
	props := tree.NewPropertyStore(backend, nodes, o.ids)
	return &Service{
		nodes:     nodes,
		props:     props,
		assembler: tree.NewAssembler(backend, nodes, props, o.assemblerOps...),
		logger:    o.logger,
		metrics:   o.metrics,
		tracer:    o.tracer,
	}
}

// CreateNode creates a node named name under parentPath, or a root node when
// parentPath is empty.
func (s *Service) CreateNode(ctx context.Context, name, parentPath string) (node tree.Node, err error) {
	ctx, done := s.begin(ctx, observability.OpCreateNode,
		attribute.String("node.name", name),
		attribute.String("node.parent_path", parentPath),
	)
	defer func() { done(err) }()

	name = tree.NormalizeName(name)
	if err := tree.ValidateName(name); err != nil {
		return tree.Node{}, err
	}

	cleanParent := tree.CleanPath(parentPath)
	if parentPath != "" && cleanParent == "" {
		return tree.Node{}, tree.NewInvalidInputError("parent path %q is not a node path", parentPath)
	}

	node, err = s.nodes.CreateNode(ctx, name, cleanParent)
	if err != nil {
		return tree.Node{}, err
	}

	s.logger.Info("node created", "id", node.ID, "path", node.Path)
	return node, nil
}

// AddProperty sets key to value on the node at nodePath, overwriting any
// existing value for key.
func (s *Service) AddProperty(ctx context.Context, nodePath, key string, value float64) (prop tree.Property, err error) {
	ctx, done := s.begin(ctx, observability.OpAddProperty,
		attribute.String("node.path", nodePath),
		attribute.String("property.key", key),
	)
	defer func() { done(err) }()

	key = tree.NormalizeName(key)
	if err := tree.ValidateKey(key); err != nil {
		return tree.Property{}, err
	}
	if err := tree.ValidateValue(value); err != nil {
		return tree.Property{}, err
	}

	path := tree.CleanPath(nodePath)
	if path == "" {
		return tree.Property{}, tree.NewNodeNotFoundError(nodePath)
	}

	prop, err = s.props.AddProperty(ctx, path, key, value)
	if err != nil {
		return tree.Property{}, err
	}

	s.logger.Info("property set", "path", path, "key", key, "value", value, "id", prop.ID)
	return prop, nil
}

// GetSubtree returns the tree rooted at nodePath. found is false, with a nil
// error, when no node has that path.
func (s *Service) GetSubtree(ctx context.Context, nodePath string) (t tree.NodeTree, found bool, err error) {
	ctx, done := s.begin(ctx, observability.OpGetSubtree,
		attribute.String("node.path", nodePath),
	)
	defer func() { done(err) }()

	path := tree.CleanPath(nodePath)
	if path == "" {
		return tree.NodeTree{}, false, nil
	}

	t, found, err = s.assembler.GetSubtree(ctx, path)
	if err != nil || !found {
		return tree.NodeTree{}, found, err
	}

	size := t.Size()
	if s.metrics != nil {
		s.metrics.SubtreeNodes.Observe(float64(size))
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("subtree.nodes", size))
	s.logger.Debug("subtree assembled", "path", path, "nodes", size)
	return t, true, nil
}

// begin starts a span and returns a completion func that records the
// outcome on the span, the metrics and the log.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "service."+op, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		outcome := observability.Outcome(err)
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if s.metrics != nil {
			s.metrics.ObserveOperation(op, start, err)
		}

		switch outcome {
		case observability.OutcomeOK:
		case observability.OutcomeError:
			s.logger.Error("operation failed", "op", op, "error", err)
		default:
			s.logger.Debug("operation rejected", "op", op, "outcome", outcome, "error", err)
		}
	}
}
