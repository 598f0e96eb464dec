package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tablero/tablero/internal/audit"
	"github.com/tablero/tablero/internal/session"
	"github.com/tablero/tablero/internal/shared"
)

var errMethodPanic = errors.New("business method panic")

// Request is one dispatch call: target names plus the opaque parameter
// payload. Never persisted.
type Request struct {
	ObjectName string          `json:"objectName"`
	MethodName string          `json:"methodName"`
	Params     json.RawMessage `json:"params"`
}

// Authorizer answers permission checks. Satisfied by *security.Cache.
type Authorizer interface {
	IsAuthorized(profile int64, object, method string) bool
}

// Dispatcher routes authorized (object, method, params) calls to registered
// business objects and shapes every failure into a structured outcome.
type Dispatcher struct {
	registry *Registry
	authz    Authorizer
	sessions *session.Service
	audit    audit.Recorder // nil when auditing is disabled
	logger   *slog.Logger
	observe  func(kind Kind)
}

// NewDispatcher constructs a Dispatcher. recorder may be nil; observe may be
// nil when no metrics sink is wired.
func NewDispatcher(registry *Registry, authz Authorizer, sessions *session.Service, recorder audit.Recorder, logger *slog.Logger, observe func(kind Kind)) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		authz:    authz,
		sessions: sessions,
		audit:    recorder,
		logger:   logger,
		observe:  observe,
	}
}

// Dispatch applies the call contract in order: session, permission,
// resolution, method lookup, audit, invocation. The permission check happens
// strictly before any resolution, so a denied call has no side effects.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session, req Request) Outcome {
	outcome := d.dispatch(ctx, sess, req)
	if d.observe != nil {
		d.observe(outcome.Kind)
	}
	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, sess *session.Session, req Request) Outcome {
	if !d.sessions.SessionExists(sess) {
		return Unauthenticated()
	}

	profile := sess.Profile()
	if !d.authz.IsAuthorized(profile, req.ObjectName, req.MethodName) {
		return Forbidden("No tiene permisos para ejecutar el metodo...")
	}

	factory, ok := d.registry.Resolve(req.ObjectName)
	if !ok {
		return NotFound("el objeto " + req.ObjectName + " no existe")
	}

	obj := factory(shared.Identity{UserID: sess.UserID(), Profile: profile})
	method, ok := obj.Methods()[req.MethodName]
	if !ok {
		return NotFound("el metodo " + req.MethodName + " no existe en " + req.ObjectName)
	}

	if d.audit != nil && !isReadOnlyMethod(req.MethodName) {
		d.audit.Record(ctx, audit.Entry{
			UserID:     sess.UserID(),
			MethodName: req.MethodName,
			Profile:    profile,
			At:         time.Now(),
		})
	}

	return d.invoke(ctx, method, req)
}

// invoke runs the business method in its own goroutine so the dispatcher can
// honor the caller deadline. On timeout the call is abandoned, not awaited.
func (d *Dispatcher) invoke(ctx context.Context, method Method, req Request) Outcome {
	type invocation struct {
		result any
		err    error
	}
	done := make(chan invocation, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				d.logger.Error("business method panic",
					slog.String("object", req.ObjectName),
					slog.String("method", req.MethodName),
					slog.Any("panic", rec))
				done <- invocation{err: errMethodPanic}
			}
		}()
		result, err := method(ctx, req.Params)
		done <- invocation{result: result, err: err}
	}()

	select {
	case inv := <-done:
		if inv.err != nil {
			d.logger.Error("business method failed",
				slog.String("object", req.ObjectName),
				slog.String("method", req.MethodName),
				slog.Any("error", inv.err))
			return InternalError()
		}
		return Success(inv.result)
	case <-ctx.Done():
		d.logger.Warn("business method abandoned on deadline",
			slog.String("object", req.ObjectName),
			slog.String("method", req.MethodName),
			slog.Duration("elapsed", elapsed(ctx)))
		return InternalError()
	}
}

// isReadOnlyMethod matches the audit exemption: "get"-prefixed names denote
// read-only operations. The original matched anywhere in the name.
func isReadOnlyMethod(name string) bool {
	return strings.Contains(strings.ToLower(name), "get")
}

func elapsed(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Since(deadline)
}
