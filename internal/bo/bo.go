// Package bo holds the business objects reachable through the dispatcher.
// Each object exposes a fixed method surface; administrative objects keep the
// live permission cache in step with their writes.
package bo

import (
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/tablero/tablero/internal/dispatch"
	"github.com/tablero/tablero/internal/security"
	"github.com/tablero/tablero/internal/session"
	"github.com/tablero/tablero/internal/shared"
	"github.com/tablero/tablero/internal/store"
)

var validate = validator.New()

// Deps groups the collaborators shared by every business object. Mode must
// match the verification mode of the login flow so stored passwords stay
// usable.
type Deps struct {
	Store  store.Querier
	Cache  *security.Cache
	Logger *slog.Logger
	Mode   session.PasswordMode
}

// response is the payload shape the original clients expect.
type response struct {
	Sts  bool   `json:"sts"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

func ok(msg string) response {
	return response{Sts: true, Msg: msg}
}

func okData(data any) response {
	return response{Sts: true, Data: data}
}

func fail(msg string) response {
	return response{Sts: false, Msg: msg}
}

// decode unmarshals and validates a params payload.
func decode[T any](params json.RawMessage, out *T) error {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if err := json.Unmarshal(params, out); err != nil {
		return err
	}
	return validate.Struct(out)
}

// RegisterAll populates the registry with every business object. The map is
// the closed allow-list the dispatcher resolves against.
func RegisterAll(registry *dispatch.Registry, deps Deps) {
	registry.Register("UserBO", func(ident shared.Identity) dispatch.BusinessObject {
		return &UserBO{deps: deps, ident: ident}
	})
	registry.Register("ProfileBO", func(ident shared.Identity) dispatch.BusinessObject {
		return &ProfileBO{deps: deps, ident: ident}
	})
	registry.Register("MethodBO", func(ident shared.Identity) dispatch.BusinessObject {
		return &MethodBO{deps: deps, ident: ident}
	})
	registry.Register("ObjectBO", func(ident shared.Identity) dispatch.BusinessObject {
		return &ObjectBO{deps: deps, ident: ident}
	})
	registry.Register("BoardBO", func(ident shared.Identity) dispatch.BusinessObject {
		return &BoardBO{deps: deps, ident: ident}
	})
	registry.Register("TaskBO", func(ident shared.Identity) dispatch.BusinessObject {
		return &TaskBO{deps: deps, ident: ident}
	})
}
