// Package entity implements the generic CRUD page: fetch the owner's
// records, render them with a form and a table, create and delete records
// and reconcile the page's collection.
package entity

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/gate"
	"github.com/diewo77/go-inventario/httpx"
	"github.com/diewo77/go-inventario/i18n"
	"github.com/diewo77/go-inventario/internal/form"
	"github.com/diewo77/go-inventario/internal/logging"
	"github.com/diewo77/go-inventario/internal/policy"
	"github.com/diewo77/go-inventario/internal/store"
	"github.com/diewo77/go-inventario/internal/table"
	"github.com/diewo77/go-inventario/validation"
	"github.com/diewo77/go-inventario/view"
	"go.uber.org/zap"
)

// Query parameters of the search form.
const (
	SearchTrigger = "buscar"
	SearchTerm    = "q"
)

// Config describes one entity page.
type Config[T any, PT interface {
	*T
	store.Owned
}] struct {
	// Resource names the gate resource.
	Resource string
	// Messages prefixes the page failure messages; defaults to Resource.
	Messages string
	Path     string
	Title    string
	Template string

	Table   *store.Table[T, PT]
	Filters []store.Filter
	Columns []table.Column[T]
	// Search projects the fields matched by the search box; nil hides it.
	Search func(T) []string

	// Form builds the entry form; nil makes the page read only.
	Form     func(ctx context.Context, owner uint) (*form.Form, error)
	Required []string
	Decode   func(form.Values, validation.Violations) PT
	// Prefill adjusts the form of a GET from the query string.
	Prefill func(ctx context.Context, owner uint, r *http.Request, f *form.Form) error

	// Create and Delete replace the plain table calls when set.
	Create func(ctx context.Context, owner uint, rec PT) error
	Delete func(ctx context.Context, owner, id uint) (int64, error)
	// Explain maps a create failure to a message id; "" keeps the default.
	Explain func(err error) string
	// Extra adds page specific template data computed from the loaded rows.
	Extra func(ctx context.Context, owner uint, rows []T, data map[string]any) error
	// NoDelete hides the delete action.
	NoDelete bool
}

// Page serves one Config.
type Page[T any, PT interface {
	*T
	store.Owned
}] struct {
	cfg  Config[T, PT]
	gate *policy.AuthGate
	log  *zap.Logger
}

func New[T any, PT interface {
	*T
	store.Owned
}](cfg Config[T, PT], g *policy.AuthGate, log *zap.Logger) *Page[T, PT] {
	if cfg.Template == "" {
		cfg.Template = "entity.html"
	}
	if cfg.Messages == "" {
		cfg.Messages = cfg.Resource
	}
	return &Page[T, PT]{cfg: cfg, gate: g, log: log.With(zap.String("page", cfg.Resource))}
}

// Path is the page route.
func (p *Page[T, PT]) Path() string { return p.cfg.Path }

// DeletePath is the delete route of record id.
func (p *Page[T, PT]) DeletePath(id uint) string {
	return fmt.Sprintf("%s/%d/eliminar", p.cfg.Path, id)
}

func (p *Page[T, PT]) message(ctx context.Context, code string) string {
	return i18n.T(i18n.LangFromContext(ctx), code)
}

func (p *Page[T, PT]) owner(w http.ResponseWriter, r *http.Request) (uint, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		} else {
			http.Redirect(w, r, "/", http.StatusSeeOther)
		}
	}
	return uid, ok
}

func (p *Page[T, PT]) forbid(w http.ResponseWriter, r *http.Request, err error) {
	p.log.Warn("action denied", zap.String("request_id", logging.RequestID(r.Context())), zap.Error(err))
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	http.Error(w, p.message(r.Context(), "page.forbidden"), http.StatusForbidden)
}

// state is everything one response renders.
type state[T any] struct {
	rows     *Collection[T]
	form     *form.Form
	errs     validation.Violations
	message  string
	flash    string
	query    string
	searched bool
}

func (p *Page[T, PT]) load(ctx context.Context, owner uint) (*Collection[T], error) {
	c := NewCollection(func(t T) uint { return PT(&t).GetID() })
	rows, err := p.cfg.Table.Select(ctx, owner, p.cfg.Filters...)
	if err != nil {
		p.log.Error("fetch failed", zap.Uint("owner", owner), zap.Error(err))
		return c, err
	}
	c.Load(rows)
	return c, nil
}

func (p *Page[T, PT]) newForm(ctx context.Context, owner uint) (*form.Form, error) {
	if p.cfg.Form == nil {
		return nil, nil
	}
	return p.cfg.Form(ctx, owner)
}

// List serves GET: fetch, optional search, render.
func (p *Page[T, PT]) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := p.owner(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := p.gate.Authorize(ctx, gate.ActionList, p.cfg.Resource, nil); err != nil {
		p.forbid(w, r, err)
		return
	}

	st := &state[T]{}
	rows, err := p.load(ctx, owner)
	st.rows = rows
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusInternalServerError, p.cfg.Messages+".fetch_failed", nil)
			return
		}
		st.message = p.message(ctx, p.cfg.Messages+".fetch_failed")
	}
	q := r.URL.Query()
	if q.Get(SearchTrigger) != "" {
		st.searched = true
		st.query = q.Get(SearchTerm)
		st.rows.Search(st.query, p.cfg.Search)
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": st.rows.Visible})
		return
	}

	if st.form, err = p.newForm(ctx, owner); err != nil {
		p.log.Error("form options failed", zap.Error(err))
		st.message = p.message(ctx, p.cfg.Messages+".fetch_failed")
	}
	if st.form != nil && p.cfg.Prefill != nil {
		if err := p.cfg.Prefill(ctx, owner, r, st.form); err != nil {
			p.log.Warn("prefill failed", zap.Error(err))
		}
	}
	switch {
	case q.Get("ok") == "created":
		st.flash = p.message(ctx, "page.created")
	case q.Get("ok") == "deleted":
		st.flash = p.message(ctx, "page.deleted")
	}
	p.render(w, r, http.StatusOK, owner, st)
}

// Create serves POST: decode, require, insert, then redirect back to the
// listing. Failures re-render the form with the message.
func (p *Page[T, PT]) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := p.owner(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if p.cfg.Form == nil || p.cfg.Decode == nil {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if err := p.gate.Authorize(ctx, gate.ActionCreate, p.cfg.Resource, nil); err != nil {
		p.forbid(w, r, err)
		return
	}
	wantsJSON := httpx.WantsJSON(r)

	st := &state[T]{errs: validation.Violations{}}
	var err error
	if st.form, err = p.newForm(ctx, owner); err != nil {
		p.log.Error("form options failed", zap.Error(err))
		st.form = nil
	}
	if st.form == nil {
		http.Error(w, p.message(ctx, p.cfg.Messages+".create_failed"), http.StatusInternalServerError)
		return
	}
	values, err := st.form.Decode(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	validation.RequireAll(values, p.cfg.Required, st.errs)
	var rec PT
	if st.errs.Empty() {
		rec = p.cfg.Decode(values, st.errs)
	}
	if !st.errs.Empty() || rec == nil {
		if wantsJSON {
			httpx.JSONError(w, http.StatusUnprocessableEntity, "validation", st.errs)
			return
		}
		st.message = p.message(ctx, "page.fill_all")
		st.rows, _ = p.load(ctx, owner)
		p.render(w, r, http.StatusUnprocessableEntity, owner, st)
		return
	}

	rec.SetUserID(owner)
	if err := p.gate.Authorize(ctx, gate.ActionCreate, p.cfg.Resource, rec); err != nil {
		p.forbid(w, r, err)
		return
	}

	if err := p.create(ctx, owner, rec); err != nil {
		code, status := p.explain(err)
		if wantsJSON {
			httpx.JSONError(w, status, code, nil)
			return
		}
		st.message = p.message(ctx, code)
		st.rows, _ = p.load(ctx, owner)
		p.render(w, r, status, owner, st)
		return
	}
	p.log.Info("record created", zap.Uint("owner", owner), zap.Uint("id", rec.GetID()))

	if wantsJSON {
		httpx.JSON(w, http.StatusCreated, rec)
		return
	}
	http.Redirect(w, r, p.cfg.Path+"?ok=created", http.StatusSeeOther)
}

func (p *Page[T, PT]) create(ctx context.Context, owner uint, rec PT) error {
	if p.cfg.Create != nil {
		return p.cfg.Create(ctx, owner, rec)
	}
	return p.cfg.Table.Insert(ctx, owner, rec)
}

func (p *Page[T, PT]) explain(err error) (string, int) {
	if p.cfg.Explain != nil {
		if code := p.cfg.Explain(err); code != "" {
			return code, http.StatusUnprocessableEntity
		}
	}
	p.log.Error("create failed", zap.Error(err))
	return p.cfg.Messages + ".create_failed", http.StatusInternalServerError
}

// Remove serves POST {path}/{id}/eliminar with a single scoped delete.
func (p *Page[T, PT]) Remove(w http.ResponseWriter, r *http.Request) {
	owner, ok := p.owner(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if p.cfg.NoDelete {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if err := p.gate.Authorize(ctx, gate.ActionDelete, p.cfg.Resource, nil); err != nil {
		p.forbid(w, r, err)
		return
	}
	id64, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id64 == 0 {
		http.NotFound(w, r)
		return
	}
	id := uint(id64)
	wantsJSON := httpx.WantsJSON(r)

	st := &state[T]{}
	if !wantsJSON {
		st.rows, err = p.load(ctx, owner)
		if err != nil {
			st.message = p.message(ctx, p.cfg.Messages+".fetch_failed")
		}
	}

	n, err := p.remove(ctx, owner, id)
	if err != nil {
		p.log.Error("delete failed", zap.Uint("owner", owner), zap.Uint("id", id), zap.Error(err))
		if wantsJSON {
			httpx.JSONError(w, http.StatusInternalServerError, p.cfg.Messages+".delete_failed", nil)
			return
		}
		st.message = p.message(ctx, p.cfg.Messages+".delete_failed")
	} else {
		if n > 0 {
			p.log.Info("record deleted", zap.Uint("owner", owner), zap.Uint("id", id))
		}
		if wantsJSON {
			httpx.JSON(w, http.StatusOK, map[string]any{"deleted": n})
			return
		}
		st.rows.Remove(id)
		if n > 0 {
			st.flash = p.message(ctx, "page.deleted")
		}
	}

	if st.form, err = p.newForm(ctx, owner); err != nil {
		p.log.Error("form options failed", zap.Error(err))
	}
	p.render(w, r, http.StatusOK, owner, st)
}

func (p *Page[T, PT]) remove(ctx context.Context, owner, id uint) (int64, error) {
	if p.cfg.Delete != nil {
		return p.cfg.Delete(ctx, owner, id)
	}
	return p.cfg.Table.Delete(ctx, owner, id)
}

func (p *Page[T, PT]) render(w http.ResponseWriter, r *http.Request, status int, owner uint, st *state[T]) {
	ctx := r.Context()
	canCreate := p.cfg.Form != nil && p.gate.Can(ctx, gate.ActionCreate, p.cfg.Resource)
	canDelete := !p.cfg.NoDelete && p.gate.Can(ctx, gate.ActionDelete, p.cfg.Resource)

	tbl := table.Table[T]{
		Columns: p.cfg.Columns,
		ID:      func(t T) uint { return PT(&t).GetID() },
	}
	if canDelete {
		tbl.DeletePath = p.DeletePath
	}
	if st.rows == nil {
		st.rows = NewCollection(tbl.ID)
	}

	data := map[string]any{
		"Title":     p.cfg.Title,
		"Path":      p.cfg.Path,
		"Resource":  p.cfg.Resource,
		"Table":     tbl.Render(st.rows.Visible),
		"Count":     len(st.rows.All),
		"Search":    p.cfg.Search != nil,
		"Searched":  st.searched,
		"Query":     st.query,
		"CanCreate": canCreate,
		"Error":     st.message,
		"Flash":     st.flash,
	}
	if canCreate && st.form != nil {
		data["Form"] = st.form.Inputs(st.errs)
	}
	if !st.errs.Empty() {
		data["Errors"] = st.errs
	}
	if p.cfg.Extra != nil {
		if err := p.cfg.Extra(ctx, owner, st.rows.All, data); err != nil {
			p.log.Error("page data failed", zap.Error(err))
			if st.message == "" {
				data["Error"] = p.message(ctx, p.cfg.Messages+".fetch_failed")
			}
		}
	}
	if err := view.RenderStatus(w, r, status, p.cfg.Template, data); err != nil {
		p.log.Error("render failed", zap.String("template", p.cfg.Template), zap.Error(err))
	}
}

// Routes registers the page handlers on mux, each wrapped by wrap.
func (p *Page[T, PT]) Routes(mux *http.ServeMux, wrap func(pattern string, h http.Handler) http.Handler) {
	get := "GET " + p.cfg.Path
	mux.Handle(get, wrap(get, http.HandlerFunc(p.List)))
	if p.cfg.Form != nil {
		post := "POST " + p.cfg.Path
		mux.Handle(post, wrap(post, http.HandlerFunc(p.Create)))
	}
	if !p.cfg.NoDelete {
		del := "POST " + p.cfg.Path + "/{id}/eliminar"
		mux.Handle(del, wrap(del, http.HandlerFunc(p.Remove)))
	}
}
