package screens

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-admin/internal/apiclient"
	"github.com/odyssey-erp/odyssey-admin/internal/menu"
	"github.com/odyssey-erp/odyssey-admin/internal/session"
)

const maxFieldLength = 255

type formField struct {
	Field
	Value string
	Error string
}

type formPage struct {
	Action   string
	Singular string
	Fields   []formField
	Error    string
}

func (h *Handler) newForm(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderForm(w, r, res, http.StatusOK, formFields(res, nil, nil), "")
	}
}

func (h *Handler) create(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := session.FromContext(r.Context())
		if !ok {
			h.renderer.Error(w, r, errStoreMissing)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		body, errs := h.parseFields(res, r)
		if len(errs) > 0 {
			h.renderForm(w, r, res, http.StatusBadRequest, formFields(res, r, errs), "")
			return
		}

		err := h.client.As(store).Post(r.Context(), res.APIPath, body, nil)
		switch {
		case errors.Is(err, apiclient.ErrSessionExpired):
			h.toLogin(w, r, res)
			return
		case err != nil:
			h.logger.Info("create failed", slog.String("resource", res.Slug), slog.Any("error", err))
			h.renderForm(w, r, res, http.StatusBadGateway, formFields(res, r, nil), createFailure(res, err))
			return
		}
		h.flash(r, "success", capitalize(res.Singular)+" created.")
		http.Redirect(w, r, res.Path(), http.StatusSeeOther)
	}
}

// parseFields turns the posted form into the API payload. Number fields are sent as
// JSON numbers and blank optional fields are omitted.
func (h *Handler) parseFields(res Resource, r *http.Request) (map[string]any, map[string]string) {
	body := make(map[string]any, len(res.Fields))
	errs := make(map[string]string)
	for _, f := range res.Fields {
		raw := strings.TrimSpace(r.PostForm.Get(f.Name))
		if raw == "" && !f.Required {
			continue
		}
		if err := h.validator.Var(raw, fieldTags(f)); err != nil {
			errs[f.Name] = fieldMessage(f, err)
			continue
		}
		switch f.Type {
		case FieldNumber:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs[f.Name] = fieldMessage(f, err)
				continue
			}
			body[f.Name] = n
		case FieldEmail:
			if addr, err := mail.ParseAddress(raw); err == nil {
				raw = addr.Address
			}
			body[f.Name] = raw
		default:
			body[f.Name] = raw
		}
	}
	return body, errs
}

func fieldTags(f Field) string {
	tags := fmt.Sprintf("max=%d", maxFieldLength)
	if f.Required {
		tags = "required," + tags
	}
	switch f.Type {
	case FieldNumber:
		tags += ",numeric"
	case FieldEmail:
		tags += ",email"
	}
	return tags
}

func fieldMessage(f Field, err error) string {
	var verrs validator.ValidationErrors
	tag := "numeric"
	if errors.As(err, &verrs) && len(verrs) > 0 {
		tag = verrs[0].Tag()
	}
	switch tag {
	case "required":
		return f.Label + " is required."
	case "max":
		return f.Label + " is too long."
	case "email":
		return f.Label + " must be a valid email address."
	default:
		return f.Label + " must be a number."
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, res Resource, status int, fields []formField, problem string) {
	title := "New " + res.Singular
	release, err := menu.FromContext(r.Context()).Publish(
		menu.Title(title),
		menu.Breadcrumbs(breadcrumbs(res, "New")...),
	)
	defer release()
	if err != nil {
		h.renderer.Error(w, r, err)
		return
	}
	h.renderer.Render(w, r, status, "pages/resource_form.html", title, formPage{
		Action:   res.Path(),
		Singular: res.Singular,
		Fields:   fields,
		Error:    problem,
	})
}

func formFields(res Resource, r *http.Request, errs map[string]string) []formField {
	out := make([]formField, 0, len(res.Fields))
	for _, f := range res.Fields {
		ff := formField{Field: f, Error: errs[f.Name]}
		if r != nil {
			ff.Value = r.PostForm.Get(f.Name)
		}
		out = append(out, ff)
	}
	return out
}

func createFailure(res Resource, err error) string {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" && statusErr.StatusCode < http.StatusInternalServerError {
		return statusErr.Message
	}
	if errors.Is(err, apiclient.ErrUnavailable) {
		return session.MsgUnavailable
	}
	return "Could not create " + res.Singular + ". Please try again."
}
