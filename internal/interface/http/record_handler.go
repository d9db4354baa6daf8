package handlers

import (
	"encoding/json"
	"errors"
	"expvar"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/linkfolio-api/internal/application"
	"github.com/oksasatya/linkfolio-api/internal/domain/apperr"
	"github.com/oksasatya/linkfolio-api/internal/domain/entity"
	"github.com/oksasatya/linkfolio-api/internal/infrastructure/uploads"
	"github.com/oksasatya/linkfolio-api/pkg/helpers"
	"github.com/oksasatya/linkfolio-api/pkg/response"
	"github.com/oksasatya/linkfolio-api/pkg/validation"
)

// Operation counters exposed on /debug/vars, keyed "<collection>.<op>".
var recordOps = expvar.NewMap("record_ops")

// RecordHandler serves the CRUD routes of one entity kind.
type RecordHandler struct {
	Svc    *application.CatalogService
	Logger *logrus.Logger
}

func NewRecordHandler(svc *application.CatalogService, logger *logrus.Logger) *RecordHandler {
	return &RecordHandler{Svc: svc, Logger: logger}
}

type listQuery struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Search string `form:"search" binding:"max=100"`
}

func (h *RecordHandler) kind() entity.Kind { return h.Svc.Kind }

func (h *RecordHandler) Create(c *gin.Context) {
	in, err := h.bindInput(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rec, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	recordOps.Add(h.kind().Name+".create", 1)
	response.Success(c, http.StatusCreated, h.kind().Present(rec), h.kind().Singular+" created")
}

func (h *RecordHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query", validation.ToMessages(err))
		return
	}
	page, err := h.Svc.List(c.Request.Context(), application.ListQuery{Page: q.Page, Limit: q.Limit, Search: q.Search})
	if err != nil {
		h.fail(c, err)
		return
	}
	items := make([]entity.Record, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, h.kind().Present(rec))
	}
	response.Paginated(c, items, h.kind().Name+" retrieved", page.Page, page.Limit, page.Total, page.TotalPages)
}

func (h *RecordHandler) Get(c *gin.Context) {
	rec, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.kind().Present(rec), h.kind().Singular+" retrieved")
}

func (h *RecordHandler) Update(c *gin.Context) {
	in, err := h.bindInput(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rec, err := h.Svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	recordOps.Add(h.kind().Name+".update", 1)
	response.Success(c, http.StatusOK, h.kind().Present(rec), h.kind().Singular+" updated")
}

func (h *RecordHandler) Delete(c *gin.Context) {
	if _, err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	recordOps.Add(h.kind().Name+".delete", 1)
	response.NoContent(c)
}

// bindInput reads a multipart, urlencoded or JSON body into service input.
func (h *RecordHandler) bindInput(c *gin.Context) (application.Input, error) {
	in := application.Input{Fields: map[string]any{}, Files: map[string][]uploads.File{}}

	switch c.ContentType() {
	case "multipart/form-data":
		form, err := c.MultipartForm()
		if err != nil {
			return in, bodyError(err)
		}
		in.Fields = formFields(form.Value)
		for key, headers := range form.File {
			field := strings.TrimSuffix(key, "[]")
			for _, fh := range headers {
				in.Files[field] = append(in.Files[field], uploads.FromHeader(field, fh))
			}
		}
	case "application/x-www-form-urlencoded":
		if err := c.Request.ParseForm(); err != nil {
			return in, bodyError(err)
		}
		in.Fields = formFields(c.Request.PostForm)
	default:
		if c.Request.Body == nil {
			return in, nil
		}
		dec := json.NewDecoder(c.Request.Body)
		if err := dec.Decode(&in.Fields); err != nil {
			if errors.Is(err, io.EOF) {
				in.Fields = map[string]any{}
				return in, nil
			}
			return in, bodyError(err)
		}
		if in.Fields == nil {
			in.Fields = map[string]any{}
		}
	}
	return in, nil
}

// formFields turns form values into the sanitizer's raw map. Keys like
// socialLinks[twitter] and socialLinks.twitter become nested objects.
func formFields(values map[string][]string) map[string]any {
	out := map[string]any{}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		var v any = vals[0]
		key = strings.TrimSuffix(key, "[]")
		if len(vals) > 1 {
			list := make([]any, len(vals))
			for i, s := range vals {
				list[i] = s
			}
			v = list
		}
		parent, child, nested := splitNested(key)
		if !nested {
			out[key] = v
			continue
		}
		sub, ok := out[parent].(map[string]any)
		if !ok {
			sub = map[string]any{}
			out[parent] = sub
		}
		sub[child] = v
	}
	return out
}

func splitNested(key string) (string, string, bool) {
	if i := strings.IndexByte(key, '['); i > 0 && strings.HasSuffix(key, "]") {
		return key[:i], key[i+1 : len(key)-1], true
	}
	if i := strings.IndexByte(key, '.'); i > 0 && i < len(key)-1 {
		return key[:i], key[i+1:], true
	}
	return "", "", false
}

var errBodyTooLarge = errors.New("request body too large")

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return errBodyTooLarge
	}
	return apperr.Validation("invalid request body")
}

// fail maps an error to its response. Anything untagged is logged and hidden.
func (h *RecordHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, errBodyTooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, err.Error(), nil)
		return
	}
	msgs := apperr.MessagesOf(err)
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		response.Error(c, http.StatusBadRequest, strings.Join(msgs, ", "), msgs)
	case apperr.KindConflict:
		response.Error(c, http.StatusConflict, strings.Join(msgs, ", "), msgs)
	case apperr.KindNotFound:
		response.Error(c, http.StatusNotFound, strings.Join(msgs, ", "), nil)
	default:
		helpers.LogError(h.Logger, "request failed", err, logrus.Fields{
			"request_id": c.GetString("request_id"),
			"collection": h.kind().Name,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
		})
		response.Error(c, http.StatusInternalServerError, "internal server error", nil)
	}
}
