package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// File is an uploaded multipart file. A form field carrying one file
// decodes into File or *File, several files into []File.
type File struct {
	Fieldname    string `json:"fieldname"`
	Originalname string `json:"originalname"`
	Encoding     string `json:"encoding"`
	Mimetype     string `json:"mimetype"`
	Size         int64  `json:"size"`
	Buffer       []byte `json:"buffer"`
}

// Issue describes one failed rule.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrBodyTooLarge is returned when a JSON body exceeds Config.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("validate: request body too large")

// Error is returned when a request does not satisfy its schema.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Path+": "+is.Message)
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// Config configures the Request middleware.
type Config struct {
	// ErrorHandler writes the response for an invalid request. The error is
	// an *Error. Defaults to a 422 JSON response.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

	// MaxMemory bounds the multipart form bytes kept in memory
	// (default: 32 MiB).
	MaxMemory int64

	// MaxBodyBytes bounds JSON request bodies (default: 1 MiB). Larger
	// bodies fail with ErrBodyTooLarge.
	MaxBodyBytes int64

	// Validate overrides the validator instance. It must use json field
	// names for issue paths to match the request.
	Validate *validator.Validate
}

type parsedKey struct{}

// Validator is the middleware returned by Request. It exposes its schema
// to route documentation through Schema.
type Validator struct {
	schema   *Schema
	validate *validator.Validate
	cfg      Config
}

// NewValidate returns a validator instance reporting json field names.
func NewValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		if name == "" {
			return field.Name
		}

		return name
	})

	return v
}

// Request returns a middleware validating requests against schema.
func Request(schema *Schema, cfg ...Config) *Validator {
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = DefaultErrorHandler
	}

	if c.MaxMemory <= 0 {
		c.MaxMemory = 32 << 20
	}

	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}

	v := c.Validate
	if v == nil {
		v = NewValidate()
	}

	return &Validator{schema: schema, validate: v, cfg: c}
}

// Schema returns the request schema.
func (v *Validator) Schema() any {
	return v.schema
}

// Middleware validates the request and stores the parsed value in the
// request context before calling next.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parsed, err := v.parse(w, r)
		if err != nil {
			v.cfg.ErrorHandler(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), parsedKey{}, parsed)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Parse decodes and validates r. The returned value is a pointer to a new
// instance of the schema type.
func (v *Validator) Parse(r *http.Request) (any, error) {
	return v.parse(nil, r)
}

func (v *Validator) parse(w http.ResponseWriter, r *http.Request) (any, error) {
	ptr := reflect.New(v.schema.typ)
	root := ptr.Elem()

	var (
		issues   []Issue
		tooLarge error
	)

	decode := func(section string, fn func(target any) error) {
		idx, ok := v.schema.sections[section]
		if !ok {
			return
		}

		if err := fn(root.Field(idx).Addr().Interface()); err != nil {
			if errors.Is(err, ErrBodyTooLarge) {
				tooLarge = err
				return
			}

			issues = append(issues, Issue{Path: section, Message: err.Error(), Code: "invalid_type"})
		}
	}

	decode(SectionParams, func(target any) error {
		return decodeWeak(urlParams(r), target)
	})

	decode(SectionQuery, func(target any) error {
		return decodeWeak(flatten(r.URL.Query()), target)
	})

	if v.schema.Has(SectionBody) {
		decode(SectionBody, func(target any) error {
			return v.decodeJSON(w, r, target)
		})
	} else {
		decode(SectionFormData, func(target any) error {
			values, err := v.formValues(r)
			if err != nil {
				return err
			}

			return decodeWeak(values, target)
		})
	}

	if tooLarge != nil {
		return nil, tooLarge
	}

	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}

	if err := applyDefaults(root); err != nil {
		return nil, &Error{Issues: []Issue{{Path: "", Message: err.Error(), Code: "invalid_default"}}}
	}

	if err := v.validate.Struct(ptr.Interface()); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate request: %w", err)
		}

		return nil, &Error{Issues: toIssues(verrs)}
	}

	return ptr.Interface(), nil
}

// Parsed returns the value stored by the Request middleware for schema
// type T.
func Parsed[T any](r *http.Request) (*T, bool) {
	v, ok := r.Context().Value(parsedKey{}).(*T)
	return v, ok
}

func (v *Validator) decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, v.cfg.MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}

		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxErr.Limit)
		}

		return fmt.Errorf("invalid JSON body: %w", err)
	}

	return nil
}

// formValues reads a multipart or url-encoded form. Fields with one value
// map to a string, fields with several to a slice. Files are described by
// maps keyed like File.
func (v *Validator) formValues(r *http.Request) (map[string]any, error) {
	out := make(map[string]any)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(v.cfg.MaxMemory); err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}

		for name, values := range r.MultipartForm.Value {
			out[name] = collapse(values)
		}

		for name, headers := range r.MultipartForm.File {
			files := make([]any, 0, len(headers))
			for _, fh := range headers {
				f, err := readFile(name, fh)
				if err != nil {
					return nil, err
				}

				files = append(files, f)
			}

			if len(files) == 1 {
				out[name] = files[0]
			} else {
				out[name] = files
			}
		}

		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}

	for name, values := range r.PostForm {
		out[name] = collapse(values)
	}

	return out, nil
}

func readFile(field string, fh *multipart.FileHeader) (map[string]any, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}

	encoding := fh.Header.Get("Content-Transfer-Encoding")
	if encoding == "" {
		encoding = "7bit"
	}

	return map[string]any{
		"fieldname":    field,
		"originalname": fh.Filename,
		"encoding":     encoding,
		"mimetype":     fh.Header.Get("Content-Type"),
		"size":         fh.Size,
		"buffer":       buf,
	}, nil
}

func urlParams(r *http.Request) map[string]any {
	out := make(map[string]any)

	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return out
	}

	for i, key := range rctx.URLParams.Keys {
		if key == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}

		out[key] = rctx.URLParams.Values[i]
	}

	return out
}

func flatten(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = collapse(v)
	}

	return out
}

func collapse(values []string) any {
	if len(values) == 1 {
		return values[0]
	}

	return values
}

// decodeWeak decodes string-typed input into target, converting values to
// the target field types.
func decodeWeak(input, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}

	return dec.Decode(input)
}

var timeType = reflect.TypeOf(time.Time{})

// applyDefaults sets zero-valued fields carrying a `default` tag, descending
// into nested structs.
func applyDefaults(v reflect.Value) error {
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fv := v.Field(i)

		if def, ok := field.Tag.Lookup("default"); ok && fv.IsZero() {
			if err := setDefault(fv, def); err != nil {
				return fmt.Errorf("default for %s: %w", field.Name, err)
			}

			continue
		}

		switch {
		case fv.Kind() == reflect.Struct && fv.Type() != timeType:
			if err := applyDefaults(fv); err != nil {
				return err
			}
		case fv.Kind() == reflect.Pointer && !fv.IsNil() && fv.Elem().Kind() == reflect.Struct && fv.Elem().Type() != timeType:
			if err := applyDefaults(fv.Elem()); err != nil {
				return err
			}
		}
	}

	return nil
}

func setDefault(fv reflect.Value, def string) error {
	if fv.Kind() == reflect.Slice && def == "[]" {
		fv.Set(reflect.MakeSlice(fv.Type(), 0, 0))
		return nil
	}

	return decodeWeak(def, fv.Addr().Interface())
}

func toIssues(verrs validator.ValidationErrors) []Issue {
	issues := make([]Issue, 0, len(verrs))

	for _, fe := range verrs {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}

		issues = append(issues, Issue{
			Path:    path,
			Message: issueMessage(fe),
			Code:    fe.Tag(),
		})
	}

	return issues
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	}

	if fe.Param() != "" {
		return fmt.Sprintf("failed on the '%s=%s' rule", fe.Tag(), fe.Param())
	}

	return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
}

// DefaultErrorHandler writes a 422 JSON response listing the issues, or a
// 413 response for ErrBodyTooLarge.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"statusCode": http.StatusRequestEntityTooLarge,
			"success":    false,
			"code":       "PAYLOAD_TOO_LARGE",
			"message":    "Request body too large",
		})

		return
	}

	var verr *Error
	if !errors.As(err, &verr) {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": http.StatusUnprocessableEntity,
		"success":    false,
		"code":       "VALIDATION_ERROR",
		"message":    "Validation failed",
		"errors":     verr.Issues,
	})
}
