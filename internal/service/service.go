package service

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/inventory-loan-api/pkg/errors"
)

// DashboardCachePattern matches every cached dashboard payload.
const DashboardCachePattern = "dashboard:*"

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// Option configures collaborators shared by the inventory services.
type Option func(*serviceOptions)

type serviceOptions struct {
	now     func() time.Time
	cache   cacheInvalidator
	metrics *MetricsService
}

// WithClock overrides the time source. Tests use it to move time deterministically.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCacheInvalidator drops cached dashboard payloads after every mutation.
func WithCacheInvalidator(cache cacheInvalidator) Option {
	return func(o *serviceOptions) {
		o.cache = cache
	}
}

// WithMetrics records domain transitions.
func WithMetrics(metrics *MetricsService) Option {
	return func(o *serviceOptions) {
		o.metrics = metrics
	}
}

func applyOptions(opts []Option) serviceOptions {
	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o serviceOptions) clock() time.Time {
	return o.now().UTC()
}

func (o serviceOptions) invalidate(ctx context.Context, logger *zap.Logger) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Invalidate(ctx, DashboardCachePattern); err != nil {
		logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// labelPrefixPattern accepts prefixes that survive hyphen trimming and read back through Extract.
var labelPrefixPattern = regexp.MustCompile(`^-*[A-Za-z0-9][A-Za-z0-9-]*$`)

// NewValidator returns a validator reporting fields by their json or form names.
// It also registers the "labelprefix" tag used by identifier prefixes.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("labelprefix", func(fl validator.FieldLevel) bool {
		return labelPrefixPattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return field.Name
	})
	return v
}

// validationFailure converts validator output into a VALIDATION_ERROR carrying field details.
func validationFailure(err error, message string) *appErrors.Error {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	appErr := appErrors.Validation(message, details)
	appErr.Err = err
	return appErr
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func defaultValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	return v
}
